// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type ArticleResponse struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title,omitempty"`
	Link       string `json:"link,omitempty"`
}

type DashboardResponse struct {
	ID        uint64            `json:"id"`
	Username  string            `json:"username"`
	Email     string            `json:"email"`
	Role      string            `json:"role"`
	Confirmed bool              `json:"confirmed"`
	Articles  []ArticleResponse `json:"articles"`
	CreatedAt time.Time         `json:"created_at"`
}

type GrantArticleRequest struct {
	ArticleID string `json:"article_id" validate:"required,max=255"`
}

type UserResponse struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Confirmed bool      `json:"confirmed"`
	Articles  []string  `json:"articles"`
	CreatedAt time.Time `json:"created_at"`
}

type UserListResponse struct {
	Users    []UserResponse `json:"users"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

type ListUsersParams struct {
	Page     int
	PageSize int
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		Confirmed: u.Confirmed,
		Articles:  u.Articles,
		CreatedAt: u.CreatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}
