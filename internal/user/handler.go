// AngelaMos | 2026
// handler.go

package user

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/paywall-blog/internal/auth"
	"github.com/carterperez-dev/paywall-blog/internal/core"
	"github.com/carterperez-dev/paywall-blog/internal/middleware"
)

// SessionRefresher reissues the caller's session cookie.
type SessionRefresher interface {
	RefreshSession(w http.ResponseWriter, r *http.Request, userID uint64) error
}

type DeletionRequester interface {
	RequestDeletion(ctx context.Context, userID uint64) error
}

type Handler struct {
	service   *Service
	sessions  SessionRefresher
	deletion  DeletionRequester
	validator *validator.Validate
}

func NewHandler(
	service *Service,
	sessions SessionRefresher,
	deletion DeletionRequester,
) *Handler {
	return &Handler{
		service:   service,
		sessions:  sessions,
		deletion:  deletion,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.Post("/me/delete-request", h.RequestDeletion)
	})
}

// GetMe returns the dashboard. When the account owns articles the session
// token does not list yet, the cookie is reissued first.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		core.Unauthorized(w, "")
		return
	}

	dashboard, err := h.service.Dashboard(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	if h.sessions != nil && staleGrants(dashboard, claims.Grants) {
		if err := h.sessions.RefreshSession(w, r, claims.UserID); err != nil {
			slog.WarnContext(r.Context(), "session refresh failed",
				"user_id", claims.UserID,
				"error", err,
			)
		}
	}

	core.OK(w, dashboard)
}

func (h *Handler) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	if err := h.deletion.RequestDeletion(r.Context(), userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.JSON(w, http.StatusAccepted, core.Response{
		Success: true,
		Data:    map[string]string{"status": "deletion link sent"},
	})
}

// RegisterAdminRoutes registers admin-only account management endpoints.
func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/users", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListUsers)
		r.Get("/{userID}", h.GetUser)
		r.Post("/{userID}/articles", h.GrantArticle)
		r.Delete("/{userID}", h.DeleteUser)
	})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := ListUsersParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
	}
	params.Normalize()

	users, total := h.service.ListUsers(r.Context(), params)

	core.OK(w, UserListResponse{
		Users:    ToUserResponseList(users),
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToUserResponse(user))
}

// GrantArticle gives a user an article without a payment.
func (h *Handler) GrantArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var req GrantArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if err := h.service.GrantArticle(r.Context(), id, req.ArticleID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	requesterID, _ := middleware.GetUserID(r.Context())

	if err := h.service.DeleteUser(r.Context(), requesterID, id); err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "user")
		case errors.Is(err, core.ErrForbidden):
			core.Forbidden(w, "cannot delete another admin")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.NoContent(w)
}

func staleGrants(d *DashboardResponse, grants []string) bool {
	for _, a := range d.Articles {
		if !auth.MatchesGrant(a.Identifier, grants) {
			return true
		}
	}
	return false
}

func parseUserID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		core.BadRequest(w, "invalid user id")
		return 0, false
	}
	return id, true
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return intVal
}
