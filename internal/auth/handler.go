// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/paywall-blog/internal/core"
	"github.com/carterperez-dev/paywall-blog/internal/middleware"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

type Handler struct {
	service   *Service
	cookie    CookieConfig
	validator *validator.Validate
}

func NewHandler(service *Service, cookie CookieConfig) *Handler {
	return &Handler{
		service:   service,
		cookie:    cookie,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.With(authenticator).Post("/confirm/resend", h.ResendConfirmation)
	})

	r.Get(ConfirmPath, h.ConfirmUser)
	r.Get(DeletePath, h.DeleteUser)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeRequest(r, &req, func(get func(string) string) {
		req.Email = get("email")
		req.Username = get("username")
		req.Password = get("password")
		req.PasswordRepeat = get("password_repeat")
	}); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	session, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			core.JSONError(w, core.DuplicateError("email"))
		case errors.Is(err, ErrUsernameExists):
			core.JSONError(w, core.DuplicateError("username"))
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, err.Error())
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	h.setSessionCookie(w, session)
	h.respond(w, r, http.StatusCreated, session)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeRequest(r, &req, func(get func(string) string) {
		req.Email = get("email")
		req.Password = get("password")
	}); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	session, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			core.JSONError(
				w,
				core.UnauthorizedError("invalid email or password"),
			)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	h.setSessionCookie(w, session)
	h.respond(w, r, http.StatusOK, session)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)

	if core.WantsJSON(r) {
		core.NoContent(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	if err := h.service.ResendConfirmation(r.Context(), userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

// ConfirmUser handles the emailed confirmation link. When the browser
// already holds a session for the confirmed account the cookie is
// reissued so the page it lands on reflects the new state.
func (h *Handler) ConfirmUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.service.ConfirmUser(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		handleActionError(w, err)
		return
	}

	if claims := h.currentClaims(r); claims != nil && claims.UserID == id {
		if session, err := h.service.Reissue(r.Context(), id); err == nil {
			h.setSessionCookie(w, session)
		}
	}

	if core.WantsJSON(r) {
		core.OK(w, map[string]any{"user_id": id, "confirmed": true})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.service.DeleteUser(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		handleActionError(w, err)
		return
	}

	if claims := h.currentClaims(r); claims != nil && claims.UserID == id {
		h.clearSessionCookie(w)
	}

	if core.WantsJSON(r) {
		core.OK(w, map[string]any{"user_id": id, "deleted": true})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RefreshSession reissues the session cookie for userID.
func (h *Handler) RefreshSession(
	w http.ResponseWriter,
	r *http.Request,
	userID uint64,
) error {
	session, err := h.service.Reissue(r.Context(), userID)
	if err != nil {
		return err
	}
	h.setSessionCookie(w, session)
	return nil
}

// SettlePurchase reissues the caller's session when the account owns
// articleID but the session token predates the grant.
func (h *Handler) SettlePurchase(
	w http.ResponseWriter,
	r *http.Request,
	articleID string,
) bool {
	claims := h.currentClaims(r)
	if claims == nil {
		return false
	}
	if MatchesGrant(articleID, claims.Grants) {
		return true
	}

	session, err := h.service.Reissue(r.Context(), claims.UserID)
	if err != nil || !slices.Contains(session.User.Articles, articleID) {
		return false
	}
	h.setSessionCookie(w, session)
	return true
}

func (h *Handler) currentClaims(r *http.Request) *middleware.SessionClaims {
	token := middleware.ExtractToken(r, h.cookie.Name)
	if token == "" {
		return nil
	}
	claims, err := h.service.tokens.VerifySession(token)
	if err != nil {
		return nil
	}
	return claims
}

func (h *Handler) respond(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	session *Session,
) {
	if core.WantsJSON(r) {
		core.JSON(w, status, core.Response{
			Success: true,
			Data: AuthResponse{
				User:      toUserResponse(session.User),
				ExpiresAt: session.ExpiresAt,
			},
		})
		return
	}
	http.Redirect(w, r, core.SafeRedirect(r.PostFormValue("redirect"), "/"), http.StatusSeeOther)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// decodeRequest fills dst from a JSON body, or from form fields through
// fromForm for plain HTML form posts.
func decodeRequest(r *http.Request, dst any, fromForm func(get func(string) string)) error {
	if core.WantsJSON(r) {
		return json.NewDecoder(r.Body).Decode(dst)
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	fromForm(r.PostForm.Get)
	return nil
}

func handleActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenInvalid), errors.Is(err, ErrUnknownPurpose):
		core.JSONError(w, core.TokenInvalidError())
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	default:
		core.InternalServerError(w, err)
	}
}
