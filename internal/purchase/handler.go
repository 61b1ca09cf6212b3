// AngelaMos | 2026
// handler.go

package purchase

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/paywall-blog/internal/content"
	"github.com/carterperez-dev/paywall-blog/internal/core"
	"github.com/carterperez-dev/paywall-blog/internal/middleware"
)

const WebhookPath = "/webhooks/payment"

// SessionRefresher reissues the caller's session cookie.
type SessionRefresher interface {
	RefreshSession(w http.ResponseWriter, r *http.Request, userID uint64) error
}

type Handler struct {
	service    *Service
	reconciler *Reconciler
	sessions   SessionRefresher
}

func NewHandler(service *Service, reconciler *Reconciler) *Handler {
	return &Handler{service: service, reconciler: reconciler}
}

// WithSessionRefresher lets checkout of an owned article bring the
// buyer's session up to date before sending them to the article.
func (h *Handler) WithSessionRefresher(s SessionRefresher) *Handler {
	h.sessions = s
	return h
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Post(WebhookPath, h.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Post("/purchase/*", h.Checkout)
		r.Get("/purchases", h.History)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.With(authenticator, adminOnly).Get("/admin/purchases", h.Recent)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	key, err := content.NormalizeKey(chi.URLParam(r, "*"))
	if err != nil {
		core.BadRequest(w, "invalid article path")
		return
	}

	url, err := h.service.Checkout(r.Context(), key, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotPurchasable):
			core.NotFound(w, "article")
		case errors.Is(err, ErrAlreadyOwned):
			h.alreadyOwned(w, r, key, userID)
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	if core.WantsJSON(r) {
		core.OK(w, map[string]string{"url": url})
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// alreadyOwned sends the buyer to the article they paid for. The session
// usually lags behind a webhook grant, so it is reissued first.
func (h *Handler) alreadyOwned(
	w http.ResponseWriter,
	r *http.Request,
	key content.Key,
	userID uint64,
) {
	if h.sessions != nil {
		if err := h.sessions.RefreshSession(w, r, userID); err != nil {
			slog.WarnContext(r.Context(), "session refresh failed",
				"user_id", userID,
				"error", err,
			)
		}
	}

	if core.WantsJSON(r) {
		core.OK(w, map[string]any{"url": string(key), "owned": true})
		return
	}
	http.Redirect(w, r, string(key), http.StatusSeeOther)
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProviderPayload))
	if err != nil {
		core.BadRequest(w, "unreadable payload")
		return
	}

	outcome, err := h.reconciler.Handle(r.Context(), payload, r.Header.Get(SignatureHeader))
	switch {
	case err == nil:
		core.OK(w, map[string]string{"outcome": outcome.String()})
	case outcome == OutcomeRejected:
		core.BadRequest(w, "webhook rejected")
	default:
		core.InternalServerError(w, err)
	}
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	records, err := h.service.History(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, records)
}

func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = 50
	}

	records, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, records)
}
