// AngelaMos | 2026
// handler.go

package content

import (
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/paywall-blog/internal/access"
	"github.com/carterperez-dev/paywall-blog/internal/core"
)

// TierResolver decides the effective tier of a request for one item.
type TierResolver interface {
	RequestTier(r *http.Request, key Key) access.Tier
}

// PurchaseSettler catches a session up with a purchase that completed
// after the session was issued. It reports whether the caller owns
// articleID, reissuing the session cookie on w when they do.
type PurchaseSettler interface {
	SettlePurchase(w http.ResponseWriter, r *http.Request, articleID string) bool
}

type Handler struct {
	library  *Library
	resolver TierResolver
	settler  PurchaseSettler
}

func NewHandler(library *Library, resolver TierResolver) *Handler {
	return &Handler{
		library:  library,
		resolver: resolver,
	}
}

// WithPurchaseSettler makes checkout return visits (success=1) consult the
// account store when the session does not carry the article yet.
func (h *Handler) WithPurchaseSettler(s PurchaseSettler) *Handler {
	h.settler = s
	return h
}

// RegisterRoutes mounts the catch-all content routes. Register it after
// every API route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/*", h.Serve)
	r.Head("/*", h.Serve)
}

func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	key, ok := h.lookupKey(chi.URLParam(r, "*"))
	if !ok {
		core.NotFound(w, "content")
		return
	}

	tier := h.resolver.RequestTier(r, key)
	if tier < access.PaidForItem && h.settler != nil && r.URL.Query().Get("success") == "1" {
		if meta, ok := h.library.Metadata(key); ok && h.settler.SettlePurchase(w, r, meta.Identifier) {
			tier = access.PaidForItem
		}
	}

	lookup := h.library.ResolveIfChanged(
		r.Context(),
		key,
		tier,
		parseETag(r.Header.Get("If-None-Match")),
	)

	header := w.Header()
	header.Add("Vary", "Cookie")
	header.Set("Cache-Control", "private, no-cache")

	switch lookup.Status {
	case Missing:
		core.NotFound(w, "content")
	case NotModified:
		header.Set("ETag", quoteETag(lookup.Hash))
		w.WriteHeader(http.StatusNotModified)
	case Fresh:
		header.Set("ETag", quoteETag(lookup.Hash))
		header.Set("Content-Type", contentType(key))
		header.Set("Content-Length", strconv.Itoa(len(lookup.Body)))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			//nolint:errcheck // client disconnects are not actionable
			_, _ = w.Write(lookup.Body)
		}
	}
}

func (h *Handler) lookupKey(raw string) (Key, bool) {
	key, err := NormalizeKey("/" + raw)
	if err != nil {
		return "", false
	}

	if h.library.Contains(key) {
		return key, true
	}

	index := Key(strings.TrimSuffix(string(key), "/") + "/index.html")
	if h.library.Contains(index) {
		return index, true
	}

	return "", false
}

func contentType(key Key) string {
	if ct := mime.TypeByExtension(path.Ext(string(key))); ct != "" {
		return ct
	}
	return "text/html; charset=utf-8"
}

func quoteETag(hash string) string {
	return `"` + hash + `"`
}

// parseETag returns the first entity tag of an If-None-Match header
// without quotes or weak prefix.
func parseETag(header string) string {
	header = strings.TrimSpace(header)
	if header == "" || header == "*" {
		return ""
	}

	first, _, _ := strings.Cut(header, ",")
	first = strings.TrimSpace(first)
	first = strings.TrimPrefix(first, "W/")
	return strings.Trim(first, `"`)
}
