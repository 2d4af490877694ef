// AngelaMos | 2026
// handler.go

package stream

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelvault/reelvault/internal/core"
	"github.com/reelvault/reelvault/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type StreamResponse struct {
	SignedURL string    `json:"signed_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RegisterRoutes mounts the stream endpoint behind optional auth: the
// session flow authenticates with a bearer token, the e-mail flow with a
// ?token= query parameter, and a request with neither is rejected.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	optionalAuth func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)

		r.Get("/stream/{contentID}", h.GetStreamURL)
	})
}

func (h *Handler) GetStreamURL(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "contentID")

	var signed *SignedURL
	var err error

	if token := r.URL.Query().Get("token"); token != "" {
		signed, err = h.service.ExchangeToken(r.Context(), token, contentID)
	} else if userID := middleware.GetUserID(r.Context()); userID != "" {
		signed, err = h.service.IssueForUser(
			r.Context(), userID, contentID, clientIP(r),
		)
	} else {
		core.Unauthorized(w, "session or access token required")
		return
	}

	if err != nil {
		h.handleIssueError(w, err)
		return
	}

	core.OK(w, StreamResponse{
		SignedURL: signed.URL,
		ExpiresAt: signed.ExpiresAt,
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

func (h *Handler) handleIssueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrAccessExpired):
		core.JSONError(w, core.AccessExpiredError())
	case errors.Is(err, core.ErrForbidden):
		core.JSONError(w, core.PurchaseRequiredError())
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "content")
	case errors.Is(err, core.ErrUpstream):
		core.JSONError(w, core.UpstreamError("storage signing unavailable"))
	default:
		core.InternalServerError(w, err)
	}
}
