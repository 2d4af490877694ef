// AngelaMos | 2026
// handler.go

package security

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/reelvault/reelvault/internal/core"
	"github.com/reelvault/reelvault/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the strike report endpoint. It sits behind optional
// auth (the e-mail flow has no session) and a dedicated rate limiter; a
// flood of fabricated reports must not become a self-service revocation
// tool.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	optionalAuth, rateLimiter func(http.Handler) http.Handler,
) {
	r.Route("/security", func(r chi.Router) {
		r.Use(optionalAuth)
		r.Use(rateLimiter)

		r.Post("/events", h.ReportEvent)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/security", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/", h.AdminAction)
		r.Get("/{entitlementID}/log", h.GetLog)
	})
}

func (h *Handler) ReportEvent(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result, err := h.service.Report(r.Context(), Report{
		EntitlementID: req.EntitlementID,
		EventType:     req.EventType,
		IPAddress:     clientIP(r),
		UserAgent:     r.UserAgent(),
		Details:       req.Details,
	})
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "entitlement")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, result)
}

func (h *Handler) AdminAction(w http.ResponseWriter, r *http.Request) {
	var req AdminActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	adminID := middleware.GetUserID(r.Context())

	var result *ReportResult
	var err error
	switch req.Action {
	case "revoke_access":
		result, err = h.service.AdminRevoke(
			r.Context(),
			req.EntitlementID,
			adminID,
			req.Reason,
		)
	case "reset_strikes":
		result, err = h.service.ResetStrikes(
			r.Context(),
			req.EntitlementID,
			adminID,
			req.Reason,
		)
	}

	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "entitlement")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, result)
}

func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	entitlementID := chi.URLParam(r, "entitlementID")

	entries, err := h.service.History(r.Context(), entitlementID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToLogEntryResponseList(entries))
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
