// AngelaMos | 2026
// handler.go

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/reelvault/reelvault/internal/core"
	"github.com/reelvault/reelvault/internal/middleware"
)

const maxWebhookBody = 1 << 20

// TokenMinter issues opaque access tokens for the anonymous/e-mail watch
// flow. Implemented by the stream service.
type TokenMinter interface {
	MintAccessToken(
		ctx context.Context,
		userID, contentID string,
	) (string, time.Time, error)
}

type Handler struct {
	client     Client
	reconciler *Reconciler
	tokens     TokenMinter
	validator  *validator.Validate
	logger     *slog.Logger
}

func NewHandler(
	client Client,
	reconciler *Reconciler,
	tokens TokenMinter,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		client:     client,
		reconciler: reconciler,
		tokens:     tokens,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	optionalAuth func(http.Handler) http.Handler,
) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/webhook", h.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Post("/verify", h.Verify)
		})
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/payments", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/replay", h.Replay)
	})
}

// Webhook handles provider push delivery. The raw body is read before any
// parsing because the signature covers the exact bytes sent.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		core.BadRequest(w, "unreadable body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := h.client.VerifyWebhookSignature(payload, signature); err != nil {
		h.logger.Warn("webhook signature rejected", "error", err)
		core.JSONError(w, core.BadSignatureError())
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		core.BadRequest(w, "malformed event payload")
		return
	}

	if event.Type != "checkout.session.completed" {
		core.OK(w, WebhookResponse{Received: true, EventID: event.ID})
		return
	}

	var ref webhookSessionRef
	if err := json.Unmarshal(event.Data.Object, &ref); err != nil || ref.ID == "" {
		core.BadRequest(w, "event carries no session id")
		return
	}

	if _, err := h.reconciler.Reconcile(r.Context(), ref.ID); err != nil {
		h.handleReconcileError(w, ref.ID, err)
		return
	}

	core.OK(w, WebhookResponse{
		Received: true,
		Handled:  true,
		EventID:  event.ID,
	})
}

// Verify is the client polling adapter. For the e-mail flow (no session
// auth) it also mints an access token so the payer can reach the stream
// endpoint without an account login.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), req.SessionID)
	if err != nil {
		h.handleReconcileError(w, req.SessionID, err)
		return
	}

	resp := VerifyResponse{Reconciled: true, Result: result}

	if !middleware.IsAuthenticated(r.Context()) && req.ContentID != "" {
		// The token is only ever minted for content this session paid
		// for; the caller does not get to name an arbitrary catalog item.
		covered, err := h.reconciler.Covers(r.Context(), result, req.ContentID)
		if err != nil {
			h.logger.Error("coverage check failed",
				"session_id", req.SessionID,
				"content_id", req.ContentID,
				"error", err,
			)
			core.InternalServerError(w, err)
			return
		}
		if !covered {
			core.JSONError(w, core.PurchaseRequiredError())
			return
		}

		token, expiresAt, err := h.tokens.MintAccessToken(
			r.Context(),
			result.UserID,
			req.ContentID,
		)
		if err != nil {
			h.logger.Error("access token mint failed",
				"session_id", req.SessionID,
				"content_id", req.ContentID,
				"error", err,
			)
			core.InternalServerError(w, err)
			return
		}
		resp.AccessToken = token
		resp.TokenExpiry = &expiresAt
	}

	core.OK(w, resp)
}

// Replay is the manual admin adapter: same path as the webhook, triggered
// explicitly after a logged reconciliation failure.
func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	var req ReplayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	h.logger.Info("manual replay requested",
		"session_id", req.SessionID,
		"admin_id", middleware.GetUserID(r.Context()),
	)

	result, err := h.reconciler.Reconcile(r.Context(), req.SessionID)
	if err != nil {
		h.handleReconcileError(w, req.SessionID, err)
		return
	}

	core.OK(w, VerifyResponse{Reconciled: true, Result: result})
}

func (h *Handler) handleReconcileError(
	w http.ResponseWriter,
	sessionID string,
	err error,
) {
	h.logger.Error("reconciliation failed",
		"session_id", sessionID,
		"error", err,
	)

	switch {
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "payment session")
	default:
		// Partial grants and provider failures are retryable; the caller
		// replays the whole event.
		core.JSONError(w, core.UpstreamError("payment reconciliation failed"))
	}
}
