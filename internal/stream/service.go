// AngelaMos | 2026
// service.go

package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reelvault/reelvault/internal/catalog"
	"github.com/reelvault/reelvault/internal/core"
	"github.com/reelvault/reelvault/internal/entitlement"
)

// AccessResolver is the slice of the entitlement service the issuer needs.
type AccessResolver interface {
	HasAccess(
		ctx context.Context,
		userID, contentID string,
	) (bool, *entitlement.Purchase, error)
	BindIP(ctx context.Context, id, ip string) error
}

// ContentSource resolves content ids to storage paths.
type ContentSource interface {
	GetContent(ctx context.Context, contentID string) (*catalog.Content, error)
}

type SignedURL struct {
	URL       string
	ExpiresAt time.Time
}

// Service is the signed-URL issuer. URLs are deliberately short-lived; the
// player re-requests one before the current URL lapses, so a lapsed URL is
// ordinary re-authorization, not an error condition on its own.
type Service struct {
	signer   Signer
	tokens   Repository
	access   AccessResolver
	contents ContentSource
	urlTTL   time.Duration
	tokenTTL time.Duration
	now      func() time.Time
}

func NewService(
	signer Signer,
	tokens Repository,
	access AccessResolver,
	contents ContentSource,
	urlTTL, tokenTTL time.Duration,
) *Service {
	return &Service{
		signer:   signer,
		tokens:   tokens,
		access:   access,
		contents: contents,
		urlTTL:   urlTTL,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// IssueForUser authorizes the session flow and signs a URL. Rental
// entitlements cap the URL at their remaining window and lapse with
// core.ErrAccessExpired; permanent entitlements get the fixed rotation TTL.
// The first issuance pins the purchase to the caller's address.
func (s *Service) IssueForUser(
	ctx context.Context,
	userID, contentID, clientIP string,
) (*SignedURL, error) {
	content, err := s.contents.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if content.StoragePath == "" {
		return nil, fmt.Errorf(
			"content %s is not streamable: %w",
			contentID,
			core.ErrNotFound,
		)
	}

	purchase, err := s.authorize(ctx, userID, content)
	if err != nil {
		return nil, err
	}

	if purchase != nil && purchase.BoundIP == nil && clientIP != "" {
		if err := s.access.BindIP(ctx, purchase.ID, clientIP); err != nil {
			return nil, fmt.Errorf("bind client address: %w", err)
		}
	}

	now := s.now()
	ttl := s.urlTTL
	if purchase != nil && purchase.ExpiresAt != nil {
		remaining := purchase.ExpiresAt.Sub(now)
		if remaining <= 0 {
			return nil, fmt.Errorf(
				"entitlement lapsed: %w",
				core.ErrAccessExpired,
			)
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	return s.sign(content.StoragePath, now.Add(ttl))
}

// authorize checks the exact content id first; for a video inside a
// collection, owning the collection also grants the video.
func (s *Service) authorize(
	ctx context.Context,
	userID string,
	content *catalog.Content,
) (*entitlement.Purchase, error) {
	ok, purchase, err := s.access.HasAccess(ctx, userID, content.ID)
	if err != nil {
		return nil, err
	}
	if !ok && content.CollectionID != nil {
		ok, purchase, err = s.access.HasAccess(ctx, userID, *content.CollectionID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("no entitlement: %w", core.ErrForbidden)
	}

	return purchase, nil
}

// MintAccessToken creates a fresh opaque token for the e-mail flow. One per
// verification call; older unexpired tokens stay valid.
func (s *Service) MintAccessToken(
	ctx context.Context,
	userID, contentID string,
) (string, time.Time, error) {
	if _, err := s.contents.GetContent(ctx, contentID); err != nil {
		return "", time.Time{}, err
	}

	raw, err := core.GenerateSecureToken(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("mint access token: %w", err)
	}

	expiresAt := s.now().Add(s.tokenTTL)
	token := &AccessToken{
		ID:        uuid.New().String(),
		TokenHash: core.HashToken(raw),
		UserID:    userID,
		ContentID: contentID,
		ExpiresAt: expiresAt,
	}

	if err := s.tokens.Insert(ctx, token); err != nil {
		return "", time.Time{}, err
	}

	return raw, expiresAt, nil
}

// ExchangeToken validates token + content id + expiry and signs a URL whose
// TTL is the token's remaining lifetime. Re-exchanging never extends access.
func (s *Service) ExchangeToken(
	ctx context.Context,
	rawToken, contentID string,
) (*SignedURL, error) {
	token, err := s.tokens.FindByHash(ctx, core.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("unknown access token: %w", core.ErrForbidden)
		}
		return nil, err
	}

	if token.ContentID != contentID {
		return nil, fmt.Errorf(
			"token not valid for this content: %w",
			core.ErrForbidden,
		)
	}

	now := s.now()
	if token.IsExpired(now) {
		return nil, fmt.Errorf("access token lapsed: %w", core.ErrAccessExpired)
	}

	content, err := s.contents.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if content.StoragePath == "" {
		return nil, fmt.Errorf(
			"content %s is not streamable: %w",
			contentID,
			core.ErrNotFound,
		)
	}

	return s.sign(content.StoragePath, token.ExpiresAt)
}

func (s *Service) sign(
	storagePath string,
	expiresAt time.Time,
) (*SignedURL, error) {
	signed, err := s.signer.Sign(storagePath, expiresAt)
	if err != nil {
		return nil, err
	}

	return &SignedURL{URL: signed, ExpiresAt: expiresAt}, nil
}
