// AngelaMos | 2026
// signer.go

package stream

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/reelvault/reelvault/internal/config"
	"github.com/reelvault/reelvault/internal/core"
)

// Signer produces URLs the storage edge will honor until expiry and no
// longer. Implementations must surface failures as core.ErrUpstream so the
// handler can mark them retryable.
type Signer interface {
	Sign(storagePath string, expiresAt time.Time) (string, error)
}

// EdgeSigner implements CDN token auth: the edge recomputes
// HMAC-SHA256(key, "<path>:<expires>") and compares it against the token
// query parameter.
type EdgeSigner struct {
	baseURL string
	key     []byte
}

func NewEdgeSigner(cfg config.StorageConfig) (*EdgeSigner, error) {
	if _, err := url.Parse(cfg.EdgeBaseURL); err != nil {
		return nil, fmt.Errorf("parse edge base url: %w", err)
	}
	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("storage signing key is empty")
	}

	return &EdgeSigner{
		baseURL: strings.TrimSuffix(cfg.EdgeBaseURL, "/"),
		key:     []byte(cfg.SigningKey),
	}, nil
}

func (s *EdgeSigner) Sign(
	storagePath string,
	expiresAt time.Time,
) (string, error) {
	cleanPath := strings.TrimPrefix(storagePath, "/")
	if cleanPath == "" {
		return "", fmt.Errorf("sign url: empty storage path: %w", core.ErrUpstream)
	}

	expires := expiresAt.Unix()
	token := s.token(cleanPath, expires)

	signed, err := url.Parse(s.baseURL + "/" + cleanPath)
	if err != nil {
		return "", fmt.Errorf("sign url: %v: %w", err, core.ErrUpstream)
	}

	query := signed.Query()
	query.Set("token", token)
	query.Set("expires", strconv.FormatInt(expires, 10))
	signed.RawQuery = query.Encode()

	return signed.String(), nil
}

// Validate checks a token the way the edge would. Only used by tests and
// tooling; the production validator runs at the CDN.
func (s *EdgeSigner) Validate(
	storagePath, token string,
	expires int64,
	now time.Time,
) bool {
	if now.Unix() >= expires {
		return false
	}
	cleanPath := strings.TrimPrefix(storagePath, "/")
	expected := s.token(cleanPath, expires)
	return hmac.Equal([]byte(token), []byte(expected))
}

func (s *EdgeSigner) token(cleanPath string, expires int64) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(cleanPath))
	mac.Write([]byte(":"))
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ Signer = (*EdgeSigner)(nil)
