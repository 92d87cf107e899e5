package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/deviceline/inventory/internal/adapter/deviceauth"
	"github.com/deviceline/inventory/internal/port/cache"
)

// AuthVerifyService answers auth sub-request style verification queries by
// consulting the external validator, memoizing verdicts briefly so a burst of
// proxied requests with the same token costs one upstream call.
type AuthVerifyService struct {
	client  *deviceauth.Client
	verdict cache.Cache
	ttl     time.Duration
	logger  *slog.Logger
}

// NewAuthVerifyService creates an AuthVerifyService. verdict may be nil to
// disable memoization.
func NewAuthVerifyService(client *deviceauth.Client, verdict cache.Cache, ttl time.Duration, logger *slog.Logger) *AuthVerifyService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &AuthVerifyService{
		client:  client,
		verdict: verdict,
		ttl:     ttl,
		logger:  logger,
	}
}

// Verify returns the validator's verdict for the token/request pair.
// Unavailable-validator errors are never cached.
func (s *AuthVerifyService) Verify(ctx context.Context, token, originalURI, originalMethod string) (deviceauth.Verdict, error) {
	key := verdictKey(token, originalURI, originalMethod)
	if s.verdict != nil {
		if raw, ok, err := s.verdict.Get(ctx, key); err == nil && ok && len(raw) == 1 {
			return deviceauth.Verdict(raw[0]), nil
		}
	}

	v, err := s.client.Verify(ctx, token, originalURI, originalMethod)
	if err != nil {
		return v, err
	}

	if s.verdict != nil {
		if err := s.verdict.Set(ctx, key, []byte{byte(v)}, s.ttl); err != nil {
			s.logger.Warn("failed to cache auth verdict", "error", err)
		}
	}
	return v, nil
}

// verdictKey hashes the token so raw credentials never sit in cache memory.
func verdictKey(token, uri, method string) string {
	h := sha256.Sum256([]byte(token + "\x00" + method + "\x00" + uri))
	return "verdict:" + hex.EncodeToString(h[:])
}
