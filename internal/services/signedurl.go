package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	pkgerrors "github.com/splitlab/splitlab-backend/internal/pkg/errors"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

const (
	// DefaultSignedTTL is applied when the caller requests no TTL.
	DefaultSignedTTL = 300_000 * time.Millisecond
	// MaxSignedTTL is the hard ceiling on any grant.
	MaxSignedTTL = 3_600_000 * time.Millisecond
)

// SignedURL is a time-bounded, tamper-evident read grant for a storage key.
type SignedURL struct {
	Key string `json:"key"`
	// Exp is the expiry instant in epoch milliseconds.
	Exp int64  `json:"exp"`
	Sig string `json:"sig"`
}

type SignedURLService interface {
	Issue(key string, ttl time.Duration) (SignedURL, error)
	Verify(key string, exp int64, sig string) error
}

type signedURLService struct {
	log    *logger.Logger
	secret []byte
	// allowBypass skips verification for local diagnostics. It must be
	// hard-disabled for production builds; the constructor enforces that.
	allowBypass bool
	now         func() time.Time
}

func NewSignedURLService(baseLog *logger.Logger, secret string, allowBypass bool, production bool) (SignedURLService, error) {
	if secret == "" {
		return nil, fmt.Errorf("signed URL secret is required")
	}
	if production && allowBypass {
		baseLog.Warn("signed URL bypass requested in production, forcing off")
		allowBypass = false
	}
	return &signedURLService{
		log:         baseLog.With("service", "SignedURLService"),
		secret:      []byte(secret),
		allowBypass: allowBypass,
		now:         time.Now,
	}, nil
}

func (s *signedURLService) sign(key string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s.%d", key, exp)
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue clamps the requested TTL into [0, MaxSignedTTL] and returns the
// signed grant. A zero TTL falls back to the default.
func (s *signedURLService) Issue(key string, ttl time.Duration) (SignedURL, error) {
	if key == "" {
		return SignedURL{}, fmt.Errorf("%w: storage key is required", pkgerrors.ErrInvalidArgument)
	}
	if ttl <= 0 {
		ttl = DefaultSignedTTL
	}
	if ttl > MaxSignedTTL {
		ttl = MaxSignedTTL
	}
	exp := s.now().Add(ttl).UnixMilli()
	return SignedURL{Key: key, Exp: exp, Sig: s.sign(key, exp)}, nil
}

// Verify rejects expired grants first, then recomputes the signature in
// constant time. Expiry is purely time-based; there is no revocation list.
func (s *signedURLService) Verify(key string, exp int64, sig string) error {
	if s.allowBypass {
		s.log.Warn("signature verification bypassed", "key", key)
		return nil
	}
	if s.now().UnixMilli() > exp {
		return pkgerrors.ErrSignatureExpired
	}
	expected := s.sign(key, exp)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return pkgerrors.ErrSignatureInvalid
	}
	return nil
}
