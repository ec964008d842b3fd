package auth

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	signatureHeader = "X-Signature"
	timestampHeader = "X-Signature-Timestamp"
	nonceHeader     = "X-Signature-Nonce"

	defaultClockSkew = 5 * time.Minute
	defaultNonceTTL  = 5 * time.Minute
)

// SecretProvider resolves the shared secrets used for HMAC validation.
type SecretProvider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SecretProviderFunc adapts a function to the SecretProvider interface.
type SecretProviderFunc func(context.Context, string) (string, error)

// GetSecret implements SecretProvider.
func (f SecretProviderFunc) GetSecret(ctx context.Context, name string) (string, error) {
	if f == nil {
		return "", errors.New("auth: secret provider not configured")
	}
	return f(ctx, name)
}

// NonceStore tracks signature nonces for replay prevention. UseNonce reports
// whether the nonce was stored (true) or had already been seen (false).
type NonceStore interface {
	UseNonce(ctx context.Context, scope, nonce string, expiry time.Time) (bool, error)
}

// InMemoryNonceStore is a process-local nonce registry. It is the store used
// when the service runs as a single instance and in tests.
type InMemoryNonceStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time
}

// NewInMemoryNonceStore constructs the store.
func NewInMemoryNonceStore() *InMemoryNonceStore {
	return &InMemoryNonceStore{nonces: make(map[string]time.Time)}
}

// UseNonce records the nonce until the provided expiry, rejecting replays until then.
func (s *InMemoryNonceStore) UseNonce(_ context.Context, scope, nonce string, expiry time.Time) (bool, error) {
	if scope == "" || nonce == "" {
		return false, errors.New("auth: scope and nonce are required")
	}

	key := scope + "::" + nonce

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, exp := range s.nonces {
		if exp.Before(now) {
			delete(s.nonces, k)
		}
	}

	if expiry.Before(now) {
		return false, errors.New("auth: nonce expiry is in the past")
	}

	if existing, ok := s.nonces[key]; ok && existing.After(now) {
		return false, nil
	}

	s.nonces[key] = expiry
	return true, nil
}

// HMACValidator verifies signed requests from trusted internal callers.
type HMACValidator struct {
	provider SecretProvider
	nonces   NonceStore

	logger Logger
	now    func() time.Time

	clockSkew time.Duration
	nonceTTL  time.Duration

	secretCache sync.Map
}

// HMACOption customises the validator.
type HMACOption func(*HMACValidator)

// NewHMACValidator builds a validator using the given secret provider and nonce store.
func NewHMACValidator(provider SecretProvider, nonces NonceStore, opts ...HMACOption) *HMACValidator {
	validator := &HMACValidator{
		provider:  provider,
		nonces:    nonces,
		logger:    log.Default(),
		now:       time.Now,
		clockSkew: defaultClockSkew,
		nonceTTL:  defaultNonceTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(validator)
		}
	}

	return validator
}

// WithHMACLogger overrides the validator logger.
func WithHMACLogger(logger Logger) HMACOption {
	return func(v *HMACValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithHMACClock injects a custom clock, primarily for tests.
func WithHMACClock(now func() time.Time) HMACOption {
	return func(v *HMACValidator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithHMACClockSkew adjusts the accepted timestamp skew.
func WithHMACClockSkew(d time.Duration) HMACOption {
	return func(v *HMACValidator) {
		if d > 0 {
			v.clockSkew = d
		}
	}
}

// WithHMACNonceTTL customises the nonce retention duration.
func WithHMACNonceTTL(d time.Duration) HMACOption {
	return func(v *HMACValidator) {
		if d > 0 {
			v.nonceTTL = d
		}
	}
}

// HMACMetadata describes the verified signature for downstream handlers.
type HMACMetadata struct {
	SecretName string
	Timestamp  time.Time
	Nonce      string
	Signature  []byte
}

type hmacContextKey struct{}

// WithHMACMetadata stores the metadata on the context.
func WithHMACMetadata(ctx context.Context, meta *HMACMetadata) context.Context {
	if meta == nil {
		return ctx
	}
	return context.WithValue(ctx, hmacContextKey{}, meta)
}

// HMACMetadataFromContext retrieves metadata from the context.
func HMACMetadataFromContext(ctx context.Context) (*HMACMetadata, bool) {
	meta, ok := ctx.Value(hmacContextKey{}).(*HMACMetadata)
	if !ok || meta == nil {
		return nil, false
	}
	return meta, true
}

// RequireHMAC enforces a valid HMAC signature on every request it wraps.
func (v *HMACValidator) RequireHMAC(secretName string) func(http.Handler) http.Handler {
	scopedSecret := strings.TrimSpace(secretName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			meta, denied := v.verify(ctx, r, scopedSecret)
			if denied != nil {
				writeAuthError(ctx, w, denied)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithHMACMetadata(ctx, meta)))
		})
	}
}

func (v *HMACValidator) verify(ctx context.Context, r *http.Request, secretName string) (*HMACMetadata, *denial) {
	if secretName == "" {
		return nil, deny(http.StatusServiceUnavailable, "verification_unavailable", "hmac secret not configured", "secret_not_configured")
	}

	secret, err := v.loadSecret(ctx, secretName)
	if err != nil {
		if v.logger != nil {
			v.logger.Printf("auth: hmac secret lookup failed: %v", err)
		}
		return nil, deny(http.StatusServiceUnavailable, "verification_unavailable", "hmac secret unavailable", "secret_unavailable")
	}

	signatureValue := strings.TrimSpace(r.Header.Get(signatureHeader))
	if signatureValue == "" {
		return nil, deny(http.StatusUnauthorized, "signature_missing", "signature header missing", "signature_missing")
	}

	timestampValue := strings.TrimSpace(r.Header.Get(timestampHeader))
	if timestampValue == "" {
		return nil, deny(http.StatusUnauthorized, "timestamp_missing", "signature timestamp missing", "timestamp_missing")
	}

	timestamp, err := parseSignatureTimestamp(timestampValue)
	if err != nil {
		return nil, deny(http.StatusUnauthorized, "timestamp_invalid", "signature timestamp invalid", "timestamp_invalid")
	}

	if skew := v.now().Sub(timestamp); skew > v.clockSkew || skew < -v.clockSkew {
		return nil, deny(http.StatusUnauthorized, "timestamp_skew", "signature timestamp outside allowed window", "timestamp_skew")
	}

	nonce := strings.TrimSpace(r.Header.Get(nonceHeader))
	if nonce == "" {
		return nil, deny(http.StatusUnauthorized, "nonce_missing", "signature nonce missing", "nonce_missing")
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return nil, deny(http.StatusBadRequest, "invalid_body", "unable to read body for signature verification", "body_unreadable")
	}

	signature, err := decodeSignature(signatureValue)
	if err != nil {
		return nil, deny(http.StatusUnauthorized, "signature_invalid", "signature encoding invalid", "signature_invalid")
	}

	expected := computeHMAC(secret, buildCanonicalString(r, body, timestampValue, nonce))
	if !hmac.Equal(signature, expected) {
		return nil, deny(http.StatusUnauthorized, "signature_mismatch", "signature verification failed", "signature_mismatch")
	}

	if v.nonces == nil {
		return nil, deny(http.StatusServiceUnavailable, "verification_unavailable", "nonce store unavailable", "nonce_store_unavailable")
	}

	ttl := timestamp.Add(v.nonceTTL)
	if ttl.Before(v.now()) {
		ttl = v.now().Add(v.nonceTTL)
	}

	stored, err := v.nonces.UseNonce(ctx, secretName, nonce, ttl)
	if err != nil {
		if v.logger != nil {
			v.logger.Printf("auth: nonce store error: %v", err)
		}
		return nil, deny(http.StatusServiceUnavailable, "verification_unavailable", "nonce storage error", "nonce_store_error")
	}
	if !stored {
		return nil, deny(http.StatusUnauthorized, "nonce_replay", "duplicate signature nonce", "nonce_replay")
	}

	return &HMACMetadata{
		SecretName: secretName,
		Timestamp:  timestamp,
		Nonce:      nonce,
		Signature:  signature,
	}, nil
}

func (v *HMACValidator) loadSecret(ctx context.Context, name string) ([]byte, error) {
	if v == nil || v.provider == nil {
		return nil, errors.New("auth: secret provider not configured")
	}

	if cached, ok := v.secretCache.Load(name); ok {
		if secret, ok := cached.([]byte); ok && len(secret) > 0 {
			return secret, nil
		}
	}

	raw, err := v.provider.GetSecret(ctx, name)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, errors.New("auth: secret is empty")
	}

	secret := []byte(raw)
	v.secretCache.Store(name, secret)
	return secret, nil
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()

	buf, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewReader(buf))
	return buf, nil
}

func decodeSignature(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("auth: empty signature")
	}
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	if decoded, err := hex.DecodeString(value); err == nil {
		return decoded, nil
	}
	return nil, errors.New("auth: signature must be base64 or hex encoded")
}

func parseSignatureTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("auth: timestamp empty")
	}

	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC(), nil
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(seconds, 0).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("auth: unable to parse timestamp %q", value)
}

// buildCanonicalString joins method, path, timestamp, nonce, and the body
// digest with newlines. Signers must produce the same shape.
func buildCanonicalString(r *http.Request, body []byte, timestamp, nonce string) []byte {
	path := r.URL.EscapedPath()
	if path == "" {
		path = "/"
	}

	digest := sha256.Sum256(body)
	canonical := strings.Join([]string{
		strings.ToUpper(r.Method),
		path,
		timestamp,
		nonce,
		hex.EncodeToString(digest[:]),
	}, "\n")
	return []byte(canonical)
}

func computeHMAC(secret, message []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(message)
	return mac.Sum(nil)
}
