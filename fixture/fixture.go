// Package fixture builds sample signed JWTs, with the key pair and JWK that
// verify them, for tests of JWT verification code.
//
// A Fixture is not safe for concurrent use. Parallel tests should each
// create their own; key providers can be shared.
package fixture

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudfoundry/jwt-fixture/config"
	"github.com/cloudfoundry/jwt-fixture/keys"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options are per-call overrides for the setup methods
type Options struct {
	// Header is shallow-merged over the default header
	Header map[string]interface{}

	// Payload is shallow-merged over the default claims
	Payload map[string]interface{}

	SignOptions *SignOptions
}

// SignOptions are passed through to signing
type SignOptions struct {
	// Algorithm overrides the header alg. Only RSA algorithms are supported.
	Algorithm string
}

// Token is the bundle produced by a setup call
type Token struct {
	KeyPair           *keys.KeyPair
	Header            map[string]interface{}
	Payload           map[string]interface{}
	TokenString       string
	Signature         string
	BearerTokenString string
	JWK               map[string]interface{}
}

// KeyID returns the kid shared by the header and the JWK
func (t *Token) KeyID() string {
	kid, _ := t.Header["kid"].(string)
	return kid
}

// Expiration returns the exp claim, if set
func (t *Token) Expiration() (time.Time, bool) {
	n, ok := t.Payload["exp"].(json.Number)
	if !ok {
		return time.Time{}, false
	}
	secs, err := n.Int64()
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

// clone copies the bundle's maps so callers can modify them without
// touching the fixture's baseline. The key pair is immutable and shared.
func (t *Token) clone() *Token {
	out := *t
	out.Header = copyMap(t.Header)
	out.Payload = copyMap(t.Payload)
	out.JWK = copyMap(t.JWK)
	return &out
}

// JWKSet returns the JWK wrapped in a JWKS document
func (t *Token) JWKSet() map[string]interface{} {
	return map[string]interface{}{
		"keys": []interface{}{t.JWK},
	}
}

// Fixture produces signed sample tokens
type Fixture struct {
	provider     keys.Provider
	providerSet  bool
	clock        func() time.Time
	logger       *zap.Logger
	defaultKeyID string
	keyIDFromKey bool
	validity     time.Duration
	profile      *Options

	current *Token
}

// Option configures a Fixture
type Option func(*Fixture)

// WithKeyProvider sets the key pair source. The default is keys.Default().
func WithKeyProvider(p keys.Provider) Option {
	return func(f *Fixture) {
		f.provider = p
		f.providerSet = true
	}
}

// WithClock sets the time source used for exp, iat and the expired/valid helpers
func WithClock(clock func() time.Time) Option {
	return func(f *Fixture) {
		f.clock = clock
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fixture) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithDefaultKeyID changes the kid used when no header override sets one
func WithDefaultKeyID(kid string) Option {
	return func(f *Fixture) {
		f.defaultKeyID = kid
	}
}

// WithKeyIDFromKeyPair uses the key pair's ID as the default kid
func WithKeyIDFromKeyPair() Option {
	return func(f *Fixture) {
		f.keyIDFromKey = true
	}
}

// WithValidity sets the offset used by SetupExpiredToken and SetupValidToken.
// exp has second precision, so d is rounded up to whole seconds.
func WithValidity(d time.Duration) Option {
	return func(f *Fixture) {
		if d > 0 {
			f.validity = roundUpToSecond(d)
		}
	}
}

func roundUpToSecond(d time.Duration) time.Duration {
	if r := d % time.Second; r != 0 {
		d += time.Second - r
	}
	return d
}

// New creates an unconfigured fixture
func New(opts ...Option) *Fixture {
	f := &Fixture{
		provider:     keys.Default(),
		clock:        time.Now,
		logger:       zap.NewNop(),
		defaultKeyID: DefaultKeyID,
		validity:     time.Hour,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFromConfig creates a fixture from a loaded profile. Profile overrides
// sit between the defaults and per-call overrides. A provider passed with
// WithKeyProvider wins over the profile's key source.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Fixture, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrConfig)
	}

	f := New(opts...)
	if !f.providerSet {
		provider, err := cfg.Key.Provider(f.logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		f.provider = provider
	}

	if cfg.Validity > 0 {
		f.validity = time.Duration(cfg.Validity) * time.Second
	}
	f.profile = &Options{
		Header:  cfg.Header,
		Payload: cfg.Payload,
		SignOptions: &SignOptions{
			Algorithm: cfg.Sign.Algorithm,
		},
	}
	return f, nil
}

// NewFromFile loads a profile from path and creates a fixture from it
func NewFromFile(path string, opts ...Option) (*Fixture, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// Token returns a copy of the bundle from the last successful setup.
// Changing the copy does not affect VerifyToken or the JWKS handler.
func (f *Fixture) Token() (*Token, error) {
	if f.current == nil {
		return nil, ErrNotInitialized
	}
	return f.current.clone(), nil
}

// SetupToken signs a token built from the defaults and opts and makes it
// the fixture's current bundle. The returned Token is a copy. On error the
// previous bundle is kept.
func (f *Fixture) SetupToken(opts *Options) (*Token, error) {
	if opts == nil {
		opts = &Options{}
	}
	profile := f.profile
	if profile == nil {
		profile = &Options{}
	}

	keyPair, err := f.provider.KeyPair()
	if err != nil {
		f.logger.Warn("failed to get key pair", zap.Error(err))
		return nil, fmt.Errorf("%w: failed to get key pair: %w", ErrSigning, err)
	}

	kid := f.defaultKeyID
	if f.keyIDFromKey {
		kid = keyPair.ID
	}

	header := merge(sampleHeader(kid), profile.Header, opts.Header)
	kid, alg, err := resolveHeader(header, profile, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	method := jwt.GetSigningMethod(alg)
	if !isRSAMethod(method) {
		return nil, fmt.Errorf("%w: unsupported algorithm '%s'", ErrSigning, alg)
	}
	header["alg"] = alg

	now := f.clock()
	payload := merge(samplePayload(), map[string]interface{}{
		"iat": now.Unix(),
		"jti": uuid.NewString(),
	}, profile.Payload, opts.Payload)

	header, err = normalize(header, false)
	if err != nil {
		return nil, fmt.Errorf("%w: header is not serializable: %w", ErrSigning, err)
	}
	payload, err = normalize(payload, true)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not serializable: %w", ErrSigning, err)
	}

	token := jwt.NewWithClaims(method, jwt.MapClaims(payload))
	token.Header = header

	tokenString, err := token.SignedString(keyPair.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to sign token: %w", ErrSigning, err)
	}

	jwk, err := keys.ToJWK(keyPair.PublicPEM, kid, alg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build JWK: %w", ErrSigning, err)
	}

	f.current = &Token{
		KeyPair:           keyPair,
		Header:            header,
		Payload:           payload,
		TokenString:       tokenString,
		Signature:         strings.Split(tokenString, ".")[2],
		BearerTokenString: "Bearer " + tokenString,
		JWK:               jwk,
	}

	f.logger.Debug("set up token",
		zap.String("kid", kid),
		zap.String("alg", alg),
		zap.String("key_id", keyPair.ID),
	)
	return f.current.clone(), nil
}

// SetupExpiredToken is SetupToken with exp set one validity period in the past
func (f *Fixture) SetupExpiredToken(opts *Options) (*Token, error) {
	return f.SetupToken(withExpiration(opts, f.clock().Add(-f.validity)))
}

// SetupValidToken is SetupToken with exp set one validity period in the future
func (f *Fixture) SetupValidToken(opts *Options) (*Token, error) {
	return f.SetupToken(withExpiration(opts, f.clock().Add(f.validity)))
}

// withExpiration copies opts with exp injected into the payload overrides.
// The caller's maps are not modified.
func withExpiration(opts *Options, exp time.Time) *Options {
	out := &Options{}
	if opts != nil {
		*out = *opts
	}

	payload := make(map[string]interface{}, len(out.Payload)+1)
	for k, v := range out.Payload {
		payload[k] = v
	}
	payload["exp"] = exp.Unix()
	out.Payload = payload
	return out
}

// resolveHeader validates the merged header and picks the signing algorithm.
// Precedence, lowest first: default, profile header, profile sign options,
// call header, call sign options.
func resolveHeader(header map[string]interface{}, profile, opts *Options) (kid, alg string, err error) {
	kid, _, err = stringField(header, "kid")
	if err != nil {
		return "", "", err
	}
	if kid == "" {
		return "", "", fmt.Errorf("header %q must not be empty", "kid")
	}
	if _, _, err := stringField(header, "typ"); err != nil {
		return "", "", err
	}

	alg, _, err = stringField(header, "alg")
	if err != nil {
		return "", "", err
	}
	if _, callSetAlg := opts.Header["alg"]; !callSetAlg && profile.SignOptions != nil && profile.SignOptions.Algorithm != "" {
		alg = profile.SignOptions.Algorithm
	}
	if opts.SignOptions != nil && opts.SignOptions.Algorithm != "" {
		alg = opts.SignOptions.Algorithm
	}
	return kid, alg, nil
}

func isRSAMethod(method jwt.SigningMethod) bool {
	switch method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		return true
	default:
		return false
	}
}
