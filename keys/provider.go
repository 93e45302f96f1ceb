package keys

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_provider.go -package=mocks . Provider

// Provider supplies the key pair a fixture signs with
type Provider interface {
	// KeyPair returns the key pair to sign with
	KeyPair() (*KeyPair, error)
}

// cachedProvider generates a key pair on first use and reuses it afterwards
type cachedProvider struct {
	bits   int
	logger *zap.Logger

	once    sync.Once
	keyPair *KeyPair
	err     error
}

// NewCachedProvider creates a provider that generates one key pair and
// returns it on every call. It is safe for concurrent use.
func NewCachedProvider(bits int, logger *zap.Logger) Provider {
	return &cachedProvider{
		bits:   bits,
		logger: loggerOrNop(logger),
	}
}

// KeyPair returns the cached key pair, generating it on the first call
func (p *cachedProvider) KeyPair() (*KeyPair, error) {
	p.once.Do(func() {
		p.keyPair, p.err = generateLogged(p.bits, p.logger)
	})
	return p.keyPair, p.err
}

var (
	defaultOnce     sync.Once
	defaultProvider Provider
)

// Default returns the process-wide cached 2048-bit provider
func Default() Provider {
	defaultOnce.Do(func() {
		defaultProvider = NewCachedProvider(MinBits, nil)
	})
	return defaultProvider
}

// freshProvider generates a new key pair on every call
type freshProvider struct {
	bits   int
	logger *zap.Logger
}

// NewFreshProvider creates a provider that generates a new key pair per call
func NewFreshProvider(bits int, logger *zap.Logger) Provider {
	return &freshProvider{
		bits:   bits,
		logger: loggerOrNop(logger),
	}
}

// KeyPair generates and returns a new key pair
func (p *freshProvider) KeyPair() (*KeyPair, error) {
	return generateLogged(p.bits, p.logger)
}

// staticProvider always returns the same pre-built key pair
type staticProvider struct {
	keyPair *KeyPair
}

// NewStaticProvider creates a provider around a PEM-encoded RSA private key
func NewStaticProvider(privatePEM string) (Provider, error) {
	keyPair, err := FromPrivateKeyPEM(privatePEM)
	if err != nil {
		return nil, err
	}
	return NewProviderFor(keyPair), nil
}

// NewProviderFor creates a provider that always returns keyPair
func NewProviderFor(keyPair *KeyPair) Provider {
	return &staticProvider{keyPair: keyPair}
}

// KeyPair returns the static key pair
func (p *staticProvider) KeyPair() (*KeyPair, error) {
	return p.keyPair, nil
}

func generateLogged(bits int, logger *zap.Logger) (*KeyPair, error) {
	start := time.Now()
	keyPair, err := Generate(bits)
	if err != nil {
		logger.Warn("key pair generation failed", zap.Int("bits", bits), zap.Error(err))
		return nil, err
	}

	logger.Debug("generated key pair",
		zap.Int("bits", bits),
		zap.String("key_id", keyPair.ID),
		zap.Duration("duration", time.Since(start)),
	)
	return keyPair, nil
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
