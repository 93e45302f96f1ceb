package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// MinBits is the smallest RSA modulus accepted for signing keys
const MinBits = 2048

// ErrInvalidKey is returned when key material cannot be used for RS* signing
var ErrInvalidKey = errors.New("invalid key")

// keyIDNamespace is the UUID v5 namespace for key pair IDs
var keyIDNamespace = uuid.MustParse("a3c1f0d2-5e7b-4c9a-8f61-2d4b9e0c7a15")

// KeyPair holds an RSA signing key pair in PEM form. It is immutable once
// constructed and safe to share between fixtures.
type KeyPair struct {
	// ID is a deterministic UUID v5 derived from the public key
	ID string

	PublicPEM  string
	PrivatePEM string

	privateKey *rsa.PrivateKey
}

// PrivateKey returns the parsed RSA private key
func (k *KeyPair) PrivateKey() *rsa.PrivateKey {
	return k.privateKey
}

// PublicKey returns the parsed RSA public key
func (k *KeyPair) PublicKey() *rsa.PublicKey {
	return &k.privateKey.PublicKey
}

// Generate creates a new RSA key pair of the given size
func Generate(bits int) (*KeyPair, error) {
	if bits < MinBits {
		return nil, fmt.Errorf("%w: key size %d is below %d bits", ErrInvalidKey, bits, MinBits)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	return newKeyPair(privateKey)
}

// FromPrivateKeyPEM builds a key pair from a PEM-encoded RSA private key
func FromPrivateKeyPEM(pemData string) (*KeyPair, error) {
	privateKey, err := ParsePrivateKeyPEM(pemData)
	if err != nil {
		return nil, err
	}

	if privateKey.N.BitLen() < MinBits {
		return nil, fmt.Errorf("%w: key must be at least %d bits", ErrInvalidKey, MinBits)
	}

	return newKeyPair(privateKey)
}

// ParsePrivateKeyPEM parses a PEM-encoded RSA private key in PKCS1 or PKCS8 form
func ParsePrivateKeyPEM(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("%w: failed to parse PEM block", ErrInvalidKey)
	}

	// Try PKCS1 format first
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err == nil {
		return key, nil
	}

	keyInterface, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse private key: %v", ErrInvalidKey, err)
	}

	rsaKey, ok := keyInterface.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA private key", ErrInvalidKey)
	}

	return rsaKey, nil
}

func newKeyPair(privateKey *rsa.PrivateKey) (*KeyPair, error) {
	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	return &KeyPair{
		ID:         uuid.NewSHA1(keyIDNamespace, publicDER).String(),
		PublicPEM:  string(publicPEM),
		PrivatePEM: string(privatePEM),
		privateKey: privateKey,
	}, nil
}
