package keys

import (
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// ToJWK converts a PEM-encoded public key into its JWK map form, annotated
// with the key ID, algorithm and "sig" usage
func ToJWK(publicPEM, kid, alg string) (map[string]interface{}, error) {
	key, err := jwk.ParseKey([]byte(publicPEM), jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse public key PEM: %v", ErrInvalidKey, err)
	}

	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, fmt.Errorf("failed to set kid: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.SignatureAlgorithm(alg)); err != nil {
		return nil, fmt.Errorf("failed to set alg: %w", err)
	}
	if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("failed to set use: %w", err)
	}

	data, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JWK: %w", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode JWK: %w", err)
	}

	return out, nil
}
