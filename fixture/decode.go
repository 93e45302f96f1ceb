package fixture

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// rsaAlgorithms are the algorithms a fixture can sign with
var rsaAlgorithms = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512"}

// DecodedToken is the shape VerifyToken compares against the fixture
type DecodedToken struct {
	Header    map[string]interface{}
	Payload   map[string]interface{}
	Signature string
	Raw       string
}

// Decode verifies tokenString with key and returns its parts. Expiration is
// checked; numeric claims are returned as json.Number.
func Decode(tokenString string, key *rsa.PublicKey) (*DecodedToken, error) {
	return decode(tokenString, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	})
}

// DecodeWithJWK is Decode with the key taken from a JWK map, as a verifier
// that fetched a JWKS would. The token's kid must match the JWK's.
func DecodeWithJWK(tokenString string, jwkMap map[string]interface{}) (*DecodedToken, error) {
	data, err := json.Marshal(jwkMap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JWK: %w", err)
	}

	key, err := jwk.ParseKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWK: %w", err)
	}

	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("failed to export JWK: %w", err)
	}
	publicKey, ok := raw.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("JWK is not an RSA public key: %T", raw)
	}

	return decode(tokenString, func(token *jwt.Token) (interface{}, error) {
		kidInterface, ok := token.Header["kid"]
		if !ok {
			return nil, errors.New("missing kid in token header")
		}

		kid, ok := kidInterface.(string)
		if !ok {
			return nil, errors.New("invalid kid in token header")
		}

		if kid != key.KeyID() {
			return nil, fmt.Errorf("kid mismatch: token has %s, JWK has %s", kid, key.KeyID())
		}

		return publicKey, nil
	})
}

func decode(tokenString string, keyFunc jwt.Keyfunc) (*DecodedToken, error) {
	parser := jwt.NewParser(jwt.WithValidMethods(rsaAlgorithms), jwt.WithJSONNumber())

	token, err := parser.ParseWithClaims(tokenString, jwt.MapClaims{}, keyFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return &DecodedToken{
		Header:    token.Header,
		Payload:   map[string]interface{}(claims),
		Signature: strings.Split(tokenString, ".")[2],
		Raw:       tokenString,
	}, nil
}
