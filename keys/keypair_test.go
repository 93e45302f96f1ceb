package keys_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"

	"github.com/cloudfoundry/jwt-fixture/keys"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("KeyPair", func() {
	var keyPair *keys.KeyPair

	BeforeEach(func() {
		var err error
		keyPair, err = keys.Default().KeyPair()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Generate", func() {
		It("rejects keys below 2048 bits", func() {
			_, err := keys.Generate(1024)
			Expect(err).To(MatchError(keys.ErrInvalidKey))
			Expect(err.Error()).To(ContainSubstring("2048"))
		})
	})

	Describe("PEM encoding", func() {
		It("encodes the private key as PKCS1", func() {
			block, _ := pem.Decode([]byte(keyPair.PrivatePEM))
			Expect(block).NotTo(BeNil())
			Expect(block.Type).To(Equal("RSA PRIVATE KEY"))

			parsed, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Equal(keyPair.PrivateKey())).To(BeTrue())
		})

		It("encodes the public key as PKIX", func() {
			block, _ := pem.Decode([]byte(keyPair.PublicPEM))
			Expect(block).NotTo(BeNil())
			Expect(block.Type).To(Equal("PUBLIC KEY"))

			parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
			Expect(err).NotTo(HaveOccurred())
			Expect(keyPair.PublicKey().Equal(parsed)).To(BeTrue())
		})

		It("uses at least 2048 bits", func() {
			Expect(keyPair.PrivateKey().N.BitLen()).To(BeNumerically(">=", keys.MinBits))
		})
	})

	Describe("ID", func() {
		It("is a UUID", func() {
			Expect(keyPair.ID).To(MatchRegexp(`^[0-9a-f]{8}-[0-9a-f]{4}-5[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`))
		})

		It("is derived from the public key", func() {
			reparsed, err := keys.FromPrivateKeyPEM(keyPair.PrivatePEM)
			Expect(err).NotTo(HaveOccurred())
			Expect(reparsed.ID).To(Equal(keyPair.ID))
		})
	})

	Describe("ParsePrivateKeyPEM", func() {
		It("parses PKCS8 keys", func() {
			der, err := x509.MarshalPKCS8PrivateKey(keyPair.PrivateKey())
			Expect(err).NotTo(HaveOccurred())
			pkcs8 := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

			parsed, err := keys.ParsePrivateKeyPEM(string(pkcs8))
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Equal(keyPair.PrivateKey())).To(BeTrue())
		})

		It("rejects non-PEM input", func() {
			_, err := keys.ParsePrivateKeyPEM("not a pem")
			Expect(err).To(MatchError(keys.ErrInvalidKey))
			Expect(err.Error()).To(ContainSubstring("PEM block"))
		})

		It("rejects non-RSA keys", func() {
			ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
			Expect(err).NotTo(HaveOccurred())
			der, err := x509.MarshalPKCS8PrivateKey(ecKey)
			Expect(err).NotTo(HaveOccurred())
			ecPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

			_, err = keys.ParsePrivateKeyPEM(string(ecPEM))
			Expect(err).To(MatchError(keys.ErrInvalidKey))
			Expect(err.Error()).To(ContainSubstring("not an RSA private key"))
		})

		It("rejects corrupted key bytes", func() {
			corrupted := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: []byte("garbage")})
			_, err := keys.ParsePrivateKeyPEM(string(corrupted))
			Expect(err).To(MatchError(keys.ErrInvalidKey))
		})
	})

	Describe("ToJWK", func() {
		It("renders the public key with kid, alg and use", func() {
			jwk, err := keys.ToJWK(keyPair.PublicPEM, "abc-key", "RS256")
			Expect(err).NotTo(HaveOccurred())

			Expect(jwk).To(HaveKeyWithValue("kty", "RSA"))
			Expect(jwk).To(HaveKeyWithValue("kid", "abc-key"))
			Expect(jwk).To(HaveKeyWithValue("alg", "RS256"))
			Expect(jwk).To(HaveKeyWithValue("use", "sig"))
			Expect(jwk).To(HaveKeyWithValue("e", "AQAB"))
			Expect(jwk).NotTo(HaveKey("d"))
		})

		It("encodes the modulus as unpadded base64url", func() {
			jwk, err := keys.ToJWK(keyPair.PublicPEM, "abc-key", "RS256")
			Expect(err).NotTo(HaveOccurred())

			n, ok := jwk["n"].(string)
			Expect(ok).To(BeTrue())
			Expect(n).NotTo(ContainSubstring("="))
			Expect(n).To(Equal(base64.RawURLEncoding.EncodeToString(keyPair.PublicKey().N.Bytes())))
		})

		It("records the requested algorithm", func() {
			jwk, err := keys.ToJWK(keyPair.PublicPEM, "abc-key", "PS512")
			Expect(err).NotTo(HaveOccurred())
			Expect(jwk).To(HaveKeyWithValue("alg", "PS512"))
		})

		It("rejects invalid PEM", func() {
			_, err := keys.ToJWK(strings.Repeat("x", 32), "abc-key", "RS256")
			Expect(err).To(MatchError(keys.ErrInvalidKey))
		})
	})
})
