package fixture_test

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudfoundry/jwt-fixture/config"
	"github.com/cloudfoundry/jwt-fixture/fixture"
	"github.com/cloudfoundry/jwt-fixture/keys"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const profileYAML = `
header:
  kid: profile-key
payload:
  email: profile@example.com
  tenant: acme
sign:
  algorithm: PS384
validity: 60
`

var _ = Describe("Profiles", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Now().Truncate(time.Second)
	})

	Describe("NewFromConfig", func() {
		var f *fixture.Fixture

		BeforeEach(func() {
			cfg, err := config.Parse([]byte(profileYAML))
			Expect(err).NotTo(HaveOccurred())

			f, err = fixture.NewFromConfig(cfg,
				fixture.WithKeyProvider(keys.NewProviderFor(testKeyPair)),
				fixture.WithClock(func() time.Time { return now }),
			)
			Expect(err).NotTo(HaveOccurred())
		})

		It("applies the profile overrides", func() {
			token, err := f.SetupToken(nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(token.KeyID()).To(Equal("profile-key"))
			Expect(token.JWK).To(HaveKeyWithValue("kid", "profile-key"))
			Expect(token.Payload).To(HaveKeyWithValue("email", "profile@example.com"))
			Expect(token.Payload).To(HaveKeyWithValue("tenant", "acme"))
			Expect(token.Payload).To(HaveKeyWithValue("name", "Juan Perez"))
		})

		It("signs with the profile algorithm", func() {
			token, err := f.SetupToken(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(token.Header).To(HaveKeyWithValue("alg", "PS384"))

			decoded, err := fixture.Decode(token.TokenString, testKeyPair.PublicKey())
			Expect(err).NotTo(HaveOccurred())
			Expect(f.VerifyToken(decoded)).To(Succeed())
		})

		It("lets per-call overrides win", func() {
			token, err := f.SetupToken(&fixture.Options{
				Header:  map[string]interface{}{"kid": "call-key", "alg": "RS256"},
				Payload: map[string]interface{}{"email": "call@example.com"},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(token.KeyID()).To(Equal("call-key"))
			Expect(token.Header).To(HaveKeyWithValue("alg", "RS256"))
			Expect(token.Payload).To(HaveKeyWithValue("email", "call@example.com"))
			Expect(token.Payload).To(HaveKeyWithValue("tenant", "acme"))
		})

		It("uses the profile validity", func() {
			token, err := f.SetupValidToken(nil)
			Expect(err).NotTo(HaveOccurred())

			exp, ok := token.Expiration()
			Expect(ok).To(BeTrue())
			Expect(exp).To(BeTemporally("==", now.Add(time.Minute)))

			token, err = f.SetupExpiredToken(nil)
			Expect(err).NotTo(HaveOccurred())

			exp, ok = token.Expiration()
			Expect(ok).To(BeTrue())
			Expect(exp).To(BeTemporally("==", now.Add(-time.Minute)))
		})
	})

	Describe("NewFromConfig key sources", func() {
		It("uses the profile's static key", func() {
			cfg, err := config.Parse([]byte("key:\n  source: static\n  private_key: |\n" + indentPEM(testKeyPair.PrivatePEM) + "\n"))
			Expect(err).NotTo(HaveOccurred())

			f, err := fixture.NewFromConfig(cfg)
			Expect(err).NotTo(HaveOccurred())

			token, err := f.SetupToken(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(token.KeyPair.ID).To(Equal(testKeyPair.ID))
		})

		It("returns ErrConfig for a nil config", func() {
			_, err := fixture.NewFromConfig(nil)
			Expect(err).To(MatchError(fixture.ErrConfig))
		})

		It("returns ErrConfig for a key source that cannot provide keys", func() {
			_, err := fixture.NewFromConfig(&config.Config{Key: config.KeyConfig{Source: "hsm"}})
			Expect(err).To(MatchError(fixture.ErrConfig))
		})
	})

	Describe("NewFromFile", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "jwt-fixture-profile-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			os.RemoveAll(tempDir)
		})

		It("loads the profile from disk", func() {
			path := filepath.Join(tempDir, "fixture.yml")
			Expect(os.WriteFile(path, []byte(profileYAML), 0644)).To(Succeed())

			f, err := fixture.NewFromFile(path, fixture.WithKeyProvider(keys.NewProviderFor(testKeyPair)))
			Expect(err).NotTo(HaveOccurred())

			token, err := f.SetupToken(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(token.KeyID()).To(Equal("profile-key"))
		})

		It("returns ErrConfig for a payload that is not a mapping", func() {
			path := filepath.Join(tempDir, "fixture.yml")
			Expect(os.WriteFile(path, []byte("payload: just-a-string\n"), 0644)).To(Succeed())

			_, err := fixture.NewFromFile(path)
			Expect(err).To(MatchError(fixture.ErrConfig))
		})

		It("returns ErrConfig for a missing file", func() {
			_, err := fixture.NewFromFile(filepath.Join(tempDir, "missing.yml"))
			Expect(err).To(MatchError(fixture.ErrConfig))
		})
	})
})

func indentPEM(pem string) string {
	lines := strings.Split(strings.TrimRight(pem, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}
