package fixture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cloudfoundry/jwt-fixture/config"
)

var (
	// ErrConfig is returned for malformed caller overrides or fixture profiles.
	// It is the same sentinel as config.ErrInvalid.
	ErrConfig = config.ErrInvalid

	// ErrSigning is returned when the payload, header or key cannot be signed
	ErrSigning = errors.New("signing failed")

	// ErrNotInitialized is returned when the fixture is read before any setup
	ErrNotInitialized = errors.New("fixture not initialized: call a setup method first")
)

// Mismatch describes one field of a decoded token that differs from the fixture
type Mismatch struct {
	Field string
	Diff  string
}

// VerificationError lists every field of a decoded token that does not
// match the fixture
type VerificationError struct {
	Mismatches []Mismatch
}

// Error implements error
func (e *VerificationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "decoded token does not match fixture (%d mismatches)", len(e.Mismatches))
	for _, m := range e.Mismatches {
		fmt.Fprintf(&b, "\n%s (-want +got):\n%s", m.Field, m.Diff)
	}
	return b.String()
}

// Fields returns the names of the mismatching fields
func (e *VerificationError) Fields() []string {
	fields := make([]string, 0, len(e.Mismatches))
	for _, m := range e.Mismatches {
		fields = append(fields, m.Field)
	}
	return fields
}
