package fixture

import (
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"
)

// VerifyToken compares decoded against the current bundle. The header must
// be equal, every fixture claim must be present and equal in the decoded
// payload (extra claims are allowed), and the signature and raw string must
// match. Values are compared after JSON normalization.
//
// It returns nil on a match, a *VerificationError listing the differences,
// or ErrNotInitialized before any setup.
func (f *Fixture) VerifyToken(decoded *DecodedToken) error {
	want, err := f.Token()
	if err != nil {
		return err
	}

	if decoded == nil {
		return &VerificationError{Mismatches: []Mismatch{{Field: "token", Diff: "decoded token is nil"}}}
	}

	var mismatches []Mismatch

	if diff := cmp.Diff(normalizeValue(want.Header), normalizeValue(decoded.Header)); diff != "" {
		mismatches = append(mismatches, Mismatch{Field: "header", Diff: diff})
	}

	claims := make([]string, 0, len(want.Payload))
	for claim := range want.Payload {
		claims = append(claims, claim)
	}
	sort.Strings(claims)

	for _, claim := range claims {
		field := "payload." + claim
		got, ok := decoded.Payload[claim]
		if !ok {
			mismatches = append(mismatches, Mismatch{Field: field, Diff: fmt.Sprintf("claim missing, want %v", want.Payload[claim])})
			continue
		}
		if diff := cmp.Diff(normalizeValue(want.Payload[claim]), normalizeValue(got)); diff != "" {
			mismatches = append(mismatches, Mismatch{Field: field, Diff: diff})
		}
	}

	if diff := cmp.Diff(want.Signature, decoded.Signature); diff != "" {
		mismatches = append(mismatches, Mismatch{Field: "signature", Diff: diff})
	}
	if diff := cmp.Diff(want.TokenString, decoded.Raw); diff != "" {
		mismatches = append(mismatches, Mismatch{Field: "raw", Diff: diff})
	}

	if len(mismatches) > 0 {
		return &VerificationError{Mismatches: mismatches}
	}
	return nil
}
