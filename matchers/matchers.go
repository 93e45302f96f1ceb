// Package matchers provides Gomega matchers for fixture tokens.
package matchers

import (
	"errors"
	"fmt"

	"github.com/cloudfoundry/jwt-fixture/fixture"
	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"
)

// MatchFixtureToken succeeds when the actual *fixture.DecodedToken passes
// f.VerifyToken. The failure message carries the field diffs.
//
//	Expect(decoded).To(matchers.MatchFixtureToken(f))
func MatchFixtureToken(f *fixture.Fixture) types.GomegaMatcher {
	return &fixtureTokenMatcher{fixture: f}
}

type fixtureTokenMatcher struct {
	fixture *fixture.Fixture
	err     error
}

func (m *fixtureTokenMatcher) Match(actual interface{}) (bool, error) {
	decoded, ok := actual.(*fixture.DecodedToken)
	if !ok {
		return false, fmt.Errorf("MatchFixtureToken expects a *fixture.DecodedToken, got:\n%s", format.Object(actual, 1))
	}

	m.err = m.fixture.VerifyToken(decoded)
	if errors.Is(m.err, fixture.ErrNotInitialized) {
		return false, m.err
	}
	return m.err == nil, nil
}

func (m *fixtureTokenMatcher) FailureMessage(actual interface{}) string {
	return fmt.Sprintf("Expected decoded token to match fixture\n%s", m.err)
}

func (m *fixtureTokenMatcher) NegatedFailureMessage(actual interface{}) string {
	return "Expected decoded token not to match fixture"
}
