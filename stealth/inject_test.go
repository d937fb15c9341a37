package stealth

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeedExprIsDeterministicPerSession(t *testing.T) {
	require.Equal(t, seedExpr("session-a"), seedExpr("session-a"))
}

func TestSeedExprDiffersAcrossSessions(t *testing.T) {
	require.NotEqual(t, seedExpr("session-a"), seedExpr("session-b"))
}

func TestSeedExprIsWithinRange(t *testing.T) {
	for _, id := range []string{"", "x", "a-long-session-identifier-123456"} {
		n, err := strconv.Atoi(seedExpr(id))
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 1000)
		require.Less(t, n, 10000)
	}
}

func TestInjectRejectsInvalidProfile(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	invalid := Profile{} // zero value fails Validate (no window size, no user agent, no languages)
	err := Inject(nil, nil, r, invalid)
	require.Error(t, err)
}
