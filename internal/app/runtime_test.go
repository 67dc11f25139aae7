package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTestModeTracksEnvironment(t *testing.T) {
	t.Setenv("JCWEB_TEST_MODE", "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv("JCWEB_TEST_MODE", "")
	RefreshTestMode()
	require.False(t, InTestMode())

	t.Setenv("JCWEB_TEST_MODE", "true")
	RefreshTestMode()
	require.False(t, InTestMode(), "only the literal 1 enables test mode")
}
