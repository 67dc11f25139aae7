package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAuditLogRequiresIdentity(t *testing.T) {
	_, err := normalizeAuditLog(AuditLog{Action: "sale:payment", Entity: "sale"})
	require.Error(t, err)

	_, err = normalizeAuditLog(AuditLog{Entity: "sale", EntityID: "42"})
	require.Error(t, err)
}

func TestNormalizeAuditLogDefaultsTimestamp(t *testing.T) {
	before := time.Now().UTC()
	out, err := normalizeAuditLog(AuditLog{Action: "sale:payment", Entity: "sale", EntityID: "42"})
	require.NoError(t, err)
	require.False(t, out.At.IsZero())
	require.False(t, out.At.Before(before))
	require.False(t, out.At.After(time.Now().UTC()))
}

func TestNormalizeAuditLogKeepsExplicitTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	out, err := normalizeAuditLog(AuditLog{Action: "repair:revert", Entity: "repair", EntityID: "7", At: at})
	require.NoError(t, err)
	require.Equal(t, at, out.At)
}
