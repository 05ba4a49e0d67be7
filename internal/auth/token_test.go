package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/pkg/apperror"
)

func newTestManager(t *testing.T, at time.Time) *TokenManager {
	t.Helper()
	m := NewTokenManager(Config{Secret: []byte("test-secret")})
	m.now = func() time.Time { return at }
	return m
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, now)

	token, claims, err := m.Issue(42, "alice", "Alice Nguyen", []string{"Admin", "Viewer"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "42", claims.Subject)

	parsed, err := m.Parse(token)
	require.NoError(t, err)

	userID, err := parsed.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
	assert.Equal(t, "alice", parsed.Username)
	assert.Equal(t, "Alice Nguyen", parsed.Name)
	assert.Equal(t, []string{"Admin", "Viewer"}, parsed.Roles)
	assert.Equal(t, now.Add(time.Hour).Unix(), parsed.ExpiresAt.Unix())
}

func TestParseEmptyToken(t *testing.T) {
	m := newTestManager(t, time.Now())

	_, err := m.Parse("")
	require.Error(t, err)
	assert.Equal(t, apperror.Unauthenticated, apperror.KindOf(err))
}

func TestParseTamperedToken(t *testing.T) {
	now := time.Now()
	m := newTestManager(t, now)

	token, _, err := m.Issue(1, "alice", "Alice", nil)
	require.NoError(t, err)

	tampered := token + "A"
	_, err = m.Parse(tampered)
	require.Error(t, err)
	assert.Equal(t, apperror.Unauthenticated, apperror.KindOf(err))
}

func TestParseWrongSecret(t *testing.T) {
	now := time.Now()
	m := newTestManager(t, now)
	other := NewTokenManager(Config{Secret: []byte("different-secret")})
	other.now = m.now

	token, _, err := m.Issue(1, "alice", "Alice", nil)
	require.NoError(t, err)

	_, err = other.Parse(token)
	require.Error(t, err)
	assert.Equal(t, apperror.Unauthenticated, apperror.KindOf(err))
}

func TestStatusFreshToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, now)

	token, _, err := m.Issue(7, "bob", "Bob", []string{"Viewer"})
	require.NoError(t, err)

	status := m.Status(token)
	assert.True(t, status.IsAuthenticated)
	assert.Equal(t, "bob", status.Username)
	assert.False(t, status.IsExpiringSoon)
	assert.Equal(t, time.Hour, status.TimeRemaining)
}

func TestStatusExpiringSoonBoundary(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, issuedAt)

	token, _, err := m.Issue(7, "bob", "Bob", nil)
	require.NoError(t, err)

	// Exactly at the threshold: 10 minutes remaining is not yet expiring soon
	m.now = func() time.Time { return issuedAt.Add(50 * time.Minute) }
	status := m.Status(token)
	assert.True(t, status.IsAuthenticated)
	assert.False(t, status.IsExpiringSoon)

	// One second inside the window
	m.now = func() time.Time { return issuedAt.Add(50*time.Minute + time.Second) }
	status = m.Status(token)
	assert.True(t, status.IsAuthenticated)
	assert.True(t, status.IsExpiringSoon)
	assert.Equal(t, 10*time.Minute-time.Second, status.TimeRemaining)
}

func TestStatusExpiredIsNotExpiringSoon(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, issuedAt)

	token, _, err := m.Issue(7, "bob", "Bob", nil)
	require.NoError(t, err)

	// Zero remaining counts as expired, never as expiring soon
	m.now = func() time.Time { return issuedAt.Add(time.Hour) }
	status := m.Status(token)
	assert.False(t, status.IsAuthenticated)
	assert.False(t, status.IsExpiringSoon)

	m.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	status = m.Status(token)
	assert.False(t, status.IsAuthenticated)
}

func TestReissueExtendsExpiry(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, issuedAt)

	first, _, err := m.Issue(7, "bob", "Bob", nil)
	require.NoError(t, err)

	// 55 minutes later the first artifact is inside the refresh window
	later := issuedAt.Add(55 * time.Minute)
	m.now = func() time.Time { return later }
	require.True(t, m.Status(first).IsExpiringSoon)

	second, claims, err := m.Issue(7, "bob", "Bob", nil)
	require.NoError(t, err)
	assert.Equal(t, later.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())

	status := m.Status(second)
	assert.True(t, status.IsAuthenticated)
	assert.False(t, status.IsExpiringSoon)
}

func TestConfigDefaults(t *testing.T) {
	m := NewTokenManager(Config{Secret: []byte("s")})
	assert.Equal(t, DefaultLifetime, m.cfg.Lifetime)
	assert.Equal(t, DefaultExpiringSoonThreshold, m.cfg.ExpiringSoonThreshold)

	custom := NewTokenManager(Config{Secret: []byte("s"), Lifetime: 30 * time.Minute, ExpiringSoonThreshold: 5 * time.Minute})
	assert.Equal(t, 30*time.Minute, custom.Lifetime())
}
