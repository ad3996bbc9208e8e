package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taskdesk/taskdesk/internal/model"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour, 7*24*time.Hour)
	user := model.User{ID: 42, Username: "ada", Role: model.RoleSupervisor}

	raw, exp, err := issuer.Issue(user, false)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := issuer.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, uint64(42), claims.UserID)
	require.Equal(t, "ada", claims.Username)
	require.Equal(t, model.RoleSupervisor, claims.Role)
}

func TestIssueRememberMeTTL(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour, 7*24*time.Hour)

	_, exp, err := issuer.Issue(model.User{ID: 1}, true)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, 5*time.Second)
}

func TestVerifyExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour, time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	raw, _, err := issuer.Issue(model.User{ID: 1, Username: "ada"}, false)
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(raw)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyMalformed(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour, time.Hour)

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := issuer.Verify(raw)
		require.ErrorIs(t, err, ErrTokenMalformed)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	a := NewTokenIssuer("secret-a", time.Hour, time.Hour)
	b := NewTokenIssuer("secret-b", time.Hour, time.Hour)

	raw, _, err := a.Issue(model.User{ID: 1}, false)
	require.NoError(t, err)

	_, err = b.Verify(raw)
	require.ErrorIs(t, err, ErrTokenMalformed)
}
