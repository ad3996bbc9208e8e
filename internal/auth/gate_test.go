package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/queue"
)

// loginFor seeds an active user on an active plan and logs them in.
func loginFor(t *testing.T, svc *Service, ms *memStore) (LoginResult, uint64) {
	t.Helper()
	planID := seedPlan(t, ms, model.Plan{Name: "Team", MaxUsers: 5, MainToken: "team-secret-key"})
	seedUser(t, ms, model.User{Username: "ada", Email: "ada@example.com", Role: model.RoleUser, IsActive: true, PlanID: planID}, "Sup3rSecret")
	res, err := svc.Login(context.Background(), LoginInput{Identifier: "ada", Password: "Sup3rSecret"})
	require.NoError(t, err)
	return res, planID
}

func TestAuthorizeSuccess(t *testing.T) {
	svc, ms, _ := newTestService(t)
	res, _ := loginFor(t, svc, ms)

	p, err := svc.Authorize(context.Background(), res.Token)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, p.UserID)
	require.Equal(t, "ada", p.Username)
	require.Equal(t, model.RoleUser, p.Role)
	require.Equal(t, res.SessionID, p.SessionID)

	require.NotNil(t, ms.session(res.SessionID).LastActivityAt)
}

func TestAuthorizeRejectsAfterLogout(t *testing.T) {
	svc, ms, _ := newTestService(t)
	res, _ := loginFor(t, svc, ms)

	require.NoError(t, svc.Logout(context.Background(), res.User.ID, res.Token))

	_, err := svc.Authorize(context.Background(), res.Token)
	require.ErrorIs(t, err, ErrSessionNotActive)
}

func TestAuthorizeMalformedToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Authorize(context.Background(), "not.a.token")
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestAuthorizeWrongSecret(t *testing.T) {
	svc, ms, _ := newTestService(t)
	res, _ := loginFor(t, svc, ms)

	other := NewTokenIssuer("other-secret", time.Hour, time.Hour)
	forged, _, err := other.Issue(res.User, false)
	require.NoError(t, err)

	_, err = svc.Authorize(context.Background(), forged)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestAuthorizeExpiredTokenClosesLedgerEntry(t *testing.T) {
	svc, ms, _ := newTestService(t)
	res, _ := loginFor(t, svc, ms)

	// Move the verifier's clock past the token expiry.
	svc.Tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := svc.Authorize(context.Background(), res.Token)
	require.ErrorIs(t, err, ErrTokenExpired)

	session := ms.session(res.SessionID)
	require.False(t, session.IsActive)
	require.Equal(t, model.CloseReasonTokenExpired, session.ClosedReason)

	// The rejection is durable even after the clock is restored.
	svc.Tokens.now = time.Now
	_, err = svc.Authorize(context.Background(), res.Token)
	require.ErrorIs(t, err, ErrSessionNotActive)
}

func TestAuthorizeInactiveUserClosesSession(t *testing.T) {
	svc, ms, pub := newTestService(t)
	res, _ := loginFor(t, svc, ms)

	ms.mu.Lock()
	ms.users[res.User.ID].IsActive = false
	ms.mu.Unlock()

	_, err := svc.Authorize(context.Background(), res.Token)
	require.ErrorIs(t, err, ErrUserInactive)

	session := ms.session(res.SessionID)
	require.False(t, session.IsActive)
	require.Equal(t, model.CloseReasonUserInactive, session.ClosedReason)
	require.Len(t, pub.byType(queue.EventSessionClosed), 1)
}

func TestAuthorizePlanChangeTakesEffectImmediately(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *model.Plan)
		want   error
		reason string
	}{
		{
			"plan made inactive",
			func(p *model.Plan) { p.Status = model.PlanStatusInactive },
			ErrPlanInactive,
			model.CloseReasonPlanInactive,
		},
		{
			"plan expired",
			func(p *model.Plan) { p.EndDate = time.Now().UTC().Add(-time.Minute) },
			ErrPlanExpired,
			model.CloseReasonPlanExpired,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, ms, _ := newTestService(t)
			res, planID := loginFor(t, svc, ms)

			// First request passes.
			_, err := svc.Authorize(context.Background(), res.Token)
			require.NoError(t, err)

			ms.mu.Lock()
			tc.mutate(ms.plans[planID])
			ms.mu.Unlock()

			// Same token, next request: entitlement change already applies.
			_, err = svc.Authorize(context.Background(), res.Token)
			require.ErrorIs(t, err, tc.want)

			session := ms.session(res.SessionID)
			require.False(t, session.IsActive)
			require.Equal(t, tc.reason, session.ClosedReason)
		})
	}
}

func TestAuthorizeHealsDanglingPlan(t *testing.T) {
	svc, ms, pub := newTestService(t)
	res, planID := loginFor(t, svc, ms)

	// Delete the plan out from under the user.
	ms.mu.Lock()
	delete(ms.plans, planID)
	ms.mu.Unlock()

	p, err := svc.Authorize(context.Background(), res.Token)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, p.UserID)

	healed := ms.user(res.User.ID)
	require.NotZero(t, healed.PlanID)
	require.NotEqual(t, planID, healed.PlanID)
	require.True(t, ms.session(res.SessionID).IsActive)
	require.Len(t, pub.byType(queue.EventPlanHealed), 1)
}
