package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/queue"
)

// Principal is attached to the request context after the gate admits a
// request.
type Principal struct {
	UserID    uint64
	Username  string
	Role      string
	SessionID uint64
}

// Authorize is the per-request authority: it re-derives the authorization
// decision from live state instead of trusting the token payload. Checks
// run in order and short-circuit on the first failure:
//
//  1. verify the token signature and expiry
//  2. find the matching active ledger entry (revocation check)
//  3. load the user and check it still exists and is active
//  4. resolve the plan: self-heal a dangling reference, reject an
//     inactive or expired plan
//
// Any entitlement failure found here closes the ledger entry with the
// corresponding reason, so the rejection is durable: the same token cannot
// come back on a later request. On success the entry's last-activity
// timestamp is touched best-effort.
func (s *Service) Authorize(ctx context.Context, token string) (Principal, error) {
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		// The token cannot be trusted, so its owner is unknown; close any
		// lingering active entries carrying this exact token string.
		reason := model.CloseReasonTokenInvalid
		if errors.Is(err, ErrTokenExpired) {
			reason = model.CloseReasonTokenExpired
		}
		if cerr := s.Sessions.CloseByToken(ctx, token, reason); cerr != nil {
			s.Logger.Warn().Err(cerr).Msg("close session for bad token failed")
		}
		return Principal{}, err
	}

	session, err := s.Sessions.FindActive(ctx, claims.UserID, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Principal{}, ErrSessionNotActive
		}
		return Principal{}, err
	}

	user, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.closeSession(ctx, session, model.CloseReasonUserNotFound)
			return Principal{}, ErrUserNotFound
		}
		return Principal{}, err
	}
	if !user.IsActive {
		s.closeSession(ctx, session, model.CloseReasonUserInactive)
		return Principal{}, ErrUserInactive
	}

	if err := s.gatePlan(ctx, &user, session); err != nil {
		return Principal{}, err
	}

	if err := s.Sessions.Touch(ctx, session.ID); err != nil {
		s.Logger.Warn().Err(err).Uint64("session_id", session.ID).Msg("touch session activity failed")
	}

	return Principal{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		SessionID: session.ID,
	}, nil
}

// gatePlan re-checks plan entitlement on every request. A dangling plan
// reference is self-healed like at login; only when healing itself fails is
// the session closed with plan_not_found. Inactive and expired plans close
// the session so the entitlement change takes effect within one request.
func (s *Service) gatePlan(ctx context.Context, user *model.User, session model.Session) error {
	if user.PlanID == 0 {
		if err := s.healPlan(ctx, user, "emergency plan"); err != nil {
			s.closeSession(ctx, session, model.CloseReasonPlanNotFound)
			return ErrPlanNotFound
		}
		return nil
	}
	plan, err := s.Plans.GetByID(ctx, user.PlanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if herr := s.healPlan(ctx, user, "emergency plan"); herr != nil {
				s.closeSession(ctx, session, model.CloseReasonPlanNotFound)
				return ErrPlanNotFound
			}
			return nil
		}
		return err
	}
	if plan.Status != model.PlanStatusActive {
		s.closeSession(ctx, session, model.CloseReasonPlanInactive)
		return ErrPlanInactive
	}
	if plan.Expired(s.now()) {
		s.closeSession(ctx, session, model.CloseReasonPlanExpired)
		return ErrPlanExpired
	}
	return nil
}

// closeSession flips a ledger entry inactive and announces it. The close is
// part of the authorization decision, but a failure to write it only costs
// durability of the rejection, so it is logged and not propagated.
func (s *Service) closeSession(ctx context.Context, session model.Session, reason string) {
	if err := s.Sessions.Close(ctx, session.ID, reason); err != nil {
		s.Logger.Warn().Err(err).Uint64("session_id", session.ID).Str("reason", reason).Msg("close session failed")
		return
	}
	s.publish(ctx, queue.AuthEvent{
		Type:      queue.EventSessionClosed,
		UserID:    session.UserID,
		SessionID: session.ID,
		Reason:    reason,
	})
}
