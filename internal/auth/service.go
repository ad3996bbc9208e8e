// Package auth implements the authentication flow, the token service and
// the per-request session gate. It owns the session ledger: nothing outside
// this package and the admin session handlers writes to it.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskdesk/taskdesk/internal/crypto"
	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/queue"
)

// UserStore is the credential store consumed by the auth flow. Implemented
// by repository.UserRepo; faked in tests.
type UserStore interface {
	Create(ctx context.Context, u model.User, password string, cost int) (uint64, error)
	GetByIdentifier(ctx context.Context, identifier string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	CountByPlanAndRole(ctx context.Context, planID uint64, role string) (int, error)
	AttachPlan(ctx context.Context, userID, planID uint64) error
	BumpLoginCount(ctx context.Context, userID uint64) error
}

// PlanStore is the plan registry consumed by the auth flow.
type PlanStore interface {
	Create(ctx context.Context, p model.Plan) (uint64, error)
	GetByToken(ctx context.Context, token string) (model.Plan, error)
	GetByID(ctx context.Context, id uint64) (model.Plan, error)
}

// SessionStore is the session ledger.
type SessionStore interface {
	Record(ctx context.Context, userID uint64, token, ip, userAgent string) (uint64, error)
	FindActive(ctx context.Context, userID uint64, token string) (model.Session, error)
	Close(ctx context.Context, id uint64, reason string) error
	CloseMatching(ctx context.Context, userID uint64, token, reason string) (int64, error)
	CloseByToken(ctx context.Context, token, reason string) error
	Touch(ctx context.Context, id uint64) error
	LastLoginTime(ctx context.Context, userID uint64) (time.Time, error)
}

// EventPublisher delivers auth events to the broker. May be nil, in which
// case events are dropped silently.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}

// Service orchestrates login, registration, logout and per-request
// authorization over the three stores. The now hook exists so tests can pin
// the clock.
type Service struct {
	Users      UserStore
	Plans      PlanStore
	Sessions   SessionStore
	Tokens     *TokenIssuer
	Events     EventPublisher
	Logger     zerolog.Logger
	BcryptCost int

	now func() time.Time
}

// NewService wires a Service with the system clock.
func NewService(users UserStore, plans PlanStore, sessions SessionStore, tokens *TokenIssuer, events EventPublisher, logger zerolog.Logger, bcryptCost int) *Service {
	return &Service{
		Users:      users,
		Plans:      plans,
		Sessions:   sessions,
		Tokens:     tokens,
		Events:     events,
		Logger:     logger,
		BcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// ----- Login -----

// LoginInput carries one login attempt.
type LoginInput struct {
	Identifier string
	Password   string
	RememberMe bool
	IP         string
	UserAgent  string
}

// LoginResult is what a successful login returns to the handler.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	SessionID uint64
	User      model.User
}

// Login runs the authentication flow: credential check, plan validity check
// (with self-healing of dangling plan references), token issuance, ledger
// entry. Ledger recording and login-counter bookkeeping are best-effort and
// never fail the login.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	var msgs []string
	if strings.TrimSpace(in.Identifier) == "" {
		msgs = append(msgs, "username or email is required")
	}
	if in.Password == "" {
		msgs = append(msgs, "password is required")
	}
	if len(msgs) > 0 {
		return LoginResult{}, &ValidationError{Messages: msgs}
	}

	user, err := s.Users.GetByIdentifier(ctx, sanitizeInput(in.Identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, err
	}
	if !user.IsActive {
		return LoginResult{}, ErrUserInactive
	}
	if !crypto.VerifyPassword(user.PasswordHash, in.Password) {
		return LoginResult{}, ErrBadCredentials
	}

	if err := s.ensurePlan(ctx, &user); err != nil {
		return LoginResult{}, err
	}

	token, exp, err := s.Tokens.Issue(user, in.RememberMe)
	if err != nil {
		return LoginResult{}, err
	}

	// Session recording is non-critical: a ledger write failure must not
	// lock the user out, it only costs us revocability of this session.
	sessionID, err := s.Sessions.Record(ctx, user.ID, token, in.IP, in.UserAgent)
	if err != nil {
		s.Logger.Warn().Err(err).Uint64("user_id", user.ID).Msg("record login session failed")
		sessionID = 0
	}
	if err := s.Users.BumpLoginCount(ctx, user.ID); err != nil {
		s.Logger.Warn().Err(err).Uint64("user_id", user.ID).Msg("bump login count failed")
	}

	s.publish(ctx, queue.AuthEvent{
		Type:      queue.EventLogin,
		UserID:    user.ID,
		Username:  user.Username,
		SessionID: sessionID,
		PlanID:    user.PlanID,
		IPAddress: in.IP,
	})

	return LoginResult{Token: token, ExpiresAt: exp, SessionID: sessionID, User: user}, nil
}

// ensurePlan resolves the user's plan, self-healing a missing reference by
// provisioning a single-seat replacement. A plan that exists but is not
// usable fails the flow; a plan that is absent never does.
func (s *Service) ensurePlan(ctx context.Context, user *model.User) error {
	if user.PlanID == 0 {
		return s.healPlan(ctx, user, "auto plan")
	}
	plan, err := s.Plans.GetByID(ctx, user.PlanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.healPlan(ctx, user, "emergency plan")
		}
		return err
	}
	nowT := s.now()
	if plan.Status != model.PlanStatusActive {
		return ErrPlanInactive
	}
	if plan.Expired(nowT) {
		return ErrPlanExpired
	}
	return nil
}

// healPlan provisions a fresh one-month single-seat plan and re-attaches the
// user. The sequence is not transactional: a crash between the two writes
// leaves the user dangling again, and the next login or gated request heals
// it again.
func (s *Service) healPlan(ctx context.Context, user *model.User, kind string) error {
	secret, err := crypto.RandomHex(16)
	if err != nil {
		return err
	}
	nowT := s.now()
	planID, err := s.Plans.Create(ctx, model.Plan{
		Name:           fmt.Sprintf("Basic plan - %s", user.Username),
		Description:    fmt.Sprintf("%s provisioned automatically", kind),
		StartDate:      nowT,
		EndDate:        nowT.AddDate(0, 1, 0),
		MaxSupervisors: 0,
		MaxUsers:       1,
		MainToken:      secret,
		Status:         model.PlanStatusActive,
		CreatedBy:      "system",
	})
	if err != nil {
		return err
	}
	if err := s.Users.AttachPlan(ctx, user.ID, planID); err != nil {
		return err
	}
	user.PlanID = planID
	s.Logger.Info().Uint64("user_id", user.ID).Uint64("plan_id", planID).Msg("self-healed missing plan")
	s.publish(ctx, queue.AuthEvent{
		Type:     queue.EventPlanHealed,
		UserID:   user.ID,
		Username: user.Username,
		PlanID:   planID,
	})
	return nil
}

// ----- Registration -----

// RegisterInput carries one registration attempt. Role is only honored when
// a secret key is supplied; otherwise it defaults to "user".
type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Phone     string
	Password  string
	SecretKey string
	Role      string
}

// RegisterResult reports the created account.
type RegisterResult struct {
	UserID   uint64
	Username string
	Email    string
	Role     string
	PlanID   uint64
}

// Register validates and sanitizes all fields, enforces username/email
// uniqueness, and either joins an existing plan by secret key (checking
// role capacity against the plan limits) or auto-provisions a fresh
// one-month single-seat plan.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	in.FirstName = sanitizeInput(in.FirstName)
	in.LastName = sanitizeInput(in.LastName)
	in.Username = strings.ToLower(sanitizeInput(in.Username))
	in.Email = strings.ToLower(sanitizeInput(in.Email))
	in.Phone = sanitizeInput(in.Phone)
	in.SecretKey = sanitizeInput(in.SecretKey)
	if in.Role == "" {
		in.Role = model.RoleUser
	}

	if msgs := validateRegisterFields(in); len(msgs) > 0 {
		return RegisterResult{}, &ValidationError{Messages: msgs}
	}

	exists, err := s.Users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return RegisterResult{}, err
	}
	if exists {
		return RegisterResult{}, ErrDuplicateUser
	}

	role := model.RoleUser
	var planID uint64

	if in.SecretKey != "" {
		plan, err := s.resolvePlanByKey(ctx, in.SecretKey)
		if err != nil {
			return RegisterResult{}, err
		}
		if in.Role != model.RoleUser && in.Role != model.RoleSupervisor {
			return RegisterResult{}, ErrRoleNotAllowed
		}
		if err := s.checkCapacity(ctx, plan, in.Role); err != nil {
			return RegisterResult{}, err
		}
		role = in.Role
		planID = plan.ID
	} else {
		secret, err := crypto.RandomHex(16)
		if err != nil {
			return RegisterResult{}, err
		}
		nowT := s.now()
		planID, err = s.Plans.Create(ctx, model.Plan{
			Name:           fmt.Sprintf("Basic plan - %s", in.Username),
			Description:    "single-seat plan provisioned at registration",
			StartDate:      nowT,
			EndDate:        nowT.AddDate(0, 1, 0),
			MaxSupervisors: 0,
			MaxUsers:       1,
			MainToken:      secret,
			Status:         model.PlanStatusActive,
			CreatedBy:      "system",
		})
		if err != nil {
			return RegisterResult{}, err
		}
	}

	userID, err := s.Users.Create(ctx, model.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Username:  in.Username,
		Email:     in.Email,
		Phone:     in.Phone,
		Role:      role,
		IsActive:  true,
		PlanID:    planID,
		CreatedBy: "system",
	}, in.Password, s.BcryptCost)
	if err != nil {
		return RegisterResult{}, err
	}

	return RegisterResult{
		UserID:   userID,
		Username: in.Username,
		Email:    in.Email,
		Role:     role,
		PlanID:   planID,
	}, nil
}

// resolvePlanByKey looks a plan up by secret key and checks it is usable.
func (s *Service) resolvePlanByKey(ctx context.Context, key string) (model.Plan, error) {
	plan, err := s.Plans.GetByToken(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Plan{}, ErrSecretKeyInvalid
		}
		return model.Plan{}, err
	}
	if plan.Status != model.PlanStatusActive {
		return model.Plan{}, ErrPlanInactive
	}
	if plan.Expired(s.now()) {
		return model.Plan{}, ErrPlanExpired
	}
	return plan, nil
}

// checkCapacity enforces the plan's occupancy limits for one role. The
// count-then-insert window is tolerated as low-stakes.
func (s *Service) checkCapacity(ctx context.Context, plan model.Plan, role string) error {
	if role == model.RoleSupervisor && plan.MaxSupervisors == 0 {
		return ErrRoleNotAllowed
	}
	n, err := s.Users.CountByPlanAndRole(ctx, plan.ID, role)
	if err != nil {
		return err
	}
	limit := plan.MaxUsers
	if role == model.RoleSupervisor {
		limit = plan.MaxSupervisors
	}
	if n >= limit {
		return fmt.Errorf("%w: plan allows at most %d %ss", ErrPlanCapacity, limit, role)
	}
	return nil
}

// ----- Secret key validation -----

// SecretKeyInfo describes which roles a plan key still admits.
type SecretKeyInfo struct {
	Roles                []string
	PlanName             string
	AvailableUsers       int
	AvailableSupervisors int
}

// ValidateSecretKey checks a plan secret key and reports the roles with
// remaining capacity. A key whose plan is full for every role fails with
// ErrPlanCapacity.
func (s *Service) ValidateSecretKey(ctx context.Context, key string) (SecretKeyInfo, error) {
	key = sanitizeInput(key)
	if key == "" {
		return SecretKeyInfo{}, &ValidationError{Messages: []string{"secret key is required"}}
	}
	plan, err := s.resolvePlanByKey(ctx, key)
	if err != nil {
		return SecretKeyInfo{}, err
	}
	users, err := s.Users.CountByPlanAndRole(ctx, plan.ID, model.RoleUser)
	if err != nil {
		return SecretKeyInfo{}, err
	}
	supervisors, err := s.Users.CountByPlanAndRole(ctx, plan.ID, model.RoleSupervisor)
	if err != nil {
		return SecretKeyInfo{}, err
	}

	info := SecretKeyInfo{
		PlanName:             plan.Name,
		AvailableUsers:       plan.MaxUsers - users,
		AvailableSupervisors: plan.MaxSupervisors - supervisors,
	}
	if users < plan.MaxUsers {
		info.Roles = append(info.Roles, model.RoleUser)
	}
	if plan.MaxSupervisors > 0 && supervisors < plan.MaxSupervisors {
		info.Roles = append(info.Roles, model.RoleSupervisor)
	}
	if len(info.Roles) == 0 {
		return SecretKeyInfo{}, fmt.Errorf("%w: plan has no remaining seats", ErrPlanCapacity)
	}
	return info, nil
}

// ----- Logout -----

// Logout closes the ledger entry matching (userID, token) with reason
// "logout". Finding nothing to close is not an error: logout is idempotent
// and always succeeds unless the store itself fails.
func (s *Service) Logout(ctx context.Context, userID uint64, token string) error {
	n, err := s.Sessions.CloseMatching(ctx, userID, token, model.CloseReasonLogout)
	if err != nil {
		return err
	}
	if n == 0 {
		s.Logger.Debug().Uint64("user_id", userID).Msg("logout found no active session to close")
	}
	s.publish(ctx, queue.AuthEvent{
		Type:   queue.EventLogout,
		UserID: userID,
	})
	return nil
}

// ----- Profile -----

// Profile is the authenticated user's own view of their account.
type Profile struct {
	User        model.User
	Plan        *model.Plan
	LastLoginAt *time.Time
}

// GetProfile loads the user, their plan (nil when dangling) and the last
// login time from the ledger.
func (s *Service) GetProfile(ctx context.Context, userID uint64) (Profile, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrUserNotFound
		}
		return Profile{}, err
	}
	p := Profile{User: user}
	if user.PlanID != 0 {
		if plan, err := s.Plans.GetByID(ctx, user.PlanID); err == nil {
			p.Plan = &plan
		}
	}
	if t, err := s.Sessions.LastLoginTime(ctx, userID); err == nil && !t.IsZero() {
		p.LastLoginAt = &t
	}
	return p, nil
}

// publish sends an auth event, filling in ID and timestamp. Errors are
// logged and swallowed: event delivery never affects the auth decision.
func (s *Service) publish(ctx context.Context, ev queue.AuthEvent) {
	if s.Events == nil {
		return
	}
	ev.EventID = uuid.NewString()
	ev.OccurredAt = s.now().UTC().Format(time.RFC3339)
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.Logger.Warn().Err(err).Str("type", ev.Type).Msg("publish auth event failed")
	}
}
