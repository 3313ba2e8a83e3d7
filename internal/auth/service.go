// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Mailer dispatches the outbound verification mail. Transport is an
// external concern; a failed send is logged and never rolls back the
// signup that triggered it.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
}

// SignupInput is the submitted signup form.
type SignupInput struct {
	Email           string
	Password        string
	ConfirmPassword string
}

// SignupOutcome is returned on a successful signup. The account exists but
// is pending email verification.
type SignupOutcome struct {
	AccountID           ulid.ULID
	PendingVerification bool
}

// LoginInput is the submitted login form.
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutcome is returned on a successful login.
type LoginOutcome struct {
	AccountID    ulid.ULID
	Session      *Session
	SessionToken string
}

// ServiceDeps are the collaborators the orchestrator composes. All fields
// are required except Clock and Logger.
type ServiceDeps struct {
	Accounts       AccountRepository
	Ledger         *AttemptLedger
	SignupThrottle *Throttle
	LoginThrottle  *Throttle
	Hasher         PasswordHasher
	Migrator       *HashMigrator
	Issuer         *TokenIssuer
	Sessions       *SessionStore
	Mailer         Mailer
	Clock          Clock
	Logger         *slog.Logger
}

// Service orchestrates signup and login. It holds no mutable state between
// requests; account uniqueness, attempt counts, and token uniqueness are
// all delegated to the backing store.
type Service struct {
	accounts       AccountRepository
	ledger         *AttemptLedger
	signupThrottle *Throttle
	loginThrottle  *Throttle
	hasher         PasswordHasher
	migrator       *HashMigrator
	issuer         *TokenIssuer
	sessions       *SessionStore
	mailer         Mailer
	clock          Clock
	logger         *slog.Logger
}

// NewService creates the auth orchestrator.
func NewService(deps ServiceDeps) (*Service, error) {
	switch {
	case deps.Accounts == nil:
		return nil, oops.Errorf("account repository is required")
	case deps.Ledger == nil:
		return nil, oops.Errorf("attempt ledger is required")
	case deps.SignupThrottle == nil:
		return nil, oops.Errorf("signup throttle is required")
	case deps.LoginThrottle == nil:
		return nil, oops.Errorf("login throttle is required")
	case deps.Hasher == nil:
		return nil, oops.Errorf("password hasher is required")
	case deps.Migrator == nil:
		return nil, oops.Errorf("hash migrator is required")
	case deps.Issuer == nil:
		return nil, oops.Errorf("token issuer is required")
	case deps.Sessions == nil:
		return nil, oops.Errorf("session store is required")
	case deps.Mailer == nil:
		return nil, oops.Errorf("mailer is required")
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		accounts:       deps.Accounts,
		ledger:         deps.Ledger,
		signupThrottle: deps.SignupThrottle,
		loginThrottle:  deps.LoginThrottle,
		hasher:         deps.Hasher,
		migrator:       deps.Migrator,
		issuer:         deps.Issuer,
		sessions:       deps.Sessions,
		mailer:         deps.Mailer,
		clock:          deps.Clock,
		logger:         deps.Logger,
	}, nil
}

// SubmitSignup handles a signup request.
//
// Validation failures and throttle denials write nothing to the ledger.
// Once the duplicate check runs, exactly one attempt record is written
// before any error is returned, so throttling state stays consistent with
// observed attempts.
func (s *Service) SubmitSignup(ctx context.Context, rc RequestContext, input SignupInput) (*SignupOutcome, error) {
	if err := ValidateSignup(input.Email, input.Password, input.ConfirmPassword); err != nil {
		AuthAttempts.WithLabelValues(string(AttemptSignup), OutcomeValidationFailed).Inc()
		return nil, err
	}

	admission, err := s.signupThrottle.CheckAdmission(ctx, FailureMatch{
		Email:         input.Email,
		OriginAddress: rc.OriginAddress,
	})
	if err != nil {
		AuthAttempts.WithLabelValues(string(AttemptSignup), OutcomeUpstreamError).Inc()
		return nil, err
	}
	if admission == Deny {
		AuthAttempts.WithLabelValues(string(AttemptSignup), OutcomeRateLimited).Inc()
		ThrottleDenials.WithLabelValues(string(AttemptSignup)).Inc()
		return nil, oops.Code(CodeRateLimited).
			Errorf("too many attempts, please wait before trying again")
	}

	// Existence check. The insert below still races against concurrent
	// signups; the store's uniqueness constraint settles the race.
	if _, err := s.accounts.GetByEmail(ctx, input.Email); err == nil {
		s.recordSignup(ctx, input.Email, rc.OriginAddress, false)
		AuthAttempts.WithLabelValues(string(AttemptSignup), OutcomeDuplicateEmail).Inc()
		return nil, oops.Code(CodeDuplicateEmail).Errorf("email already registered")
	} else if !isNotFound(err) {
		AuthAttempts.WithLabelValues(string(AttemptSignup), OutcomeUpstreamError).Inc()
		return nil, oops.Code(CodeUpstream).
			With("operation", "check account existence").
			Wrap(err)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		AuthAttempts.WithLabelValues(string(AttemptSignup), OutcomeUpstreamError).Inc()
		return nil, oops.Code(CodeUpstream).
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(input.Email, passwordHash, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			// Lost the insert race: same outcome as the existence check.
			s.recordSignup(ctx, input.Email, rc.OriginAddress, false)
			AuthAttempts.WithLabelValues(string(AttemptSignup), OutcomeDuplicateEmail).Inc()
			return nil, oops.Code(CodeDuplicateEmail).Errorf("email already registered")
		}
		AuthAttempts.WithLabelValues(string(AttemptSignup), OutcomeUpstreamError).Inc()
		return nil, oops.Code(CodeUpstream).
			With("operation", "create account").
			Wrap(err)
	}

	// The account now exists: this attempt succeeded no matter what the
	// mail collaborators do next.
	s.recordSignup(ctx, input.Email, rc.OriginAddress, true)

	token, _, err := s.issuer.Issue(ctx, account.ID)
	if err != nil {
		AuthAttempts.WithLabelValues(string(AttemptSignup), OutcomeUpstreamError).Inc()
		return nil, err
	}

	if err := s.mailer.SendVerification(ctx, account.Email, token); err != nil {
		// Mail failure never rolls back account creation.
		s.logger.ErrorContext(ctx, "failed to send verification mail",
			"account_id", account.ID.String(),
			"error", err)
	}

	AuthAttempts.WithLabelValues(string(AttemptSignup), OutcomeSuccess).Inc()
	return &SignupOutcome{AccountID: account.ID, PendingVerification: true}, nil
}

// SubmitLogin handles a login request.
//
// Throttle denials return before the credential step and write no ledger
// record. Every attempt that reaches verification writes exactly one record.
// Unknown accounts and wrong passwords fail identically.
func (s *Service) SubmitLogin(ctx context.Context, rc RequestContext, input LoginInput) (*LoginOutcome, error) {
	account, err := s.accounts.GetByEmail(ctx, input.Email)
	if err != nil && !isNotFound(err) {
		AuthAttempts.WithLabelValues(string(AttemptLogin), OutcomeUpstreamError).Inc()
		return nil, oops.Code(CodeUpstream).
			With("operation", "get account by email").
			Wrap(err)
	}

	match := FailureMatch{OriginAddress: rc.OriginAddress}
	if account != nil {
		match.AccountID = &account.ID
	}
	admission, err := s.loginThrottle.CheckAdmission(ctx, match)
	if err != nil {
		AuthAttempts.WithLabelValues(string(AttemptLogin), OutcomeUpstreamError).Inc()
		return nil, err
	}
	if admission == Deny {
		AuthAttempts.WithLabelValues(string(AttemptLogin), OutcomeRateLimited).Inc()
		ThrottleDenials.WithLabelValues(string(AttemptLogin)).Inc()
		return nil, oops.Code(CodeRateLimited).
			Errorf("too many failed attempts, please try again later")
	}

	if account == nil || account.PasswordHash == nil || *account.PasswordHash == "" {
		// No credential to check. Record only the origin so the response
		// leaks nothing about whether the account exists.
		s.ledger.Record(ctx, NewAttemptRecord(AttemptLogin, "", nil, rc.OriginAddress, false, s.clock.Now()))
		AuthAttempts.WithLabelValues(string(AttemptLogin), OutcomeInvalidCredentials).Inc()
		return nil, invalidCredentials()
	}

	result, err := VerifyCredential(s.hasher, account.PasswordHash, input.Password)
	if err != nil {
		s.ledger.Record(ctx, NewAttemptRecord(AttemptLogin, account.Email, &account.ID, rc.OriginAddress, false, s.clock.Now()))
		AuthAttempts.WithLabelValues(string(AttemptLogin), OutcomeUpstreamError).Inc()
		return nil, oops.Code(CodeUpstream).
			With("operation", "verify credential").
			Wrap(err)
	}

	s.migrator.MaybeUpgrade(ctx, account.ID, input.Password, result)

	s.ledger.Record(ctx, NewAttemptRecord(AttemptLogin, account.Email, &account.ID, rc.OriginAddress, result.Valid, s.clock.Now()))

	if !result.Valid {
		AuthAttempts.WithLabelValues(string(AttemptLogin), OutcomeInvalidCredentials).Inc()
		return nil, invalidCredentials()
	}

	session, token, err := s.sessions.Establish(ctx, account)
	if err != nil {
		AuthAttempts.WithLabelValues(string(AttemptLogin), OutcomeUpstreamError).Inc()
		return nil, err
	}

	AuthAttempts.WithLabelValues(string(AttemptLogin), OutcomeSuccess).Inc()
	return &LoginOutcome{
		AccountID:    account.ID,
		Session:      session,
		SessionToken: token,
	}, nil
}

func (s *Service) recordSignup(ctx context.Context, email, origin string, success bool) {
	s.ledger.Record(ctx, NewAttemptRecord(AttemptSignup, email, nil, origin, success, s.clock.Now()))
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
}
