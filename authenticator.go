package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type Auther struct {
	repo         RepositoryManager
	signingKey   []byte
	tokenService TokenService
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		repo:         repo,
		signingKey:   []byte(opts.GetSigningKey()),
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// WithTokenService sets a custom token service, mostly for tests that need a
// controllable clock or horizon.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and issues a session token. A missing
// account and a wrong password produce the identical error so the response
// cannot be used to enumerate accounts.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return "", ErrMismatchedHashAndPassword
		}
		s.logger.Error("Login user lookup error", "error", err)
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during login")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return "", ErrMismatchedHashAndPassword
	}

	return s.IssueToken(user)
}

// IssueToken mints a session token for the user
func (s *Auther) IssueToken(user *User) (string, error) {
	token, err := s.tokenService.Generate(user.Identity())
	if err != nil {
		s.logger.Error("IssueToken generate error", "error", err)
		return "", err
	}
	return token, nil
}

// Authenticate resolves a raw bearer token to the account it was issued for.
// It fails on invalid or expired tokens, on tokens whose account no longer
// exists, and on tokens issued before the account's password_changed_at
// watermark.
func (s *Auther) Authenticate(ctx context.Context, rawToken string) (*User, error) {
	claims, err := s.tokenService.Validate(rawToken)
	if err != nil {
		return nil, err
	}

	uid, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrTokenMalformed
	}

	user, err := s.repo.Users().GetByUserID(ctx, uid)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, ErrAccountNoLongerExists
		}
		s.logger.Error("Authenticate user lookup error", "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during authentication")
	}

	if user.ChangedPasswordAfter(claims.IssuedAt()) {
		return nil, ErrStaleSession
	}

	return user, nil
}

var _ Authenticator = (*Auther)(nil)
