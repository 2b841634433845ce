package auth_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	auth "github.com/atlasguides/go-auth"
)

// testConfig implements auth.Config
type testConfig struct {
	signingKey      string
	tokenExpiration int
	issuer          string
	audience        []string
	resetURLBase    string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:      "test-signing-key",
		tokenExpiration: 24,
		issuer:          "test-issuer",
		audience:        []string{"test-audience"},
		resetURLBase:    "http://localhost:3000/api/v1/users",
	}
}

func (c *testConfig) GetSigningKey() string   { return c.signingKey }
func (c *testConfig) GetTokenExpiration() int { return c.tokenExpiration }
func (c *testConfig) GetIssuer() string       { return c.issuer }
func (c *testConfig) GetAudience() []string   { return c.audience }
func (c *testConfig) GetResetURLBase() string { return c.resetURLBase }

// MockUsers implements the subset of auth.Users the flows touch. The embedded
// interface panics on anything unmocked, which is what we want in tests.
type MockUsers struct {
	mock.Mock
	auth.Users
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUsers) GetByUserID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, tx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUsers) SetPasswordReset(ctx context.Context, id uuid.UUID, digest string, expiresAt time.Time) error {
	args := m.Called(ctx, id, digest, expiresAt)
	return args.Error(0)
}

func (m *MockUsers) ClearPasswordReset(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) (*auth.User, error) {
	args := m.Called(ctx, id, passwordHash, changedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUsers) ConsumePasswordReset(ctx context.Context, digest, passwordHash string, changedAt time.Time) (*auth.User, error) {
	args := m.Called(ctx, digest, passwordHash, changedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

// MockRepoManager wires a MockUsers behind auth.RepositoryManager.
// Transactions run the callback inline; the flows under test never commit.
type MockRepoManager struct {
	users *MockUsers
}

func NewMockRepoManager() *MockRepoManager {
	return &MockRepoManager{users: &MockUsers{}}
}

func (m *MockRepoManager) Users() auth.Users { return m.users }

func (m *MockRepoManager) MockUsers() *MockUsers { return m.users }

func (m *MockRepoManager) Validate() error { return nil }

func (m *MockRepoManager) MustValidate() {}

func (m *MockRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

// MockMailer implements auth.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	args := m.Called(ctx, email, resetURL)
	return args.Error(0)
}

// MockAuthenticator implements auth.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, rawToken string) (*auth.User, error) {
	args := m.Called(ctx, rawToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockAuthenticator) IssueToken(user *auth.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

// MockLogger implements auth.Logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) { m.Called(format, args) }
func (m *MockLogger) Info(format string, args ...any)  { m.Called(format, args) }
func (m *MockLogger) Warn(format string, args ...any)  { m.Called(format, args) }
func (m *MockLogger) Error(format string, args ...any) { m.Called(format, args) }

// newNoopLogger returns a MockLogger that swallows every call.
func newNoopLogger() *MockLogger {
	logger := &MockLogger{}
	logger.On("Debug", mock.Anything, mock.Anything).Maybe()
	logger.On("Info", mock.Anything, mock.Anything).Maybe()
	logger.On("Warn", mock.Anything, mock.Anything).Maybe()
	logger.On("Error", mock.Anything, mock.Anything).Maybe()
	return logger
}

func mustHash(password string) string {
	hash, err := auth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}

func newTestUser(email string, role auth.UserRole, password string) *auth.User {
	return &auth.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		Role:         role,
		PasswordHash: mustHash(password),
	}
}
