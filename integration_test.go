package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/atlasguides/go-auth"
)

// Full credential lifecycle against a real sqlite store: signup, login, a
// password reset that consumes the token exactly once, and the stale-session
// behavior of tokens issued before a password change.
func TestCredentialLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	ctx := context.Background()

	db, err := auth.OpenDB("file:lifecycle?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	require.NoError(t, auth.CreateSchema(ctx, db))

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	auther := auth.NewAuthenticator(repo, newTestConfig()).WithLogger(newNoopLogger())

	signup := auth.NewSignupHandler(repo, auther).WithLogger(newNoopLogger())

	resp, err := signup.Execute(ctx, auth.SignupMessage{
		Name:            "Toadette",
		Email:           "Toadette@Example.com",
		Password:        "pass1234",
		PasswordConfirm: "pass1234",
	})
	require.NoError(t, err)
	require.Equal(t, "toadette@example.com", resp.User.Email)
	require.Equal(t, auth.RoleRegular, resp.User.Role)

	firstSession := resp.Token
	require.NotEmpty(t, firstSession)

	t.Run("signup session resolves to the account", func(t *testing.T) {
		user, err := auther.Authenticate(ctx, firstSession)
		require.NoError(t, err)
		require.Equal(t, resp.User.ID, user.ID)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, err := signup.Execute(ctx, auth.SignupMessage{
			Name:            "Impostor",
			Email:           "TOADETTE@example.com",
			Password:        "pass1234",
			PasswordConfirm: "pass1234",
		})
		require.Equal(t, auth.ErrEmailTaken, err)
	})

	t.Run("login accepts the password and lookup is case-insensitive", func(t *testing.T) {
		token, err := auther.Login(ctx, "Toadette@EXAMPLE.com", "pass1234")
		require.NoError(t, err)
		require.NotEmpty(t, token)
	})

	t.Run("login rejects the wrong password", func(t *testing.T) {
		_, err := auther.Login(ctx, "toadette@example.com", "wrong-password")
		require.Equal(t, auth.ErrMismatchedHashAndPassword, err)
	})

	// the watermark carries a one second margin, so age the first session
	// past it before resetting
	time.Sleep(2 * time.Second)

	mailer := &MockMailer{}
	var mailedURL string
	mailer.On("SendPasswordReset", mock.Anything, "toadette@example.com", mock.AnythingOfType("string")).
		Return(nil).
		Run(func(args mock.Arguments) {
			mailedURL = args.String(2)
		})

	initReset := auth.NewInitializePasswordResetHandler(repo, mailer, "https://app.example.com").
		WithLogger(newNoopLogger())
	finalizeReset := auth.NewFinalizePasswordResetHandler(repo, auther).WithLogger(newNoopLogger())

	_, err = initReset.Execute(ctx, auth.InitializePasswordResetMessage{Email: "toadette@example.com"})
	require.NoError(t, err)

	idx := strings.LastIndex(mailedURL, "/")
	require.Greater(t, idx, 0)
	rawToken := mailedURL[idx+1:]
	require.Len(t, rawToken, auth.ResetTokenBytes*2)

	t.Run("reset rejects a token that was never issued", func(t *testing.T) {
		_, err := finalizeReset.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:           "0000000000000000000000000000000000000000000000000000000000000000",
			Password:        "brand-new-pass1",
			PasswordConfirm: "brand-new-pass1",
		})
		require.Equal(t, auth.ErrResetTokenInvalid, err)
	})

	t.Run("reset consumes the mailed token", func(t *testing.T) {
		out, err := finalizeReset.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:           rawToken,
			Password:        "brand-new-pass1",
			PasswordConfirm: "brand-new-pass1",
		})
		require.NoError(t, err)
		require.NotEmpty(t, out.Token)

		// fresh session works right away
		user, err := auther.Authenticate(ctx, out.Token)
		require.NoError(t, err)
		require.Equal(t, resp.User.ID, user.ID)
	})

	t.Run("reset token cannot be replayed", func(t *testing.T) {
		_, err := finalizeReset.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:           rawToken,
			Password:        "yet-another-pass1",
			PasswordConfirm: "yet-another-pass1",
		})
		require.Equal(t, auth.ErrResetTokenInvalid, err)
	})

	t.Run("sessions issued before the reset are stale", func(t *testing.T) {
		_, err := auther.Authenticate(ctx, firstSession)
		require.Equal(t, auth.ErrStaleSession, err)
	})

	t.Run("old password no longer logs in", func(t *testing.T) {
		_, err := auther.Login(ctx, "toadette@example.com", "pass1234")
		require.Equal(t, auth.ErrMismatchedHashAndPassword, err)
	})

	var postResetSession string

	t.Run("new password logs in", func(t *testing.T) {
		postResetSession, err = auther.Login(ctx, "toadette@example.com", "brand-new-pass1")
		require.NoError(t, err)
		require.NotEmpty(t, postResetSession)
	})

	time.Sleep(2 * time.Second)

	t.Run("authenticated password change invalidates earlier sessions", func(t *testing.T) {
		user, err := auther.Authenticate(ctx, postResetSession)
		require.NoError(t, err)

		change := auth.NewChangePasswordHandler(repo, auther).WithLogger(newNoopLogger())
		out, err := change.Execute(ctx, user, auth.ChangePasswordMessage{
			CurrentPassword: "brand-new-pass1",
			Password:        "final-pass1234",
			PasswordConfirm: "final-pass1234",
		})
		require.NoError(t, err)

		_, err = auther.Authenticate(ctx, postResetSession)
		require.Equal(t, auth.ErrStaleSession, err)

		fresh, err := auther.Authenticate(ctx, out.Token)
		require.NoError(t, err)
		require.Equal(t, user.ID, fresh.ID)
	})
}

// An outstanding reset token whose window has lapsed matches no row even
// though the digest is still stored.
func TestExpiredResetTokenIsRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	ctx := context.Background()

	db, err := auth.OpenDB("file:expiredreset?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	require.NoError(t, auth.CreateSchema(ctx, db))

	repo := auth.NewRepositoryManager(db)
	auther := auth.NewAuthenticator(repo, newTestConfig()).WithLogger(newNoopLogger())

	signup := auth.NewSignupHandler(repo, auther).WithLogger(newNoopLogger())
	resp, err := signup.Execute(ctx, auth.SignupMessage{
		Name:            "Wario",
		Email:           "wario@example.com",
		Password:        "pass1234",
		PasswordConfirm: "pass1234",
	})
	require.NoError(t, err)

	rawToken, digest, _, err := auth.GenerateResetToken()
	require.NoError(t, err)

	// plant an already expired window
	err = repo.Users().SetPasswordReset(ctx, resp.User.ID, digest, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	finalize := auth.NewFinalizePasswordResetHandler(repo, auther).WithLogger(newNoopLogger())
	_, err = finalize.Execute(ctx, auth.FinalizePasswordResetMessage{
		Token:           rawToken,
		Password:        "brand-new-pass1",
		PasswordConfirm: "brand-new-pass1",
	})
	require.Equal(t, auth.ErrResetTokenInvalid, err)

	// the account still logs in with its original password
	_, err = auther.Login(ctx, "wario@example.com", "pass1234")
	require.NoError(t, err)
}
