package auth_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	auth "github.com/atlasguides/go-auth"
)

func TestFinalizePasswordResetHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes the token and issues a fresh session", func(t *testing.T) {
		repo := NewMockRepoManager()
		auther := &MockAuthenticator{}
		handler := auth.NewFinalizePasswordResetHandler(repo, auther).WithLogger(newNoopLogger())

		rawToken, digest, _, err := auth.GenerateResetToken()
		assert.NoError(t, err)

		user := newTestUser("daisy@example.com", auth.RoleRegular, "old-password")

		repo.MockUsers().On("ConsumePasswordReset", mock.Anything, digest, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Return(user, nil).
			Run(func(args mock.Arguments) {
				// the handler hands over the digest, never the raw token
				assert.Equal(t, digest, args.String(1))
				assert.NoError(t, auth.ComparePasswordAndHash("new-password1", args.String(2)))

				changedAt := args.Get(3).(time.Time)
				assert.True(t, changedAt.Before(time.Now()),
					"watermark should sit slightly in the past")
			})
		auther.On("IssueToken", user).Return("fresh-token", nil)

		resp, err := handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:           rawToken,
			Password:        "new-password1",
			PasswordConfirm: "new-password1",
		})

		assert.NoError(t, err)
		assert.Equal(t, "fresh-token", resp.Token)

		repo.MockUsers().AssertExpectations(t)
		auther.AssertExpectations(t)
	})

	t.Run("wrong, expired and consumed tokens all map to the same error", func(t *testing.T) {
		repo := NewMockRepoManager()
		auther := &MockAuthenticator{}
		handler := auth.NewFinalizePasswordResetHandler(repo, auther).WithLogger(newNoopLogger())

		repo.MockUsers().On("ConsumePasswordReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, repository.NewRecordNotFound())

		resp, err := handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:           "bogus-token",
			Password:        "new-password1",
			PasswordConfirm: "new-password1",
		})

		assert.Nil(t, resp)
		assert.Equal(t, auth.ErrResetTokenInvalid, err)
		assert.Equal(t, goerrors.CodeBadRequest, auth.StatusFromError(err))
		auther.AssertNotCalled(t, "IssueToken", mock.Anything)
	})

	t.Run("password confirmation mismatch", func(t *testing.T) {
		repo := NewMockRepoManager()
		handler := auth.NewFinalizePasswordResetHandler(repo, &MockAuthenticator{}).WithLogger(newNoopLogger())

		resp, err := handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:           "whatever",
			Password:        "new-password1",
			PasswordConfirm: "new-password2",
		})

		assert.Nil(t, resp)
		assert.Equal(t, goerrors.CodeBadRequest, auth.StatusFromError(err))
		repo.MockUsers().AssertNotCalled(t, "ConsumePasswordReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty password", func(t *testing.T) {
		repo := NewMockRepoManager()
		handler := auth.NewFinalizePasswordResetHandler(repo, &MockAuthenticator{}).WithLogger(newNoopLogger())

		resp, err := handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:           "whatever",
			Password:        "",
			PasswordConfirm: "",
		})

		assert.Nil(t, resp)
		assert.Equal(t, auth.ErrNoEmptyString, err)
	})
}
