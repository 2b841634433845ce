package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	auth "github.com/atlasguides/go-auth"
)

func TestLogMailer(t *testing.T) {
	t.Run("logs the reset link and succeeds", func(t *testing.T) {
		logger := &MockLogger{}
		logger.On("Info", mock.Anything, mock.Anything)

		mailer := auth.NewLogMailer(logger)

		err := mailer.SendPasswordReset(context.Background(), "user@example.com", "https://app.example.com/reset-password/tok")

		assert.NoError(t, err)
		logger.AssertCalled(t, "Info", mock.Anything, mock.Anything)
	})

	t.Run("nil logger falls back to the default", func(t *testing.T) {
		mailer := auth.NewLogMailer(nil)

		err := mailer.SendPasswordReset(context.Background(), "user@example.com", "https://app.example.com/reset-password/tok")

		assert.NoError(t, err)
	})
}
