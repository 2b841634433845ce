package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email"`
}

func (e InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	Email     string
	ExpiresAt time.Time
}

type InitializePasswordResetHandler struct {
	repo         RepositoryManager
	mailer       Mailer
	resetURLBase string
	logger       Logger
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(repo RepositoryManager, mailer Mailer, resetURLBase string) *InitializePasswordResetHandler {
	if mailer == nil {
		mailer = NewLogMailer(nil)
	}
	return &InitializePasswordResetHandler{
		repo:         repo,
		mailer:       mailer,
		resetURLBase: resetURLBase,
		logger:       defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) (*InitializePasswordResetResponse, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) (*InitializePasswordResetResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, goerrors.New("there is no account with that email address", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	// a second request before completion overwrites the previous digest,
	// invalidating any earlier outstanding token
	token, digest, expiresAt, err := GenerateResetToken()
	if err != nil {
		return nil, err
	}

	if err := h.repo.Users().SetPasswordReset(ctx, user.ID, digest, expiresAt); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store password reset token")
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(h.resetURLBase, "/"), token)

	mailCtx, mailCancel := context.WithTimeout(ctx, MailTimeout)
	defer mailCancel()

	if err := h.mailer.SendPasswordReset(mailCtx, user.Email, resetURL); err != nil {
		h.logger.Error("password reset delivery failed", "error", err, "email", user.Email)

		// a failed send must not leave an unusable digest behind: clear the
		// fields so the account returns to its pre-request state and the user
		// can retry cleanly
		if clearErr := h.repo.Users().ClearPasswordReset(ctx, user.ID); clearErr != nil {
			h.logger.Error("failed to roll back reset fields after delivery error", "error", clearErr)
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "there was an error sending the email, try again later").
			WithCode(goerrors.CodeInternal)
	}

	return &InitializePasswordResetResponse{
		Email:     user.Email,
		ExpiresAt: expiresAt,
	}, nil
}
