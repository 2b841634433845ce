package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type ChangePasswordMessage struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

func (e ChangePasswordMessage) Type() string { return "user.password_change" }

type ChangePasswordResponse struct {
	User  *User
	Token string
}

type ChangePasswordHandler struct {
	repo   RepositoryManager
	auther Authenticator
	logger Logger
}

func NewChangePasswordHandler(repo RepositoryManager, auther Authenticator) *ChangePasswordHandler {
	return &ChangePasswordHandler{
		repo:   repo,
		auther: auther,
		logger: defLogger{},
	}
}

func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Execute requires an already-authenticated user, resolved by the Protect
// middleware before this handler runs.
func (h *ChangePasswordHandler) Execute(ctx context.Context, user *User, event ChangePasswordMessage) (*ChangePasswordResponse, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, user, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, user *User, event ChangePasswordMessage) (*ChangePasswordResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if user == nil {
		return nil, ErrNotLoggedIn
	}

	if err := ComparePasswordAndHash(event.CurrentPassword, user.PasswordHash); err != nil {
		return nil, ErrWrongCurrentPassword
	}

	if event.Password != event.PasswordConfirm {
		return nil, goerrors.New("passwords do not match", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	changedAt := time.Now().Add(-PasswordChangedAtMargin)

	updated, err := h.repo.Users().UpdatePassword(ctx, user.ID, hash, changedAt)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
	}

	token, err := h.auther.IssueToken(updated)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	return &ChangePasswordResponse{User: updated, Token: token}, nil
}
