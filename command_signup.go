package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type SignupMessage struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

func (e SignupMessage) Type() string { return "user.signup" }

type SignupResponse struct {
	User  *User
	Token string
}

type SignupHandler struct {
	repo   RepositoryManager
	auther Authenticator
	logger Logger
}

func NewSignupHandler(repo RepositoryManager, auther Authenticator) *SignupHandler {
	return &SignupHandler{
		repo:   repo,
		auther: auther,
		logger: defLogger{},
	}
}

func (h *SignupHandler) WithLogger(logger Logger) *SignupHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) (*SignupResponse, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) (*SignupResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

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

	user := &User{
		Name:         event.Name,
		Email:        NormalizeEmail(event.Email),
		Role:         RoleRegular,
		PasswordHash: hash,
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return err
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	token, err := h.auther.IssueToken(user)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	return &SignupResponse{User: user, Token: token}, nil
}
