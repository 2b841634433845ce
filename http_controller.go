package auth

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// RegisterAuthRoutes mounts the credential endpoints on the given router.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post("/signup", controller.Signup)
	app.Post("/login", controller.Login)
	app.Post("/forgot-password", controller.ForgotPassword)
	app.Patch("/reset-password/:token", controller.ResetPassword)
	app.Patch("/update-password", Protect(controller.Auther), controller.UpdatePassword)
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       Authenticator
	Mailer       Mailer
	ResetURLBase string
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Mailer == nil {
		c.Mailer = NewLogMailer(c.Logger)
	}

	return c
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerResetURLBase(base string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.ResetURLBase = base
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// SignupPayload is the signup request body
type SignupPayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	PasswordConfirm string `form:"password_confirm" json:"password_confirm"`
}

// Validate will run validation rules
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.PasswordConfirm,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) Signup(ctx *fiber.Ctx) error {
	payload := new(SignupPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	if a.Debug {
		a.Logger.Debug("signup payload: %s", print.MaybePrettyJSON(payload))
	}

	signup := NewSignupHandler(a.Repo, a.Auther).WithLogger(a.Logger)
	resp, err := signup.Execute(ctx.UserContext(), SignupMessage{
		Name:            payload.Name,
		Email:           payload.Email,
		Password:        payload.Password,
		PasswordConfirm: payload.PasswordConfirm,
	})
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "success",
		"token":  resp.Token,
		"data": fiber.Map{
			"user": resp.User,
		},
	})
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) Login(ctx *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	token, err := a.Auther.Login(ctx.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"status": "success",
		"token":  token,
	})
}

// ForgotPasswordPayload holds the email to send the reset link to
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ForgotPassword(ctx *fiber.Ctx) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	initReset := NewInitializePasswordResetHandler(a.Repo, a.Mailer, a.resetURLBase(ctx)).WithLogger(a.Logger)
	if _, err := initReset.Execute(ctx.UserContext(), InitializePasswordResetMessage{
		Email: payload.Email,
	}); err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"status":  "success",
		"message": "token sent to email",
	})
}

// ResetPasswordPayload is the reset completion body; the raw token travels in
// the URL
type ResetPasswordPayload struct {
	Password        string `form:"password" json:"password"`
	PasswordConfirm string `form:"password_confirm" json:"password_confirm"`
}

// Validate will run validation rules
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.PasswordConfirm,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) ResetPassword(ctx *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	finalize := NewFinalizePasswordResetHandler(a.Repo, a.Auther).WithLogger(a.Logger)
	resp, err := finalize.Execute(ctx.UserContext(), FinalizePasswordResetMessage{
		Token:           ctx.Params("token"),
		Password:        payload.Password,
		PasswordConfirm: payload.PasswordConfirm,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"status": "success",
		"token":  resp.Token,
	})
}

// UpdatePasswordPayload is the authenticated password change body
type UpdatePasswordPayload struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	Password        string `form:"password" json:"password"`
	PasswordConfirm string `form:"password_confirm" json:"password_confirm"`
}

// Validate will run validation rules
func (r UpdatePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.PasswordConfirm,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) UpdatePassword(ctx *fiber.Ctx) error {
	user, ok := UserFromContext(ctx)
	if !ok {
		return ErrNotLoggedIn
	}

	payload := new(UpdatePasswordPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	if err := payload.Validate(); err != nil {
		return validationError(err)
	}

	change := NewChangePasswordHandler(a.Repo, a.Auther).WithLogger(a.Logger)
	resp, err := change.Execute(ctx.UserContext(), user, ChangePasswordMessage{
		CurrentPassword: payload.CurrentPassword,
		Password:        payload.Password,
		PasswordConfirm: payload.PasswordConfirm,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"status": "success",
		"token":  resp.Token,
	})
}

func (a *AuthController) resetURLBase(ctx *fiber.Ctx) string {
	if a.ResetURLBase != "" {
		return a.ResetURLBase
	}
	// drop the current route's own segment so the link resolves against the
	// mount point, where the reset route lives
	base := strings.TrimSuffix(ctx.Route().Path, "/forgot-password")
	return fmt.Sprintf("%s://%s%s", ctx.Protocol(), ctx.Hostname(), base)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field → message map suitable for a JSON response.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	if err != nil {
		out["payload"] = err.Error()
	}

	return out
}

// ErrorHandler is the single boundary translator: it maps any error escaping
// a handler to a status code and a safe JSON envelope. Raw storage and crypto
// errors never reach the response body.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"status":  statusWord(fiberErr.Code),
				"message": fiberErr.Message,
			})
		}

		richErr := MapErrorToRich(err)
		status := StatusFromError(richErr)

		if status >= fiber.StatusInternalServerError {
			logger.Error(
				"request failed",
				"error", err,
				"category", richErr.Category,
				"path", c.OriginalURL(),
			)
			// the wrapped cause stays in the logs only
			return c.Status(status).JSON(fiber.Map{
				"status":  "error",
				"message": "something went very wrong",
			})
		}

		body := fiber.Map{
			"status":  statusWord(status),
			"message": richErr.Message,
		}
		if richErr.TextCode != "" {
			body["code"] = richErr.TextCode
		}
		if len(richErr.Metadata) > 0 {
			if fields, ok := richErr.Metadata["validation"]; ok {
				body["errors"] = fields
			}
		}

		return c.Status(status).JSON(body)
	}
}

func statusWord(status int) string {
	if status >= fiber.StatusInternalServerError {
		return "error"
	}
	return "fail"
}

func badPayload(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
		WithCode(goerrors.CodeBadRequest)
}

func validationError(err error) error {
	return goerrors.New("invalid request payload", goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"validation": FormatValidationErrorToMap(err),
		})
}
