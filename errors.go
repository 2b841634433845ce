package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// Stable text codes surfaced to API clients alongside the HTTP status.
const (
	TextCodeInvalidCreds      = "INVALID_CREDENTIALS"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeNotLoggedIn       = "NOT_LOGGED_IN"
	TextCodeAccountGone       = "ACCOUNT_GONE"
	TextCodeStaleSession      = "STALE_SESSION"
	TextCodeResetTokenInvalid = "RESET_TOKEN_INVALID"
	TextCodeEmptyPassword     = "EMPTY_PASSWORD"
	TextCodeEmailTaken        = "EMAIL_TAKEN"
	TextCodeForbidden         = "FORBIDDEN"
	TextCodeWrongPassword     = "WRONG_PASSWORD"
)

// ErrMismatchedHashAndPassword is returned for a failed login. Lookup misses
// and bcrypt mismatches both collapse into this one value so responses cannot
// be used to enumerate accounts.
var ErrMismatchedHashAndPassword = goerrors.New("incorrect email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenExpired marks session tokens past their expiry horizon
var ErrTokenExpired = goerrors.New("session token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed marks tokens that fail signature or structural checks
var ErrTokenMalformed = goerrors.New("session token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrNotLoggedIn is returned when a protected route receives no bearer token
var ErrNotLoggedIn = goerrors.New("you are not logged in, please log in to get access", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotLoggedIn).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountNoLongerExists is returned when a valid token references a
// deleted account
var ErrAccountNoLongerExists = goerrors.New("the account belonging to this token no longer exists", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountGone).
	WithCode(goerrors.CodeUnauthorized)

// ErrStaleSession rejects tokens issued before the account's
// password_changed_at watermark
var ErrStaleSession = goerrors.New("password changed recently, please log in again", goerrors.CategoryAuth).
	WithTextCode(TextCodeStaleSession).
	WithCode(goerrors.CodeUnauthorized)

// ErrResetTokenInvalid covers wrong, expired, and already-consumed reset
// tokens; callers must not be able to tell these apart.
var ErrResetTokenInvalid = goerrors.New("token is invalid or has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeResetTokenInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrWrongCurrentPassword is returned by the password change flow
var ErrWrongCurrentPassword = goerrors.New("your current password is wrong", goerrors.CategoryAuth).
	WithTextCode(TextCodeWrongPassword).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden is returned when the identity's role is not in the allowed set
var ErrForbidden = goerrors.New("you do not have permission to perform this action", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrEmailTaken is returned when signup hits the unique email constraint
var ErrEmailTaken = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// MapErrorToRich normalizes any error into a rich error with a safe message.
// Unrecognized errors become opaque internals so storage and crypto details
// never reach a response.
func MapErrorToRich(err error) *goerrors.Error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected error occurred").
		WithCode(goerrors.CodeInternal)
}

// StatusFromError resolves the HTTP status for an error: the explicit code if
// set, otherwise the category default.
func StatusFromError(err error) int {
	richErr := MapErrorToRich(err)
	if richErr.Code > 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return goerrors.CodeBadRequest
	case goerrors.CategoryAuth:
		return goerrors.CodeUnauthorized
	case goerrors.CategoryAuthz:
		return goerrors.CodeForbidden
	case goerrors.CategoryNotFound:
		return goerrors.CodeNotFound
	case goerrors.CategoryConflict:
		return goerrors.CodeConflict
	default:
		return goerrors.CodeInternal
	}
}
