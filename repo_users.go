package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UpdateUserPasswordSQL finalizes a password mutation in one statement: new
// hash, watermark bump, reset fields cleared.
var UpdateUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"password_changed_at" = ?,
	"password_reset_digest" = NULL,
	"password_reset_expires_at" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
RETURNING *;`

// ConsumePasswordResetSQL redeems a reset token: the conditional WHERE makes
// consumption atomic, so of two concurrent completions with the same token at
// most one matches and the loser observes the fields already cleared.
var ConsumePasswordResetSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"password_changed_at" = ?,
	"password_reset_digest" = NULL,
	"password_reset_expires_at" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."password_reset_digest" = ?
AND
	"usr"."password_reset_expires_at" > ?
RETURNING *;`

type Users interface {
	repository.Repository[*User]

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByUserID(ctx context.Context, id uuid.UUID) (*User, error)

	SetPasswordReset(ctx context.Context, id uuid.UUID, digest string, expiresAt time.Time) error
	SetPasswordResetTx(ctx context.Context, tx bun.IDB, id uuid.UUID, digest string, expiresAt time.Time) error
	ClearPasswordReset(ctx context.Context, id uuid.UUID) error
	ClearPasswordResetTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) (*User, error)
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string, changedAt time.Time) (*User, error)
	ConsumePasswordReset(ctx context.Context, digest, passwordHash string, changedAt time.Time) (*User, error)
	ConsumePasswordResetTx(ctx context.Context, tx bun.IDB, digest, passwordHash string, changedAt time.Time) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

// NormalizeEmail lowercases and trims an email address. Every lookup and
// write goes through this so the unique constraint is case-insensitive in
// practice.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)

	if _, err := a.GetByEmailTx(ctx, tx, user.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	record, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		// the unique index is the last line of defense against a racing signup
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return record, nil
}

// isUniqueViolation matches both the categorized duplicate-key error and the
// raw constraint text the pure-Go sqlite driver reports, which the error
// mapper does not recognize.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if repository.IsDuplicatedKey(err) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": NormalizeEmail(email)})
		}
		return nil, err
	}

	return record, nil
}

// GetByUserID wraps the string-keyed lookup from the embedded repository with
// a typed ID.
func (a *users) GetByUserID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.Repository.GetByID(ctx, id.String())
}

func (a *users) SetPasswordReset(ctx context.Context, id uuid.UUID, digest string, expiresAt time.Time) error {
	return a.SetPasswordResetTx(ctx, a.db, id, digest, expiresAt)
}

func (a *users) SetPasswordResetTx(ctx context.Context, tx bun.IDB, id uuid.UUID, digest string, expiresAt time.Time) error {
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"password_reset_digest" = ?,
			"password_reset_expires_at" = ?,
			"updated_at" = CURRENT_TIMESTAMP
		WHERE
			("usr"."id" = ?);
	`, digest, expiresAt, id.String()).Exec(ctx)

	return err
}

func (a *users) ClearPasswordReset(ctx context.Context, id uuid.UUID) error {
	return a.ClearPasswordResetTx(ctx, a.db, id)
}

func (a *users) ClearPasswordResetTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"password_reset_digest" = NULL,
			"password_reset_expires_at" = NULL,
			"updated_at" = CURRENT_TIMESTAMP
		WHERE
			("usr"."id" = ?);
	`, id.String()).Exec(ctx)

	return err
}

func (a *users) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) (*User, error) {
	return a.UpdatePasswordTx(ctx, a.db, id, passwordHash, changedAt)
}

func (a *users) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string, changedAt time.Time) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, UpdateUserPasswordSQL, passwordHash, changedAt, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return res[0], nil
}

func (a *users) ConsumePasswordReset(ctx context.Context, digest, passwordHash string, changedAt time.Time) (*User, error) {
	return a.ConsumePasswordResetTx(ctx, a.db, digest, passwordHash, changedAt)
}

func (a *users) ConsumePasswordResetTx(ctx context.Context, tx bun.IDB, digest, passwordHash string, changedAt time.Time) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, ConsumePasswordResetSQL, passwordHash, changedAt, digest, time.Now())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"digest": digest})
	}

	return res[0], nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.Role == "" {
		record.Role = RoleRegular
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
