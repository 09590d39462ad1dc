package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"vidnest/accounts/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateIdentity = errors.New("username or email already taken")
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PasswordHasher turns a plaintext password into its stored digest.
type PasswordHasher interface {
	Hash(password string) ([]byte, error)
}

const userColumns = `id, username, email, full_name, password_hash, avatar_url, cover_image_url, refresh_token_hash, created_at, updated_at`

// UserRepository is the credential store. Every write of a password goes
// through the hasher here, so a plaintext can never reach the table.
type UserRepository struct {
	db     DB
	hasher PasswordHasher
}

func NewUserRepository(db DB, hasher PasswordHasher) *UserRepository {
	return &UserRepository{db: db, hasher: hasher}
}

func (r *UserRepository) Create(ctx context.Context, candidate models.NewUser) (models.User, error) {
	if candidate.Password == "" {
		return models.User{}, errors.New("create user: empty password")
	}
	passwordHash, err := r.hasher.Hash(candidate.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	const query = `
		INSERT INTO users (
			id, username, email, full_name, password_hash, avatar_url, cover_image_url, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
		RETURNING ` + userColumns

	row := r.db.QueryRow(ctx, query,
		candidate.ID,
		models.NormalizeIdentity(candidate.Username),
		models.NormalizeIdentity(candidate.Email),
		strings.TrimSpace(candidate.FullName),
		passwordHash,
		candidate.AvatarURL,
		candidate.CoverImageURL,
	)
	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrDuplicateIdentity
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// FindByIdentity looks a user up by username or email.
func (r *UserRepository) FindByIdentity(ctx context.Context, identity string) (models.User, error) {
	identity = models.NormalizeIdentity(identity)
	if identity == "" {
		return models.User{}, ErrUserNotFound
	}

	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1 LIMIT 1`
	return r.findOne(ctx, query, identity)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// IdentityTaken reports whether any user already holds username or email.
func (r *UserRepository) IdentityTaken(ctx context.Context, username, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`

	var taken bool
	if err := r.db.QueryRow(ctx, query, models.NormalizeIdentity(username), models.NormalizeIdentity(email)).Scan(&taken); err != nil {
		return false, fmt.Errorf("check identity: %w", err)
	}
	return taken, nil
}

func (r *UserRepository) SetPassword(ctx context.Context, id string, password string) error {
	if password == "" {
		return errors.New("set password: empty password")
	}
	passwordHash, err := r.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	const query = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, fields models.ProfileFields) (models.User, error) {
	const query = `
		UPDATE users SET full_name = $2, email = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := r.findOne(ctx, query, id, strings.TrimSpace(fields.FullName), models.NormalizeIdentity(fields.Email))
	if err != nil && isUniqueViolation(err) {
		return models.User{}, ErrDuplicateIdentity
	}
	return user, err
}

func (r *UserRepository) SetAvatar(ctx context.Context, id string, url string) (models.User, error) {
	const query = `UPDATE users SET avatar_url = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + userColumns
	return r.findOne(ctx, query, id, url)
}

func (r *UserRepository) SetCoverImage(ctx context.Context, id string, url string) (models.User, error) {
	const query = `UPDATE users SET cover_image_url = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + userColumns
	return r.findOne(ctx, query, id, url)
}

// MediaReferenced reports whether any user points at url as avatar or cover.
func (r *UserRepository) MediaReferenced(ctx context.Context, url string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE avatar_url = $1 OR cover_image_url = $1)`

	var referenced bool
	if err := r.db.QueryRow(ctx, query, url).Scan(&referenced); err != nil {
		return false, fmt.Errorf("check media reference: %w", err)
	}
	return referenced, nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.CoverImageURL,
		&user.RefreshTokenHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
