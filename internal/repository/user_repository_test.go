package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidnest/accounts/internal/models"
)

type prefixHasher struct {
	calls []string
	err   error
}

func (h *prefixHasher) Hash(password string) ([]byte, error) {
	h.calls = append(h.calls, password)
	if h.err != nil {
		return nil, h.err
	}
	return []byte("hashed:" + password), nil
}

var userColumnNames = []string{
	"id", "username", "email", "full_name", "password_hash", "avatar_url",
	"cover_image_url", "refresh_token_hash", "created_at", "updated_at",
}

func userRow(id, username, email string, passwordHash []byte, refresh []byte) *pgxmock.Rows {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(userColumnNames).AddRow(
		id, username, email, "Jane Doe", passwordHash, "https://cdn.test/a.png",
		(*string)(nil), refresh, now, now,
	)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestCreateHashesPasswordAndNormalizes(t *testing.T) {
	mock := newMock(t)
	hasher := &prefixHasher{}
	repo := NewUserRepository(mock, hasher)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("u1", "jane", "jane@x.io", "Jane Doe", []byte("hashed:secret123"), "https://cdn.test/a.png", (*string)(nil)).
		WillReturnRows(userRow("u1", "jane", "jane@x.io", []byte("hashed:secret123"), nil))

	user, err := repo.Create(context.Background(), models.NewUser{
		ID:        "u1",
		Username:  " Jane ",
		Email:     "JANE@x.io",
		FullName:  " Jane Doe ",
		Password:  "secret123",
		AvatarURL: "https://cdn.test/a.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane", user.Username)
	assert.Equal(t, []string{"secret123"}, hasher.calls)
	assert.NotEqual(t, []byte("secret123"), user.PasswordHash)
}

func TestCreateDuplicateIdentity(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock, &prefixHasher{})

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), models.NewUser{ID: "u1", Username: "jane", Email: "jane@x.io", Password: "secret123"})
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
}

func TestCreateRejectsEmptyPassword(t *testing.T) {
	hasher := &prefixHasher{}
	repo := NewUserRepository(newMock(t), hasher)

	_, err := repo.Create(context.Background(), models.NewUser{ID: "u1", Username: "jane", Email: "jane@x.io"})
	require.Error(t, err)
	assert.Empty(t, hasher.calls)
}

func TestCreateHasherFailure(t *testing.T) {
	repo := NewUserRepository(newMock(t), &prefixHasher{err: errors.New("boom")})

	_, err := repo.Create(context.Background(), models.NewUser{ID: "u1", Password: "secret123"})
	assert.ErrorContains(t, err, "hash password")
}

func TestFindByIdentity(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock, &prefixHasher{})

	mock.ExpectQuery(`FROM users WHERE username = \$1 OR email = \$1`).
		WithArgs("jane@x.io").
		WillReturnRows(userRow("u1", "jane", "jane@x.io", []byte("digest"), nil))

	user, err := repo.FindByIdentity(context.Background(), " Jane@X.io ")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Nil(t, user.CoverImageURL)
}

func TestFindByIdentityNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock, &prefixHasher{})

	mock.ExpectQuery(`FROM users WHERE username`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByIdentity(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.FindByIdentity(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestIdentityTaken(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock, &prefixHasher{})

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("jane", "jane@x.io").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.IdentityTaken(context.Background(), "JANE", "jane@x.io")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestSetPassword(t *testing.T) {
	mock := newMock(t)
	hasher := &prefixHasher{}
	repo := NewUserRepository(mock, hasher)

	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs("u1", []byte("hashed:newpass1")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs("missing", []byte("hashed:newpass1")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.SetPassword(context.Background(), "u1", "newpass1"))
	assert.ErrorIs(t, repo.SetPassword(context.Background(), "missing", "newpass1"), ErrUserNotFound)
	assert.Equal(t, []string{"newpass1", "newpass1"}, hasher.calls)
}

func TestUpdateProfileDuplicateEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock, &prefixHasher{})

	mock.ExpectQuery(`UPDATE users SET full_name`).
		WithArgs("u1", "Jane Roe", "taken@x.io").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.UpdateProfile(context.Background(), "u1", models.ProfileFields{FullName: "Jane Roe", Email: "Taken@x.io"})
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
}

func TestSetAvatarUnknownUser(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock, &prefixHasher{})

	mock.ExpectQuery(`UPDATE users SET avatar_url`).
		WithArgs("missing", "https://cdn.test/b.png").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.SetAvatar(context.Background(), "missing", "https://cdn.test/b.png")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMediaReferenced(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock, &prefixHasher{})

	mock.ExpectQuery(`avatar_url = \$1 OR cover_image_url = \$1`).
		WithArgs("https://cdn.test/a.png").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	referenced, err := repo.MediaReferenced(context.Background(), "https://cdn.test/a.png")
	require.NoError(t, err)
	assert.False(t, referenced)
}
