package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"vidnest/accounts/internal/models"
	"vidnest/accounts/internal/repository"
	"vidnest/accounts/internal/security"
)

// memStore is an in-memory credential store with the same hash-on-write
// contract as repository.UserRepository.
type memStore struct {
	mu        sync.Mutex
	hasher    *security.PasswordHasher
	users     map[string]models.User
	createErr error
	writes    int
}

func newMemStore() *memStore {
	return &memStore{
		hasher: security.NewPasswordHasher(security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1}),
		users:  map[string]models.User{},
	}
}

func (s *memStore) Create(_ context.Context, candidate models.NewUser) (models.User, error) {
	digest, err := s.hasher.Hash(candidate.Password)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return models.User{}, s.createErr
	}
	for _, u := range s.users {
		if u.Username == candidate.Username || u.Email == candidate.Email {
			return models.User{}, repository.ErrDuplicateIdentity
		}
	}
	now := time.Now().UTC()
	user := models.User{
		ID:            candidate.ID,
		Username:      candidate.Username,
		Email:         candidate.Email,
		FullName:      candidate.FullName,
		PasswordHash:  digest,
		AvatarURL:     candidate.AvatarURL,
		CoverImageURL: candidate.CoverImageURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.users[user.ID] = user
	s.writes++
	return user, nil
}

func (s *memStore) FindByIdentity(_ context.Context, identity string) (models.User, error) {
	identity = models.NormalizeIdentity(identity)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == identity || u.Email == identity {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *memStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *memStore) IdentityTaken(_ context.Context, username, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) SetPassword(_ context.Context, id string, password string) error {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	return s.mutate(id, func(u *models.User) error {
		u.PasswordHash = digest
		return nil
	})
}

func (s *memStore) UpdateProfile(_ context.Context, id string, fields models.ProfileFields) (models.User, error) {
	s.mu.Lock()
	for otherID, u := range s.users {
		if otherID != id && u.Email == fields.Email {
			s.mu.Unlock()
			return models.User{}, repository.ErrDuplicateIdentity
		}
	}
	s.mu.Unlock()

	err := s.mutate(id, func(u *models.User) error {
		u.FullName = fields.FullName
		u.Email = fields.Email
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return s.GetByID(context.Background(), id)
}

func (s *memStore) SetAvatar(_ context.Context, id string, url string) (models.User, error) {
	err := s.mutate(id, func(u *models.User) error {
		u.AvatarURL = url
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return s.GetByID(context.Background(), id)
}

func (s *memStore) SetCoverImage(_ context.Context, id string, url string) (models.User, error) {
	err := s.mutate(id, func(u *models.User) error {
		u.CoverImageURL = &url
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return s.GetByID(context.Background(), id)
}

func (s *memStore) SetRefreshToken(_ context.Context, userID string, token *string) error {
	return s.mutate(userID, func(u *models.User) error {
		if token == nil {
			u.RefreshTokenHash = nil
		} else {
			u.RefreshTokenHash = security.HashRefreshToken(*token)
		}
		return nil
	})
}

func (s *memStore) RotateRefreshToken(_ context.Context, userID string, current string, next string) error {
	return s.mutate(userID, func(u *models.User) error {
		if !bytes.Equal(u.RefreshTokenHash, security.HashRefreshToken(current)) {
			return repository.ErrRefreshTokenMismatch
		}
		u.RefreshTokenHash = security.HashRefreshToken(next)
		return nil
	})
}

func (s *memStore) mutate(id string, fn func(*models.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	s.writes++
	return nil
}

func (s *memStore) get(t *testing.T, id string) models.User {
	t.Helper()
	u, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

// fakeMedia records uploads and discards. Events are kept in call order so
// tests can assert upload happens before persist.
type fakeMedia struct {
	mu        sync.Mutex
	failKinds map[MediaKind]error
	uploads   []string
	discards  []string
	n         int
}

func (m *fakeMedia) Upload(_ context.Context, kind MediaKind, file *UploadFile) (string, error) {
	if file == nil {
		return "", ErrFileMissing
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failKinds[kind]; err != nil {
		return "", err
	}
	m.n++
	url := fmt.Sprintf("https://cdn.test/%s/%d.png", kind, m.n)
	m.uploads = append(m.uploads, url)
	return url, nil
}

func (m *fakeMedia) Discard(_ context.Context, url string, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discards = append(m.discards, url)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store   *memStore
	media   *fakeMedia
	clock   *testClock
	issuer  *security.TokenIssuer
	auth    *AuthService
	account *AccountService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := &testClock{now: time.Now()}
	issuer, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    240 * time.Hour,
		Issuer:        "vidnest-accounts",
		Now:           clock.Now,
	})
	require.NoError(t, err)

	store := newMemStore()
	media := &fakeMedia{failKinds: map[MediaKind]error{}}
	log := zerolog.New(io.Discard)

	return &harness{
		store:   store,
		media:   media,
		clock:   clock,
		issuer:  issuer,
		auth:    NewAuthService(store, store, store.hasher, issuer, media, nil, log),
		account: NewAccountService(store, store.hasher, media, nil, log),
	}
}

func avatarFile() *UploadFile {
	return &UploadFile{Content: bytes.NewReader([]byte{0x89, 'P', 'N', 'G'}), Size: 4, ContentType: "image/png"}
}

func (h *harness) register(t *testing.T, username, email, password string) models.User {
	t.Helper()
	user, err := h.auth.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    email,
		FullName: "Ada L",
		Password: password,
		Avatar:   avatarFile(),
	})
	require.NoError(t, err)
	return user
}

var errBoom = errors.New("boom")
