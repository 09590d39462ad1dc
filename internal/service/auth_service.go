package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"vidnest/accounts/internal/ids"
	"vidnest/accounts/internal/metrics"
	"vidnest/accounts/internal/models"
	"vidnest/accounts/internal/repository"
	"vidnest/accounts/internal/security"
)

// UserStore is the credential store. Create and SetPassword take plaintext
// and hash it themselves.
type UserStore interface {
	Create(ctx context.Context, candidate models.NewUser) (models.User, error)
	FindByIdentity(ctx context.Context, identity string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	IdentityTaken(ctx context.Context, username, email string) (bool, error)
	SetPassword(ctx context.Context, id string, password string) error
	UpdateProfile(ctx context.Context, id string, fields models.ProfileFields) (models.User, error)
	SetAvatar(ctx context.Context, id string, url string) (models.User, error)
	SetCoverImage(ctx context.Context, id string, url string) (models.User, error)
}

type SessionStore interface {
	SetRefreshToken(ctx context.Context, userID string, token *string) error
	RotateRefreshToken(ctx context.Context, userID string, current string, next string) error
}

type PasswordVerifier interface {
	Verify(password string, digest []byte) bool
}

type TokenIssuer interface {
	IssueAccessToken(user models.User) (string, error)
	IssueRefreshToken(user models.User) (string, error)
	VerifyRefreshToken(token string) (string, error)
	VerifyAccessToken(token string) (*security.AccessClaims, error)
}

type MediaUploader interface {
	Upload(ctx context.Context, kind MediaKind, file *UploadFile) (string, error)
	Discard(ctx context.Context, url string, reason string)
}

type AuthService struct {
	users     UserStore
	sessions  SessionStore
	passwords PasswordVerifier
	tokens    TokenIssuer
	media     MediaUploader
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	passwords PasswordVerifier,
	tokens TokenIssuer,
	media MediaUploader,
	m *metrics.Metrics,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		tokens:    tokens,
		media:     media,
		metrics:   m,
		log:       log,
	}
}

type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     *UploadFile
	CoverImage *UploadFile
}

type AuthResult struct {
	User         models.User
	AccessToken  string
	RefreshToken string
}

// Register creates an account. Media is uploaded before the row is written;
// if the write fails the uploads are queued for discard.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (user models.User, err error) {
	defer func() { s.record("register", err) }()

	username := models.NormalizeIdentity(input.Username)
	email := models.NormalizeIdentity(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	if username == "" || email == "" || fullName == "" || strings.TrimSpace(input.Password) == "" {
		return models.User{}, ErrValidationFailed
	}

	taken, err := s.users.IdentityTaken(ctx, username, email)
	if err != nil {
		return models.User{}, wrap(ErrPersistFailed, err)
	}
	if taken {
		return models.User{}, ErrDuplicateIdentity
	}

	if input.Avatar == nil {
		return models.User{}, ErrAvatarRequired
	}
	avatarURL, err := s.media.Upload(ctx, MediaAvatar, input.Avatar)
	if err != nil {
		return models.User{}, err
	}

	var coverURL *string
	if input.CoverImage != nil {
		url, err := s.media.Upload(ctx, MediaCover, input.CoverImage)
		if err != nil {
			s.media.Discard(ctx, avatarURL, "register_rollback")
			return models.User{}, err
		}
		coverURL = &url
	}

	user, err = s.users.Create(ctx, models.NewUser{
		ID:            ids.New(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		Password:      input.Password,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
	})
	if err != nil {
		s.media.Discard(ctx, avatarURL, "register_rollback")
		if coverURL != nil {
			s.media.Discard(ctx, *coverURL, "register_rollback")
		}
		if errors.Is(err, repository.ErrDuplicateIdentity) {
			return models.User{}, ErrDuplicateIdentity
		}
		return models.User{}, wrap(ErrPersistFailed, err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Login looks the user up by username, or by email when no username is
// given, and starts a new session, replacing any previous refresh token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (result AuthResult, err error) {
	defer func() { s.record("login", err) }()

	identity := strings.TrimSpace(input.Username)
	if identity == "" {
		identity = strings.TrimSpace(input.Email)
	}
	if identity == "" {
		return AuthResult{}, ErrIdentityRequired
	}

	user, err := s.users.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrUserNotFound
		}
		return AuthResult{}, wrap(ErrPersistFailed, err)
	}

	if !s.passwords.Verify(input.Password, user.PasswordHash) {
		return AuthResult{}, ErrInvalidPassword
	}

	result, err = s.issuePair(user)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.sessions.SetRefreshToken(ctx, user.ID, &result.RefreshToken); err != nil {
		return AuthResult{}, wrap(ErrPersistFailed, err)
	}

	return result, nil
}

// Logout clears the stored refresh token so no outstanding one can be used.
func (s *AuthService) Logout(ctx context.Context, userID string) (err error) {
	defer func() { s.record("logout", err) }()

	if err := s.sessions.SetRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return wrap(ErrPersistFailed, err)
	}
	return nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// equal the stored one, and the swap is conditional on it still being
// stored, so a token can be used exactly once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (result AuthResult, err error) {
	defer func() { s.record("refresh", err) }()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return AuthResult{}, ErrTokenMissing
	}

	userID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return AuthResult{}, wrap(ErrTokenInvalid, err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrUserNotFound
		}
		return AuthResult{}, wrap(ErrPersistFailed, err)
	}

	if user.RefreshTokenHash == nil || subtle.ConstantTimeCompare(user.RefreshTokenHash, security.HashRefreshToken(refreshToken)) != 1 {
		s.log.Warn().Str("user_id", user.ID).Msg("refresh token does not match stored token")
		return AuthResult{}, ErrTokenMismatch
	}

	result, err = s.issuePair(user)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.sessions.RotateRefreshToken(ctx, user.ID, refreshToken, result.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenMismatch) {
			return AuthResult{}, ErrTokenMismatch
		}
		return AuthResult{}, wrap(ErrPersistFailed, err)
	}

	return result, nil
}

// Authenticate resolves an access token to its user. Only the signature and
// expiry are checked; the stored refresh token plays no part.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (models.User, error) {
	if strings.TrimSpace(accessToken) == "" {
		return models.User{}, ErrTokenMissing
	}
	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return models.User{}, wrap(ErrTokenInvalid, err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrTokenInvalid
		}
		return models.User{}, wrap(ErrPersistFailed, err)
	}
	return user, nil
}

func (s *AuthService) issuePair(user models.User) (AuthResult, error) {
	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return AuthResult{}, wrap(ErrPersistFailed, err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return AuthResult{}, wrap(ErrPersistFailed, err)
	}
	return AuthResult{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) record(op string, err error) {
	s.metrics.AuthEvent(op, outcome(err))
	if err == nil {
		return
	}
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Kind == KindPersistFailed {
		s.log.Error().Err(err).Str("op", op).Msg("account operation failed")
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return string(svcErr.Reason)
	}
	return "error"
}
