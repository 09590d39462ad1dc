package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"vidnest/accounts/internal/metrics"
	"vidnest/accounts/internal/models"
	"vidnest/accounts/internal/repository"
)

// AccountService covers operations on an already authenticated user.
type AccountService struct {
	users     UserStore
	passwords PasswordVerifier
	media     MediaUploader
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewAccountService(users UserStore, passwords PasswordVerifier, media MediaUploader, m *metrics.Metrics, log zerolog.Logger) *AccountService {
	return &AccountService{
		users:     users,
		passwords: passwords,
		media:     media,
		metrics:   m,
		log:       log,
	}
}

func (s *AccountService) CurrentUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, storeError(err)
	}
	return user, nil
}

type ChangePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

func (s *AccountService) ChangePassword(ctx context.Context, userID string, input ChangePasswordInput) (err error) {
	defer func() { s.metrics.AuthEvent("change_password", outcome(err)) }()

	if input.NewPassword == "" || input.OldPassword == "" {
		return ErrValidationFailed
	}
	if input.NewPassword != input.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if input.NewPassword == input.OldPassword {
		return ErrSamePassword
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return storeError(err)
	}
	if !s.passwords.Verify(input.OldPassword, user.PasswordHash) {
		return ErrInvalidOldPassword
	}

	if err := s.users.SetPassword(ctx, user.ID, input.NewPassword); err != nil {
		return storeError(err)
	}
	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

type UpdateProfileInput struct {
	FullName string
	Email    string
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (models.User, error) {
	fields := models.ProfileFields{
		FullName: strings.TrimSpace(input.FullName),
		Email:    models.NormalizeIdentity(input.Email),
	}
	if fields.FullName == "" || fields.Email == "" {
		return models.User{}, ErrMissingFields
	}

	user, err := s.users.UpdateProfile(ctx, userID, fields)
	if err != nil {
		return models.User{}, storeError(err)
	}
	return user, nil
}

// UpdateAvatar uploads a new avatar, points the user at it and queues the
// previous one for discard.
func (s *AccountService) UpdateAvatar(ctx context.Context, current models.User, file *UploadFile) (models.User, error) {
	return s.replaceMedia(ctx, current, MediaAvatar, file, current.AvatarURL, s.users.SetAvatar)
}

func (s *AccountService) UpdateCoverImage(ctx context.Context, current models.User, file *UploadFile) (models.User, error) {
	var previous string
	if current.CoverImageURL != nil {
		previous = *current.CoverImageURL
	}
	return s.replaceMedia(ctx, current, MediaCover, file, previous, s.users.SetCoverImage)
}

func (s *AccountService) replaceMedia(
	ctx context.Context,
	current models.User,
	kind MediaKind,
	file *UploadFile,
	previous string,
	persist func(ctx context.Context, id string, url string) (models.User, error),
) (models.User, error) {
	if file == nil {
		return models.User{}, ErrFileMissing
	}

	url, err := s.media.Upload(ctx, kind, file)
	if err != nil {
		return models.User{}, err
	}

	user, err := persist(ctx, current.ID, url)
	if err != nil {
		s.media.Discard(ctx, url, "update_rollback")
		return models.User{}, storeError(err)
	}

	if previous != "" && previous != url {
		s.media.Discard(ctx, previous, "replaced")
	}
	return user, nil
}

func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicateIdentity):
		return ErrDuplicateIdentity
	default:
		return wrap(ErrPersistFailed, err)
	}
}
