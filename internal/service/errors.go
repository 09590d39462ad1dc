package service

// Kind is the coarse failure class surfaced to clients.
type Kind string

const (
	KindValidationFailed  Kind = "validation_failed"
	KindDuplicateIdentity Kind = "duplicate_identity"
	KindNotFound          Kind = "not_found"
	KindUnauthorized      Kind = "unauthorized"
	KindUploadFailed      Kind = "upload_failed"
	KindPersistFailed     Kind = "persist_failed"
)

// Reason is the machine-readable cause within a Kind.
type Reason string

const (
	ReasonValidationFailed   Reason = "validation_failed"
	ReasonAvatarRequired     Reason = "avatar_required"
	ReasonIdentityRequired   Reason = "identity_required"
	ReasonPasswordMismatch   Reason = "password_mismatch"
	ReasonSamePassword       Reason = "same_password"
	ReasonMissingFields      Reason = "missing_fields"
	ReasonFileMissing        Reason = "file_missing"
	ReasonDuplicateIdentity  Reason = "duplicate_identity"
	ReasonUserNotFound       Reason = "user_not_found"
	ReasonInvalidPassword    Reason = "invalid_password"
	ReasonInvalidOldPassword Reason = "invalid_old_password"
	ReasonTokenMissing       Reason = "token_missing"
	ReasonTokenInvalid       Reason = "token_invalid"
	ReasonTokenMismatch      Reason = "token_mismatch"
	ReasonUploadFailed       Reason = "upload_failed"
	ReasonUnsupportedMedia   Reason = "unsupported_media"
	ReasonFileTooLarge       Reason = "file_too_large"
	ReasonPersistFailed      Reason = "persist_failed"
)

// Error is the failure type returned by every service operation.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string // safe to show to clients
	Cause   error  // logged, never sent
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by reason.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Reason == t.Reason
	}
	return false
}

var (
	ErrValidationFailed   = &Error{Kind: KindValidationFailed, Reason: ReasonValidationFailed, Message: "All fields are required"}
	ErrAvatarRequired     = &Error{Kind: KindValidationFailed, Reason: ReasonAvatarRequired, Message: "Avatar file is required"}
	ErrIdentityRequired   = &Error{Kind: KindValidationFailed, Reason: ReasonIdentityRequired, Message: "Username or email is required"}
	ErrPasswordMismatch   = &Error{Kind: KindValidationFailed, Reason: ReasonPasswordMismatch, Message: "New password and confirm password must match"}
	ErrSamePassword       = &Error{Kind: KindValidationFailed, Reason: ReasonSamePassword, Message: "New password must differ from the old password"}
	ErrMissingFields      = &Error{Kind: KindValidationFailed, Reason: ReasonMissingFields, Message: "Full name and email are required"}
	ErrFileMissing        = &Error{Kind: KindValidationFailed, Reason: ReasonFileMissing, Message: "File is missing"}
	ErrDuplicateIdentity  = &Error{Kind: KindDuplicateIdentity, Reason: ReasonDuplicateIdentity, Message: "User with email or username already exists"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Reason: ReasonUserNotFound, Message: "User does not exist"}
	ErrInvalidPassword    = &Error{Kind: KindUnauthorized, Reason: ReasonInvalidPassword, Message: "Invalid user credentials"}
	ErrInvalidOldPassword = &Error{Kind: KindUnauthorized, Reason: ReasonInvalidOldPassword, Message: "Invalid old password"}
	ErrTokenMissing       = &Error{Kind: KindUnauthorized, Reason: ReasonTokenMissing, Message: "Unauthorized request"}
	ErrTokenInvalid       = &Error{Kind: KindUnauthorized, Reason: ReasonTokenInvalid, Message: "Invalid or expired token"}
	ErrTokenMismatch      = &Error{Kind: KindUnauthorized, Reason: ReasonTokenMismatch, Message: "Refresh token is expired or used"}
	ErrUploadFailed       = &Error{Kind: KindUploadFailed, Reason: ReasonUploadFailed, Message: "Error while uploading file"}
	ErrUnsupportedMedia   = &Error{Kind: KindUploadFailed, Reason: ReasonUnsupportedMedia, Message: "Unsupported image format"}
	ErrFileTooLarge       = &Error{Kind: KindUploadFailed, Reason: ReasonFileTooLarge, Message: "File is too large"}
	ErrPersistFailed      = &Error{Kind: KindPersistFailed, Reason: ReasonPersistFailed, Message: "Something went wrong while saving the account"}
)

// wrap returns a copy of sentinel carrying cause.
func wrap(sentinel *Error, cause error) *Error {
	e := *sentinel
	e.Cause = cause
	return &e
}
