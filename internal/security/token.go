package security

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"vidnest/accounts/internal/ids"
	"vidnest/accounts/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// ErrTokenInvalid covers every verification failure: bad signature,
// malformed input, wrong token type and expiry.
var ErrTokenInvalid = errors.New("invalid token")

type AccessClaims struct {
	UserID   string `json:"_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	UserID string `json:"_id"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string

	// Now overrides the clock used to stamp and check tokens.
	Now func() time.Time
}

type TokenIssuer struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token ttls must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{cfg: cfg, now: now}, nil
}

func (i *TokenIssuer) AccessTTL() time.Duration  { return i.cfg.AccessTTL }
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }

func (i *TokenIssuer) IssueAccessToken(user models.User) (string, error) {
	claims := AccessClaims{
		UserID:           user.ID,
		Email:            user.Email,
		Username:         user.Username,
		FullName:         user.FullName,
		Type:             tokenTypeAccess,
		RegisteredClaims: i.registered(user.ID, i.cfg.AccessTTL),
	}
	return sign(claims, i.cfg.AccessSecret)
}

func (i *TokenIssuer) IssueRefreshToken(user models.User) (string, error) {
	claims := RefreshClaims{
		UserID:           user.ID,
		Type:             tokenTypeRefresh,
		RegisteredClaims: i.registered(user.ID, i.cfg.RefreshTTL),
	}
	return sign(claims, i.cfg.RefreshSecret)
}

// VerifyRefreshToken checks signature, expiry and token type only. Whether
// the token is the one currently on record is the caller's concern.
func (i *TokenIssuer) VerifyRefreshToken(tokenStr string) (string, error) {
	claims := &RefreshClaims{}
	if err := i.parse(tokenStr, claims, i.cfg.RefreshSecret); err != nil {
		return "", err
	}
	if claims.Type != tokenTypeRefresh || !ids.Valid(claims.UserID) {
		return "", ErrTokenInvalid
	}
	return claims.UserID, nil
}

func (i *TokenIssuer) VerifyAccessToken(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.parse(tokenStr, claims, i.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if claims.Type != tokenTypeAccess || !ids.Valid(claims.UserID) {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (i *TokenIssuer) registered(userID string, ttl time.Duration) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		Issuer:    i.cfg.Issuer,
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (i *TokenIssuer) parse(tokenStr string, claims jwt.Claims, secret string) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

func sign(claims jwt.Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// HashRefreshToken is the at-rest form of a refresh token.
func HashRefreshToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}
