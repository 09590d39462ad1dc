package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

var DefaultArgon2Params = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

var errMalformedHash = errors.New("malformed password hash")

// PasswordHasher hashes new passwords with argon2id. Verify also accepts
// bcrypt digests carried over from accounts created before the switch.
type PasswordHasher struct {
	params Argon2Params
}

func NewPasswordHasher(params Argon2Params) *PasswordHasher {
	if params.Time == 0 {
		params.Time = DefaultArgon2Params.Time
	}
	if params.Memory == 0 {
		params.Memory = DefaultArgon2Params.Memory
	}
	if params.Threads == 0 {
		params.Threads = DefaultArgon2Params.Threads
	}
	if params.KeyLen == 0 {
		params.KeyLen = DefaultArgon2Params.KeyLen
	}
	if params.SaltLen == 0 {
		params.SaltLen = DefaultArgon2Params.SaltLen
	}
	return &PasswordHasher{params: params}
}

func (h *PasswordHasher) Hash(password string) ([]byte, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return []byte(encoded), nil
}

// Verify reports whether password matches encodedHash. Malformed or unknown
// digests never match.
func (h *PasswordHasher) Verify(password string, encodedHash []byte) bool {
	if isBcrypt(encodedHash) {
		return bcrypt.CompareHashAndPassword(encodedHash, []byte(password)) == nil
	}

	parsed, err := parseArgon2(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.params.Time, parsed.params.Memory, parsed.params.Threads, uint32(len(parsed.hash)))
	return subtle.ConstantTimeCompare(parsed.hash, computed) == 1
}

func isBcrypt(encodedHash []byte) bool {
	s := string(encodedHash)
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

type parsedArgon2 struct {
	params Argon2Params
	salt   []byte
	hash   []byte
}

func parseArgon2(encodedHash []byte) (parsedArgon2, error) {
	parts := strings.Split(string(encodedHash), "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return parsedArgon2{}, errMalformedHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return parsedArgon2{}, errMalformedHash
	}

	var out parsedArgon2
	for _, pair := range strings.Split(parts[3], ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return parsedArgon2{}, errMalformedHash
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil || n == 0 {
			return parsedArgon2{}, errMalformedHash
		}
		switch key {
		case "m":
			out.params.Memory = uint32(n)
		case "t":
			out.params.Time = uint32(n)
		case "p":
			if n > 255 {
				return parsedArgon2{}, errMalformedHash
			}
			out.params.Threads = uint8(n)
		default:
			return parsedArgon2{}, errMalformedHash
		}
	}
	if out.params.Memory == 0 || out.params.Time == 0 || out.params.Threads == 0 {
		return parsedArgon2{}, errMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return parsedArgon2{}, errMalformedHash
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return parsedArgon2{}, errMalformedHash
	}
	out.salt = salt
	out.hash = hash
	return out, nil
}
