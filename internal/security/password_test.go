package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// cheap parameters keep the suite fast; production uses DefaultArgon2Params.
func newTestHasher() *PasswordHasher {
	return NewPasswordHasher(Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1})
}

func TestHashVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	h := newTestHasher()
	for _, pw := range []string{"secret123", "", "pässwörd with spaces", strings.Repeat("x", 200)} {
		digest, err := h.Hash(pw)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(digest), "$argon2id$v=19$m=8192,t=1,p=1$"))
		assert.True(t, h.Verify(pw, digest), "password %q should verify", pw)
	}
}

func TestHashIsSalted(t *testing.T) {
	t.Parallel()

	h := newTestHasher()
	a, err := h.Hash("secret123")
	require.NoError(t, err)
	b, err := h.Hash("secret123")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("secret123", a))
	assert.True(t, h.Verify("secret123", b))
}

func TestVerifyRejectsOtherPassword(t *testing.T) {
	t.Parallel()

	h := newTestHasher()
	digest, err := h.Hash("secret123")
	require.NoError(t, err)

	assert.False(t, h.Verify("secret124", digest))
	assert.False(t, h.Verify("", digest))
}

func TestVerifyMalformedDigest(t *testing.T) {
	t.Parallel()

	h := newTestHasher()
	for _, digest := range []string{
		"",
		"plaintext",
		"$argon2id$",
		"$argon2id$v=19$m=8192,t=1,p=1$$",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHQ$aGFzaA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHQ$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=999$c2FsdHNhbHQ$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHQ$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
		"$2b$10$short",
	} {
		assert.NotPanics(t, func() {
			assert.False(t, h.Verify("secret123", []byte(digest)), "digest %q", digest)
		})
	}
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	t.Parallel()

	legacy, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	h := newTestHasher()
	assert.True(t, h.Verify("secret123", legacy))
	assert.False(t, h.Verify("nope", legacy))
}

func TestVerifyUsesDigestParams(t *testing.T) {
	t.Parallel()

	digest, err := newTestHasher().Hash("secret123")
	require.NoError(t, err)

	stronger := NewPasswordHasher(Argon2Params{Time: 2, Memory: 16 * 1024, Threads: 2})
	assert.True(t, stronger.Verify("secret123", digest))
	assert.False(t, stronger.Verify("secret124", digest))
}
