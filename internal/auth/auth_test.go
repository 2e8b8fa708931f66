package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
)

// Cheap parameters keep the suite fast.
var testParams = Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(testParams)

	hash, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))

	assert.True(t, h.Verify(hash, "correct horse battery staple"))
	assert.False(t, h.Verify(hash, "wrong password"))

	// Verify a hash made with other parameters still checks out.
	other := NewHasher(DefaultArgon2Params)
	assert.True(t, other.Verify(hash, "correct horse battery staple"))
}

func TestHasher_SaltsDiffer(t *testing.T) {
	h := NewHasher(testParams)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasher_RejectsBadInput(t *testing.T) {
	h := NewHasher(testParams)

	_, err := h.Hash("")
	assert.Error(t, err)
	_, err = h.Hash(strings.Repeat("x", maxPasswordLength+1))
	assert.Error(t, err)

	for _, encoded := range []string{
		"",
		"not-a-hash",
		"$bcrypt$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
	} {
		assert.False(t, h.Verify(encoded, "anything"), encoded)
	}
}

func TestLoadOrGenerateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "auth.key")

	first, err := LoadOrGenerateKey(path)
	require.NoError(t, err)
	assert.Len(t, first, keyHexLength)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := LoadOrGenerateKey(path)
	require.NoError(t, err)
	assert.Equal(t, first, second, "existing key is reused")
}

func TestLoadOrGenerateKey_RejectsCorruptKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.key")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	_, err := LoadOrGenerateKey(path)
	assert.ErrorContains(t, err, "invalid auth key length")

	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("zz", keyLength)), 0o600))
	_, err = LoadOrGenerateKey(path)
	assert.ErrorContains(t, err, "not valid hex")
}

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	svc, err := NewTokenService(key, time.Hour)
	require.NoError(t, err)
	return svc
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := newTestTokenService(t)
	user := &domain.User{Syncable: domain.Syncable{ID: "usr-1"}, Email: "reader@example.com"}

	token, expires, err := svc.Issue(user)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UserID)
	assert.Equal(t, "reader@example.com", claims.Email)
	assert.True(t, strings.HasPrefix(claims.TokenID, "tok-"))
	assert.WithinDuration(t, expires, claims.ExpiresAt, time.Second)
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	svc := newTestTokenService(t)
	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }

	token, _, err := svc.Issue(&domain.User{Syncable: domain.Syncable{ID: "usr-1"}})
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	_, err = svc.Verify(token)
	assert.Error(t, err)
}

func TestTokenService_RejectsForeignKey(t *testing.T) {
	issuer := newTestTokenService(t)
	verifier := newTestTokenService(t)

	token, _, err := issuer.Issue(&domain.User{Syncable: domain.Syncable{ID: "usr-1"}})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
	_, err = verifier.Verify("garbage")
	assert.Error(t, err)
}

func TestNewTokenService_RejectsBadKey(t *testing.T) {
	_, err := NewTokenService("short", time.Hour)
	assert.Error(t, err)
	_, err = NewTokenService(strings.Repeat("g", keyHexLength), time.Hour)
	assert.Error(t, err)
}

func TestClaimsContext(t *testing.T) {
	ctx := t.Context()
	assert.Empty(t, UserID(ctx))

	ctx = WithClaims(ctx, &Claims{UserID: "usr-9"})
	assert.Equal(t, "usr-9", UserID(ctx))
	c, ok := ClaimsFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "usr-9", c.UserID)
}
