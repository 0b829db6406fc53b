package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	cryptoDomain "github.com/habitvault/habitvault/internal/crypto/domain"
	"github.com/habitvault/habitvault/internal/crypto/service"
)

func TestDeriver_UserKey(t *testing.T) {
	deriver := service.NewDeriver("test-salt", 1000)

	t.Run("Deterministic", func(t *testing.T) {
		first := deriver.UserKey("github", "12345")
		second := deriver.UserKey("github", "12345")
		assert.Equal(t, first, second)
		assert.Len(t, first, 64)
	})

	t.Run("Provider distinguishes users with the same id", func(t *testing.T) {
		assert.NotEqual(t, deriver.UserKey("github", "12345"), deriver.UserKey("google", "12345"))
	})

	t.Run("Salt changes the derivation", func(t *testing.T) {
		other := service.NewDeriver("other-salt", 1000)
		assert.NotEqual(t, deriver.UserKey("github", "12345"), other.UserKey("github", "12345"))
	})

	t.Run("Raw id does not appear in the derived key", func(t *testing.T) {
		assert.NotContains(t, deriver.UserKey("github", "12345"), "12345")
	})
}

func TestDeriver_PublicUserKey(t *testing.T) {
	deriver := service.NewDeriver("test-salt", 1000)

	t.Run("Literal prefix scheme", func(t *testing.T) {
		assert.Equal(t, "public_abc", deriver.PublicUserKey("abc"))
	})

	t.Run("Same raw id collides, distinct from authenticated users", func(t *testing.T) {
		// Two guests with the same raw id share a scope. Accepted behavior for
		// ephemeral guest data; what matters is that no guest scope can collide
		// with an authenticated user's hex-only derived key.
		assert.Equal(t, deriver.PublicUserKey("abc"), deriver.PublicUserKey("abc"))
		assert.NotEqual(t, deriver.PublicUserKey("abc"), deriver.UserKey("github", "abc"))
	})
}

func TestDeriver_SecretKey(t *testing.T) {
	deriver := service.NewDeriver("test-salt", 1000)

	key := deriver.SecretKey("raw-recovery-secret")
	assert.Len(t, key, cryptoDomain.KeySize)
	assert.Equal(t, key, deriver.SecretKey("raw-recovery-secret"))
	assert.NotEqual(t, key, deriver.SecretKey("other-secret"))
}

func TestDeriver_LookupIndex(t *testing.T) {
	deriver := service.NewDeriver("test-salt", 1000)

	index := deriver.LookupIndex("raw-recovery-secret")
	assert.Len(t, index, 64)
	assert.Equal(t, index, deriver.LookupIndex("raw-recovery-secret"))
	assert.NotEqual(t, index, deriver.LookupIndex("other-secret"))
	assert.NotEqual(t, index, deriver.SecretKey("raw-recovery-secret"))
}
