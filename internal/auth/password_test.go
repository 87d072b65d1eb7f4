package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := testHasher()

	hash, err := h.Hash("p@ss1")
	require.NoError(t, err)
	assert.NotEqual(t, "p@ss1", hash)

	assert.NoError(t, h.Verify("p@ss1", hash))
	assert.ErrorIs(t, h.Verify("wrong", hash), ErrInvalidCredential)
}

func TestBcryptHasher_SaltsEachHash(t *testing.T) {
	h := testHasher()
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBcryptHasher_MalformedHash(t *testing.T) {
	err := testHasher().Verify("p@ss1", "not-a-bcrypt-hash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredential)
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewBcryptHasher(bcrypt.MinCost).cost)
}
