package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_UsesConfiguredCost(t *testing.T) {
	hash, err := HashPassword("donate-often-42")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcryptCost, cost)
	assert.True(t, VerifyPassword(hash, "donate-often-42"))

	again, err := HashPassword("donate-often-42")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73))
	assert.Error(t, err)
}

func TestVerifyPassword_Mismatch(t *testing.T) {
	hash, err := HashPassword("O-negative!")
	require.NoError(t, err)

	assert.False(t, VerifyPassword(hash, "o-negative!"))
	assert.False(t, VerifyPassword(hash, ""))
	assert.False(t, VerifyPassword("plain-text-in-db", "O-negative!"))
}

func TestIsPasswordLongEnough(t *testing.T) {
	short := strings.Repeat("x", MinPasswordLength-1)
	exact := strings.Repeat("x", MinPasswordLength)

	assert.False(t, IsPasswordLongEnough(""))
	assert.False(t, IsPasswordLongEnough(short))
	assert.True(t, IsPasswordLongEnough(exact))
	// counts characters, not bytes
	assert.True(t, IsPasswordLongEnough("éèêëēė"))
	assert.False(t, IsPasswordLongEnough("éèêëē"))
}
