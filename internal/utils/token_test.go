package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVerificationToken(t *testing.T) {
	token, err := NewVerificationToken()
	assert.NoError(t, err)
	assert.Len(t, token, 32)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), token)

	// Tokens must not repeat
	other, err := NewVerificationToken()
	assert.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestHashSecret(t *testing.T) {
	h1 := HashSecret("some-secret")
	h2 := HashSecret("some-secret")
	h3 := HashSecret("other-secret")

	assert.Len(t, h1, 64) // sha256 hex
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestSecretsEqual(t *testing.T) {
	assert.True(t, SecretsEqual("abc123", "abc123"))
	assert.False(t, SecretsEqual("abc123", "abc124"))
	assert.False(t, SecretsEqual("abc123", "abc1234"))
	assert.True(t, SecretsEqual("", ""))
}
