package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityUser(t *testing.T) {
	var u IdentityUser
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "user_1",
		"email_addresses": [{"email_address": " a@example.com "}, {"email_address": "b@example.com"}],
		"first_name": "Ada",
		"last_name": null
	}`), &u))

	assert.Equal(t, "a@example.com", u.PrimaryEmail())
	assert.True(t, u.HasName())
	assert.Equal(t, "Ada", u.FullName())
	assert.Nil(t, u.ImageURL)
}

func TestIdentityUserWithoutFields(t *testing.T) {
	var u IdentityUser
	require.NoError(t, json.Unmarshal([]byte(`{"id": "user_1"}`), &u))

	assert.Equal(t, "", u.PrimaryEmail())
	assert.False(t, u.HasName())
}

func TestPublicUserDataDisplayName(t *testing.T) {
	first, last := "Grace", "Hopper"
	assert.Equal(t, "Grace Hopper", PublicUserData{FirstName: &first, LastName: &last}.DisplayName())
	assert.Equal(t, "grace", PublicUserData{Identifier: "grace@example.com"}.DisplayName())
}
