package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatforms_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Platforms
	}{
		{"array", `["Windows","android","android"]`, Platforms{"android", "windows"}},
		{"object", `{"android":true,"ios":false,"linux":true}`, Platforms{"android", "linux"}},
		{"stringified object", `"{\"macos\":true}"`, Platforms{"macos"}},
		{"stringified array", `"[\"ios\"]"`, Platforms{"ios"}},
		{"comma separated", `"android, ios"`, Platforms{"android", "ios"}},
		{"null", `null`, Platforms{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var p Platforms
			require.NoError(t, json.Unmarshal([]byte(tc.in), &p))
			assert.Equal(t, tc.want, p)
		})
	}
}

func TestPlatforms_UnmarshalRejectsNumbers(t *testing.T) {
	var p Platforms
	assert.Error(t, json.Unmarshal([]byte(`42`), &p))
}

func TestPlatforms_MarshalNilAsEmptyArray(t *testing.T) {
	raw, err := json.Marshal(App{ID: "a1"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"platforms":[]`)
}

func TestUser_PublicOmitsPasswordHash(t *testing.T) {
	u := User{ID: "u1", Name: "Ann", Email: "ann@example.com", PasswordHash: "$2a$12$secret", Role: RoleUser}

	raw, err := json.Marshal(u.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "passwordHash")
	assert.NotContains(t, string(raw), "$2a$12$secret")
}

func TestValidationError_MatchesSentinel(t *testing.T) {
	var err error = NewValidationError("name", "is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "name: is required", err.Error())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestDatabase_FindUserByEmailIgnoresEmpty(t *testing.T) {
	db := NewDatabase()
	db.Users = append(db.Users, User{ID: "anon", Name: "Guest", IsAnonymous: true})

	assert.Nil(t, db.FindUserByEmail(""))
	assert.NotNil(t, db.FindUserByID("anon"))
}
