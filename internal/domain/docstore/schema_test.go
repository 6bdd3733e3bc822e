package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
)

type contact struct {
	Base
	Email string  `json:"email" jsonschema:"format=email"`
	Role  string  `json:"role" jsonschema:"enum=user,enum=admin"`
	Name  *string `json:"name,omitempty" jsonschema:"maxLength=5"`
}

func validContact() map[string]any {
	return map[string]any{
		"id":        noteID,
		"createdAt": "2026-01-02T03:04:05Z",
		"updatedAt": "2026-01-02T03:04:05Z",
		"email":     "a@example.com",
		"role":      "user",
	}
}

func TestSchema_Validate(t *testing.T) {
	s, err := SchemaFor(&contact{}, "contacts")
	require.NoError(t, err)

	require.NoError(t, s.Validate(validContact()))

	tests := map[string]func(m map[string]any){
		"bad email":     func(m map[string]any) { m["email"] = "nope" },
		"bad enum":      func(m map[string]any) { m["role"] = "root" },
		"too long":      func(m map[string]any) { m["name"] = "abcdefgh" },
		"missing field": func(m map[string]any) { delete(m, "email") },
		"unknown field": func(m map[string]any) { m["password2"] = "x" },
		"wrong type":    func(m map[string]any) { m["role"] = float64(7) },
		"bad timestamp": func(m map[string]any) { m["createdAt"] = "yesterday" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			doc := validContact()
			mutate(doc)
			err := s.Validate(doc)
			require.Error(t, err)
			assert.Equal(t, common.KindInvalidInput, common.KindOf(err))
			assert.NotEmpty(t, common.FieldsOf(err))
		})
	}
}

func TestSchema_NilAcceptsAnything(t *testing.T) {
	var s *Schema
	assert.NoError(t, s.Validate(map[string]any{"x": 1}))
}
