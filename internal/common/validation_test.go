package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("name", "  ", Required).
		Field("workers", 0, Positive).
		Field("driver", "mysql", OneOf("postgres", "sqlite")).
		Field("note", "abcdef", MaxLength(3))

	assert.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 4)
	assert.Contains(t, v.ErrorMessage(), "must be one of postgres, sqlite")
	assert.ErrorIs(t, v.Err(), ErrValidation)
	assert.Equal(t, KindInvalidInput, KindOf(v.Err()))

	ok := NewValidator().
		Field("name", "x", Required).
		Field("workers", int64(2), Positive).
		Field("driver", "sqlite", OneOf("postgres", "sqlite")).
		Field("note", "héé", MaxLength(3))
	assert.False(t, ok.HasErrors())
	assert.NoError(t, ok.Err())
	assert.NoError(t, ValidateAndReturnError(ok))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "café", CleanText("café"))
	assert.Equal(t, "caf�", CleanText("caf\xe9"))
	assert.Equal(t, "ab", CleanText("a\x00b"))
	assert.Equal(t, "", CleanText(""))
}
