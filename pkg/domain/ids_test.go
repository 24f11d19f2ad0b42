package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "linkmart/pkg/domain-errors"
)

func TestParseOrderID(t *testing.T) {
	raw := uuid.New()

	id, err := ParseOrderID(raw.String())
	require.NoError(t, err)
	assert.Equal(t, raw.String(), id.String())
	assert.False(t, id.IsNil())

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseOrderID("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseOrderID("not-a-uuid")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil uuid", func(t *testing.T) {
		_, err := ParseOrderID(uuid.Nil.String())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestIsNil(t *testing.T) {
	assert.True(t, UserID{}.IsNil())
	assert.False(t, UserID(uuid.New()).IsNil())
	assert.True(t, WebsiteID{}.IsNil())
}
