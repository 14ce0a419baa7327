package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "charity/pkg/domain-errors"
)

// TestParseProjectID_Invariants validates the parsing invariant:
// "project ids are positive decimal integers that fit in 64 bits"
func TestParseProjectID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseProjectID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero", func(t *testing.T) {
		_, err := ParseProjectID("0")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects negative and signed input", func(t *testing.T) {
		for _, in := range []string{"-1", "+1", "1.5", "0x10", "abc"} {
			_, err := ParseProjectID(in)
			assert.Error(t, err, "input %q", in)
		}
	})

	t.Run("rejects values beyond 64 bits", func(t *testing.T) {
		_, err := ParseProjectID("18446744073709551616")
		require.Error(t, err)
	})

	t.Run("accepts valid id and trims whitespace", func(t *testing.T) {
		id, err := ParseProjectID(" 42 ")
		require.NoError(t, err)
		assert.Equal(t, ProjectID(42), id)
		assert.Equal(t, "42", id.String())
		assert.False(t, id.IsNil())
	})

	t.Run("accepts max uint64", func(t *testing.T) {
		id, err := ParseProjectID("18446744073709551615")
		require.NoError(t, err)
		assert.Equal(t, ProjectID(^uint64(0)), id)
	})
}
