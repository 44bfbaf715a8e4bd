package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNumericCode(t *testing.T) {
	t.Run("LengthAndDigits", func(t *testing.T) {
		for _, length := range []int{4, 6, 8} {
			code, err := GenerateNumericCode(length)
			require.NoError(t, err)
			assert.Len(t, code, length)
			for _, r := range code {
				assert.True(t, r >= '0' && r <= '9', "unexpected character %q in code %q", r, code)
			}
		}
	})

	t.Run("LeadingZerosKept", func(t *testing.T) {
		// With enough draws a 6-digit code starting with zero must show up;
		// the generator pads instead of dropping leading zeros.
		seen := false
		for i := 0; i < 200 && !seen; i++ {
			code, err := GenerateNumericCode(6)
			require.NoError(t, err)
			require.Len(t, code, 6)
			seen = code[0] == '0'
		}
		assert.True(t, seen, "no zero-padded code in 200 draws, padding likely broken")
	})

	t.Run("InvalidLength", func(t *testing.T) {
		_, err := GenerateNumericCode(0)
		assert.Error(t, err)
	})
}
