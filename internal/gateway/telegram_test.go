package gateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		parts := splitText("hello", 100)
		assert.Equal(t, []string{"hello"}, parts)
	})

	t.Run("splits at line boundary", func(t *testing.T) {
		text := strings.Repeat("a", 60) + "\n" + strings.Repeat("b", 60)

		parts := splitText(text, 100)
		require.Len(t, parts, 2)
		assert.Equal(t, strings.Repeat("a", 60)+"\n", parts[0])
		assert.Equal(t, strings.Repeat("b", 60), parts[1])
	})

	t.Run("hard split without line breaks", func(t *testing.T) {
		text := strings.Repeat("x", 250)

		parts := splitText(text, 100)
		require.Len(t, parts, 3)
		assert.Equal(t, 100, len(parts[0]))
		assert.Equal(t, 100, len(parts[1]))
		assert.Equal(t, 50, len(parts[2]))
		assert.Equal(t, text, strings.Join(parts, ""))
	})
}
