package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, Category("knowledge").Valid())
	assert.False(t, Category("").Valid())
}

func TestVisibilityValid(t *testing.T) {
	assert.True(t, VisibilityPublic.Valid())
	assert.True(t, VisibilityPrivate.Valid())
	assert.False(t, Visibility("friends").Valid())
	assert.False(t, Visibility("").Valid())
}

func TestPreview(t *testing.T) {
	t.Run("Should keep short content", func(t *testing.T) {
		m := Memory{Content: "It burns"}
		assert.Equal(t, "It burns", m.Preview())
	})

	t.Run("Should truncate long content", func(t *testing.T) {
		m := Memory{Content: strings.Repeat("a", 151)}
		assert.Equal(t, strings.Repeat("a", 150)+"...", m.Preview())
	})

	t.Run("Should count characters, not bytes", func(t *testing.T) {
		m := Memory{Content: strings.Repeat("é", 150)}
		assert.Equal(t, m.Content, m.Preview())
	})
}

func TestCountLabel(t *testing.T) {
	assert.Equal(t, "0 memories", CountLabel(0))
	assert.Equal(t, "1 memory", CountLabel(1))
	assert.Equal(t, "12 memories", CountLabel(12))
}
