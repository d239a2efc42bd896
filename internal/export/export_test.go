package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"memorygrid-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []domain.Memory {
	author := "a@x.com"
	return []domain.Memory{
		{
			ID: "m1", Title: "Hello", Category: domain.CategoryKnowledge, Content: "<b>World</b>",
			Visibility: domain.VisibilityPublic, OwnerID: "u1", AuthorLabel: &author,
			CreatedAtEpoch: 1709640000000, CreatedAtDisplay: "March 5, 2024",
		},
		{
			ID: "m2", Title: "Mine", Category: domain.CategoryMistake, Content: "secret",
			Visibility: domain.VisibilityPrivate, OwnerID: "u1",
			CreatedAtEpoch: 1709540000000, CreatedAtDisplay: "March 4, 2024",
		},
	}
}

func TestEncode(t *testing.T) {
	t.Run("Should round trip", func(t *testing.T) {
		data, err := Encode(sample())
		require.NoError(t, err)

		got, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, sample(), got)
	})

	t.Run("Should indent with two spaces and keep null author", func(t *testing.T) {
		data, err := Encode(sample()[1:])
		require.NoError(t, err)

		assert.Contains(t, string(data), "[\n  {\n    \"id\": \"m2\"")
		assert.Contains(t, string(data), "\"authorLabel\": null")
	})

	t.Run("Should not escape markup in content", func(t *testing.T) {
		data, err := Encode(sample()[:1])
		require.NoError(t, err)
		assert.Contains(t, string(data), "\"content\": \"<b>World</b>\"")
	})

	t.Run("Should encode nothing as an empty array", func(t *testing.T) {
		data, err := Encode(nil)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	})
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 3, 5, 23, 30, 0, 0, time.FixedZone("PST", -8*3600))
	assert.Equal(t, "humanity-memory-grid-2024-03-06.json", FileName(at))
}

func TestFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	sink := FileSink{Dir: dir}

	require.NoError(t, sink.Save(context.Background(), "../escape.json", []byte("[]")))

	data, err := os.ReadFile(filepath.Join(dir, "escape.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, sink.Save(ctx, "x.json", nil))
}
