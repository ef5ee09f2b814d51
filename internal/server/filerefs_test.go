package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFileRefs(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   []string
	}{
		{
			name:   "no refs",
			prompt: "explain this code",
			want:   nil,
		},
		{
			name:   "single ref",
			prompt: "summarize @main.go please",
			want:   []string{"main.go"},
		},
		{
			name:   "multiple refs",
			prompt: "compare @a.go and @b.go",
			want:   []string{"a.go", "b.go"},
		},
		{
			name:   "glob ref",
			prompt: "review @src/**/*.go for races",
			want:   []string{"src/**/*.go"},
		},
		{
			name:   "trailing punctuation stripped",
			prompt: "what does @util.go do?",
			want:   []string{"util.go"},
		},
		{
			name:   "email is not a ref path",
			prompt: "mail admin@example.com about it",
			want:   []string{"example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFileRefs(tt.prompt))
		})
	}
}

func TestExpandFileRefs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	for _, f := range []string{"main.go", "src/a.go", "src/b.go", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), []byte("x"), 0644))
	}

	t.Run("plain existing file", func(t *testing.T) {
		assert.Equal(t, []string{"main.go"}, ExpandFileRefs("see @main.go", root))
	})

	t.Run("missing file dropped", func(t *testing.T) {
		assert.Empty(t, ExpandFileRefs("see @nope.go", root))
	})

	t.Run("directory gets trailing slash", func(t *testing.T) {
		assert.Equal(t, []string{"src/"}, ExpandFileRefs("look at @src", root))
	})

	t.Run("glob expands", func(t *testing.T) {
		got := ExpandFileRefs("review @src/*.go", root)
		assert.ElementsMatch(t, []string{"src/a.go", "src/b.go"}, got)
	})

	t.Run("recursive glob", func(t *testing.T) {
		got := ExpandFileRefs("review @**/*.go", root)
		assert.ElementsMatch(t, []string{"main.go", "src/a.go", "src/b.go"}, got)
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		got := ExpandFileRefs("@main.go and again @main.go", root)
		assert.Equal(t, []string{"main.go"}, got)
	})

	t.Run("no root returns raw tokens", func(t *testing.T) {
		assert.Equal(t, []string{"x/y.go"}, ExpandFileRefs("see @x/y.go", ""))
	})
}
