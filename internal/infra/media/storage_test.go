package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SaveAndRemove(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(root)

	rel, err := l.Save(context.Background(), "avatars", "Me.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "avatars/"))
	assert.True(t, strings.HasSuffix(rel, ".png"))

	b, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(b))

	require.NoError(t, l.Remove(rel))
	_, err = os.Stat(filepath.Join(root, rel))
	assert.True(t, os.IsNotExist(err))

	// 2回目も成功
	assert.NoError(t, l.Remove(rel))
}

func TestLocal_Rejects(t *testing.T) {
	l := NewLocal(t.TempDir())

	_, err := l.Save(context.Background(), "avatars", "virus.exe", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	big := bytes.Repeat([]byte("a"), MaxFileSize+1)
	_, err = l.Save(context.Background(), "avatars", "big.jpg", bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(filepath.Join(l.Root(), "avatars"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocal_RemoveStaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	outside := filepath.Join(parent, "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	l := NewLocal(filepath.Join(parent, "media"))
	assert.NoError(t, l.Remove("../keep.txt"))

	_, err := os.Stat(outside)
	assert.NoError(t, err)
}
