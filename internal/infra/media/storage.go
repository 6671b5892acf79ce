// Package media はアップロード画像をローカルに保存する。
package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

const MaxFileSize = 5 << 20

var (
	ErrUnsupportedType = errors.New("media: unsupported file type")
	ErrTooLarge        = errors.New("media: file too large")
)

var allowedExt = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".gif":  {},
}

// Local は root 配下に dir/uuid.ext で保存し、root からの相対パスを返す
type Local struct {
	root string
}

func NewLocal(root string) *Local {
	return &Local{root: root}
}

func (l *Local) Root() string {
	return l.root
}

func (l *Local) Save(ctx context.Context, dir string, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExt[ext]; !ok {
		return "", ErrUnsupportedType
	}

	rel := path.Join(dir, uuid.NewString()+ext)
	full := filepath.Join(l.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", pkgerrors.Wrap(err, "media: mkdir")
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", pkgerrors.Wrap(err, "media: create")
	}

	n, err := io.Copy(f, io.LimitReader(r, MaxFileSize+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = os.Remove(full)
		return "", pkgerrors.Wrap(err, "media: write")
	case closeErr != nil:
		_ = os.Remove(full)
		return "", pkgerrors.Wrap(closeErr, "media: close")
	case n > MaxFileSize:
		_ = os.Remove(full)
		return "", ErrTooLarge
	}
	return rel, nil
}

// 無ければ何もしない。root の外は消さない
func (l *Local) Remove(rel string) error {
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(l.root, filepath.FromSlash(clean)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
