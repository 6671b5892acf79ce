package localstore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// YAMLファイルに保存する実装
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// ファイルが無ければ空で開始
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, data: map[string]string{}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, &s.data); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
	}
	if s.data == nil {
		s.data = map[string]string{}
	}
	return s, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *FileStore) Set(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	s.data[key] = value
	if err := s.flushLocked(); err != nil {
		//書き込み失敗時はメモリも戻す
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, k := range keys {
		if _, ok := s.data[k]; ok {
			delete(s.data, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.flushLocked()
}

// 一時ファイルに書いてrename
func (s *FileStore) flushLocked() error {
	raw, err := yaml.Marshal(s.data)
	if err != nil {
		return errors.Wrap(err, "encode store")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "mkdir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.yaml")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "chmod temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "rename to %s", s.path)
	}
	return nil
}
