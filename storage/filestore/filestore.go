package filestore

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/gnarlyhq/gnarly/core/pdf"
)

var errUnsafeName = errors.New("blob name must not contain path separators")

// Store is an on-disk blob store. Every blob lives directly under dir, under
// a generated name; names never come from user input.
type Store struct {
	dir string
}

var _ pdf.Storage = (*Store)(nil) // interface compliance check

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// RandomName returns a collision-resistant name: 16 random bytes hex-encoded,
// plus the lower-cased extension of originalName.
func (s *Store) RandomName(originalName string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generating random name")
	}
	return hex.EncodeToString(buf) + strings.ToLower(filepath.Ext(originalName)), nil
}

// Save writes r to a new blob. The create is exclusive: an existing blob with
// the same name is never overwritten. A partial write is cleaned up.
func (s *Store) Save(name string, r io.Reader) (int64, error) {
	path, err := s.path(name)
	if err != nil {
		return 0, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, errors.Wrap(err, "creating blob")
	}
	size, err := io.Copy(f, r)
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, errors.Wrap(err, "writing blob")
	}
	return size, nil
}

// Remove unlinks a blob. Removing an absent blob is not an error so that
// compensating deletes can be retried safely.
func (s *Store) Remove(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing blob")
	}
	return nil
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", errUnsafeName
	}
	return filepath.Join(s.dir, name), nil
}
