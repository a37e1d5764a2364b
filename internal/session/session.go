// Package session persists the signed-in user and bearer credential.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/peterbourgon/diskv/v3"

	"daysched/internal/service"
)

const key = "session"

// ErrNoSession is returned by Load when nobody is signed in.
var ErrNoSession = errors.New("not logged in")

// Store is a diskv-backed session store.
type Store struct {
	d *diskv.Diskv
}

// Open returns a store rooted at dir. The directory is created lazily on
// the first Save.
func Open(dir string) *Store {
	return &Store{d: diskv.New(diskv.Options{
		BasePath:     dir,
		CacheSizeMax: 4 * 1024,
		PathPerm:     0700,
		FilePerm:     0600,
	})}
}

// Load returns the stored session.
func (s *Store) Load() (service.Session, error) {
	data, err := s.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return service.Session{}, ErrNoSession
	}
	if err != nil {
		return service.Session{}, fmt.Errorf("reading session: %w", err)
	}
	var sess service.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return service.Session{}, fmt.Errorf("invalid session file: %w", err)
	}
	if err := sess.Validate(); err != nil {
		return service.Session{}, ErrNoSession
	}
	return sess, nil
}

// Save replaces the stored session.
func (s *Store) Save(sess service.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.d.Write(key, data); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing when nothing is stored is not
// an error.
func (s *Store) Clear() error {
	if !s.d.Has(key) {
		return nil
	}
	if err := s.d.Erase(key); err != nil {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}
