package sessions

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Indicator records that a user was logged in on this machine. It holds no
// credential; it only decides whether the bootstrap asks the backend who we are.
type Indicator interface {
	Present() bool
	Mark() error
	Clear() error
}

const indicatorFileName = "session.marker"

// FileIndicator keeps the marker as a file in the data folder.
type FileIndicator struct {
	path string
}

var _ Indicator = (*FileIndicator)(nil)

func NewFileIndicator(dataFolder string) *FileIndicator {
	return &FileIndicator{path: filepath.Join(dataFolder, indicatorFileName)}
}

func (f *FileIndicator) Present() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

func (f *FileIndicator) Mark() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.path, []byte(time.Now().UTC().Format(time.RFC3339)), 0o600)
}

func (f *FileIndicator) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryIndicator is an Indicator that lives only as long as the process.
type MemoryIndicator struct {
	lock    sync.Mutex
	present bool
}

var _ Indicator = (*MemoryIndicator)(nil)

func NewMemoryIndicator(present bool) *MemoryIndicator {
	return &MemoryIndicator{present: present}
}

func (m *MemoryIndicator) Present() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.present
}

func (m *MemoryIndicator) Mark() error {
	m.lock.Lock()
	m.present = true
	m.lock.Unlock()
	return nil
}

func (m *MemoryIndicator) Clear() error {
	m.lock.Lock()
	m.present = false
	m.lock.Unlock()
	return nil
}
