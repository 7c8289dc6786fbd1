// file.go -- JSON file backend under MICHAME_HOME.
//
// All keys live in a single credentials.json (mode 0600, directory 0700).
// Writes go through a temp file + rename so a crash never leaves half a file.
// A missing or corrupt file reads as empty.
package credstore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CredentialsFile is the file name inside the backend directory.
const CredentialsFile = "credentials.json"

// watchDebounce is the quiet period Watch waits for after the last event.
const watchDebounce = 500 * time.Millisecond

// FileBackend persists credentials to dir/credentials.json.
type FileBackend struct {
	mu   sync.Mutex
	dir  string
	path string

	// known is the SHA-256 of the file content this backend last wrote or reported.
	known [32]byte
}

// NewFileBackend creates dir if needed and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating credential dir: %w", err)
	}
	return &FileBackend{dir: dir, path: filepath.Join(dir, CredentialsFile)}, nil
}

// Path returns the credentials file path.
func (f *FileBackend) Path() string {
	return f.path
}

func (f *FileBackend) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *FileBackend) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

func (f *FileBackend) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := values[k]; ok {
			delete(values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.save(values)
}

// Watch calls onChange when another process writes, replaces or removes
// credentials.json, until ctx is cancelled. Bursts of events are coalesced into
// one call after watchDebounce of quiet. Content this backend wrote itself is
// not reported. The web console uses this to notice a `michame logout` run from
// another terminal.
func (f *FileBackend) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory, not the file: rename-over-write replaces the inode.
	if err := w.Add(f.dir); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", f.dir, err)
	}

	f.mu.Lock()
	f.known = f.fingerprint()
	f.mu.Unlock()

	go func() {
		defer w.Close()
		quiet := time.NewTimer(watchDebounce)
		quiet.Stop()
		defer quiet.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != CredentialsFile {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					quiet.Reset(watchDebounce)
				}
			case <-quiet.C:
				if f.changedOnDisk() {
					onChange()
				} else {
					slog.Debug("credstore: file event without foreign change, skipping", "path", f.path)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("credstore: watcher error", "error", err)
			}
		}
	}()
	return nil
}

// changedOnDisk reports whether the file differs from what this backend last
// wrote or reported, and remembers the new content if so.
func (f *FileBackend) changedOnDisk() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := f.fingerprint()
	if sum == f.known {
		return false
	}
	f.known = sum
	return true
}

// fingerprint hashes the current file content; a missing file hashes as empty. Caller holds mu.
func (f *FileBackend) fingerprint() [32]byte {
	data, err := os.ReadFile(f.path)
	if err != nil {
		data = nil
	}
	return sha256.Sum256(data)
}

// load reads the file. Caller holds mu.
func (f *FileBackend) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		slog.Warn("credstore: credentials file is corrupt, starting empty", "path", f.path, "error", err)
		return make(map[string]string), nil
	}
	return values, nil
}

// save writes values atomically. Caller holds mu.
func (f *FileBackend) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}
	f.known = sha256.Sum256(data)
	return nil
}
