package license

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// fileEnvelope wraps the stored record with an HMAC-SHA256 signature over
// the raw record bytes, so offline edits to the file are detected on read.
type fileEnvelope struct {
	Record    json.RawMessage `json:"record"`
	Signature string          `json:"signature"`
}

// FileStore persists the record as a signed JSON envelope on disk. Writes
// go through a temp file and rename, so a crash mid-write never leaves a
// torn record behind. The revision check runs under a process-level
// mutex; the file is assumed to be owned by a single process.
type FileStore struct {
	path   string
	secret []byte
	mu     sync.Mutex
}

// NewFileStore creates a file-backed store at path. The secret keys the
// integrity signature and must be stable across restarts.
func NewFileStore(path string, secret []byte) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("license file path cannot be empty")
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("license file secret cannot be empty")
	}
	return &FileStore{path: path, secret: secret}, nil
}

// Read loads and verifies the record from disk.
func (s *FileStore) Read(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *FileStore) readLocked() (*Record, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStoreUnavailable, s.path, err)
	}

	var env fileEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrStoreUnavailable, s.path, err)
	}
	if env.Signature != s.sign(env.Record) {
		return nil, fmt.Errorf("%w: signature mismatch, possible tampering", ErrStoreUnavailable)
	}

	var rec Record
	if err := json.Unmarshal(env.Record, &rec); err != nil {
		return nil, fmt.Errorf("%w: parse record: %v", ErrStoreUnavailable, err)
	}
	return &rec, nil
}

// Replace installs rec if the on-disk revision matches expectedRevision.
func (s *FileStore) Replace(ctx context.Context, expectedRevision int64, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readLocked()
	switch {
	case errors.Is(err, ErrRecordNotFound):
		if expectedRevision != 0 {
			return ErrRevisionConflict
		}
	case err != nil:
		return err
	default:
		if current.Revision != expectedRevision {
			return ErrRevisionConflict
		}
	}

	rec.Revision = expectedRevision + 1
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal record: %v", ErrStoreUnavailable, err)
	}
	env := fileEnvelope{Record: body, Signature: s.sign(body)}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal envelope: %v", ErrStoreUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".license-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write temp file: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp file: %v", ErrStoreUnavailable, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: chmod temp file: %v", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename into place: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *FileStore) sign(body []byte) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
