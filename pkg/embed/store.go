package embed

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RecordStore persists one durable record per content hash: the hash and the
// vector, nothing else. The layout is intentionally inspectable and prunable
// from outside without touching cache logic.
type RecordStore interface {
	Load(hash string) ([]float32, bool, error)
	Save(hash string, vector []float32) error
	Clear() (int, error)
	Count() (int, error)
}

// FileStore stores one little-endian float32 file per hash under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed and returns a store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

const vecExt = ".vec"

func (s *FileStore) path(hash string) string {
	return filepath.Join(s.dir, hash+vecExt)
}

// Load reads the vector for hash, reporting false when no record exists.
func (s *FileStore) Load(hash string) ([]float32, bool, error) {
	data, err := os.ReadFile(s.path(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(data)%4 != 0 {
		return nil, false, fmt.Errorf("corrupt cache record %s: %d bytes", hash, len(data))
	}

	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, true, nil
}

// Save writes the vector atomically via a temp file rename.
func (s *FileStore) Save(hash string, vector []float32) error {
	data := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}

	tmp, err := os.CreateTemp(s.dir, hash+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(hash))
}

// Clear removes all cached records and returns how many were removed.
func (s *FileStore) Clear() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), vecExt) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Count returns the number of cached records.
func (s *FileStore) Count() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), vecExt) {
			count++
		}
	}
	return count, nil
}

// MemStore is an in-memory RecordStore used by tests and ephemeral setups.
type MemStore struct {
	mu   sync.RWMutex
	vecs map[string][]float32
}

// NewMemStore returns an empty in-memory record store.
func NewMemStore() *MemStore {
	return &MemStore{vecs: make(map[string][]float32)}
}

func (s *MemStore) Load(hash string) ([]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vecs[hash]
	if !ok {
		return nil, false, nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *MemStore) Save(hash string, vector []float32) error {
	cp := make([]float32, len(vector))
	copy(cp, vector)
	s.mu.Lock()
	s.vecs[hash] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.vecs)
	s.vecs = make(map[string][]float32)
	return n, nil
}

func (s *MemStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vecs), nil
}
