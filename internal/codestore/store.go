// Package codestore keeps contract bytecode on disk, addressed by checksum,
// with an index from contract id to checksum and an in-memory LRU in front.
package codestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/shamaton/msgpack/v2"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/wavesenterprise/wevm/types"
)

const (
	lockFileName  = "exclusive.lock"
	indexFileName = "index.msgpack"
	codeExt       = ".wasm"

	// DefaultCacheSize is used when Open is given a non-positive size.
	DefaultCacheSize = 64
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// Store is safe for concurrent use. Only one Store can hold a directory at
// a time.
type Store struct {
	mu       sync.Mutex
	dir      string
	lockfile *os.File
	// index maps hex contract ids to hex checksums.
	index map[string]string
	cache *lru.Cache[string, []byte]
}

var _ types.CodeStore = (*Store)(nil)

// Open creates dir if needed, takes the exclusive lock on it and loads the
// index.
func Open(dir string, cacheSize int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "could not create base directory")
	}

	lockfile, err := os.OpenFile(filepath.Join(dir, lockFileName), os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, errors.Wrap(err, "could not open exclusive.lock")
	}
	if err := unix.Flock(int(lockfile.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = lockfile.Close()
		return nil, errors.Wrap(err, "could not obtain exclusive lock")
	}

	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		_ = lockfile.Close()
		return nil, errors.Wrap(err, "could not create code cache")
	}

	s := &Store{
		dir:      dir,
		lockfile: lockfile,
		index:    make(map[string]string),
		cache:    cache,
	}
	if err := s.loadIndex(); err != nil {
		_ = s.Release()
		return nil, err
	}
	return s, nil
}

// Release unlocks the directory. The Store must not be used afterwards.
func (s *Store) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockfile == nil {
		return nil
	}
	err := unix.Flock(int(s.lockfile.Fd()), unix.LOCK_UN)
	err = multierr.Append(err, s.lockfile.Close())
	s.lockfile = nil
	s.cache.Purge()
	return errors.Wrap(err, "release code store")
}

// Put stores code for contractID and returns its sha256 checksum. Storing
// identical code twice writes the file once.
func (s *Store) Put(contractID, code []byte) ([]byte, error) {
	if !bytes.HasPrefix(code, wasmMagic) {
		return nil, errors.Wrap(types.InvalidBytecode, "missing wasm magic")
	}
	checksum := sha256.Sum256(code)
	sum := hex.EncodeToString(checksum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockfile == nil {
		return nil, errors.New("code store released")
	}

	path := s.codePath(sum)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, code, 0o644); err != nil {
			return nil, errors.Wrap(err, "failed to save wasm file")
		}
	}

	id := hex.EncodeToString(contractID)
	prev, had := s.index[id]
	s.index[id] = sum
	if err := s.saveIndex(); err != nil {
		if had {
			s.index[id] = prev
		} else {
			delete(s.index, id)
		}
		return nil, err
	}
	s.cache.Add(id, code)
	return checksum[:], nil
}

// Code returns the bytecode stored for contractID.
func (s *Store) Code(contractID []byte) ([]byte, error) {
	id := hex.EncodeToString(contractID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.cache.Get(id); ok {
		return code, nil
	}
	sum, ok := s.index[id]
	if !ok {
		return nil, errors.Wrapf(types.ModuleNotFound, "no code for contract %s", id)
	}
	code, err := s.read(sum)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, code)
	return code, nil
}

// CodeByChecksum reads code by its checksum, bypassing the index.
func (s *Store) CodeByChecksum(checksum []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(hex.EncodeToString(checksum))
}

// Checksum returns the checksum recorded for contractID.
func (s *Store) Checksum(contractID []byte) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.index[hex.EncodeToString(contractID)]
	if !ok {
		return nil, false
	}
	b, err := hex.DecodeString(sum)
	return b, err == nil
}

// Len is the number of indexed contracts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

func (s *Store) codePath(sum string) string {
	return filepath.Join(s.dir, sum+codeExt)
}

func (s *Store) read(sum string) ([]byte, error) {
	code, err := os.ReadFile(s.codePath(sum))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(types.ModuleNotFound, "no code with checksum %s", sum)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read wasm file")
	}
	if !bytes.HasPrefix(code, wasmMagic) {
		return nil, errors.Wrapf(types.InvalidBytecode, "%s%s is not a wasm module", sum, codeExt)
	}
	return code, nil
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read index")
	}
	if err := msgpack.Unmarshal(data, &s.index); err != nil {
		return errors.Wrap(err, "failed to decode index")
	}
	if s.index == nil {
		s.index = make(map[string]string)
	}
	return nil
}

// saveIndex writes the index to a temporary file and renames it over the
// old one.
func (s *Store) saveIndex() error {
	data, err := msgpack.Marshal(s.index)
	if err != nil {
		return errors.Wrap(err, "failed to encode index")
	}
	tmp := filepath.Join(s.dir, indexFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write index")
	}
	return errors.Wrap(os.Rename(tmp, filepath.Join(s.dir, indexFileName)), "failed to replace index")
}
