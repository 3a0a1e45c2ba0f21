package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"outreach_backend/internal/batches/domain"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

// FileStore persists each batch as a pretty-printed JSON document named
// <id>.json under a data directory. Writes go through a temp file and rename
// so readers never observe a partially written document.
type FileStore struct {
	dir string
	mu  sync.RWMutex
	log *logger.Logger
}

// NewFileStore creates the data directory if needed and returns a store.
func NewFileStore(dir string, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

// validID rejects anything that could escape the data directory. Batch ids
// are caller generated.
func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return apperr.BadRequest("invalid batch id")
	}
	return nil
}

func (s *FileStore) path(id string) (string, error) {
	if err := validID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Create persists a new batch. Fails with a conflict if the id exists.
func (s *FileStore) Create(ctx context.Context, batch *domain.Batch) error {
	path, err := s.path(batch.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return apperr.Conflict("batch already exists").WithOp("filestore.create")
	}
	return s.write(path, batch)
}

// Get returns the batch with the given id.
func (s *FileStore) Get(ctx context.Context, id string) (*domain.Batch, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("batch not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "read batch", err).WithOp("filestore.get")
	}

	var batch domain.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode batch", err).WithOp("filestore.get")
	}
	return &batch, nil
}

// Put overwrites an existing batch. Fails with not found if absent.
func (s *FileStore) Put(ctx context.Context, batch *domain.Batch) error {
	path, err := s.path(batch.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.NotFound("batch not found")
		}
		return apperr.Wrap(apperr.KindInternal, "stat batch", err).WithOp("filestore.put")
	}
	return s.write(path, batch)
}

// List returns all batches sorted by creation time, newest first. Documents
// that fail to decode are skipped and logged rather than failing the listing.
func (s *FileStore) List(ctx context.Context) ([]domain.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "read data dir", err).WithOp("filestore.list")
	}

	batches := make([]domain.Batch, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "read batch", err).WithOp("filestore.list")
		}
		var batch domain.Batch
		if err := json.Unmarshal(data, &batch); err != nil {
			if s.log != nil {
				s.log.StoreError("list_decode_"+entry.Name(), err)
			}
			continue
		}
		batches = append(batches, batch)
	}

	sort.Slice(batches, func(i, j int) bool {
		return batches[i].CreatedAt.After(batches[j].CreatedAt)
	})
	return batches, nil
}

// Delete removes the batch with the given id. Fails with not found if absent.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.NotFound("batch not found")
		}
		return apperr.Wrap(apperr.KindInternal, "delete batch", err).WithOp("filestore.delete")
	}
	return nil
}

// Lock takes an exclusive flock on a per-batch lock file, serializing
// read-modify-write cycles across the api and worker processes. Lock files
// are never removed, not even on batch deletion: unlinking a lock file that
// another process already holds open would let a third process lock a fresh
// inode alongside it.
func (s *FileStore) Lock(ctx context.Context, id string) (func(), error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filepath.Join(s.dir, id+".lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "open lock file", err).WithOp("filestore.lock")
	}

	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if err != syscall.EWOULDBLOCK {
			f.Close()
			return nil, apperr.Wrap(apperr.KindInternal, "lock batch", err).WithOp("filestore.lock")
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, apperr.Wrap(apperr.KindInternal, "lock batch", ctx.Err()).WithOp("filestore.lock")
		case <-time.After(10 * time.Millisecond):
		}
	}

	return func() {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
	}, nil
}

func (s *FileStore) write(path string, batch *domain.Batch) error {
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode batch", err).WithOp("filestore.write")
	}

	tmp, err := os.CreateTemp(s.dir, "batch-*.tmp")
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "create temp file", err).WithOp("filestore.write")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperr.Wrap(apperr.KindInternal, "write batch", err).WithOp("filestore.write")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperr.Wrap(apperr.KindInternal, "close temp file", err).WithOp("filestore.write")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperr.Wrap(apperr.KindInternal, "commit batch", err).WithOp("filestore.write")
	}
	return nil
}
