package catalog

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Store is the JSON file that holds the catalog. Every read-modify-write
// cycle in this process runs under one mutex, so the order handler and the
// record router never interleave. Other processes writing the same file are
// not coordinated and the last rewrite wins.
type Store struct {
	path   string
	log    *slog.Logger
	mu     sync.Mutex
	rename func(oldpath, newpath string) error
}

func NewStore(path string, log *slog.Logger) *Store {
	return &Store{path: path, log: log, rename: os.Rename}
}

func (s *Store) Path() string { return s.path }

// View loads the document and hands it to fn. Changes made by fn are not
// written back.
func (s *Store) View(ctx context.Context, fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(doc)
}

// Update loads the document, applies fn and rewrites the whole file. When
// fn returns an error nothing is written.
func (s *Store) Update(ctx context.Context, fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(ctx, doc)
}

func (s *Store) load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Error("catalog file missing", "path", s.path)
		}
		return nil, &StoreError{Op: "read", Path: s.path, Err: err}
	}
	doc, err := ParseDocument(b)
	if err != nil {
		return nil, &StoreError{Op: "parse", Path: s.path, Err: err}
	}
	return doc, nil
}

// save writes to a temp file next to the real catalog (symlinks resolved)
// and renames it over the original so a crash mid-write never leaves a
// truncated catalog behind. The original file mode is kept.
func (s *Store) save(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := doc.MarshalJSON()
	if err != nil {
		return &StoreError{Op: "encode", Path: s.path, Err: err}
	}
	b = append(b, '\n')

	target, err := filepath.EvalSymlinks(s.path)
	if err != nil {
		return &StoreError{Op: "write", Path: s.path, Err: err}
	}
	info, err := os.Stat(target)
	if err != nil {
		return &StoreError{Op: "write", Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.tmp")
	if err != nil {
		return &StoreError{Op: "write", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return &StoreError{Op: "write", Path: s.path, Err: err}
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		_ = tmp.Close()
		cleanup()
		return &StoreError{Op: "write", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &StoreError{Op: "write", Path: s.path, Err: err}
	}
	if err := s.rename(tmpName, target); err != nil {
		cleanup()
		return &StoreError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}
