// Package chainfile stores a block sequence as a single indented JSON
// document, replaced atomically on every commit.
package chainfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/tos-network/gaudit/core/types"
)

// Store is a whole-document block store. Every commit rewrites the file.
type Store struct {
	path string
}

// New returns a store backed by the document at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the document.
func (s *Store) Path() string { return s.path }

// Load reads the document. A missing or empty document yields no blocks.
func (s *Store) Load() ([]*types.Block, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var blocks []*types.Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Commit replaces the document with blocks.
func (s *Store) Commit(blocks []*types.Block) error {
	if blocks == nil {
		blocks = []*types.Block{}
	}
	data, err := json.MarshalIndent(blocks, "", "    ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return renameio.WriteFile(s.path, data, 0644)
}

func (s *Store) Close() error { return nil }
