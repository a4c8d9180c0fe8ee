// Package keystore persists validator signing keys as plain JSON key files so
// that signatures embedded in the ledger stay verifiable across restarts.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tos-network/gaudit/crypto"
	"github.com/tos-network/gaudit/log"
)

var (
	ErrNoKey        = errors.New("keystore: no key for owner")
	ErrOwnerInvalid = errors.New("keystore: invalid owner name")
)

// KeyStore manages a directory of key files, one per owner.
type KeyStore struct {
	dir string
	mu  sync.Mutex
}

// NewKeyStore creates a keystore rooted at dir. The directory is created
// lazily on the first write.
func NewKeyStore(dir string) *KeyStore {
	return &KeyStore{dir: dir}
}

// Dir returns the directory backing the keystore.
func (ks *KeyStore) Dir() string { return ks.dir }

// JoinPath joins filename with the key directory unless it is already absolute.
func (ks *KeyStore) JoinPath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(ks.dir, filename)
}

func validOwner(owner string) bool {
	return owner != "" && !strings.ContainsAny(owner, `/\`) && owner != "." && owner != ".."
}

// GetKey loads the key file of owner.
func (ks *KeyStore) GetKey(owner string) (*Key, error) {
	if !validOwner(owner) {
		return nil, ErrOwnerInvalid
	}
	blob, err := os.ReadFile(ks.JoinPath(keyFileName(owner)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoKey
	}
	if err != nil {
		return nil, err
	}
	key := new(Key)
	if err := json.Unmarshal(blob, key); err != nil {
		return nil, fmt.Errorf("key file of %s: %w", owner, err)
	}
	if key.Owner != owner {
		return nil, fmt.Errorf("key file of %s is owned by %s", owner, key.Owner)
	}
	return key, nil
}

// StoreKey writes the key file of k.Owner, replacing any existing file.
func (ks *KeyStore) StoreKey(k *Key) error {
	if !validOwner(k.Owner) {
		return ErrOwnerInvalid
	}
	content, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return err
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return writeKeyFile(ks.JoinPath(keyFileName(k.Owner)), content)
}

// LoadOrCreate returns the stored key of owner, generating and storing a
// fresh one of signerType when none exists yet.
func (ks *KeyStore) LoadOrCreate(owner, signerType string, rand io.Reader) (*Key, error) {
	key, err := ks.GetKey(owner)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, ErrNoKey) {
		return nil, err
	}
	key, err = newKey(owner, signerType, rand)
	if err != nil {
		return nil, err
	}
	if err := ks.StoreKey(key); err != nil {
		return nil, err
	}
	log.Info("Generated validator key", "owner", owner, "type", key.Signer.Type(), "file", ks.JoinPath(keyFileName(owner)))
	return key, nil
}

// Import stores an existing signer under owner.
func (ks *KeyStore) Import(owner string, signer crypto.Signer) (*Key, error) {
	key, err := newKeyFromSigner(owner, signer)
	if err != nil {
		return nil, err
	}
	return key, ks.StoreKey(key)
}

// Owners lists the owners that have a key file, sorted.
func (ks *KeyStore) Owners() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var owners []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".key") {
			continue
		}
		owners = append(owners, strings.TrimSuffix(name, ".key"))
	}
	sort.Strings(owners)
	return owners, nil
}
