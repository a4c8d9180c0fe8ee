// Copyright 2014 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package keystore

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/tos-network/gaudit/crypto"
)

const (
	version = 1
)

// Key binds a validator identity to its private signing key.
type Key struct {
	Id uuid.UUID // Version 4 "random" for unique id not derived from key data
	// Owner is the validator identity the key belongs to.
	Owner string
	// privkey in this struct is always in plaintext.
	Signer crypto.Signer
}

type plainKeyJSON struct {
	Owner      string `json:"owner"`
	SignerType string `json:"signerType"`
	PublicKey  string `json:"publickey"`
	PrivateKey string `json:"privatekey"`
	Id         string `json:"id"`
	Version    int    `json:"version"`
}

func (k *Key) MarshalJSON() (j []byte, err error) {
	if k.Signer == nil {
		return nil, fmt.Errorf("missing private key for %s", k.Owner)
	}
	jStruct := plainKeyJSON{
		k.Owner,
		k.Signer.Type(),
		k.Signer.Public().Hex(),
		hex.EncodeToString(k.Signer.Bytes()),
		k.Id.String(),
		version,
	}
	j, err = json.Marshal(jStruct)
	return j, err
}

func (k *Key) UnmarshalJSON(j []byte) (err error) {
	keyJSON := new(plainKeyJSON)
	if err = json.Unmarshal(j, &keyJSON); err != nil {
		return err
	}
	if keyJSON.Version != version {
		return fmt.Errorf("unsupported key file version %d", keyJSON.Version)
	}
	k.Id, err = uuid.Parse(keyJSON.Id)
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(keyJSON.PrivateKey)
	if err != nil {
		return err
	}
	signer, err := crypto.ToSigner(keyJSON.SignerType, raw)
	if err != nil {
		return err
	}
	// The stored public key is informational, but a mismatch means the
	// file was edited by hand.
	if keyJSON.PublicKey != "" && keyJSON.PublicKey != signer.Public().Hex() {
		return fmt.Errorf("public key mismatch in key file for %s", keyJSON.Owner)
	}
	k.Owner = keyJSON.Owner
	k.Signer = signer
	return nil
}

func newKey(owner, signerType string, rand io.Reader) (*Key, error) {
	signer, err := crypto.GenerateKey(signerType, rand)
	if err != nil {
		return nil, err
	}
	return newKeyFromSigner(owner, signer)
}

func newKeyFromSigner(owner string, signer crypto.Signer) (*Key, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("could not create random uuid: %w", err)
	}
	return &Key{Id: id, Owner: owner, Signer: signer}, nil
}

func writeTemporaryKeyFile(file string, content []byte) (string, error) {
	// Create the keystore directory with appropriate permissions
	// in case it is not present yet.
	const dirPerm = 0700
	if err := os.MkdirAll(filepath.Dir(file), dirPerm); err != nil {
		return "", err
	}
	// Atomic write: create a temporary hidden file first
	// then move it into place. TempFile assigns mode 0600.
	f, err := os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+".tmp")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	f.Close()
	return f.Name(), nil
}

func writeKeyFile(file string, content []byte) error {
	name, err := writeTemporaryKeyFile(file, content)
	if err != nil {
		return err
	}
	return os.Rename(name, file)
}

// keyFileName implements the naming convention for keyfiles: <owner>.key
func keyFileName(owner string) string {
	return owner + ".key"
}
