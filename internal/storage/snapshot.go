/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	dberrors "regretdb/internal/errors"
	"regretdb/internal/logging"
)

// Snapshot file layout:
//
//	magic   [8]byte  "RGDBSNAP"
//	version byte     1
//	flags   byte     bit 0 = encrypted
//	salt    [16]byte present only when encrypted
//	payload []byte   plaintext, or nonce+ciphertext+tag
var snapshotMagic = []byte("RGDBSNAP")

const (
	snapshotVersion   = 1
	flagEncrypted     = 1 << 0
	snapshotHeaderLen = 10
)

// SnapshotStore reads and writes catalog snapshots at a fixed path.
type SnapshotStore struct {
	path       string
	encrypt    bool
	passphrase string
	logger     *logging.Logger
}

// NewSnapshotStore creates a store for path. When encrypt is set, writes are
// encrypted with a key derived from passphrase.
func NewSnapshotStore(path string, encrypt bool, passphrase string) (*SnapshotStore, error) {
	if path == "" {
		return nil, dberrors.NewStorageError("snapshot path is empty")
	}
	if encrypt && passphrase == "" {
		return nil, dberrors.NewStorageError("snapshot encryption enabled without a passphrase").
			WithCause(ErrMissingPassphrase).
			WithHint("Set REGRETDB_ENCRYPTION_PASSPHRASE or disable encryption_enabled")
	}
	return &SnapshotStore{
		path:       path,
		encrypt:    encrypt,
		passphrase: passphrase,
		logger:     logging.NewLogger("snapshot"),
	}, nil
}

// Path returns the snapshot file location.
func (s *SnapshotStore) Path() string {
	return s.path
}

// Exists reports whether a snapshot file is present.
func (s *SnapshotStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Write stores payload atomically: it is written to a temporary file in the
// same directory and renamed over the previous snapshot.
func (s *SnapshotStore) Write(payload []byte) error {
	header := append([]byte(nil), snapshotMagic...)
	header = append(header, snapshotVersion, 0)

	body := payload
	if s.encrypt {
		salt, err := NewSalt()
		if err != nil {
			return dberrors.NewStorageError("failed to generate salt").WithCause(err)
		}
		enc, err := NewEncryptor(EncryptionConfig{Enabled: true, Passphrase: s.passphrase, Salt: salt})
		if err != nil {
			return dberrors.NewStorageError("failed to initialise encryption").WithCause(err)
		}
		body, err = enc.Encrypt(payload)
		if err != nil {
			return dberrors.NewStorageError("failed to encrypt snapshot").WithCause(err)
		}
		header[len(header)-1] |= flagEncrypted
		header = append(header, salt...)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return dberrors.NewStorageError("failed to create snapshot directory").WithCause(err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return dberrors.NewStorageError("failed to create temporary snapshot").WithCause(err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(header, body...)); err != nil {
		tmp.Close()
		return dberrors.NewStorageError("failed to write snapshot").WithCause(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return dberrors.NewStorageError("failed to sync snapshot").WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		return dberrors.NewStorageError("failed to close snapshot").WithCause(err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return dberrors.NewStorageError("failed to replace snapshot").WithCause(err)
	}

	s.logger.Debug("Snapshot written", "path", s.path, "bytes", len(payload), "encrypted", s.encrypt)
	return nil
}

// Read loads the payload of the snapshot file. Encrypted snapshots need the
// store to have been created with the matching passphrase.
func (s *SnapshotStore) Read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, dberrors.NewStorageError(fmt.Sprintf("failed to read snapshot %s", s.path)).WithCause(err)
	}
	if len(data) < snapshotHeaderLen || !bytes.Equal(data[:len(snapshotMagic)], snapshotMagic) {
		return nil, dberrors.SnapshotCorrupted("missing snapshot header")
	}
	if data[8] != snapshotVersion {
		return nil, dberrors.SnapshotCorrupted(fmt.Sprintf("unsupported snapshot version %d", data[8]))
	}

	flags := data[9]
	body := data[snapshotHeaderLen:]
	if flags&flagEncrypted == 0 {
		return body, nil
	}

	if s.passphrase == "" {
		return nil, dberrors.NewStorageError("snapshot is encrypted").
			WithCause(ErrMissingPassphrase).
			WithHint("Set REGRETDB_ENCRYPTION_PASSPHRASE")
	}
	if len(body) < SaltSize {
		return nil, dberrors.SnapshotCorrupted("truncated salt")
	}
	enc, err := NewEncryptor(EncryptionConfig{Enabled: true, Passphrase: s.passphrase, Salt: body[:SaltSize]})
	if err != nil {
		return nil, dberrors.NewStorageError("failed to initialise encryption").WithCause(err)
	}
	plain, err := enc.Decrypt(body[SaltSize:])
	if err != nil {
		return nil, dberrors.SnapshotCorrupted("decryption failed").WithCause(err)
	}

	s.logger.Debug("Snapshot read", "path", s.path, "bytes", len(plain), "encrypted", true)
	return plain, nil
}
