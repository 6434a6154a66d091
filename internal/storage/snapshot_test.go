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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dberrors "regretdb/internal/errors"
)

func TestEncryptorRoundTrip(t *testing.T) {
	enc, err := NewEncryptor(EncryptionConfig{Enabled: true, Passphrase: "pw"})
	require.NoError(t, err)

	ct, err := enc.Encrypt([]byte("hello"))
	require.NoError(t, err)
	assert.False(t, bytes.Contains(ct, []byte("hello")))

	pt, err := enc.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(pt))

	_, err = enc.Decrypt([]byte{1, 2})
	assert.Error(t, err)
}

func TestNewEncryptorConfig(t *testing.T) {
	enc, err := NewEncryptor(EncryptionConfig{Enabled: false})
	assert.NoError(t, err)
	assert.Nil(t, enc)

	_, err = NewEncryptor(EncryptionConfig{Enabled: true})
	assert.ErrorIs(t, err, ErrMissingPassphrase)

	_, err = NewEncryptor(EncryptionConfig{Enabled: true, Key: []byte("short")})
	assert.Error(t, err)
}

func TestSnapshotStorePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.snap")
	store, err := NewSnapshotStore(path, false, "")
	require.NoError(t, err)
	assert.False(t, store.Exists())

	require.NoError(t, store.Write([]byte(`{"tables":[]}`)))
	assert.True(t, store.Exists())

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, `{"tables":[]}`, string(got))

	// Overwrite replaces the previous payload.
	require.NoError(t, store.Write([]byte(`{}`)))
	got, err = store.Read()
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))
}

func TestSnapshotStoreEncrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.snap")
	store, err := NewSnapshotStore(path, true, "correct horse")
	require.NoError(t, err)
	require.NoError(t, store.Write([]byte("secret rows")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("secret rows")))

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "secret rows", string(got))

	wrong, err := NewSnapshotStore(path, true, "battery staple")
	require.NoError(t, err)
	_, err = wrong.Read()
	assert.Equal(t, dberrors.ErrCodeSnapshotCorrupted, dberrors.GetCode(err))

	// A store without passphrase can detect but not open the file.
	plain, err := NewSnapshotStore(path, false, "")
	require.NoError(t, err)
	_, err = plain.Read()
	assert.ErrorIs(t, err, ErrMissingPassphrase)
}

func TestSnapshotStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.snap")
	require.NoError(t, os.WriteFile(path, []byte("not a snapshot"), 0644))

	store, err := NewSnapshotStore(path, false, "")
	require.NoError(t, err)
	_, err = store.Read()
	assert.Equal(t, dberrors.ErrCodeSnapshotCorrupted, dberrors.GetCode(err))

	_, err = NewSnapshotStore("", false, "")
	assert.Error(t, err)
	_, err = NewSnapshotStore(path, true, "")
	assert.ErrorIs(t, err, ErrMissingPassphrase)
}
