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

/*
Package storage holds the persistence helpers of RegretDB: TEXT collations,
snapshot encryption and the snapshot file store.

Encryption Overview:
====================

Snapshots can be encrypted with AES-256-GCM:
  - Confidentiality: the catalog is unreadable without the passphrase
  - Integrity: GCM authenticates the payload, so a wrong passphrase or a
    tampered file is detected on load
  - Each snapshot write uses a fresh random nonce

Key Management:
===============

The key is either given directly (32 bytes) or derived from a passphrase with
PBKDF2-SHA256. Snapshot files store a random per-file salt next to the
ciphertext so that the same passphrase yields different keys per file.
*/
package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// EncryptionConfig holds the configuration for snapshot encryption.
type EncryptionConfig struct {
	// Enabled indicates whether encryption is enabled.
	Enabled bool

	// Key is the 32-byte AES-256 encryption key.
	// If empty and Passphrase is set, the key is derived from the passphrase.
	Key []byte

	// Passphrase is used to derive the encryption key if Key is not set.
	Passphrase string

	// Salt is used for key derivation from passphrase.
	Salt []byte
}

// DefaultSalt is used when no salt is provided for key derivation.
var DefaultSalt = []byte("regretdb-default-salt-v1")

// KeyDerivationIterations is the number of PBKDF2 iterations.
const KeyDerivationIterations = 100000

// SaltSize is the length of the random salt stored in encrypted snapshots.
const SaltSize = 16

// ErrMissingPassphrase is returned when encryption is enabled without key material.
var ErrMissingPassphrase = errors.New("encryption enabled but no key or passphrase provided")

// Encryptor provides encryption and decryption of snapshot payloads.
type Encryptor struct {
	gcm cipher.AEAD
}

// NewEncryptor creates a new Encryptor with the given configuration.
// Returns nil, nil if encryption is disabled.
func NewEncryptor(config EncryptionConfig) (*Encryptor, error) {
	if !config.Enabled {
		return nil, nil
	}

	key := config.Key
	if len(key) == 0 {
		if config.Passphrase == "" {
			return nil, ErrMissingPassphrase
		}
		salt := config.Salt
		if len(salt) == 0 {
			salt = DefaultSalt
		}
		key = DeriveKey(config.Passphrase, salt)
	}

	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes (256 bits)")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Encryptor{gcm: gcm}, nil
}

// DeriveKey derives a 32-byte key from a passphrase using PBKDF2-SHA256.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, KeyDerivationIterations, 32, sha256.New)
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Encrypt encrypts the plaintext using AES-256-GCM.
// The nonce is prepended to the ciphertext.
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return e.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts the ciphertext using AES-256-GCM.
// Expects the nonce to be prepended to the ciphertext.
func (e *Encryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < e.gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:e.gcm.NonceSize()]
	ciphertext = ciphertext[e.gcm.NonceSize():]

	return e.gcm.Open(nil, nonce, ciphertext, nil)
}
