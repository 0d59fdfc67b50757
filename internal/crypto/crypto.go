// Package crypto provides at-rest encryption for the remote service key
// persisted in the local settings table. Uses AES-256-GCM keyed off a
// machine-specific identifier, so a copied database file does not leak
// usable credentials.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"strings"
)

var (
	// ErrInvalidCiphertext is returned when decryption fails.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	// ErrInvalidKey is returned when the key is invalid.
	ErrInvalidKey = errors.New("invalid key")
)

// Encrypt encrypts plaintext using AES-256-GCM. The key is derived from
// the input using SHA-256; the random nonce is prepended to the sealed
// payload and the whole thing base64-encoded for storage.
func Encrypt(plaintext, key []byte) (string, error) {
	derivedKey := sha256.Sum256(key)

	block, err := aes.NewCipher(derivedKey[:])
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts ciphertext that was encrypted with Encrypt.
func Decrypt(ciphertext string, key []byte) ([]byte, error) {
	derivedKey := sha256.Sum256(key)

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(derivedKey[:])
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrInvalidCiphertext
	}

	nonce, cipherData := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, cipherData, nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}

	return plaintext, nil
}

// EncryptString encrypts a string to a base64-encoded string.
func EncryptString(plaintext, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	return Encrypt([]byte(plaintext), []byte(key))
}

// DecryptString decrypts a base64-encoded string to a string.
func DecryptString(ciphertext, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	plaintext, err := Decrypt(ciphertext, []byte(key))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// MachineID returns a stable identifier for this kiosk machine. Reads
// /etc/machine-id (systemd) or the dbus machine-id, falling back to the
// hostname.
func MachineID() string {
	if data, err := os.ReadFile("/etc/machine-id"); err == nil {
		return strings.TrimSpace(string(data))
	}
	if data, err := os.ReadFile("/var/lib/dbus/machine-id"); err == nil {
		return strings.TrimSpace(string(data))
	}
	hostname, _ := os.Hostname()
	return hostname
}

// machineKey derives a consistent encryption key from a machine
// identifier.
func machineKey(machineID string) []byte {
	if machineID == "" {
		machineID = "kiosk-default-key"
	}
	hash := sha256.Sum256([]byte("ctu-kiosk:" + machineID))
	return hash[:]
}

// EncryptRemoteKey encrypts the remote service key for storage in the
// settings table.
func EncryptRemoteKey(remoteKey, machineID string) (string, error) {
	if remoteKey == "" {
		return "", ErrInvalidKey
	}
	return EncryptString(remoteKey, string(machineKey(machineID)))
}

// DecryptRemoteKey decrypts a stored remote service key. An empty
// stored value means no key is configured.
func DecryptRemoteKey(encrypted, machineID string) (string, error) {
	if encrypted == "" {
		return "", nil
	}
	return DecryptString(encrypted, string(machineKey(machineID)))
}
