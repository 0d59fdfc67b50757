// Package crypto tests for credential encryption.
package crypto

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := "service-role-key-abc123"

	encrypted, err := EncryptString(plaintext, "machine-key")
	if err != nil {
		t.Fatalf("EncryptString failed: %v", err)
	}
	if encrypted == plaintext {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := DecryptString(encrypted, "machine-key")
	if err != nil {
		t.Fatalf("DecryptString failed: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("round trip = %q, want %q", decrypted, plaintext)
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	encrypted, err := EncryptString("secret", "key-a")
	if err != nil {
		t.Fatalf("EncryptString failed: %v", err)
	}

	if _, err := DecryptString(encrypted, "key-b"); err == nil {
		t.Error("decryption with wrong key should fail")
	}
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	a, err := EncryptString("same", "key")
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncryptString("same", "key")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical output; nonce not random")
	}
}

func TestEmptyKeyRejected(t *testing.T) {
	if _, err := EncryptString("secret", ""); err != ErrInvalidKey {
		t.Errorf("EncryptString with empty key = %v, want ErrInvalidKey", err)
	}
	if _, err := DecryptString("abc", ""); err != ErrInvalidKey {
		t.Errorf("DecryptString with empty key = %v, want ErrInvalidKey", err)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	if _, err := DecryptString("not-base64!!!", "key"); err == nil {
		t.Error("garbage ciphertext should fail")
	}
	if _, err := DecryptString("YWJj", "key"); err == nil {
		t.Error("too-short ciphertext should fail")
	}
}

func TestRemoteKeyRoundTrip(t *testing.T) {
	encrypted, err := EncryptRemoteKey("remote-secret", "machine-1")
	if err != nil {
		t.Fatalf("EncryptRemoteKey failed: %v", err)
	}

	got, err := DecryptRemoteKey(encrypted, "machine-1")
	if err != nil {
		t.Fatalf("DecryptRemoteKey failed: %v", err)
	}
	if got != "remote-secret" {
		t.Errorf("round trip = %q, want remote-secret", got)
	}

	// Empty stored value means unconfigured, not an error.
	got, err = DecryptRemoteKey("", "machine-1")
	if err != nil || got != "" {
		t.Errorf("DecryptRemoteKey(\"\") = %q, %v; want empty, nil", got, err)
	}
}

func TestMachineIDNonEmpty(t *testing.T) {
	id := MachineID()
	if strings.TrimSpace(id) == "" {
		t.Error("MachineID returned empty identifier")
	}
}
