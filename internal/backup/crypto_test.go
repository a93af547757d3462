package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestGenerateSaltIsRandom(t *testing.T) {
	a, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if len(a) != saltSize {
		t.Errorf("salt length = %d, want %d", len(a), saltSize)
	}

	b, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("consecutive salts should differ")
	}
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("0123456789abcdef")

	key := DeriveKey("companion-backup", salt)
	if len(key) != keySize {
		t.Fatalf("key length = %d, want %d", len(key), keySize)
	}
	if !bytes.Equal(key, DeriveKey("companion-backup", salt)) {
		t.Error("same passphrase and salt should derive the same key")
	}
	if bytes.Equal(key, DeriveKey("other-passphrase", salt)) {
		t.Error("different passphrases should derive different keys")
	}
	if bytes.Equal(key, DeriveKey("companion-backup", []byte("fedcba9876543210"))) {
		t.Error("different salts should derive different keys")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := []byte("sqlite payload: reminders, pets, appointments")
	src := writeTemp(t, dir, "companion.db", original)
	enc := filepath.Join(dir, "companion.db.enc")
	dec := filepath.Join(dir, "restored.db")

	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if err := EncryptFile(src, enc, "hunter2", salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	encrypted, err := os.ReadFile(enc)
	if err != nil {
		t.Fatalf("read encrypted: %v", err)
	}
	if !bytes.Equal(encrypted[:saltSize], salt) {
		t.Error("encrypted file should begin with the salt")
	}
	if bytes.Contains(encrypted, original) {
		t.Error("plaintext leaked into encrypted output")
	}

	if err := DecryptFile(enc, dec, "hunter2"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	restored, err := os.ReadFile(dec)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if !bytes.Equal(restored, original) {
		t.Error("restored content does not match original")
	}
}

func TestEncryptEmptyFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := writeTemp(t, dir, "empty.db", nil)
	enc := filepath.Join(dir, "empty.db.enc")
	dec := filepath.Join(dir, "empty-restored.db")

	salt, _ := GenerateSalt()
	if err := EncryptFile(src, enc, "hunter2", salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if err := DecryptFile(enc, dec, "hunter2"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	restored, _ := os.ReadFile(dec)
	if len(restored) != 0 {
		t.Errorf("restored %d bytes, want 0", len(restored))
	}
}

func TestDecryptFailures(t *testing.T) {
	dir := t.TempDir()
	src := writeTemp(t, dir, "companion.db", []byte("secret rows"))
	enc := filepath.Join(dir, "companion.db.enc")

	salt, _ := GenerateSalt()
	if err := EncryptFile(src, enc, "hunter2", salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	tests := []struct {
		name    string
		prepare func(t *testing.T) string
		pass    string
	}{
		{
			name:    "wrong passphrase",
			prepare: func(t *testing.T) string { return enc },
			pass:    "hunter3",
		},
		{
			name: "tampered ciphertext",
			prepare: func(t *testing.T) string {
				data, err := os.ReadFile(enc)
				if err != nil {
					t.Fatalf("read encrypted: %v", err)
				}
				data[len(data)-1] ^= 0xFF
				return writeTemp(t, dir, "tampered.db.enc", data)
			},
			pass: "hunter2",
		},
		{
			name: "truncated file",
			prepare: func(t *testing.T) string {
				return writeTemp(t, dir, "short.db.enc", []byte("short"))
			},
			pass: "hunter2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.prepare(t)
			if err := DecryptFile(path, filepath.Join(dir, "out.db"), tt.pass); err == nil {
				t.Fatal("expected decrypt to fail")
			}
		})
	}
}
