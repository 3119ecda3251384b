package credential

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	secret := "sk-abc123-very-secret-key"
	stored, err := m.Encrypt(secret)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if !strings.HasPrefix(stored, EncryptedPrefix) {
		t.Errorf("expected encrypted prefix, got %q", stored)
	}
	if strings.Contains(stored, secret) {
		t.Error("ciphertext leaks plaintext")
	}

	plain, err := m.Decrypt(stored)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if plain != secret {
		t.Errorf("round trip mismatch: got %q", plain)
	}
}

func TestEncryptEmpty(t *testing.T) {
	m, _ := NewManager()
	stored, err := m.Encrypt("")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if stored != "" {
		t.Errorf("expected empty output for empty input, got %q", stored)
	}
}

func TestDecryptPassthrough(t *testing.T) {
	m, _ := NewManager()
	// Plain values without the prefix are returned unchanged.
	plain, err := m.Decrypt("not-encrypted-value")
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if plain != "not-encrypted-value" {
		t.Errorf("expected passthrough, got %q", plain)
	}
}

func TestDecryptInvalid(t *testing.T) {
	m, _ := NewManager()

	if _, err := m.Decrypt(EncryptedPrefix + "!!!not-base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := m.Decrypt(EncryptedPrefix + "QQ=="); err == nil {
		t.Error("expected error for too-short ciphertext")
	}
	if _, err := m.Decrypt(EncryptedPrefix + "QUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQQ=="); err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}

func TestEncryptNondeterministic(t *testing.T) {
	m, _ := NewManager()
	a, _ := m.Encrypt("same input")
	b, _ := m.Encrypt("same input")
	if a == b {
		t.Error("expected distinct ciphertexts (random nonce)")
	}
}

func TestIsEncrypted(t *testing.T) {
	if !IsEncrypted(EncryptedPrefix + "abc") {
		t.Error("expected prefixed value to be encrypted")
	}
	if IsEncrypted("plain") {
		t.Error("expected plain value to not be encrypted")
	}
}

func TestIsSensitiveKey(t *testing.T) {
	sensitive := []string{"openai.api_key", "SERPAPI_API_KEY", "db_password", "oauth_token", "client_secret"}
	for _, k := range sensitive {
		if !IsSensitiveKey(k) {
			t.Errorf("expected %q to be sensitive", k)
		}
	}
	plain := []string{"database_url", "embedding_path", "verbose"}
	for _, k := range plain {
		if IsSensitiveKey(k) {
			t.Errorf("expected %q to be plain", k)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret("short"); got != "****" {
		t.Errorf("expected '****', got %q", got)
	}
	if got := MaskSecret("sk-abcdefghijklmnop"); got != "sk-a...mnop" {
		t.Errorf("unexpected mask: %q", got)
	}
}
