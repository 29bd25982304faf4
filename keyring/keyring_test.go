package keyring

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFileValidatesConfig(t *testing.T) {
	if _, err := NewFile(Config{}); err == nil {
		t.Fatal("expected error for missing dir")
	}
	if _, err := NewFile(Config{Dir: t.TempDir(), Bits: 1024}); err == nil {
		t.Fatal("expected error for undersized key")
	}
}

func TestFileGeneratesAndPersists(t *testing.T) {
	dir := t.TempDir()

	ring, err := NewFile(Config{Dir: dir})
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	priv, err := ring.Signer()
	if err != nil {
		t.Fatalf("Signer failed: %v", err)
	}
	pub, err := ring.Verifier()
	if err != nil {
		t.Fatalf("Verifier failed: %v", err)
	}
	if priv.N.Cmp(pub.N) != 0 {
		t.Fatal("signer and verifier do not match")
	}
	if priv.N.BitLen() < MinBits {
		t.Fatalf("generated key is %d bits", priv.N.BitLen())
	}

	for _, name := range []string{privateKeyFile, publicKeyFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s on disk: %v", name, err)
		}
	}

	// A second ring over the same directory must load, not regenerate.
	reloaded, err := NewFile(Config{Dir: dir})
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	loaded, err := reloaded.Signer()
	if err != nil {
		t.Fatalf("Signer failed: %v", err)
	}
	if loaded.N.Cmp(priv.N) != 0 {
		t.Fatal("expected persisted key to be reused")
	}
}

func TestFileRejectsCorruptKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, privateKeyFile)
	if err := os.WriteFile(path, []byte("not a pem"), 0o600); err != nil {
		t.Fatalf("seed corrupt key: %v", err)
	}

	ring, err := NewFile(Config{Dir: dir})
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	if _, err := ring.Signer(); err == nil {
		t.Fatal("expected error for corrupt key file")
	}
}

func TestEphemeralProvider(t *testing.T) {
	if _, err := NewEphemeral(512); err == nil {
		t.Fatal("expected error for undersized key")
	}

	ring, err := NewEphemeral(MinBits)
	if err != nil {
		t.Fatalf("NewEphemeral failed: %v", err)
	}
	priv, err := ring.Signer()
	if err != nil {
		t.Fatalf("Signer failed: %v", err)
	}
	pub, err := ring.Verifier()
	if err != nil {
		t.Fatalf("Verifier failed: %v", err)
	}
	if priv.N.Cmp(pub.N) != 0 {
		t.Fatal("signer and verifier do not match")
	}
}

func TestStaticNilGuards(t *testing.T) {
	var empty Static
	if _, err := empty.Signer(); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := empty.Verifier(); err == nil {
		t.Fatal("expected error for missing key")
	}
}
