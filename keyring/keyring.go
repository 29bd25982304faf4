package keyring

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

const (
	privateKeyFile = "jwt_private.pem"
	publicKeyFile  = "jwt_public.pem"

	// MinBits is the smallest keypair the ring will generate or load.
	MinBits = 2048
)

// Provider supplies the signing and verification keys. Implementations
// must be safe for concurrent use; the engine calls Signer and Verifier
// on every token operation.
type Provider interface {
	Signer() (*rsa.PrivateKey, error)
	Verifier() (*rsa.PublicKey, error)
}

// Config controls the File provider.
type Config struct {
	// Dir is where the PEM pair lives. Created if absent.
	Dir string

	// Bits is the RSA modulus size for generated keys. Defaults to
	// MinBits; values below it are rejected.
	Bits int
}

// File is a Provider that loads the keypair from disk, generating and
// persisting one on first use. Initialization happens at most once per
// process; concurrent first callers share the same result.
type File struct {
	config Config

	once sync.Once
	priv *rsa.PrivateKey
	pub  *rsa.PublicKey
	err  error
}

// NewFile returns a File provider rooted at cfg.Dir. No I/O happens
// until the first Signer or Verifier call.
func NewFile(cfg Config) (*File, error) {
	if cfg.Dir == "" {
		return nil, errors.New("keyring: dir is required")
	}
	if cfg.Bits == 0 {
		cfg.Bits = MinBits
	}
	if cfg.Bits < MinBits {
		return nil, fmt.Errorf("keyring: key size %d below minimum %d", cfg.Bits, MinBits)
	}
	return &File{config: cfg}, nil
}

// Signer returns the private key, initializing the keypair if needed.
func (f *File) Signer() (*rsa.PrivateKey, error) {
	f.init()
	return f.priv, f.err
}

// Verifier returns the public key, initializing the keypair if needed.
func (f *File) Verifier() (*rsa.PublicKey, error) {
	f.init()
	return f.pub, f.err
}

func (f *File) init() {
	f.once.Do(func() {
		f.priv, f.pub, f.err = f.loadOrGenerate()
	})
}

func (f *File) loadOrGenerate() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privPath := filepath.Join(f.config.Dir, privateKeyFile)
	pubPath := filepath.Join(f.config.Dir, publicKeyFile)

	priv, err := loadPrivatePEM(privPath)
	switch {
	case err == nil:
		if priv.N.BitLen() < MinBits {
			return nil, nil, fmt.Errorf("keyring: persisted key is %d bits, below minimum %d", priv.N.BitLen(), MinBits)
		}
		return priv, &priv.PublicKey, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, nil, err
	}

	if err := os.MkdirAll(f.config.Dir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("keyring: create dir: %w", err)
	}

	generated, err := rsa.GenerateKey(rand.Reader, f.config.Bits)
	if err != nil {
		return nil, nil, fmt.Errorf("keyring: generate keypair: %w", err)
	}

	if err := writePrivatePEM(privPath, generated); err != nil {
		if errors.Is(err, os.ErrExist) {
			// Another process won the generation race; use its key.
			priv, rerr := loadPrivatePEM(privPath)
			if rerr != nil {
				return nil, nil, rerr
			}
			return priv, &priv.PublicKey, nil
		}
		return nil, nil, err
	}

	if err := writePublicPEM(pubPath, &generated.PublicKey); err != nil {
		return nil, nil, err
	}

	return generated, &generated.PublicKey, nil
}

func loadPrivatePEM(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("keyring: parse private key: %w", err)
	}
	return priv, nil
}

func writePrivatePEM(path string, key *rsa.PrivateKey) error {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("keyring: marshal private key: %w", err)
	}

	// O_EXCL makes concurrent first-time initializers across processes
	// collide here instead of clobbering each other's keys.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}

	err = pem.Encode(file, &pem.Block{Type: "PRIVATE KEY", Bytes: der})
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("keyring: write private key: %w", err)
	}
	return nil
}

func writePublicPEM(path string, key *rsa.PublicKey) error {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return fmt.Errorf("keyring: marshal public key: %w", err)
	}

	encoded := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("keyring: write public key: %w", err)
	}
	return nil
}

// Static is a Provider over a fixed in-memory keypair.
type Static struct {
	priv *rsa.PrivateKey
}

// NewStatic wraps an existing private key.
func NewStatic(priv *rsa.PrivateKey) *Static {
	return &Static{priv: priv}
}

// NewEphemeral generates a throwaway keypair, mainly for tests.
func NewEphemeral(bits int) (*Static, error) {
	if bits < MinBits {
		return nil, fmt.Errorf("keyring: key size %d below minimum %d", bits, MinBits)
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &Static{priv: priv}, nil
}

func (s *Static) Signer() (*rsa.PrivateKey, error) {
	if s == nil || s.priv == nil {
		return nil, errors.New("keyring: no private key")
	}
	return s.priv, nil
}

func (s *Static) Verifier() (*rsa.PublicKey, error) {
	if s == nil || s.priv == nil {
		return nil, errors.New("keyring: no private key")
	}
	return &s.priv.PublicKey, nil
}
