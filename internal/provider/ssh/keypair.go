// Package ssh generates the deploy keypair an instance uses to fetch private
// repositories.
package ssh

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/ports"
)

// DefaultBits is the RSA modulus size of generated keys.
const DefaultBits = 4096

// File modes of the keypair.
const (
	PrivateKeyMode = 0o600
	PublicKeyMode  = 0o644
)

// KeyPair holds an RSA key pair in ready-to-use formats.
type KeyPair struct {
	// PrivateKey is PEM-encoded PKCS#1.
	PrivateKey []byte
	// PublicKey is in authorized_keys format.
	PublicKey []byte
}

// GenerateKeyPair generates an RSA key pair and labels the public key with
// comment.
func GenerateKeyPair(bits int, comment string) (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA private key: %w", err)
	}
	if err := privateKey.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate RSA private key: %w", err)
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	pub, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	return &KeyPair{
		PrivateKey: privateKeyPEM,
		PublicKey:  authorizedKey(pub, comment),
	}, nil
}

// PublicKeyFor derives the authorized_keys line from an existing private key.
func PublicKeyFor(privateKeyPEM []byte, comment string) ([]byte, error) {
	signer, err := ssh.ParsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return authorizedKey(signer.PublicKey(), comment), nil
}

func authorizedKey(pub ssh.PublicKey, comment string) []byte {
	line := bytes.TrimSuffix(ssh.MarshalAuthorizedKey(pub), []byte("\n"))
	if comment != "" {
		line = append(append(line, ' '), comment...)
	}
	return append(line, '\n')
}

// KeypairStep creates the instance's deploy key under its .ssh directory.
type KeypairStep struct {
	fs       ports.FileSystem
	accounts ports.AccountDirectory
	bits     int
}

// NewKeypairStep creates a new KeypairStep. bits <= 0 means DefaultBits.
func NewKeypairStep(fs ports.FileSystem, accounts ports.AccountDirectory, bits int) *KeypairStep {
	if bits <= 0 {
		bits = DefaultBits
	}
	return &KeypairStep{fs: fs, accounts: accounts, bits: bits}
}

// Describe implements execution.Describer.
func (s *KeypairStep) Describe() string {
	return fmt.Sprintf("generate %d-bit RSA deploy key", s.bits)
}

// Apply keeps an existing private key, regenerating only the public half if
// it went missing, and always re-applies modes and ownership.
func (s *KeypairStep) Apply(rc execution.RunContext) error {
	ctx := rc.Context()
	id := rc.Identity()
	pubPath := id.SSHKeyPath + ".pub"
	comment := id.Name + "@" + id.ServiceName

	acc, err := s.accounts.Lookup(id.Name)
	if err != nil {
		return fmt.Errorf("look up owner %s: %w", id.Name, err)
	}

	var public []byte
	if s.fs.Exists(id.SSHKeyPath) {
		private, err := s.fs.ReadFile(id.SSHKeyPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", id.SSHKeyPath, err)
		}
		public, err = PublicKeyFor(private, comment)
		if err != nil {
			return fmt.Errorf("existing key %s: %w", id.SSHKeyPath, err)
		}
		rc.Logger().Info(ctx, "deploy key already exists", ports.F("path", id.SSHKeyPath))
	} else {
		pair, err := GenerateKeyPair(s.bits, comment)
		if err != nil {
			return err
		}
		if err := s.fs.WriteFileAtomic(id.SSHKeyPath, pair.PrivateKey, PrivateKeyMode); err != nil {
			return fmt.Errorf("write %s: %w", id.SSHKeyPath, err)
		}
		public = pair.PublicKey
		rc.Logger().Info(ctx, "deploy key generated", ports.F("path", id.SSHKeyPath), ports.F("bits", s.bits))
	}

	current, _ := s.fs.ReadFile(pubPath)
	if !bytes.Equal(current, public) {
		if err := s.fs.WriteFileAtomic(pubPath, public, PublicKeyMode); err != nil {
			return fmt.Errorf("write %s: %w", pubPath, err)
		}
	}

	for _, f := range []struct {
		path string
		mode os.FileMode
	}{
		{id.SSHKeyPath, PrivateKeyMode},
		{pubPath, PublicKeyMode},
	} {
		if err := s.fs.Chmod(f.path, f.mode); err != nil {
			return fmt.Errorf("chmod %s: %w", f.path, err)
		}
		if err := s.fs.Chown(f.path, acc.UID, acc.GID); err != nil {
			return fmt.Errorf("chown %s: %w", f.path, err)
		}
	}

	rc.Logger().Info(ctx, "add this deploy key to the addons repository",
		ports.F("public_key", string(bytes.TrimSpace(public))))
	return nil
}
