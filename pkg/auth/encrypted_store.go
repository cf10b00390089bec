package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// EnvPassphrase overrides the generated passphrase of the token file.
const EnvPassphrase = "TWITSENT_PASSPHRASE"

const (
	tokenFileVersion = 2
	passphraseFile   = ".passphrase"

	saltSize       = 16
	keySize        = 32
	kdfIterations  = 210000
	passphraseSize = 32
)

// tokenFile is the on-disk envelope. Sealed holds the GCM nonce followed by
// the encrypted JSON map of credentials by name.
type tokenFile struct {
	Version int       `json:"version"`
	Salt    []byte    `json:"salt"`
	Sealed  []byte    `json:"sealed"`
	Written time.Time `json:"written"`
}

// EncryptedFileStore keeps bearer tokens in one AES-GCM sealed file whose key
// is derived from a passphrase with PBKDF2
type EncryptedFileStore struct {
	path       string
	passphrase []byte
	mu         sync.RWMutex
}

// NewEncryptedFileStore opens the token file at path. The passphrase comes
// from TWITSENT_PASSPHRASE, or from a .passphrase file next to path that is
// generated on first use.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating token directory: %w", err)
	}

	pass, err := loadPassphrase(dir)
	if err != nil {
		return nil, err
	}
	return &EncryptedFileStore{path: path, passphrase: pass}, nil
}

func loadPassphrase(dir string) ([]byte, error) {
	if pass := os.Getenv(EnvPassphrase); pass != "" {
		return []byte(pass), nil
	}

	path := filepath.Join(dir, passphraseFile)
	if pass, err := os.ReadFile(path); err == nil && len(pass) > 0 {
		return pass, nil
	}

	pass := make([]byte, passphraseSize)
	if _, err := rand.Read(pass); err != nil {
		return nil, fmt.Errorf("generating passphrase: %w", err)
	}
	if err := os.WriteFile(path, pass, 0o600); err != nil {
		return nil, fmt.Errorf("saving passphrase: %w", err)
	}
	return pass, nil
}

// Store adds or replaces the token saved under cred.Name.
func (e *EncryptedFileStore) Store(cred *Credential) error {
	if cred == nil || cred.Name == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(tokens map[string]Credential) error {
		tokens[cred.Name] = *cred
		return nil
	})
}

// Retrieve returns the token saved under name.
func (e *EncryptedFileStore) Retrieve(name string) (*Credential, error) {
	if name == "" {
		return nil, ErrInvalidCredentials
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	tokens, err := e.read()
	if err != nil {
		return nil, err
	}
	cred, ok := tokens[name]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &cred, nil
}

// List returns every saved token sorted by name.
func (e *EncryptedFileStore) List() ([]*Credential, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tokens, err := e.read()
	if err != nil {
		return nil, err
	}
	creds := make([]*Credential, 0, len(tokens))
	for _, cred := range tokens {
		c := cred
		creds = append(creds, &c)
	}
	sort.Slice(creds, func(i, j int) bool { return creds[i].Name < creds[j].Name })
	return creds, nil
}

// Delete removes the token saved under name. The file goes away with the
// last token.
func (e *EncryptedFileStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(tokens map[string]Credential) error {
		if _, ok := tokens[name]; !ok {
			return ErrCredentialsNotFound
		}
		delete(tokens, name)
		return nil
	})
}

// Exists reports whether a token is saved under name.
func (e *EncryptedFileStore) Exists(name string) bool {
	cred, err := e.Retrieve(name)
	return err == nil && cred != nil
}

// update applies fn to the decrypted tokens and writes the result back.
func (e *EncryptedFileStore) update(fn func(map[string]Credential) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tokens, err := e.read()
	if err != nil {
		return err
	}
	if err := fn(tokens); err != nil {
		return err
	}
	if len(tokens) == 0 {
		if err := os.Remove(e.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing token file: %w", err)
		}
		return nil
	}
	return e.write(tokens)
}

// read returns an empty map when the file does not exist yet.
func (e *EncryptedFileStore) read() (map[string]Credential, error) {
	raw, err := os.ReadFile(e.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Credential{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	var file tokenFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing token file: %w", err)
	}
	plain, err := open(e.key(file.Salt), file.Sealed)
	if err != nil {
		return nil, fmt.Errorf("decrypting token file (wrong passphrase?): %w", err)
	}

	tokens := map[string]Credential{}
	if err := json.Unmarshal(plain, &tokens); err != nil {
		return nil, fmt.Errorf("parsing tokens: %w", err)
	}
	return tokens, nil
}

// write seals tokens under a fresh salt and replaces the file atomically.
func (e *EncryptedFileStore) write(tokens map[string]Credential) error {
	plain, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encoding tokens: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}
	sealed, err := seal(e.key(salt), plain)
	if err != nil {
		return fmt.Errorf("encrypting tokens: %w", err)
	}

	raw, err := json.MarshalIndent(tokenFile{
		Version: tokenFileVersion,
		Salt:    salt,
		Sealed:  sealed,
		Written: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token file: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmp, e.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}

func (e *EncryptedFileStore) key(salt []byte) []byte {
	return pbkdf2.Key(e.passphrase, salt, kdfIterations, keySize, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func seal(key, plain []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func open(key, sealed []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("sealed data too short")
	}
	nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
