package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/clubsync/go-club-client/internal/errors"
)

const (
	credentialsFile = "credentials.json"
	keyFile         = "credentials.key"

	storeSchemaVersion = 1
)

// storedCredentials is the on-disk envelope. The token pair itself is sealed
// with XChaCha20-Poly1305 so tokens are never plaintext on disk.
type storedCredentials struct {
	SchemaVersion int    `json:"schemaVersion"`
	Sealed        string `json:"sealed"`
}

var _ Store = (*FileStore)(nil)

// FileStore persists the token pair as a sealed JSON file inside a data
// folder. Writes go through a temp file and rename, so a reader never
// observes half a pair.
type FileStore struct {
	path string
	key  []byte
}

// NewFileStore creates the data folder if needed and loads (or generates)
// the sealing key stored next to the credentials file.
func NewFileStore(folder string) (*FileStore, error) {
	if folder == "" {
		return nil, fmt.Errorf("[NewFileStore] folder is required")
	}
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrapf(err, "[NewFileStore] create folder")
	}
	key, err := loadOrCreateKey(filepath.Join(folder, keyFile))
	if err != nil {
		return nil, err
	}
	return &FileStore{
		path: filepath.Join(folder, credentialsFile),
		key:  key,
	}, nil
}

func (fs *FileStore) Save(pair TokenPair) error {
	if !pair.Complete() {
		return fmt.Errorf("[FileStore.Save] refusing to store a partial token pair")
	}
	plaintext, err := json.Marshal(pair)
	if err != nil {
		return errors.Wrapf(err, "[FileStore.Save] marshal pair")
	}
	sealed, err := fs.seal(plaintext)
	if err != nil {
		return err
	}
	envelope, err := json.MarshalIndent(storedCredentials{
		SchemaVersion: storeSchemaVersion,
		Sealed:        sealed,
	}, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "[FileStore.Save] marshal envelope")
	}
	envelope = append(envelope, '\n')

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, envelope, 0o600); err != nil {
		return errors.Wrapf(err, "[FileStore.Save] write temp file")
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return errors.Wrapf(err, "[FileStore.Save] rename")
	}
	return nil
}

// Load returns the stored pair, or nil when no complete pair is present.
// A corrupt or partial file is treated as absent rather than an error: the
// caller's recovery in both cases is a fresh login.
func (fs *FileStore) Load() (*TokenPair, error) {
	raw, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "[FileStore.Load] read file")
	}
	var envelope storedCredentials
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, nil
	}
	plaintext, err := fs.open(envelope.Sealed)
	if err != nil {
		return nil, nil
	}
	var pair TokenPair
	if err := json.Unmarshal(plaintext, &pair); err != nil {
		return nil, nil
	}
	if !pair.Complete() {
		return nil, nil
	}
	return &pair, nil
}

// Clear removes the stored pair. The credentials live in a single file, so
// both tokens disappear together. Safe to call when nothing is stored.
func (fs *FileStore) Clear() error {
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "[FileStore.Clear] remove file")
	}
	return nil
}

func (fs *FileStore) seal(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(fs.key)
	if err != nil {
		return "", errors.Wrapf(err, "[FileStore] create cipher")
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrapf(err, "[FileStore] generate nonce")
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (fs *FileStore) open(sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, errors.Wrapf(err, "[FileStore] decode sealed payload")
	}
	aead, err := chacha20poly1305.NewX(fs.key)
	if err != nil {
		return nil, errors.Wrapf(err, "[FileStore] create cipher")
	}
	if len(raw) < aead.NonceSize() {
		return nil, fmt.Errorf("[FileStore] sealed payload too short")
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[FileStore] open sealed payload")
	}
	return plaintext, nil
}

func loadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil && len(key) == chacha20poly1305.KeySize {
		return key, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "[FileStore] read key file")
	}
	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Wrapf(err, "[FileStore] generate key")
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, errors.Wrapf(err, "[FileStore] write key file")
	}
	return key, nil
}
