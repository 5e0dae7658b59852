package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyIterations = 1000
	keyLength     = 32
	signSalt      = "signed cookie"
	encryptSalt   = "encrypted cookie"
)

// KeyGenerator derives per-cookie keys from the secret key base. Derived keys are cached,
// so deriving the same key twice is cheap.
type KeyGenerator struct {
	secret []byte
	cache  sync.Map
}

func NewKeyGenerator(secretKeyBase string) *KeyGenerator {
	return &KeyGenerator{secret: []byte(secretKeyBase)}
}

// Generate derives a key for the salt with PBKDF2-SHA256.
func (k *KeyGenerator) Generate(salt string) ([]byte, error) {
	if k == nil || len(k.secret) == 0 {
		return nil, ErrNoSecret
	}

	if key, ok := k.cache.Load(salt); ok {
		return key.([]byte), nil
	}

	key := pbkdf2.Key(k.secret, []byte(salt), keyIterations, keyLength, sha256.New)
	k.cache.Store(salt, key)
	return key, nil
}

// Sign returns the value together with its HMAC-SHA256 signature. The key is derived
// from the cookie name.
func (k *KeyGenerator) Sign(name, value string) (string, error) {
	key, err := k.Generate(name + " " + signSalt)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString([]byte(value)) + "." + signature(key, value), nil
}

// Verify checks the signature produced by Sign and returns the original value.
func (k *KeyGenerator) Verify(name, signed string) (string, error) {
	key, err := k.Generate(name + " " + signSalt)
	if err != nil {
		return "", err
	}

	encoded, sig, found := strings.Cut(signed, ".")
	if !found {
		return "", ErrInvalidFormat
	}

	value, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidFormat
	}

	expected := signature(key, string(value))
	if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
		return "", ErrInvalidSignature
	}

	return string(value), nil
}

// Encrypt seals the value with AES-256-GCM. The key is derived from the cookie name.
func (k *KeyGenerator) Encrypt(name, value string) (string, error) {
	gcm, err := k.aead(name)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(value), []byte(name))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens the value produced by Encrypt.
func (k *KeyGenerator) Decrypt(name, encrypted string) (string, error) {
	gcm, err := k.aead(name)
	if err != nil {
		return "", err
	}

	sealed, err := base64.RawURLEncoding.DecodeString(encrypted)
	if err != nil || len(sealed) < gcm.NonceSize() {
		return "", ErrInvalidFormat
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(name))
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

func (k *KeyGenerator) aead(name string) (cipher.AEAD, error) {
	key, err := k.Generate(name + " " + encryptSalt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}

func signature(key []byte, value string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
