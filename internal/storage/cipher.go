package storage

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// DefaultPassphrase is the static key the browser client has always used to
// obscure persisted state. It hides plaintext JSON from casual inspection and
// nothing more.
const DefaultPassphrase = "jobboard::persisted-state::v1"

const (
	saltedPrefix = "Salted__"
	saltLen      = 8
	keyLen       = 32
)

// ErrCorrupt is returned when a stored value cannot be decoded.
var ErrCorrupt = errors.New("storage: corrupt value")

// Cipher reads and writes the OpenSSL "salted" format produced by
// CryptoJS.AES.encrypt(text, passphrase): AES-256-CBC with the key and IV
// derived through EVP_BytesToKey (MD5, one round).
type Cipher struct {
	passphrase []byte
}

func NewCipher(passphrase string) *Cipher {
	if passphrase == "" {
		passphrase = DefaultPassphrase
	}
	return &Cipher{passphrase: []byte(passphrase)}
}

// Encrypt returns the base64 encoded, salted ciphertext of plaintext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return c.encryptWithSalt(plaintext, salt)
}

func (c *Cipher) encryptWithSalt(plaintext string, salt []byte) (string, error) {
	key, iv := deriveKeyIV(c.passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(saltedPrefix)+saltLen+len(padded))
	copy(out, saltedPrefix)
	copy(out[len(saltedPrefix):], salt)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[len(saltedPrefix)+saltLen:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Any malformed input yields ErrCorrupt.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	header := len(saltedPrefix) + saltLen
	if len(raw) <= header || !bytes.HasPrefix(raw, []byte(saltedPrefix)) {
		return "", fmt.Errorf("%w: missing salt header", ErrCorrupt)
	}
	body := raw[header:]
	if len(body)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not block aligned", ErrCorrupt)
	}

	key, iv := deriveKeyIV(c.passphrase, raw[len(saltedPrefix):header])
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// deriveKeyIV is OpenSSL's EVP_BytesToKey with MD5 and a single iteration.
func deriveKeyIV(passphrase, salt []byte) (key, iv []byte) {
	var derived, prev []byte
	for len(derived) < keyLen+aes.BlockSize {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+aes.BlockSize]
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("%w: bad padding", ErrCorrupt)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrCorrupt)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrCorrupt)
		}
	}
	return b[:len(b)-n], nil
}
