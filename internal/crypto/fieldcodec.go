// Package crypto provides the field codec used to encrypt personal data
// (names, phone numbers) before it reaches the database. Encryption is an
// explicit step at the persistence boundary rather than implicit model
// magic, so decode failures surface as errors instead of silent nulls.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Errors returned by the codec. ErrCiphertext covers every malformed-input
// case: bad hex, missing separator, truncated blocks or broken padding.
var (
	ErrKeySize    = errors.New("field key must be 32 bytes")
	ErrCiphertext = errors.New("malformed field ciphertext")
)

// FieldCodec encrypts and decrypts individual column values with
// AES-256-CBC. The wire format is "ivhex:cipherhex", matching the layout
// already present in existing database rows.
type FieldCodec struct {
	key []byte
}

// NewFieldCodec builds a codec from a 32-byte key.
func NewFieldCodec(key string) (*FieldCodec, error) {
	if len(key) != 32 {
		return nil, ErrKeySize
	}
	return &FieldCodec{key: []byte(key)}, nil
}

// Encrypt returns the encrypted form of plain. Empty input stays empty so
// optional columns round-trip without bogus ciphertext.
func (c *FieldCodec) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Empty input stays empty.
func (c *FieldCodec) Decrypt(enc string) (string, error) {
	if enc == "" {
		return "", nil
	}
	ivHex, dataHex, ok := strings.Cut(enc, ":")
	if !ok {
		return "", ErrCiphertext
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrCiphertext
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", ErrCiphertext
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", ErrCiphertext
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("bad padded length %d", len(b))
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, fmt.Errorf("bad padding byte %d", n)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("inconsistent padding")
		}
	}
	return b[:len(b)-n], nil
}
