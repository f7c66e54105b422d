// Package accounts — crypto.go шифрует пароли аккаунтов.
// Ключ выводится из BOOST_ENCRYPTION_KEY через Argon2id,
// сам шифр — XChaCha20-Poly1305.
package accounts

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Фиксированная соль: ключ должен выводиться одинаково при каждом запуске
var keySalt = []byte("eza-post/boost-accounts/v1")

// Параметры Argon2id
const (
	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 2
)

// Cipher шифрует и расшифровывает пароли.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher создаёт шифратор из секрета.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("пустой ключ шифрования")
	}
	key := argon2.IDKey([]byte(secret), keySalt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации шифра: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt возвращает base64(nonce || ciphertext).
func (c *Cipher) Encrypt(plain string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt расшифровывает строку, полученную из Encrypt.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("ошибка декодирования пароля: %w", err)
	}
	if len(raw) < c.aead.NonceSize() {
		return "", fmt.Errorf("зашифрованный пароль слишком короткий")
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("ошибка расшифровки пароля: %w", err)
	}
	return string(plain), nil
}
