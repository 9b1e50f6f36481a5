// Package fieldcrypt 提供消息字段级加密。
// 密文格式：hex(nonce):hex(ciphertext)，算法 XChaCha20-Poly1305。
// 解密失败（历史明文、格式不符、密钥不匹配）时原样返回输入，保证读路径不会因旧数据报错。
package fieldcrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrInvalidKey 密钥不是 32 字节的十六进制串
var ErrInvalidKey = errors.New("fieldcrypt: key must be 64 hex characters")

// Cipher 字段加解密器。零值（或空密钥）为明文透传。
type Cipher struct {
	aead cipher.AEAD
}

// New 根据十六进制密钥创建加解密器，hexKey 为空时返回透传实现。
func New(hexKey string) (*Cipher, error) {
	if hexKey == "" {
		return &Cipher{}, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("fieldcrypt: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Enabled 是否真正加密
func (c *Cipher) Enabled() bool {
	return c != nil && c.aead != nil
}

// Encrypt 加密文本，空串保持为空串
func (c *Cipher) Encrypt(plain string) (string, error) {
	if plain == "" || !c.Enabled() {
		return plain, nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("fieldcrypt: nonce: %w", err)
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plain), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt 解密文本，失败时原样返回
func (c *Cipher) Decrypt(token string) string {
	if token == "" || !c.Enabled() {
		return token
	}
	noncePart, bodyPart, ok := strings.Cut(token, ":")
	if !ok {
		return token
	}
	nonce, err := hex.DecodeString(noncePart)
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return token
	}
	body, err := hex.DecodeString(bodyPart)
	if err != nil {
		return token
	}
	plain, err := c.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return token
	}
	return string(plain)
}

// GenerateKey 生成新的十六进制密钥
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}
