package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrInvalidKeySize 密钥长度错误
	ErrInvalidKeySize = errors.New("invalid key size: must be 32 bytes for AES-256")
	// ErrInvalidCiphertext 密文格式错误
	ErrInvalidCiphertext = errors.New("invalid ciphertext: too short or corrupted")
	// ErrOpenFailed 解密失败
	ErrOpenFailed = errors.New("open failed: authentication tag verification failed")
	// ErrInvalidVaultKey 环境变量中的密钥格式错误
	ErrInvalidVaultKey = errors.New("invalid VAULT_KEY: must be 32 bytes (Base64 encoded)")
)

// Vault 凭证保险箱
// 使用 AES-256-GCM 加密供应商 API Key 后落库
// key 为 nil 时退化为明文直通（开发模式）
type Vault struct {
	key []byte
}

// NewVault 创建 Vault 实例
// key 必须为 32 字节或 nil
func NewVault(key []byte) (*Vault, error) {
	if key != nil && len(key) != 32 {
		return nil, ErrInvalidKeySize
	}
	return &Vault{key: key}, nil
}

// Enabled 是否启用了加密
func (v *Vault) Enabled() bool {
	return v != nil && v.key != nil
}

// Seal 加密凭证，返回 Base64 编码的密文（Nonce 前置）
// 未启用加密时原样返回
func (v *Vault) Seal(plaintext string) (string, error) {
	if !v.Enabled() {
		return plaintext, nil
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	// 随机 Nonce（12 字节），Seal 自动附加认证标签
	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open 解密 Seal 产出的密文
// 未启用加密时原样返回
func (v *Vault) Open(sealed string) (string, error) {
	if !v.Enabled() {
		return sealed, nil
	}

	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("invalid base64 encoding: %w", err)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return "", ErrInvalidCiphertext
	}

	nonce, ciphertextBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", ErrOpenFailed
	}

	return string(plaintext), nil
}

// MaskKey API Key 脱敏显示
// 任何展示面都只能看到固定占位格式，绝不输出明文
func MaskKey(hasKey bool) string {
	if !hasKey {
		return ""
	}
	return "sk-****"
}

// LoadVaultKey 从环境变量 VAULT_KEY 加载加密密钥
// 未设置时返回 nil（明文直通模式）
func LoadVaultKey() ([]byte, error) {
	keyStr := os.Getenv("VAULT_KEY")
	if keyStr == "" {
		return nil, nil
	}

	key, err := base64.StdEncoding.DecodeString(keyStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode VAULT_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes, expected 32", ErrInvalidVaultKey, len(key))
	}

	return key, nil
}

// GenerateVaultKey 生成新的加密密钥（用于初始化部署）
// 返回 Base64 编码的密钥字符串
func GenerateVaultKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate vault key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
