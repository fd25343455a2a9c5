package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// gcmNonceSize 沿用历史数据格式，IV 固定为 16 字节
const gcmNonceSize = 16

// gcmTagSize AES-GCM 认证标签长度
const gcmTagSize = 16

// ConfigCrypto 凭证配置加解密器，凭证入库前使用 AES-256-GCM 加密。
// 密文格式: hex(iv):hex(authTag):hex(ciphertext)
type ConfigCrypto struct {
	key []byte
}

// NewConfigCrypto 创建配置加解密器，密钥由外部密钥串经 SHA-256 派生为 32 字节。
// 密钥串为空属于致命配置错误，不允许降级为明文存储。
func NewConfigCrypto(secret string) (*ConfigCrypto, error) {
	if secret == "" {
		return nil, NewConfigError("未配置存储凭证加密密钥")
	}
	key := sha256.Sum256([]byte(secret))
	return &ConfigCrypto{key: key[:]}, nil
}

// Encrypt 加密凭证材料，material 先序列化为 JSON，每次调用生成新的随机 IV
func (c *ConfigCrypto) Encrypt(material interface{}) (string, error) {
	plaintext, err := json.Marshal(material)
	if err != nil {
		return "", NewError(KindConfig, "序列化凭证材料失败", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", NewError(KindConfig, "初始化加密器失败", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return "", NewError(KindConfig, "初始化加密器失败", err)
	}

	iv := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", NewError(KindConfig, "生成随机IV失败", err)
	}

	// Seal 的输出为 密文||认证标签
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-gcmTagSize]
	tag := sealed[len(sealed)-gcmTagSize:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext)), nil
}

// Decrypt 解密凭证密文并反序列化到 out。
// 密文段数不为 3 或认证标签校验失败都会确定性报错，绝不返回错误的明文。
func (c *ConfigCrypto) Decrypt(blob string, out interface{}) error {
	parts := strings.Split(blob, ":")
	if len(parts) != 3 {
		return NewConfigError("加密数据格式无效")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != gcmNonceSize {
		return NewConfigError("加密数据格式无效")
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != gcmTagSize {
		return NewConfigError("加密数据格式无效")
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return NewConfigError("加密数据格式无效")
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return NewError(KindConfig, "初始化解密器失败", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return NewError(KindConfig, "初始化解密器失败", err)
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return NewError(KindConfig, "凭证解密失败", err)
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return NewError(KindConfig, "反序列化凭证材料失败", err)
	}
	return nil
}
