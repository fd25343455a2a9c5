package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCryptoRoundTrip(t *testing.T) {
	crypto, err := NewConfigCrypto("test-secret")
	require.NoError(t, err)

	material := &CredentialMaterial{
		AccessKeyID:     "LTAI5tExample",
		AccessKeySecret: "secret-value",
	}

	blob, err := crypto.Encrypt(material)
	require.NoError(t, err)

	parts := strings.Split(blob, ":")
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], gcmNonceSize*2)
	assert.Len(t, parts[1], gcmTagSize*2)

	decrypted := &CredentialMaterial{}
	require.NoError(t, crypto.Decrypt(blob, decrypted))
	assert.Equal(t, material, decrypted)
}

func TestConfigCryptoRandomIV(t *testing.T) {
	crypto, err := NewConfigCrypto("test-secret")
	require.NoError(t, err)

	material := &CredentialMaterial{AccessKey: "ak", SecretKey: "sk"}
	first, err := crypto.Encrypt(material)
	require.NoError(t, err)
	second, err := crypto.Encrypt(material)
	require.NoError(t, err)

	// 每次加密使用新的随机IV，相同明文的密文不同
	assert.NotEqual(t, first, second)
}

func TestConfigCryptoEmptySecret(t *testing.T) {
	_, err := NewConfigCrypto("")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfig))
}

func TestConfigCryptoTamperDetection(t *testing.T) {
	crypto, err := NewConfigCrypto("test-secret")
	require.NoError(t, err)

	blob, err := crypto.Encrypt(&CredentialMaterial{SecretID: "id", SecretKey: "key"})
	require.NoError(t, err)

	// 篡改密文最后一个十六进制字符
	tampered := []byte(blob)
	last := len(tampered) - 1
	if tampered[last] == '0' {
		tampered[last] = '1'
	} else {
		tampered[last] = '0'
	}

	out := &CredentialMaterial{}
	err = crypto.Decrypt(string(tampered), out)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfig))
}

func TestConfigCryptoInvalidFormat(t *testing.T) {
	crypto, err := NewConfigCrypto("test-secret")
	require.NoError(t, err)

	out := &CredentialMaterial{}
	for _, blob := range []string{
		"",
		"deadbeef",
		"deadbeef:deadbeef",
		"xx:yy:zz",
		"deadbeef:deadbeef:deadbeef:deadbeef",
	} {
		err := crypto.Decrypt(blob, out)
		require.Error(t, err, "blob=%q", blob)
		assert.True(t, IsKind(err, KindConfig))
	}
}

func TestConfigCryptoWrongKey(t *testing.T) {
	encryptor, err := NewConfigCrypto("secret-a")
	require.NoError(t, err)
	decryptor, err := NewConfigCrypto("secret-b")
	require.NoError(t, err)

	blob, err := encryptor.Encrypt(&CredentialMaterial{AccessKeyID: "ak"})
	require.NoError(t, err)

	out := &CredentialMaterial{}
	assert.Error(t, decryptor.Decrypt(blob, out))
}
