package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTencentAdapter(t *testing.T) *tencentAdapter {
	t.Helper()
	cfg := &Config{
		Type:   TypeTencentCOS,
		Bucket: "bkt",
		Region: "ap-guangzhou",
		Material: CredentialMaterial{
			SecretID: "cos-id", SecretKey: "cos-sk", AppID: "125000000",
		},
	}
	creds := &Credentials{AccessKeyID: "cos-id", AccessKeySecret: "cos-sk"}
	adapter, err := newTencentAdapter(cfg, creds, fixedEngine())
	require.NoError(t, err)
	return adapter
}

func TestTencentHost(t *testing.T) {
	adapter := newTestTencentAdapter(t)
	assert.Equal(t, "https://bkt-125000000.cos.ap-guangzhou.myqcloud.com", adapter.host)
	assert.Equal(t, adapter.host+"/a.txt", adapter.PublicURL("a.txt"))
}

func TestTencentPostSignature(t *testing.T) {
	adapter := newTestTencentAdapter(t)

	sig, err := adapter.PostSignature(context.Background(), &PostPolicyOptions{
		ExpirationMinutes: 10,
		Dir:               "up/",
	})
	require.NoError(t, err)

	// q-sign-time 为 起始时间;过期时间
	start := signerClock.Unix()
	keyTime := "1788251400;1788252000"
	require.Equal(t, start, int64(1788251400))
	assert.Equal(t, keyTime, sig.Date)
	assert.Equal(t, "COS-HMAC-SHA1", sig.SignatureVersion)
	assert.Equal(t, "cos-id", sig.Credential)
	assert.Equal(t, "up/", sig.Dir)

	// 复现签名推导: signKey = HMAC-SHA1(sk, keyTime)，
	// signature = HMAC-SHA1(signKey, SHA1(policy))
	policyJSON, err := base64.StdEncoding.DecodeString(sig.Policy)
	require.NoError(t, err)

	signKeyMac := hmac.New(sha1.New, []byte("cos-sk"))
	signKeyMac.Write([]byte(keyTime))
	signKey := hex.EncodeToString(signKeyMac.Sum(nil))

	digest := sha1.Sum(policyJSON)
	sigMac := hmac.New(sha1.New, []byte(signKey))
	sigMac.Write([]byte(hex.EncodeToString(digest[:])))
	assert.Equal(t, hex.EncodeToString(sigMac.Sum(nil)), sig.Signature)
}

func TestTencentPostSignaturePolicyConditions(t *testing.T) {
	adapter := newTestTencentAdapter(t)

	sig, err := adapter.PostSignature(context.Background(), &PostPolicyOptions{Dir: "up/"})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sig.Policy)
	require.NoError(t, err)

	var policy struct {
		Expiration string        `json:"expiration"`
		Conditions []interface{} `json:"conditions"`
	}
	require.NoError(t, json.Unmarshal(raw, &policy))

	expiresAt := signerClock.Add(10 * time.Minute)
	assert.Equal(t, expiresAt.Format("2006-01-02T15:04:05.000Z"), policy.Expiration)
	require.Len(t, policy.Conditions, 5)

	startsWith, ok := policy.Conditions[4].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"starts-with", "$key", "up/"}, startsWith)
}

func TestTencentPostSignatureFileKey(t *testing.T) {
	adapter := newTestTencentAdapter(t)

	sig, err := adapter.PostSignature(context.Background(), &PostPolicyOptions{
		Dir:     "up/",
		FileKey: &FileKeyOptions{Strategy: KeyStrategyCustom, CustomFileName: "a.bin"},
	})
	require.NoError(t, err)
	assert.Equal(t, "up/a.bin", sig.Key)
}
