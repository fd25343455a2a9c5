package storage

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var signerClock = time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC)

func fixedEngine() *SignatureEngine {
	return newSignatureEngineAt(func() time.Time { return signerClock })
}

func staticCreds() *Credentials {
	return &Credentials{AccessKeyID: "LTAI5tExample", AccessKeySecret: "sk-example"}
}

func decodePolicy(t *testing.T, policyBase64 string) (string, []interface{}) {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(policyBase64)
	require.NoError(t, err)

	var policy struct {
		Expiration string        `json:"expiration"`
		Conditions []interface{} `json:"conditions"`
	}
	require.NoError(t, json.Unmarshal(raw, &policy))
	return policy.Expiration, policy.Conditions
}

func conditionKey(t *testing.T, cond interface{}) string {
	t.Helper()
	m, ok := cond.(map[string]interface{})
	require.True(t, ok, "条件不是键值对: %v", cond)
	require.Len(t, m, 1)
	for k := range m {
		return k
	}
	return ""
}

func TestPostPolicyDeterministic(t *testing.T) {
	engine := fixedEngine()
	creds := staticCreds()

	first, err := engine.PostPolicy(creds, "bkt", "oss-cn-hangzhou", "https://bkt.oss-cn-hangzhou.aliyuncs.com", nil)
	require.NoError(t, err)
	second, err := engine.PostPolicy(creds, "bkt", "oss-cn-hangzhou", "https://bkt.oss-cn-hangzhou.aliyuncs.com", nil)
	require.NoError(t, err)

	// 相同凭证与时刻下策略和签名逐字节一致
	assert.Equal(t, first.Policy, second.Policy)
	assert.Equal(t, first.Signature, second.Signature)
}

func TestPostPolicyConditionOrder(t *testing.T) {
	engine := fixedEngine()
	creds := staticCreds()
	creds.SecurityToken = "sts-token"

	sig, err := engine.PostPolicy(creds, "bkt", "oss-cn-hangzhou", "https://host", &PostPolicyOptions{
		Conditions: &PolicyConditions{
			ContentLengthRange: []int64{1, 10485760},
			ContentTypes:       []string{"image/png", "image/jpeg"},
		},
	})
	require.NoError(t, err)

	expiration, conditions := decodePolicy(t, sig.Policy)
	assert.NotEmpty(t, expiration)
	require.Len(t, conditions, 7)

	assert.Equal(t, "bucket", conditionKey(t, conditions[0]))
	assert.Equal(t, "x-oss-credential", conditionKey(t, conditions[1]))
	assert.Equal(t, "x-oss-signature-version", conditionKey(t, conditions[2]))
	assert.Equal(t, "x-oss-date", conditionKey(t, conditions[3]))
	assert.Equal(t, "x-oss-security-token", conditionKey(t, conditions[4]))

	lengthRange, ok := conditions[5].([]interface{})
	require.True(t, ok)
	assert.Equal(t, "content-length-range", lengthRange[0])

	startsWith, ok := conditions[6].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"starts-with", "$Content-Type", "image/"}, startsWith)
}

func TestPostPolicyWithoutToken(t *testing.T) {
	engine := fixedEngine()

	sig, err := engine.PostPolicy(staticCreds(), "bkt", "oss-cn-hangzhou", "https://host", nil)
	require.NoError(t, err)

	_, conditions := decodePolicy(t, sig.Policy)
	require.Len(t, conditions, 4)
	for _, cond := range conditions {
		assert.NotEqual(t, "x-oss-security-token", conditionKey(t, cond))
	}
	assert.Empty(t, sig.SecurityToken)
}

func TestPostPolicyCredentialScope(t *testing.T) {
	engine := fixedEngine()

	sig, err := engine.PostPolicy(staticCreds(), "bkt", "oss-cn-hangzhou", "https://host", nil)
	require.NoError(t, err)

	assert.Equal(t, "LTAI5tExample/20260901/cn-hangzhou/oss/aliyun_v4_request", sig.Credential)
	assert.Equal(t, "20260901T083000Z", sig.Date)
	assert.Equal(t, SignatureVersionV4, sig.SignatureVersion)
}

func TestPostPolicySignatureChain(t *testing.T) {
	engine := fixedEngine()
	creds := staticCreds()

	sig, err := engine.PostPolicy(creds, "bkt", "oss-cn-hangzhou", "https://host", nil)
	require.NoError(t, err)

	// 复现签名推导链: aliyun_v4+sk → 日期 → 区域 → oss → aliyun_v4_request → 策略
	key := hmacSHA256([]byte("aliyun_v4"+creds.AccessKeySecret), []byte("20260901"))
	key = hmacSHA256(key, []byte("cn-hangzhou"))
	key = hmacSHA256(key, []byte("oss"))
	key = hmacSHA256(key, []byte("aliyun_v4_request"))
	expected := hex.EncodeToString(hmacSHA256(key, []byte(sig.Policy)))

	assert.Equal(t, expected, sig.Signature)
}

func TestPostPolicyFileKeyStrategies(t *testing.T) {
	engine := fixedEngine()

	// uuid策略：目录前缀 + UUID + 原始扩展名
	sig, err := engine.PostPolicy(staticCreds(), "bkt", "oss-cn-hangzhou", "https://host", &PostPolicyOptions{
		Dir:     "up/",
		FileKey: &FileKeyOptions{Strategy: KeyStrategyUUID, OriginalFileName: "报告.txt"},
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^up/[0-9a-f-]+\.txt$`), sig.Key)

	// custom策略
	sig, err = engine.PostPolicy(staticCreds(), "bkt", "oss-cn-hangzhou", "https://host", &PostPolicyOptions{
		Dir:     "up/",
		FileKey: &FileKeyOptions{Strategy: KeyStrategyCustom, CustomFileName: "fixed-name.bin"},
	})
	require.NoError(t, err)
	assert.Equal(t, "up/fixed-name.bin", sig.Key)

	// original策略
	sig, err = engine.PostPolicy(staticCreds(), "bkt", "oss-cn-hangzhou", "https://host", &PostPolicyOptions{
		Dir:     "docs/",
		FileKey: &FileKeyOptions{Strategy: KeyStrategyOriginal, OriginalFileName: "a.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, "docs/a.pdf", sig.Key)

	// timestamp策略使用引擎时钟，固定时刻下对象键确定
	sig, err = engine.PostPolicy(staticCreds(), "bkt", "oss-cn-hangzhou", "https://host", &PostPolicyOptions{
		Dir:     "up/",
		FileKey: &FileKeyOptions{Strategy: KeyStrategyTimestamp, OriginalFileName: "a.txt"},
	})
	require.NoError(t, err)
	assert.Equal(t, "up/"+strconv.FormatInt(signerClock.UnixMilli(), 10)+".txt", sig.Key)
}

func TestPostPolicyFileKeyValidation(t *testing.T) {
	engine := fixedEngine()

	cases := []*FileKeyOptions{
		{Strategy: KeyStrategyCustom},
		{Strategy: KeyStrategyUUID},
		{Strategy: KeyStrategyTimestamp},
		{Strategy: KeyStrategyOriginal},
		{Strategy: "hash"},
	}
	for _, fk := range cases {
		_, err := engine.PostPolicy(staticCreds(), "bkt", "oss-cn-hangzhou", "https://host", &PostPolicyOptions{
			FileKey: fk,
		})
		require.Error(t, err, "strategy=%s", fk.Strategy)
		assert.True(t, IsKind(err, KindSignature))
	}
}

func TestPostPolicyCallback(t *testing.T) {
	engine := fixedEngine()

	sig, err := engine.PostPolicy(staticCreds(), "bkt", "oss-cn-hangzhou", "https://host", &PostPolicyOptions{
		Callback: &CallbackOptions{
			CallbackURL: "https://api.example.com/upload/callback",
			CustomVars:  map[string]string{"uid": "42"},
		},
	})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sig.Callback)
	require.NoError(t, err)

	var callback map[string]string
	require.NoError(t, json.Unmarshal(raw, &callback))
	assert.Equal(t, "https://api.example.com/upload/callback", callback["callbackUrl"])
	assert.Equal(t, "filename=${object}&size=${size}&mimeType=${mimeType}&etag=${etag}", callback["callbackBody"])
	assert.Equal(t, "application/x-www-form-urlencoded", callback["callbackBodyType"])
	assert.Equal(t, "42", callback["x:uid"])
}

func TestPostPolicyCallbackRequiresURL(t *testing.T) {
	engine := fixedEngine()

	_, err := engine.PostPolicy(staticCreds(), "bkt", "oss-cn-hangzhou", "https://host", &PostPolicyOptions{
		Callback: &CallbackOptions{CallbackBody: "filename=${object}"},
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSignature))
}

func TestLongestCommonPrefix(t *testing.T) {
	tests := []struct {
		values []string
		want   string
	}{
		{[]string{"image/png", "image/jpeg"}, "image/"},
		{[]string{"image/png"}, "image/png"},
		{[]string{"image/png", "video/mp4"}, ""},
		{[]string{"text/plain", "text/plain"}, "text/plain"},
		{[]string{}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, longestCommonPrefix(tt.values), "values=%v", tt.values)
	}
}

func TestSignURLDeterministic(t *testing.T) {
	engine := fixedEngine()
	creds := staticCreds()

	first, err := engine.SignURL(creds, "bkt", "oss-cn-hangzhou", "dir/报告.txt", &SignURLOptions{Expires: 30 * time.Minute})
	require.NoError(t, err)
	second, err := engine.SignURL(creds, "bkt", "oss-cn-hangzhou", "dir/报告.txt", &SignURLOptions{Expires: 30 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	parsed, err := url.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, "bkt.oss-cn-hangzhou.aliyuncs.com", parsed.Host)
	assert.Equal(t, "LTAI5tExample", parsed.Query().Get("OSSAccessKeyId"))
	assert.NotEmpty(t, parsed.Query().Get("Signature"))

	// 过期时间为固定时刻加30分钟
	assert.Equal(t, "1788253200", parsed.Query().Get("Expires"))
}

func TestSignURLMethodChangesSignature(t *testing.T) {
	engine := fixedEngine()
	creds := staticCreds()

	get, err := engine.SignURL(creds, "bkt", "oss-cn-hangzhou", "a.txt", &SignURLOptions{Method: "GET"})
	require.NoError(t, err)
	put, err := engine.SignURL(creds, "bkt", "oss-cn-hangzhou", "a.txt", &SignURLOptions{Method: "PUT"})
	require.NoError(t, err)
	assert.NotEqual(t, get, put)

	_, err = engine.SignURL(creds, "bkt", "oss-cn-hangzhou", "a.txt", &SignURLOptions{Method: "POST"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSignature))
}

func TestSignURLSecurityToken(t *testing.T) {
	engine := fixedEngine()
	creds := staticCreds()
	creds.SecurityToken = "sts-token"

	signed, err := engine.SignURL(creds, "bkt", "oss-cn-hangzhou", "a.txt", nil)
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "sts-token", parsed.Query().Get("security-token"))
}

func TestSignURLResponseHeaders(t *testing.T) {
	engine := fixedEngine()

	signed, err := engine.SignURL(staticCreds(), "bkt", "oss-cn-hangzhou", "a.txt", &SignURLOptions{
		ResponseHeaders: map[string]string{
			"response-content-type":        "text/plain",
			"response-content-disposition": "attachment",
		},
	})
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", parsed.Query().Get("response-content-type"))
	assert.Equal(t, "attachment", parsed.Query().Get("response-content-disposition"))

	// 响应头覆盖参与签名，不带覆盖的URL签名不同
	plain, err := engine.SignURL(staticCreds(), "bkt", "oss-cn-hangzhou", "a.txt", nil)
	require.NoError(t, err)
	plainParsed, err := url.Parse(plain)
	require.NoError(t, err)
	assert.NotEqual(t, plainParsed.Query().Get("Signature"), parsed.Query().Get("Signature"))
}

func TestSignURLCustomHost(t *testing.T) {
	engine := fixedEngine()

	signed, err := engine.SignURL(staticCreds(), "bkt", "oss-cn-hangzhou", "a.txt", &SignURLOptions{
		Host: "https://cdn.example.com",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "https://cdn.example.com/a.txt?"))
}
