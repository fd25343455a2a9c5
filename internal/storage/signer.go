package storage

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// V4 签名方案常量
const (
	SignatureVersionV4 = "OSS4-HMAC-SHA256"

	v4Product     = "oss"
	v4Terminator  = "aliyun_v4_request"
	v4KeyPrefix   = "aliyun_v4"
	iso8601Format = "20060102T150405Z"
	shortDateFmt  = "20060102"
)

// 对象键生成策略
const (
	KeyStrategyUUID      = "uuid"
	KeyStrategyTimestamp = "timestamp"
	KeyStrategyOriginal  = "original"
	KeyStrategyCustom    = "custom"
)

// SignURLOptions 预签名URL可选项
type SignURLOptions struct {
	Expires time.Duration // 默认 3600 秒
	Method  string        // GET 或 PUT，默认 GET
	// ResponseHeaders 响应头覆盖，键为完整查询参数名，如 response-content-type
	ResponseHeaders map[string]string
	// Host 访问域名覆盖（自定义域名场景），为空时按 bucket+region 合成
	Host string
}

// FileKeyOptions 对象键生成选项
type FileKeyOptions struct {
	Strategy         string `json:"strategy"`
	OriginalFileName string `json:"original_file_name"`
	CustomFileName   string `json:"custom_file_name"`
}

// CallbackOptions 上传回调描述
type CallbackOptions struct {
	CallbackURL      string            `json:"callback_url"`
	CallbackBody     string            `json:"callback_body"`
	CallbackBodyType string            `json:"callback_body_type"`
	CustomVars       map[string]string `json:"custom_vars"`
}

// PolicyConditions 附加策略条件
type PolicyConditions struct {
	// ContentLengthRange [最小字节数, 最大字节数]
	ContentLengthRange []int64 `json:"content_length_range"`
	// ContentTypes 允许的Content-Type集合，多个值时取最长公共前缀
	ContentTypes []string `json:"content_types"`
}

// PostPolicyOptions 直传POST策略选项
type PostPolicyOptions struct {
	ExpirationMinutes int    // 默认 10 分钟
	Dir               string // 上传目录前缀
	FileKey           *FileKeyOptions
	Callback          *CallbackOptions
	Conditions        *PolicyConditions
}

// PostSignature 浏览器直传POST签名结果
type PostSignature struct {
	Host             string `json:"host"`
	Policy           string `json:"policy"`
	SignatureVersion string `json:"signature_version"`
	Credential       string `json:"credential"`
	Date             string `json:"date"`
	Signature        string `json:"signature"`
	Dir              string `json:"dir"`
	Key              string `json:"key,omitempty"`
	Callback         string `json:"callback,omitempty"`
	SecurityToken    string `json:"security_token,omitempty"`
}

// SignatureEngine 签名引擎：预签名URL（V1 HMAC-SHA1）与
// 直传POST策略（V4 HMAC-SHA256）。时钟可注入，相同输入与时刻下签名确定
type SignatureEngine struct {
	now func() time.Time
}

// NewSignatureEngine 创建签名引擎
func NewSignatureEngine() *SignatureEngine {
	return &SignatureEngine{now: time.Now}
}

// newSignatureEngineAt 固定时钟的签名引擎，测试用
func newSignatureEngineAt(now func() time.Time) *SignatureEngine {
	return &SignatureEngine{now: now}
}

// SignURL 生成单个对象的预签名URL。
// 相同凭证、对象、过期时间与时刻下结果确定；method 或响应头覆盖不同则签名不同
func (e *SignatureEngine) SignURL(creds *Credentials, bucket, region, objectKey string, opts *SignURLOptions) (string, error) {
	if opts == nil {
		opts = &SignURLOptions{}
	}
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = "GET"
	}
	if method != "GET" && method != "PUT" {
		return "", NewError(KindSignature, fmt.Sprintf("不支持的签名方法: %s", method), nil)
	}
	expires := opts.Expires
	if expires <= 0 {
		expires = time.Hour
	}
	expiresAt := strconv.FormatInt(e.now().Add(expires).Unix(), 10)

	// 参与签名的子资源：响应头覆盖与STS令牌，按键名排序保证确定性
	subResources := make(map[string]string, len(opts.ResponseHeaders)+1)
	for k, v := range opts.ResponseHeaders {
		subResources[k] = v
	}
	if creds.SecurityToken != "" {
		subResources["security-token"] = creds.SecurityToken
	}
	keys := make([]string, 0, len(subResources))
	for k := range subResources {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	canonicalResource := "/" + bucket + "/" + objectKey
	if len(keys) > 0 {
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+subResources[k])
		}
		canonicalResource += "?" + strings.Join(pairs, "&")
	}

	stringToSign := method + "\n\n\n" + expiresAt + "\n" + canonicalResource
	mac := hmac.New(sha1.New, []byte(creds.AccessKeySecret))
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	host := opts.Host
	if host == "" {
		host = fmt.Sprintf("https://%s.%s", bucket, aliyunEndpoint(region))
	}

	query := url.Values{}
	query.Set("OSSAccessKeyId", creds.AccessKeyID)
	query.Set("Expires", expiresAt)
	query.Set("Signature", signature)
	for _, k := range keys {
		query.Set(k, subResources[k])
	}

	escapedPath := (&url.URL{Path: "/" + objectKey}).EscapedPath()
	return host + escapedPath + "?" + query.Encode(), nil
}

// PostPolicy 构建直传POST策略并签名。
// 策略条件的构造顺序固定：bucket → credential → signature-version → date →
// [security-token] → [content-length-range] → [Content-Type前缀]，
// 签名只有持有相同密钥、日期与逐字节一致策略JSON的一方才能复现
func (e *SignatureEngine) PostPolicy(creds *Credentials, bucket, region, host string, opts *PostPolicyOptions) (*PostSignature, error) {
	if opts == nil {
		opts = &PostPolicyOptions{}
	}
	expirationMinutes := opts.ExpirationMinutes
	if expirationMinutes <= 0 {
		expirationMinutes = 10
	}

	now := e.now().UTC()
	date := now.Format(iso8601Format)
	shortDate := now.Format(shortDateFmt)
	expiration := now.Add(time.Duration(expirationMinutes) * time.Minute).Format(iso8601Format)
	scopeRegion := strings.TrimPrefix(region, "oss-")
	credential := fmt.Sprintf("%s/%s/%s/%s/%s", creds.AccessKeyID, shortDate, scopeRegion, v4Product, v4Terminator)

	conditions := []interface{}{
		map[string]string{"bucket": bucket},
		map[string]string{"x-oss-credential": credential},
		map[string]string{"x-oss-signature-version": SignatureVersionV4},
		map[string]string{"x-oss-date": date},
	}
	if creds.SecurityToken != "" {
		conditions = append(conditions, map[string]string{"x-oss-security-token": creds.SecurityToken})
	}
	if opts.Conditions != nil {
		if r := opts.Conditions.ContentLengthRange; len(r) == 2 {
			conditions = append(conditions, []interface{}{"content-length-range", r[0], r[1]})
		}
		if len(opts.Conditions.ContentTypes) > 0 {
			// 多个Content-Type取最长公共前缀，完全不同时前缀为空、放行任意类型
			prefix := longestCommonPrefix(opts.Conditions.ContentTypes)
			conditions = append(conditions, []interface{}{"starts-with", "$Content-Type", prefix})
		}
	}

	policyJSON, err := json.Marshal(struct {
		Expiration string        `json:"expiration"`
		Conditions []interface{} `json:"conditions"`
	}{Expiration: expiration, Conditions: conditions})
	if err != nil {
		return nil, NewError(KindSignature, "序列化POST策略失败", err)
	}
	policyBase64 := base64.StdEncoding.EncodeToString(policyJSON)

	signingKey := hmacSHA256([]byte(v4KeyPrefix+creds.AccessKeySecret), []byte(shortDate))
	signingKey = hmacSHA256(signingKey, []byte(scopeRegion))
	signingKey = hmacSHA256(signingKey, []byte(v4Product))
	signingKey = hmacSHA256(signingKey, []byte(v4Terminator))
	signature := hex.EncodeToString(hmacSHA256(signingKey, []byte(policyBase64)))

	result := &PostSignature{
		Host:             host,
		Policy:           policyBase64,
		SignatureVersion: SignatureVersionV4,
		Credential:       credential,
		Date:             date,
		Signature:        signature,
		Dir:              opts.Dir,
		SecurityToken:    creds.SecurityToken,
	}

	if opts.FileKey != nil {
		key, err := generateObjectKey(opts.Dir, opts.FileKey, now)
		if err != nil {
			return nil, err
		}
		result.Key = key
	}

	if opts.Callback != nil {
		callback, err := encodeCallback(opts.Callback)
		if err != nil {
			return nil, err
		}
		result.Callback = callback
	}

	return result, nil
}

// hmacSHA256 单次HMAC-SHA256
func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// generateObjectKey 按策略生成对象键，now 为调用方的签名时刻。
// custom 未提供文件名、其余策略未提供原始文件名都是校验错误，不做静默回退
func generateObjectKey(dir string, opts *FileKeyOptions, now time.Time) (string, error) {
	var name string
	switch opts.Strategy {
	case KeyStrategyCustom:
		if opts.CustomFileName == "" {
			return "", NewError(KindSignature, "custom策略缺少自定义文件名", nil)
		}
		name = opts.CustomFileName
	case KeyStrategyUUID:
		if opts.OriginalFileName == "" {
			return "", NewError(KindSignature, "uuid策略缺少原始文件名", nil)
		}
		name = uuid.NewString() + path.Ext(opts.OriginalFileName)
	case KeyStrategyTimestamp:
		if opts.OriginalFileName == "" {
			return "", NewError(KindSignature, "timestamp策略缺少原始文件名", nil)
		}
		name = strconv.FormatInt(now.UnixMilli(), 10) + path.Ext(opts.OriginalFileName)
	case KeyStrategyOriginal:
		if opts.OriginalFileName == "" {
			return "", NewError(KindSignature, "original策略缺少原始文件名", nil)
		}
		name = opts.OriginalFileName
	default:
		return "", NewError(KindSignature, fmt.Sprintf("不支持的对象键生成策略: %s", opts.Strategy), nil)
	}
	return dir + name, nil
}

// encodeCallback 构建回调描述并base64编码，自定义变量按供应商约定加 x: 前缀
func encodeCallback(opts *CallbackOptions) (string, error) {
	if opts.CallbackURL == "" {
		return "", NewError(KindSignature, "回调配置缺少callbackUrl", nil)
	}
	body := opts.CallbackBody
	if body == "" {
		body = "filename=${object}&size=${size}&mimeType=${mimeType}&etag=${etag}"
	}
	bodyType := opts.CallbackBodyType
	if bodyType == "" {
		bodyType = "application/x-www-form-urlencoded"
	}

	callback := map[string]string{
		"callbackUrl":      opts.CallbackURL,
		"callbackBody":     body,
		"callbackBodyType": bodyType,
	}
	for k, v := range opts.CustomVars {
		callback["x:"+k] = v
	}

	data, err := json.Marshal(callback)
	if err != nil {
		return "", NewError(KindSignature, "序列化回调配置失败", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// longestCommonPrefix 逐字符扫描的最长公共前缀，
// 在第一个不一致字符或最短串结尾处停止
func longestCommonPrefix(values []string) string {
	if len(values) == 0 {
		return ""
	}
	prefix := values[0]
	for _, v := range values[1:] {
		i := 0
		for i < len(prefix) && i < len(v) && prefix[i] == v[i] {
			i++
		}
		prefix = prefix[:i]
		if prefix == "" {
			break
		}
	}
	return prefix
}
