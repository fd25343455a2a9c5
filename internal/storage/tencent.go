package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/myysophia/storagehub/internal/logger"
	cos "github.com/tencentyun/cos-go-sdk-v5"
	"go.uber.org/zap"
)

// tencentAdapter 腾讯云COS存储适配器
type tencentAdapter struct {
	cfg    *Config
	creds  *Credentials
	engine *SignatureEngine
	client *cos.Client
	host   string
}

// newTencentAdapter 创建腾讯云COS适配器
func newTencentAdapter(cfg *Config, creds *Credentials, engine *SignatureEngine) (*tencentAdapter, error) {
	host := resolveHost(cfg)
	bucketURL, err := url.Parse(host)
	if err != nil {
		return nil, NewError(KindConfig, "解析腾讯云COS存储桶域名失败", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Timeout: 100 * time.Second,
		Transport: &cos.AuthorizationTransport{
			SecretID:     creds.AccessKeyID,
			SecretKey:    creds.AccessKeySecret,
			SessionToken: creds.SecurityToken,
		},
	})

	return &tencentAdapter{
		cfg:    cfg,
		creds:  creds,
		engine: engine,
		client: client,
		host:   host,
	}, nil
}

// Type 存储类型
func (t *tencentAdapter) Type() string {
	return TypeTencentCOS
}

// BucketName 存储桶名称
func (t *tencentAdapter) BucketName() string {
	return t.cfg.Bucket
}

// PublicURL 对象公开访问URL
func (t *tencentAdapter) PublicURL(objectKey string) string {
	return t.host + "/" + objectKey
}

// Upload 上传对象
func (t *tencentAdapter) Upload(ctx context.Context, objectKey string, reader io.Reader, opts *UploadOptions) (*UploadResult, error) {
	putOpts := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{},
	}
	if opts != nil {
		putOpts.ObjectPutHeaderOptions.ContentType = opts.ContentType
		putOpts.ObjectPutHeaderOptions.XCosStorageClass = opts.StorageClass
		if len(opts.Meta) > 0 {
			header := http.Header{}
			for k, v := range opts.Meta {
				header.Set("x-cos-meta-"+k, v)
			}
			putOpts.ObjectPutHeaderOptions.XCosMetaXXX = &header
		}
	}

	resp, err := t.client.Object.Put(ctx, objectKey, reader, putOpts)
	if err != nil {
		logger.Error("腾讯云COS上传对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, t.wrapError(KindUpload, "上传对象到腾讯云COS失败", err)
	}

	return &UploadResult{
		Name: objectKey,
		ETag: strings.Trim(resp.Header.Get("ETag"), `"`),
		URL:  t.PublicURL(objectKey),
	}, nil
}

// Download 下载对象内容
func (t *tencentAdapter) Download(ctx context.Context, objectKey string, opts *DownloadOptions) ([]byte, error) {
	body, err := t.DownloadStream(ctx, objectKey, opts)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, t.wrapError(KindDownload, "读取腾讯云COS对象内容失败", err)
	}
	return data, nil
}

// DownloadStream 下载对象为流
func (t *tencentAdapter) DownloadStream(ctx context.Context, objectKey string, opts *DownloadOptions) (io.ReadCloser, error) {
	getOpts := &cos.ObjectGetOptions{}
	if spec := rangeSpec(opts); spec != "" {
		getOpts.Range = "bytes=" + spec
	}
	resp, err := t.client.Object.Get(ctx, objectKey, getOpts)
	if err != nil {
		logger.Error("腾讯云COS获取对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, t.wrapError(KindDownload, "获取腾讯云COS对象失败", err)
	}
	return resp.Body, nil
}

// Delete 删除对象，quiet模式批量删除；删除不存在的对象视为成功（幂等）
func (t *tencentAdapter) Delete(ctx context.Context, objectKeys ...string) (*DeleteResult, error) {
	if len(objectKeys) == 0 {
		return &DeleteResult{Deleted: []string{}}, nil
	}

	objects := make([]cos.Object, 0, len(objectKeys))
	for _, key := range objectKeys {
		objects = append(objects, cos.Object{Key: key})
	}

	_, _, err := t.client.Object.DeleteMulti(ctx, &cos.ObjectDeleteMultiOptions{
		Quiet:   true,
		Objects: objects,
	})
	if err != nil {
		logger.Error("腾讯云COS批量删除对象失败", zap.Strings("objectKeys", objectKeys), zap.Error(err))
		return nil, t.wrapError(KindDelete, "删除腾讯云COS对象失败", err)
	}

	return &DeleteResult{Deleted: objectKeys}, nil
}

// SignURL 生成预签名URL
func (t *tencentAdapter) SignURL(ctx context.Context, objectKey string, opts *SignURLOptions) (string, error) {
	if opts == nil {
		opts = &SignURLOptions{}
	}
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}
	expires := opts.Expires
	if expires <= 0 {
		expires = time.Hour
	}

	presignOpts := &cos.PresignedURLOptions{Query: &url.Values{}, Header: &http.Header{}}
	for k, v := range opts.ResponseHeaders {
		presignOpts.Query.Set(k, v)
	}
	if t.creds.SecurityToken != "" {
		presignOpts.Query.Set("x-cos-security-token", t.creds.SecurityToken)
	}

	signedURL, err := t.client.Object.GetPresignedURL(ctx, method, objectKey,
		t.creds.AccessKeyID, t.creds.AccessKeySecret, expires, presignOpts)
	if err != nil {
		return "", t.wrapError(KindSignature, "生成腾讯云COS预签名URL失败", err)
	}
	return signedURL.String(), nil
}

// PostSignature 生成直传POST签名。
// COS 的表单直传签名方案：signKey = HMAC-SHA1(secretKey, keyTime)，
// signature = HMAC-SHA1(signKey, SHA1(policy))
func (t *tencentAdapter) PostSignature(ctx context.Context, opts *PostPolicyOptions) (*PostSignature, error) {
	if opts == nil {
		opts = &PostPolicyOptions{}
	}
	expirationMinutes := opts.ExpirationMinutes
	if expirationMinutes <= 0 {
		expirationMinutes = 10
	}

	now := t.engine.now().UTC()
	expiresAt := now.Add(time.Duration(expirationMinutes) * time.Minute)
	keyTime := fmt.Sprintf("%d;%d", now.Unix(), expiresAt.Unix())

	conditions := []interface{}{
		map[string]string{"bucket": t.cfg.Bucket},
		map[string]string{"q-sign-algorithm": "sha1"},
		map[string]string{"q-ak": t.creds.AccessKeyID},
		map[string]string{"q-sign-time": keyTime},
		[]interface{}{"starts-with", "$key", opts.Dir},
	}
	if t.creds.SecurityToken != "" {
		conditions = append(conditions, map[string]string{"x-cos-security-token": t.creds.SecurityToken})
	}

	policyJSON, err := json.Marshal(struct {
		Expiration string        `json:"expiration"`
		Conditions []interface{} `json:"conditions"`
	}{Expiration: expiresAt.Format("2006-01-02T15:04:05.000Z"), Conditions: conditions})
	if err != nil {
		return nil, NewError(KindSignature, "序列化POST策略失败", err)
	}

	signKeyMac := hmac.New(sha1.New, []byte(t.creds.AccessKeySecret))
	signKeyMac.Write([]byte(keyTime))
	signKey := hex.EncodeToString(signKeyMac.Sum(nil))

	policyDigest := sha1.Sum(policyJSON)
	sigMac := hmac.New(sha1.New, []byte(signKey))
	sigMac.Write([]byte(hex.EncodeToString(policyDigest[:])))
	signature := hex.EncodeToString(sigMac.Sum(nil))

	result := &PostSignature{
		Host:             t.host,
		Policy:           base64.StdEncoding.EncodeToString(policyJSON),
		SignatureVersion: "COS-HMAC-SHA1",
		Credential:       t.creds.AccessKeyID,
		Date:             keyTime,
		Signature:        signature,
		Dir:              opts.Dir,
		SecurityToken:    t.creds.SecurityToken,
	}

	if opts.FileKey != nil {
		key, err := generateObjectKey(opts.Dir, opts.FileKey, now)
		if err != nil {
			return nil, err
		}
		result.Key = key
	}

	return result, nil
}

// TestConnection 测试连通性
func (t *tencentAdapter) TestConnection(ctx context.Context) bool {
	if _, err := t.client.Bucket.Head(ctx); err != nil {
		logger.Warn("腾讯云COS连通性测试失败", zap.String("bucket", t.cfg.Bucket), zap.Error(err))
		return false
	}
	return true
}

// wrapError 在适配器边界转换供应商错误
func (t *tencentAdapter) wrapError(fallback Kind, message string, err error) *Error {
	var respErr *cos.ErrorResponse
	if errors.As(err, &respErr) {
		statusCode := 0
		if respErr.Response != nil {
			statusCode = respErr.Response.StatusCode
		}
		return wrapProviderError(fallback, message, respErr.Code, statusCode, err)
	}
	return wrapProviderError(fallback, message, "", 0, err)
}
