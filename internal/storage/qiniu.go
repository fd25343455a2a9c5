package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/myysophia/storagehub/internal/logger"
	"github.com/qiniu/go-sdk/v7/auth"
	qiniuclient "github.com/qiniu/go-sdk/v7/client"
	qiniustorage "github.com/qiniu/go-sdk/v7/storage"
	"go.uber.org/zap"
)

// qiniuStatusNotFound 七牛云"文件不存在"错误码
const qiniuStatusNotFound = 612

// qiniuAdapter 七牛云Kodo存储适配器。
// 七牛云没有默认公开域名，下载走配置的自定义域名
type qiniuAdapter struct {
	cfg           *Config
	creds         *Credentials
	engine        *SignatureEngine
	mac           *auth.Credentials
	storageCfg    *qiniustorage.Config
	bucketManager *qiniustorage.BucketManager
	host          string
}

// newQiniuAdapter 创建七牛云适配器
func newQiniuAdapter(cfg *Config, creds *Credentials, engine *SignatureEngine) (*qiniuAdapter, error) {
	mac := auth.New(creds.AccessKeyID, creds.AccessKeySecret)

	storageCfg := &qiniustorage.Config{UseHTTPS: true}
	if cfg.Region != "" {
		region, ok := qiniustorage.GetRegionByID(qiniustorage.RegionID(cfg.Region))
		if !ok {
			return nil, NewConfigError(fmt.Sprintf("无效的七牛云区域: %s", cfg.Region))
		}
		storageCfg.Region = &region
	}

	return &qiniuAdapter{
		cfg:           cfg,
		creds:         creds,
		engine:        engine,
		mac:           mac,
		storageCfg:    storageCfg,
		bucketManager: qiniustorage.NewBucketManager(mac, storageCfg),
		host:          normalizeDomain(cfg.CustomDomain),
	}, nil
}

// Type 存储类型
func (q *qiniuAdapter) Type() string {
	return TypeQiniu
}

// BucketName 存储桶名称
func (q *qiniuAdapter) BucketName() string {
	return q.cfg.Bucket
}

// PublicURL 对象公开访问URL
func (q *qiniuAdapter) PublicURL(objectKey string) string {
	return q.host + "/" + objectKey
}

// Upload 上传对象，使用表单上传与覆盖上传凭证
func (q *qiniuAdapter) Upload(ctx context.Context, objectKey string, reader io.Reader, opts *UploadOptions) (*UploadResult, error) {
	putPolicy := qiniustorage.PutPolicy{Scope: fmt.Sprintf("%s:%s", q.cfg.Bucket, objectKey)}
	upToken := putPolicy.UploadToken(q.mac)

	putExtra := qiniustorage.PutExtra{}
	if opts != nil {
		putExtra.MimeType = opts.ContentType
		if len(opts.Meta) > 0 {
			putExtra.Params = make(map[string]string, len(opts.Meta))
			for k, v := range opts.Meta {
				putExtra.Params["x:"+k] = v
			}
		}
	}

	body, size, err := uploadBody(reader, opts)
	if err != nil {
		return nil, NewError(KindUpload, "读取上传内容失败", err)
	}

	uploader := qiniustorage.NewFormUploader(q.storageCfg)
	var ret qiniustorage.PutRet
	if err := uploader.Put(ctx, &ret, upToken, objectKey, body, size, &putExtra); err != nil {
		logger.Error("七牛云上传对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, q.wrapError(KindUpload, "上传对象到七牛云失败", err)
	}

	return &UploadResult{
		Name: ret.Key,
		ETag: ret.Hash,
		URL:  q.PublicURL(ret.Key),
	}, nil
}

// uploadBody 表单上传要求预知内容长度，调用方未提供时先读入内存
func uploadBody(reader io.Reader, opts *UploadOptions) (io.Reader, int64, error) {
	if opts != nil && opts.Size > 0 {
		return reader, opts.Size, nil
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

// Download 下载对象内容
func (q *qiniuAdapter) Download(ctx context.Context, objectKey string, opts *DownloadOptions) ([]byte, error) {
	body, err := q.DownloadStream(ctx, objectKey, opts)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, q.wrapError(KindDownload, "读取七牛云对象内容失败", err)
	}
	return data, nil
}

// DownloadStream 下载对象为流，通过私有下载URL拉取
func (q *qiniuAdapter) DownloadStream(ctx context.Context, objectKey string, opts *DownloadOptions) (io.ReadCloser, error) {
	deadline := time.Now().Add(time.Hour).Unix()
	privateURL := qiniustorage.MakePrivateURL(q.mac, q.host, objectKey, deadline)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, privateURL, nil)
	if err != nil {
		return nil, NewError(KindDownload, "构建七牛云下载请求失败", err)
	}
	if spec := rangeSpec(opts); spec != "" {
		req.Header.Set("Range", "bytes="+spec)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Error("七牛云获取对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, q.wrapError(KindDownload, "获取七牛云对象失败", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, NewNotFoundError(objectKey)
		}
		return nil, wrapProviderError(KindDownload,
			fmt.Sprintf("获取七牛云对象失败: HTTP %d", resp.StatusCode), "", resp.StatusCode, nil)
	}
	return resp.Body, nil
}

// Delete 删除对象；612（文件不存在）视为成功（幂等）
func (q *qiniuAdapter) Delete(ctx context.Context, objectKeys ...string) (*DeleteResult, error) {
	for _, key := range objectKeys {
		if err := q.bucketManager.Delete(q.cfg.Bucket, key); err != nil {
			if qiniuStatusCode(err) == qiniuStatusNotFound {
				continue
			}
			logger.Error("七牛云删除对象失败", zap.String("objectKey", key), zap.Error(err))
			return nil, q.wrapError(KindDelete, fmt.Sprintf("删除七牛云对象 %s 失败", key), err)
		}
	}
	if objectKeys == nil {
		objectKeys = []string{}
	}
	return &DeleteResult{Deleted: objectKeys}, nil
}

// SignURL 生成私有下载URL。七牛云的上传走表单凭证，不支持PUT预签名
func (q *qiniuAdapter) SignURL(ctx context.Context, objectKey string, opts *SignURLOptions) (string, error) {
	if opts == nil {
		opts = &SignURLOptions{}
	}
	if opts.Method != "" && !strings.EqualFold(opts.Method, "GET") {
		return "", NewError(KindSignature, "七牛云仅支持GET预签名URL", nil)
	}
	expires := opts.Expires
	if expires <= 0 {
		expires = time.Hour
	}
	deadline := time.Now().Add(expires).Unix()
	return qiniustorage.MakePrivateURL(q.mac, q.host, objectKey, deadline), nil
}

// PostSignature 生成直传凭证。七牛云的直传方案是上传凭证（uptoken），
// 策略JSON经base64后由 SecretKey 签名拼接而成
func (q *qiniuAdapter) PostSignature(ctx context.Context, opts *PostPolicyOptions) (*PostSignature, error) {
	if opts == nil {
		opts = &PostPolicyOptions{}
	}
	expirationMinutes := opts.ExpirationMinutes
	if expirationMinutes <= 0 {
		expirationMinutes = 10
	}
	deadline := q.engine.now().Add(time.Duration(expirationMinutes) * time.Minute).Unix()

	putPolicy := qiniustorage.PutPolicy{
		Scope:   q.cfg.Bucket,
		Expires: uint64(deadline),
	}
	if opts.Callback != nil {
		putPolicy.CallbackURL = opts.Callback.CallbackURL
		putPolicy.CallbackBody = opts.Callback.CallbackBody
		putPolicy.CallbackBodyType = opts.Callback.CallbackBodyType
	}
	upToken := putPolicy.UploadToken(q.mac)

	// uptoken 格式为 ak:sign:base64(policy)，最后一段即策略本体
	policyBase64 := ""
	if parts := strings.Split(upToken, ":"); len(parts) == 3 {
		policyBase64 = parts[2]
	}

	result := &PostSignature{
		Host:             "https://upload.qiniup.com",
		Policy:           policyBase64,
		SignatureVersion: "QINIU",
		Credential:       q.creds.AccessKeyID,
		Date:             strconv.FormatInt(deadline, 10),
		Signature:        upToken,
		Dir:              opts.Dir,
	}

	if opts.FileKey != nil {
		key, err := generateObjectKey(opts.Dir, opts.FileKey, q.engine.now())
		if err != nil {
			return nil, err
		}
		result.Key = key
	}

	return result, nil
}

// TestConnection 测试连通性
func (q *qiniuAdapter) TestConnection(ctx context.Context) bool {
	if _, err := q.bucketManager.GetBucketInfo(q.cfg.Bucket); err != nil {
		logger.Warn("七牛云连通性测试失败", zap.String("bucket", q.cfg.Bucket), zap.Error(err))
		return false
	}
	return true
}

// qiniuStatusCode 提取七牛云SDK错误的HTTP状态/业务码
func qiniuStatusCode(err error) int {
	var errInfo *qiniuclient.ErrorInfo
	if errors.As(err, &errInfo) {
		return errInfo.Code
	}
	return 0
}

// wrapError 在适配器边界转换供应商错误
func (q *qiniuAdapter) wrapError(fallback Kind, message string, err error) *Error {
	if code := qiniuStatusCode(err); code != 0 {
		return wrapProviderError(fallback, message, "", code, err)
	}
	return wrapProviderError(fallback, message, "", 0, err)
}
