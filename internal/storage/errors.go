package storage

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind 存储层错误分类
type Kind string

const (
	KindConfig           Kind = "ConfigError"     // 配置缺失或格式错误、加密密钥问题
	KindSTS              Kind = "StsError"        // 临时凭证交换失败
	KindNotFound         Kind = "NotFoundError"   // 对象不存在
	KindPermissionDenied Kind = "PermissionDenied"
	KindUpload           Kind = "UploadError"
	KindDownload         Kind = "DownloadError"
	KindDelete           Kind = "DeleteError"
	KindSignature        Kind = "SignatureError"
	KindNetwork          Kind = "NetworkError" // 传输层失败
	KindUnknown          Kind = "Unknown"
)

// Error 存储层统一错误类型，供应商 SDK 的原始错误保留在 Err 中用于诊断
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap 返回原始错误
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError 创建指定分类的存储错误
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// NewConfigError 创建配置错误
func NewConfigError(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

// NewStsError 创建 STS 凭证交换错误
func NewStsError(message string, cause error) *Error {
	return &Error{Kind: KindSTS, Message: message, Err: cause}
}

// NewNotFoundError 创建对象不存在错误
func NewNotFoundError(objectKey string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("对象不存在: %s", objectKey)}
}

// KindOf 返回错误的分类，非存储层错误返回 KindUnknown
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsKind 判断错误是否属于指定分类
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// 供应商错误码模式集，各适配器把 SDK 错误码/HTTP 状态映射到统一分类
var (
	notFoundCodes = map[string]bool{
		"NoSuchKey":             true,
		"NoSuchBucket":          true,
		"SymlinkTargetNotExist": true,
	}
	permissionCodes = map[string]bool{
		"AccessDenied":         true,
		"AccessForbidden":      true,
		"RequestTimeTooSkewed": true,
		"UserDisable":          true,
	}
	configCodes = map[string]bool{
		"InvalidAccessKeyId":    true,
		"SignatureDoesNotMatch": true,
		"InvalidBucketName":     true,
		"SecurityTokenExpired":  true,
		"InvalidSecurityToken":  true,
	}
	networkPatterns = []string{
		"NetworkError",
		"ConnectionTimeoutError",
		"ECONNREFUSED",
		"ETIMEDOUT",
		"connection refused",
		"connection reset",
		"i/o timeout",
		"no such host",
	}
)

// classifyCode 按供应商错误码与 HTTP 状态码归类
func classifyCode(code string, statusCode int) Kind {
	switch {
	case notFoundCodes[code] || statusCode == 404:
		return KindNotFound
	case permissionCodes[code] || statusCode == 403:
		return KindPermissionDenied
	case configCodes[code]:
		return KindConfig
	default:
		return KindUnknown
	}
}

// isNetworkError 判断是否为传输层错误
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, pattern := range networkPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// wrapProviderError 在适配器边界把供应商错误转换为统一错误类型。
// 分类结果为 NotFound/PermissionDenied/Config 时优先于操作级分类 fallback。
func wrapProviderError(fallback Kind, message string, code string, statusCode int, err error) *Error {
	if kind := classifyCode(code, statusCode); kind != KindUnknown {
		return &Error{Kind: kind, Message: message, Err: err}
	}
	if isNetworkError(err) {
		return &Error{Kind: KindNetwork, Message: message, Err: err}
	}
	return &Error{Kind: fallback, Message: message, Err: err}
}
