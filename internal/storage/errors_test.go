package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCode(t *testing.T) {
	tests := []struct {
		code       string
		statusCode int
		want       Kind
	}{
		{"NoSuchKey", 0, KindNotFound},
		{"NoSuchBucket", 0, KindNotFound},
		{"", 404, KindNotFound},
		{"AccessDenied", 0, KindPermissionDenied},
		{"", 403, KindPermissionDenied},
		{"InvalidAccessKeyId", 0, KindConfig},
		{"SignatureDoesNotMatch", 0, KindConfig},
		{"SecurityTokenExpired", 0, KindConfig},
		{"SomethingElse", 500, KindUnknown},
		{"", 0, KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyCode(tt.code, tt.statusCode),
			"code=%s status=%d", tt.code, tt.statusCode)
	}
}

func TestWrapProviderErrorClassification(t *testing.T) {
	cause := errors.New("NoSuchKey: The specified key does not exist")
	err := wrapProviderError(KindDownload, "获取对象失败", "NoSuchKey", 404, cause)
	assert.Equal(t, KindNotFound, err.Kind)

	// 无法归类时使用操作级分类
	err = wrapProviderError(KindUpload, "上传失败", "InternalError", 500, errors.New("oops"))
	assert.Equal(t, KindUpload, err.Kind)
}

func TestWrapProviderErrorNetwork(t *testing.T) {
	for _, msg := range []string{
		"dial tcp: connection refused",
		"read tcp: i/o timeout",
		"lookup oss.example.com: no such host",
	} {
		err := wrapProviderError(KindUpload, "上传失败", "", 0, errors.New(msg))
		assert.Equal(t, KindNetwork, err.Kind, "msg=%s", msg)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewError(KindUpload, "上传失败", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "UploadError")
	assert.Contains(t, err.Error(), "上传失败")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NewNotFoundError("a/b.txt")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindConfig, KindOf(fmt.Errorf("wrapped: %w", NewConfigError("bad"))))

	assert.True(t, IsKind(NewStsError("失败", nil), KindSTS))
	assert.False(t, IsKind(nil, KindConfig))
}
