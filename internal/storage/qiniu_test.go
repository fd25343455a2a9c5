package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQiniuAdapter(t *testing.T) *qiniuAdapter {
	t.Helper()
	cfg := &Config{
		Type:         TypeQiniu,
		Bucket:       "bkt",
		CustomDomain: "cdn.example.com",
		Material:     CredentialMaterial{AccessKey: "qn-ak", SecretKey: "qn-sk"},
	}
	creds := &Credentials{AccessKeyID: "qn-ak", AccessKeySecret: "qn-sk"}
	adapter, err := newQiniuAdapter(cfg, creds, fixedEngine())
	require.NoError(t, err)
	return adapter
}

func TestQiniuUploadBodySizeKnown(t *testing.T) {
	reader := strings.NewReader("payload")

	// 调用方已提供内容长度时原样透传，不读入内存
	body, size, err := uploadBody(reader, &UploadOptions{Size: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), size)
	assert.Same(t, io.Reader(reader), body)
	assert.Equal(t, 7, reader.Len())
}

func TestQiniuUploadBodySizeUnknown(t *testing.T) {
	// 表单上传要求预知长度，未提供时读入内存并按实际字节数上报
	body, size, err := uploadBody(strings.NewReader("payload"), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), size)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	_, ok := body.(*bytes.Reader)
	assert.True(t, ok)
}

func TestQiniuHostRequiresCustomDomain(t *testing.T) {
	adapter := newTestQiniuAdapter(t)
	assert.Equal(t, "https://cdn.example.com", adapter.host)
	assert.Equal(t, "https://cdn.example.com/a.txt", adapter.PublicURL("a.txt"))
}

func TestQiniuSignURLGetOnly(t *testing.T) {
	adapter := newTestQiniuAdapter(t)

	signed, err := adapter.SignURL(context.Background(), "a.txt", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "https://cdn.example.com/a.txt"))
	assert.Contains(t, signed, "token=")

	_, err = adapter.SignURL(context.Background(), "a.txt", &SignURLOptions{Method: "PUT"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSignature))
}
