package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/myysophia/storagehub/internal/storage"
)

// MockAdapter 模拟存储适配器
type MockAdapter struct {
	mock.Mock
}

// Type 存储类型
func (m *MockAdapter) Type() string {
	args := m.Called()
	return args.String(0)
}

// BucketName 存储桶名称
func (m *MockAdapter) BucketName() string {
	args := m.Called()
	return args.String(0)
}

// PublicURL 对象公开访问URL
func (m *MockAdapter) PublicURL(objectKey string) string {
	args := m.Called(objectKey)
	return args.String(0)
}

// Upload 上传对象
func (m *MockAdapter) Upload(ctx context.Context, objectKey string, reader io.Reader, opts *storage.UploadOptions) (*storage.UploadResult, error) {
	args := m.Called(ctx, objectKey, reader, opts)
	if result := args.Get(0); result != nil {
		return result.(*storage.UploadResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// Download 下载对象内容
func (m *MockAdapter) Download(ctx context.Context, objectKey string, opts *storage.DownloadOptions) ([]byte, error) {
	args := m.Called(ctx, objectKey, opts)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

// DownloadStream 下载对象为流
func (m *MockAdapter) DownloadStream(ctx context.Context, objectKey string, opts *storage.DownloadOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, objectKey, opts)
	if body := args.Get(0); body != nil {
		return body.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

// Delete 删除对象
func (m *MockAdapter) Delete(ctx context.Context, objectKeys ...string) (*storage.DeleteResult, error) {
	args := m.Called(ctx, objectKeys)
	if result := args.Get(0); result != nil {
		return result.(*storage.DeleteResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// SignURL 生成预签名URL
func (m *MockAdapter) SignURL(ctx context.Context, objectKey string, opts *storage.SignURLOptions) (string, error) {
	args := m.Called(ctx, objectKey, opts)
	return args.String(0), args.Error(1)
}

// PostSignature 生成直传POST签名
func (m *MockAdapter) PostSignature(ctx context.Context, opts *storage.PostPolicyOptions) (*storage.PostSignature, error) {
	args := m.Called(ctx, opts)
	if result := args.Get(0); result != nil {
		return result.(*storage.PostSignature), args.Error(1)
	}
	return nil, args.Error(1)
}

// TestConnection 测试连通性
func (m *MockAdapter) TestConnection(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}
