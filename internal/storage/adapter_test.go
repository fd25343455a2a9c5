package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := map[string]*Config{
		TypeAliyunOSS: {
			Type: TypeAliyunOSS, Bucket: "b", Region: "oss-cn-hangzhou",
			Material: CredentialMaterial{AccessKeyID: "ak", AccessKeySecret: "sk"},
		},
		TypeQiniu: {
			Type: TypeQiniu, Bucket: "b", CustomDomain: "cdn.example.com",
			Material: CredentialMaterial{AccessKey: "ak", SecretKey: "sk"},
		},
		TypeTencentCOS: {
			Type: TypeTencentCOS, Bucket: "b", Region: "ap-guangzhou",
			Material: CredentialMaterial{SecretID: "id", SecretKey: "sk", AppID: "125"},
		},
		TypeAWSS3: {
			Type: TypeAWSS3, Bucket: "b", Region: "us-east-1",
			Material: CredentialMaterial{AccessKeyID: "ak", SecretAccessKey: "sk"},
		},
	}
	for name, cfg := range valid {
		assert.NoError(t, cfg.Validate(), name)
	}

	invalid := []*Config{
		{Type: TypeAliyunOSS, Region: "oss-cn-hangzhou",
			Material: CredentialMaterial{AccessKeyID: "ak", AccessKeySecret: "sk"}}, // 缺bucket
		{Type: TypeAliyunOSS, Bucket: "b",
			Material: CredentialMaterial{AccessKeyID: "ak", AccessKeySecret: "sk"}}, // 缺region
		{Type: TypeQiniu, Bucket: "b",
			Material: CredentialMaterial{AccessKey: "ak", SecretKey: "sk"}}, // 缺域名
		{Type: TypeTencentCOS, Bucket: "b", Region: "ap-guangzhou",
			Material: CredentialMaterial{SecretID: "id", SecretKey: "sk"}}, // 缺appId
		{Type: "ftp", Bucket: "b"},
	}
	for i, cfg := range invalid {
		err := cfg.Validate()
		require.Error(t, err, "case %d", i)
		assert.True(t, IsKind(err, KindConfig))
	}
}

func TestConfigValidateStsAliyunOnly(t *testing.T) {
	cfg := &Config{
		Type: TypeAWSS3, Bucket: "b", Region: "us-east-1",
		Material: CredentialMaterial{AccessKeyID: "ak", SecretAccessKey: "sk"},
		STS:      &STSRole{RoleArn: "arn", SessionName: "s"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfig))

	cfg = &Config{
		Type: TypeAliyunOSS, Bucket: "b", Region: "oss-cn-hangzhou",
		Material: CredentialMaterial{AccessKeyID: "ak", AccessKeySecret: "sk"},
		STS:      &STSRole{RoleArn: "arn"},
	}
	err = cfg.Validate()
	require.Error(t, err) // 缺sessionName
}

func TestResolveHost(t *testing.T) {
	tests := []struct {
		cfg  *Config
		want string
	}{
		{&Config{Type: TypeAliyunOSS, Bucket: "b", Region: "oss-cn-hangzhou"},
			"https://b.oss-cn-hangzhou.aliyuncs.com"},
		{&Config{Type: TypeAliyunOSS, Bucket: "b", Region: "cn-hangzhou"},
			"https://b.oss-cn-hangzhou.aliyuncs.com"},
		{&Config{Type: TypeTencentCOS, Bucket: "b", Region: "ap-guangzhou",
			Material: CredentialMaterial{AppID: "125000000"}},
			"https://b-125000000.cos.ap-guangzhou.myqcloud.com"},
		{&Config{Type: TypeAWSS3, Bucket: "b", Region: "us-east-1"},
			"https://b.s3.us-east-1.amazonaws.com"},
		{&Config{Type: TypeQiniu, Bucket: "b"}, ""},
		{&Config{Type: TypeAliyunOSS, Bucket: "b", Region: "oss-cn-hangzhou",
			CustomDomain: "cdn.example.com/"},
			"https://cdn.example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveHost(tt.cfg))
	}
}

func TestRangeSpec(t *testing.T) {
	tests := []struct {
		opts *DownloadOptions
		want string
	}{
		{nil, ""},
		{&DownloadOptions{}, ""},
		{&DownloadOptions{RangeStart: 0, RangeEnd: 1023}, "0-1023"},
		{&DownloadOptions{RangeStart: 1024, RangeEnd: 2047}, "1024-2047"},
		{&DownloadOptions{RangeStart: 1024}, "1024-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rangeSpec(tt.opts), "opts=%+v", tt.opts)
	}
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", normalizeDomain("cdn.example.com"))
	assert.Equal(t, "https://cdn.example.com", normalizeDomain(" https://cdn.example.com/ "))
	assert.Equal(t, "http://cdn.example.com", normalizeDomain("http://cdn.example.com"))
}

func TestAliyunEndpoint(t *testing.T) {
	assert.Equal(t, "oss-cn-hangzhou.aliyuncs.com", aliyunEndpoint("cn-hangzhou"))
	assert.Equal(t, "oss-cn-hangzhou.aliyuncs.com", aliyunEndpoint("oss-cn-hangzhou"))
}
