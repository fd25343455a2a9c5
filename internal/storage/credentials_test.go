package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticCredentialsMapping(t *testing.T) {
	tests := []struct {
		storageType string
		material    CredentialMaterial
		wantAK      string
		wantSK      string
	}{
		{TypeAliyunOSS, CredentialMaterial{AccessKeyID: "ali-ak", AccessKeySecret: "ali-sk"}, "ali-ak", "ali-sk"},
		{TypeQiniu, CredentialMaterial{AccessKey: "qn-ak", SecretKey: "qn-sk"}, "qn-ak", "qn-sk"},
		{TypeTencentCOS, CredentialMaterial{SecretID: "cos-id", SecretKey: "cos-sk"}, "cos-id", "cos-sk"},
		{TypeAWSS3, CredentialMaterial{AccessKeyID: "aws-ak", SecretAccessKey: "aws-sk"}, "aws-ak", "aws-sk"},
	}
	for _, tt := range tests {
		creds, err := staticCredentials(tt.storageType, &tt.material)
		require.NoError(t, err, tt.storageType)
		assert.Equal(t, tt.wantAK, creds.AccessKeyID)
		assert.Equal(t, tt.wantSK, creds.AccessKeySecret)
		assert.Empty(t, creds.SecurityToken)
		assert.True(t, creds.Expiration.IsZero())
	}

	_, err := staticCredentials("ftp", &CredentialMaterial{})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfig))
}

func TestCredentialsExpired(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	static := &Credentials{AccessKeyID: "ak"}
	assert.False(t, static.Expired(now))

	sts := &Credentials{AccessKeyID: "ak", Expiration: now.Add(time.Hour)}
	assert.False(t, sts.Expired(now))
	assert.True(t, sts.Expired(now.Add(time.Hour)))
	assert.True(t, sts.Expired(now.Add(2*time.Hour)))
}

func TestResolveStsAliyunOnly(t *testing.T) {
	resolver := NewCredentialResolver()

	cfg := &Config{
		Type:     TypeQiniu,
		Bucket:   "bkt",
		Material: CredentialMaterial{AccessKey: "ak", SecretKey: "sk"},
		STS:      &STSRole{RoleArn: "acs:ram::123:role/upload", SessionName: "web"},
	}
	_, err := resolver.Resolve(cfg)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfig))
}

func TestResolveStsExchange(t *testing.T) {
	expiration := time.Date(2026, 9, 1, 13, 0, 0, 0, time.UTC)
	var gotRole *STSRole
	resolver := &CredentialResolver{
		assumeRole: func(region string, material *CredentialMaterial, role *STSRole) (*Credentials, error) {
			gotRole = role
			return &Credentials{
				AccessKeyID:     "STS.tmp-ak",
				AccessKeySecret: "tmp-sk",
				SecurityToken:   "tmp-token",
				Expiration:      expiration,
			}, nil
		},
	}

	cfg := &Config{
		Type:     TypeAliyunOSS,
		Bucket:   "bkt",
		Region:   "oss-cn-hangzhou",
		Material: CredentialMaterial{AccessKeyID: "ak", AccessKeySecret: "sk"},
		STS:      &STSRole{RoleArn: "acs:ram::123:role/upload", SessionName: "web", DurationSeconds: 900},
	}

	creds, err := resolver.Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, "STS.tmp-ak", creds.AccessKeyID)
	assert.Equal(t, "tmp-token", creds.SecurityToken)
	assert.Equal(t, expiration, creds.Expiration)
	require.NotNil(t, gotRole)
	assert.Equal(t, 900, gotRole.DurationSeconds)
}

func TestResolveStatic(t *testing.T) {
	resolver := NewCredentialResolver()

	cfg := &Config{
		Type:     TypeTencentCOS,
		Bucket:   "bkt",
		Region:   "ap-guangzhou",
		Material: CredentialMaterial{SecretID: "id", SecretKey: "sk", AppID: "125000000"},
	}
	creds, err := resolver.Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, "id", creds.AccessKeyID)
	assert.Equal(t, "sk", creds.AccessKeySecret)
}

func TestStsRegionID(t *testing.T) {
	assert.Equal(t, "cn-hangzhou", stsRegionID("oss-cn-hangzhou"))
	assert.Equal(t, "cn-hangzhou", stsRegionID("cn-hangzhou"))
}
