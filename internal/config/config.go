package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	JWT      JWTConfig
	Database DatabaseConfig
	Log      LogConfig
	Storage  StorageConfig
}

type AppConfig struct {
	Name         string
	Env          string
	Host         string
	Port         int
	ReadTimeout  int   `mapstructure:"read_timeout"`
	WriteTimeout int   `mapstructure:"write_timeout"`
	IdleTimeout  int   `mapstructure:"idle_timeout"`
	MaxFileSize  int64 `mapstructure:"max_file_size"`
}

type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	ExpiresIn int    `mapstructure:"expires_in"`
	Issuer    string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Username        string
	Password        string
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type LogConfig struct {
	Level    string
	Format   string
	Output   string
	FilePath string `mapstructure:"file_path"`
}

// StorageConfig 存储层配置。
// EncryptKey 用于加密数据库中的凭证材料，优先取 STORAGE_ENCRYPT_KEY 环境变量。
// 各供应商小节是数据库中没有可用配置时的环境变量降级配置
type StorageConfig struct {
	EncryptKey     string               `mapstructure:"encrypt_key"`
	URLExpireTime  int                  `mapstructure:"url_expire_time"`
	PolicyExpireIn int                  `mapstructure:"policy_expire_in"`
	AliyunOSS      AliyunFallbackConfig `mapstructure:"aliyun_oss"`
	Qiniu          QiniuFallbackConfig  `mapstructure:"qiniu"`
	TencentCOS     COSFallbackConfig    `mapstructure:"tencent_cos"`
	AWSS3          S3FallbackConfig     `mapstructure:"aws_s3"`
}

type AliyunFallbackConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Bucket          string
	Region          string
	CustomDomain    string `mapstructure:"custom_domain"`
	RoleArn         string `mapstructure:"role_arn"`
	RoleSessionName string `mapstructure:"role_session_name"`
	DurationSeconds int    `mapstructure:"duration_seconds"`
}

type QiniuFallbackConfig struct {
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Bucket       string
	Region       string
	CustomDomain string `mapstructure:"custom_domain"`
}

type COSFallbackConfig struct {
	SecretID     string `mapstructure:"secret_id"`
	SecretKey    string `mapstructure:"secret_key"`
	AppID        string `mapstructure:"app_id"`
	Bucket       string
	Region       string
	CustomDomain string `mapstructure:"custom_domain"`
}

type S3FallbackConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string
	Region          string
	CustomDomain    string `mapstructure:"custom_domain"`
}

var globalConfig *Config

// LoadConfig 加载配置。
// 支持传入配置目录或具体文件路径，并按 env 合并环境特定配置（app.{env}.yaml）。
// 存储层配置独立放在 storage.yaml 中，同样支持环境合并
func LoadConfig(configPath string, env string) (*Config, error) {
	if env == "" {
		env = "dev"
	}

	v := viper.New()

	configPaths := []string{
		configPath,
		"./configs",
		"../configs",
		"../../configs",
	}

	configFound := false
	for _, path := range configPaths {
		if isDir(path) {
			if fileExists(filepath.Join(path, "app.yaml")) {
				v.AddConfigPath(path)
				v.SetConfigName("app")
				configFound = true
				break
			}
		} else if fileExists(path) {
			v.SetConfigFile(path)
			configFound = true
			break
		}
	}
	if !configFound {
		return nil, fmt.Errorf("无法找到配置文件，已尝试路径: %v", configPaths)
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	configDir := filepath.Dir(v.ConfigFileUsed())
	if err := mergeEnvConfig(v, filepath.Join(configDir, fmt.Sprintf("app.%s.yaml", env))); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 加载存储配置
	storageFile := filepath.Join(configDir, "storage.yaml")
	if fileExists(storageFile) {
		storageViper := viper.New()
		storageViper.SetConfigFile(storageFile)
		if err := storageViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取存储配置文件失败: %w", err)
		}
		if err := mergeEnvConfig(storageViper, filepath.Join(configDir, fmt.Sprintf("storage.%s.yaml", env))); err != nil {
			return nil, err
		}
		if err := storageViper.Unmarshal(&config.Storage); err != nil {
			return nil, fmt.Errorf("解析存储配置文件失败: %w", err)
		}
	}

	// 加密密钥只认环境变量优先
	if key := os.Getenv("STORAGE_ENCRYPT_KEY"); key != "" {
		config.Storage.EncryptKey = key
	}
	applyStorageEnv(&config.Storage)

	globalConfig = config
	return config, nil
}

// mergeEnvConfig 合并环境特定配置文件，文件不存在时跳过
func mergeEnvConfig(v *viper.Viper, envFile string) error {
	if !fileExists(envFile) {
		return nil
	}
	envViper := viper.New()
	envViper.SetConfigFile(envFile)
	if err := envViper.ReadInConfig(); err != nil {
		return fmt.Errorf("读取环境配置文件失败: %w", err)
	}
	if err := v.MergeConfigMap(envViper.AllSettings()); err != nil {
		return fmt.Errorf("合并环境配置失败: %w", err)
	}
	return nil
}

// applyStorageEnv 环境变量覆盖各供应商降级配置
func applyStorageEnv(sc *StorageConfig) {
	overrides := map[string]*string{
		"STORAGE_ALIYUN_ACCESS_KEY_ID":     &sc.AliyunOSS.AccessKeyID,
		"STORAGE_ALIYUN_ACCESS_KEY_SECRET": &sc.AliyunOSS.AccessKeySecret,
		"STORAGE_ALIYUN_BUCKET":            &sc.AliyunOSS.Bucket,
		"STORAGE_ALIYUN_REGION":            &sc.AliyunOSS.Region,
		"STORAGE_ALIYUN_ROLE_ARN":          &sc.AliyunOSS.RoleArn,
		"STORAGE_ALIYUN_ROLE_SESSION_NAME": &sc.AliyunOSS.RoleSessionName,
		"STORAGE_QINIU_ACCESS_KEY":         &sc.Qiniu.AccessKey,
		"STORAGE_QINIU_SECRET_KEY":         &sc.Qiniu.SecretKey,
		"STORAGE_QINIU_BUCKET":             &sc.Qiniu.Bucket,
		"STORAGE_QINIU_DOMAIN":             &sc.Qiniu.CustomDomain,
		"STORAGE_TENCENT_SECRET_ID":        &sc.TencentCOS.SecretID,
		"STORAGE_TENCENT_SECRET_KEY":       &sc.TencentCOS.SecretKey,
		"STORAGE_TENCENT_APP_ID":           &sc.TencentCOS.AppID,
		"STORAGE_TENCENT_BUCKET":           &sc.TencentCOS.Bucket,
		"STORAGE_TENCENT_REGION":           &sc.TencentCOS.Region,
		"STORAGE_AWS_ACCESS_KEY_ID":        &sc.AWSS3.AccessKeyID,
		"STORAGE_AWS_SECRET_ACCESS_KEY":    &sc.AWSS3.SecretAccessKey,
		"STORAGE_AWS_BUCKET":               &sc.AWSS3.Bucket,
		"STORAGE_AWS_REGION":               &sc.AWSS3.Region,
	}
	for name, target := range overrides {
		if value := os.Getenv(name); value != "" {
			*target = value
		}
	}
}

// 检查是否是目录
func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// 检查文件是否存在
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode)
}

// GetConnMaxLifetime 获取数据库连接最大生命周期
func (c *DatabaseConfig) GetConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Second
}

// GetJWTExpiration 获取 JWT 过期时间
func (c *JWTConfig) GetJWTExpiration() time.Duration {
	return time.Duration(c.ExpiresIn) * time.Second
}

// GetURLExpiration 预签名URL过期时间
func (c *StorageConfig) GetURLExpiration() time.Duration {
	if c.URLExpireTime <= 0 {
		return time.Hour
	}
	return time.Duration(c.URLExpireTime) * time.Second
}
