package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/myysophia/storagehub/internal/api/router"
	"github.com/myysophia/storagehub/internal/config"
	"github.com/myysophia/storagehub/internal/db"
	"github.com/myysophia/storagehub/internal/logger"
	"github.com/myysophia/storagehub/internal/storage"
	"github.com/myysophia/storagehub/internal/utils"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig("configs", os.Getenv("APP_ENV"))
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		panic(fmt.Sprintf("初始化日志系统失败: %v", err))
	}
	defer logger.Sync()

	logger.Info("存储管理服务启动中...", zap.String("env", cfg.App.Env))

	// 初始化验证器
	utils.InitValidator()

	// 初始化数据库
	if err := db.Init(&cfg.Database); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}

	// 初始化存储层
	crypto, err := storage.NewConfigCrypto(cfg.Storage.EncryptKey)
	if err != nil {
		logger.Fatal("初始化凭证加密器失败", zap.Error(err))
	}
	registry := storage.NewRegistry(storage.NewCredentialResolver(), storage.NewSignatureEngine())
	store := storage.NewConfigStore(db.GetDB(), crypto, registry, envFallbacks(&cfg.Storage))

	// 设置路由
	engine := router.SetupRouter(cfg, store)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.App.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.App.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.App.IdleTimeout) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("HTTP服务器启动成功", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("服务器关闭异常", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	logger.Info("服务器已安全关闭")
}

// envFallbacks 把环境变量降级配置转换为运行期存储配置，
// 只纳入凭证齐全的供应商，ID为0表示非数据库配置
func envFallbacks(sc *config.StorageConfig) map[string]*storage.Config {
	fallbacks := make(map[string]*storage.Config)

	if sc.AliyunOSS.AccessKeyID != "" && sc.AliyunOSS.AccessKeySecret != "" && sc.AliyunOSS.Bucket != "" {
		fallbacks[storage.TypeAliyunOSS] = &storage.Config{
			Type:         storage.TypeAliyunOSS,
			Name:         "env-aliyun-oss",
			Bucket:       sc.AliyunOSS.Bucket,
			Region:       sc.AliyunOSS.Region,
			CustomDomain: sc.AliyunOSS.CustomDomain,
			Enabled:      true,
			Material: storage.CredentialMaterial{
				AccessKeyID:     sc.AliyunOSS.AccessKeyID,
				AccessKeySecret: sc.AliyunOSS.AccessKeySecret,
			},
		}
		if sc.AliyunOSS.RoleArn != "" && sc.AliyunOSS.RoleSessionName != "" {
			fallbacks[storage.TypeAliyunOSS].STS = &storage.STSRole{
				RoleArn:         sc.AliyunOSS.RoleArn,
				SessionName:     sc.AliyunOSS.RoleSessionName,
				DurationSeconds: sc.AliyunOSS.DurationSeconds,
			}
		}
	}
	if sc.Qiniu.AccessKey != "" && sc.Qiniu.SecretKey != "" && sc.Qiniu.Bucket != "" {
		fallbacks[storage.TypeQiniu] = &storage.Config{
			Type:         storage.TypeQiniu,
			Name:         "env-qiniu",
			Bucket:       sc.Qiniu.Bucket,
			Region:       sc.Qiniu.Region,
			CustomDomain: sc.Qiniu.CustomDomain,
			Enabled:      true,
			Material: storage.CredentialMaterial{
				AccessKey: sc.Qiniu.AccessKey,
				SecretKey: sc.Qiniu.SecretKey,
			},
		}
	}
	if sc.TencentCOS.SecretID != "" && sc.TencentCOS.SecretKey != "" && sc.TencentCOS.Bucket != "" {
		fallbacks[storage.TypeTencentCOS] = &storage.Config{
			Type:         storage.TypeTencentCOS,
			Name:         "env-tencent-cos",
			Bucket:       sc.TencentCOS.Bucket,
			Region:       sc.TencentCOS.Region,
			CustomDomain: sc.TencentCOS.CustomDomain,
			Enabled:      true,
			Material: storage.CredentialMaterial{
				SecretID:  sc.TencentCOS.SecretID,
				SecretKey: sc.TencentCOS.SecretKey,
				AppID:     sc.TencentCOS.AppID,
			},
		}
	}
	if sc.AWSS3.AccessKeyID != "" && sc.AWSS3.SecretAccessKey != "" && sc.AWSS3.Bucket != "" {
		fallbacks[storage.TypeAWSS3] = &storage.Config{
			Type:         storage.TypeAWSS3,
			Name:         "env-aws-s3",
			Bucket:       sc.AWSS3.Bucket,
			Region:       sc.AWSS3.Region,
			CustomDomain: sc.AWSS3.CustomDomain,
			Enabled:      true,
			Material: storage.CredentialMaterial{
				AccessKeyID:     sc.AWSS3.AccessKeyID,
				SecretAccessKey: sc.AWSS3.SecretAccessKey,
			},
		}
	}

	return fallbacks
}
