package router

import (
	"github.com/gin-gonic/gin"
	"github.com/myysophia/storagehub/internal/api/handlers"
	"github.com/myysophia/storagehub/internal/api/middleware"
	"github.com/myysophia/storagehub/internal/config"
	"github.com/myysophia/storagehub/internal/storage"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, store *storage.ConfigStore) *gin.Engine {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(middleware.Cors())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 路由组
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWT(&cfg.JWT))
	{
		// 存储配置管理路由
		configHandler := handlers.NewStorageConfigHandler(store)
		configs := v1.Group("/storage/configs")
		{
			configs.POST("", configHandler.Create)
			configs.GET("", configHandler.List)
			configs.GET("/:id", configHandler.Get)
			configs.PUT("/:id", configHandler.Update)
			configs.DELETE("/:id", configHandler.Delete)
			configs.PUT("/:id/default", configHandler.SetDefault)
			configs.POST("/:id/test", configHandler.TestConnection)
		}

		// 对象文件操作路由
		fileHandler := handlers.NewStorageFileHandler(store)
		files := v1.Group("/storage/files")
		{
			files.POST("", fileHandler.Upload)
			files.GET("/download", fileHandler.Download)
			files.DELETE("", fileHandler.Delete)
			files.GET("/sign-url", fileHandler.SignURL)
			files.POST("/post-policy", fileHandler.PostPolicy)
		}
	}

	return r
}
