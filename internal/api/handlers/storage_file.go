package handlers

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/myysophia/storagehub/internal/logger"
	"github.com/myysophia/storagehub/internal/storage"
	"github.com/myysophia/storagehub/internal/utils"
	"go.uber.org/zap"
)

// StorageFileHandler 对象文件操作
type StorageFileHandler struct {
	BaseHandler
	store *storage.ConfigStore
}

// NewStorageFileHandler 创建文件操作处理器
func NewStorageFileHandler(store *storage.ConfigStore) *StorageFileHandler {
	return &StorageFileHandler{store: store}
}

// adapterFromRequest 按请求定位适配器：优先 config_id，
// 否则按 storage_type 解析默认配置
func (h *StorageFileHandler) adapterFromRequest(c *gin.Context) (storage.Adapter, error) {
	if raw := c.Query("config_id"); raw != "" {
		var id uint
		if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
			return nil, storage.NewConfigError("config_id格式错误")
		}
		return h.store.GetAdapter(id)
	}

	storageType := c.Query("storage_type")
	if storageType == "" {
		storageType = storage.TypeAliyunOSS
	}
	return h.store.GetDefaultAdapter(utils.GetUserID(c), storageType)
}

// Upload 服务端上传文件
func (h *StorageFileHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		utils.ResponseBadRequest(c, err)
		return
	}

	adapter, err := h.adapterFromRequest(c)
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}

	src, err := file.Open()
	if err != nil {
		utils.ResponseInternalError(c, err)
		return
	}
	defer src.Close()

	objectKey := utils.GenerateObjectKey(utils.GetUsername(c), filepath.Ext(file.Filename))
	result, err := adapter.Upload(c.Request.Context(), objectKey, src, &storage.UploadOptions{
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
	})
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}

	logger.Info("文件上传成功",
		zap.String("objectKey", result.Name),
		zap.String("bucket", adapter.BucketName()),
		zap.Int64("size", file.Size))
	utils.ResponseWithData(c, result)
}

// Download 下载对象并流式返回
func (h *StorageFileHandler) Download(c *gin.Context) {
	objectKey := c.Query("object_key")
	if objectKey == "" {
		utils.ResponseBadRequest(c, fmt.Errorf("缺少object_key参数"))
		return
	}

	adapter, err := h.adapterFromRequest(c)
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}

	var opts *storage.DownloadOptions
	if rawStart, rawEnd := c.Query("range_start"), c.Query("range_end"); rawStart != "" || rawEnd != "" {
		opts = &storage.DownloadOptions{}
		if rawStart != "" {
			if _, err := fmt.Sscanf(rawStart, "%d", &opts.RangeStart); err != nil {
				utils.ResponseBadRequest(c, fmt.Errorf("range_start参数格式错误"))
				return
			}
		}
		if rawEnd != "" {
			if _, err := fmt.Sscanf(rawEnd, "%d", &opts.RangeEnd); err != nil {
				utils.ResponseBadRequest(c, fmt.Errorf("range_end参数格式错误"))
				return
			}
		}
	}

	body, err := adapter.DownloadStream(c.Request.Context(), objectKey, opts)
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(objectKey)))
	c.Header("Content-Type", "application/octet-stream")
	if _, err := io.Copy(c.Writer, body); err != nil {
		logger.Error("下载流写出失败", zap.String("objectKey", objectKey), zap.Error(err))
	}
}

// DeleteRequest 删除请求体
type DeleteRequest struct {
	ObjectKeys []string `json:"object_keys" validate:"required,min=1"`
}

// Delete 删除一个或多个对象
func (h *StorageFileHandler) Delete(c *gin.Context) {
	var req DeleteRequest
	if err := utils.BindAndValidate(c, &req); err != nil {
		utils.ResponseBadRequest(c, err)
		return
	}

	adapter, err := h.adapterFromRequest(c)
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}

	result, err := adapter.Delete(c.Request.Context(), req.ObjectKeys...)
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}
	utils.ResponseWithData(c, result)
}

// SignURL 生成预签名URL
func (h *StorageFileHandler) SignURL(c *gin.Context) {
	objectKey := c.Query("object_key")
	if objectKey == "" {
		utils.ResponseBadRequest(c, fmt.Errorf("缺少object_key参数"))
		return
	}

	adapter, err := h.adapterFromRequest(c)
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}

	opts := &storage.SignURLOptions{Method: c.Query("method")}
	if raw := c.Query("expires"); raw != "" {
		var seconds int64
		if _, err := fmt.Sscanf(raw, "%d", &seconds); err != nil || seconds <= 0 {
			utils.ResponseBadRequest(c, fmt.Errorf("expires参数格式错误"))
			return
		}
		opts.Expires = time.Duration(seconds) * time.Second
	}

	signedURL, err := adapter.SignURL(c.Request.Context(), objectKey, opts)
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}
	utils.ResponseWithData(c, gin.H{"url": signedURL})
}

// PostPolicyRequest 直传签名请求体
type PostPolicyRequest struct {
	ExpirationMinutes int                       `json:"expiration_minutes"`
	Dir               string                    `json:"dir"`
	FileKey           *storage.FileKeyOptions   `json:"file_key"`
	Callback          *storage.CallbackOptions  `json:"callback"`
	Conditions        *storage.PolicyConditions `json:"conditions"`
}

// PostPolicy 生成浏览器直传POST签名
func (h *StorageFileHandler) PostPolicy(c *gin.Context) {
	var req PostPolicyRequest
	if err := utils.BindAndValidate(c, &req); err != nil {
		utils.ResponseBadRequest(c, err)
		return
	}

	adapter, err := h.adapterFromRequest(c)
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}

	signature, err := adapter.PostSignature(c.Request.Context(), &storage.PostPolicyOptions{
		ExpirationMinutes: req.ExpirationMinutes,
		Dir:               req.Dir,
		FileKey:           req.FileKey,
		Callback:          req.Callback,
		Conditions:        req.Conditions,
	})
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}
	utils.ResponseWithData(c, signature)
}
