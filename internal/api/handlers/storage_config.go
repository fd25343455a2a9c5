package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/myysophia/storagehub/internal/storage"
	"github.com/myysophia/storagehub/internal/utils"
)

// StorageConfigHandler 存储配置管理
type StorageConfigHandler struct {
	BaseHandler
	store *storage.ConfigStore
}

// NewStorageConfigHandler 创建存储配置处理器
func NewStorageConfigHandler(store *storage.ConfigStore) *StorageConfigHandler {
	return &StorageConfigHandler{store: store}
}

// ConfigRequest 存储配置请求体
type ConfigRequest struct {
	Name         string           `json:"name" validate:"required"`
	StorageType  string           `json:"storage_type" validate:"required,storage_type"`
	Bucket       string           `json:"bucket" validate:"required"`
	Region       string           `json:"region"`
	CustomDomain string           `json:"custom_domain"`
	Enabled      *bool            `json:"enabled"`
	IsDefault    bool             `json:"is_default"`
	Material     *MaterialRequest `json:"credential"`
	STS          *STSRequest      `json:"sts"`
}

// toConfig 请求体转运行期配置
func (r *ConfigRequest) toConfig(ownerID uint) *storage.Config {
	cfg := &storage.Config{
		Type:         r.StorageType,
		Name:         r.Name,
		Bucket:       r.Bucket,
		Region:       r.Region,
		CustomDomain: r.CustomDomain,
		Enabled:      true,
		IsDefault:    r.IsDefault,
		OwnerID:      ownerID,
	}
	if r.Enabled != nil {
		cfg.Enabled = *r.Enabled
	}
	if r.Material != nil {
		cfg.Material = r.Material.ToMaterial()
	}
	if r.STS != nil {
		cfg.STS = r.STS.ToRole()
	}
	return cfg
}

// Create 创建存储配置
func (h *StorageConfigHandler) Create(c *gin.Context) {
	var req ConfigRequest
	if err := utils.BindAndValidate(c, &req); err != nil {
		utils.ResponseBadRequest(c, err)
		return
	}

	cfg, err := h.store.Create(req.toConfig(utils.GetUserID(c)))
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}
	utils.ResponseWithData(c, cfg)
}

// List 查询当前用户可见的存储配置
func (h *StorageConfigHandler) List(c *gin.Context) {
	configs, err := h.store.List(utils.GetUserID(c))
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}
	utils.ResponseWithData(c, configs)
}

// Get 查询单个存储配置
func (h *StorageConfigHandler) Get(c *gin.Context) {
	id, err := h.ParseUintParam(c, "id")
	if err != nil {
		utils.ResponseBadRequest(c, err)
		return
	}

	cfg, err := h.store.GetByID(id)
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}
	utils.ResponseWithData(c, cfg)
}

// Update 更新存储配置
func (h *StorageConfigHandler) Update(c *gin.Context) {
	id, err := h.ParseUintParam(c, "id")
	if err != nil {
		utils.ResponseBadRequest(c, err)
		return
	}

	var req ConfigRequest
	if err := utils.BindAndValidate(c, &req); err != nil {
		utils.ResponseBadRequest(c, err)
		return
	}

	cfg, err := h.store.Update(id, req.toConfig(utils.GetUserID(c)))
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}
	utils.ResponseWithData(c, cfg)
}

// Delete 删除存储配置
func (h *StorageConfigHandler) Delete(c *gin.Context) {
	id, err := h.ParseUintParam(c, "id")
	if err != nil {
		utils.ResponseBadRequest(c, err)
		return
	}

	if err := h.store.Delete(id); err != nil {
		utils.ResponseStorageError(c, err)
		return
	}
	utils.ResponseSuccess(c)
}

// SetDefault 设为默认存储配置
func (h *StorageConfigHandler) SetDefault(c *gin.Context) {
	id, err := h.ParseUintParam(c, "id")
	if err != nil {
		utils.ResponseBadRequest(c, err)
		return
	}

	if err := h.store.SetDefault(id); err != nil {
		utils.ResponseStorageError(c, err)
		return
	}
	utils.ResponseSuccess(c)
}

// TestConnection 测试存储配置连通性
func (h *StorageConfigHandler) TestConnection(c *gin.Context) {
	id, err := h.ParseUintParam(c, "id")
	if err != nil {
		utils.ResponseBadRequest(c, err)
		return
	}

	adapter, err := h.store.GetAdapter(id)
	if err != nil {
		utils.ResponseStorageError(c, err)
		return
	}

	utils.ResponseWithData(c, gin.H{
		"connected": adapter.TestConnection(c.Request.Context()),
	})
}
