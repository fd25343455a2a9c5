package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/myysophia/storagehub/internal/db/models"
	"github.com/myysophia/storagehub/internal/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SystemOwnerID 系统级配置的归属ID
const SystemOwnerID uint = 0

// ConfigStore 存储配置持久化层。
// 凭证材料加密后落库，读取时惰性解密；配置变更后同步失效注册表缓存
type ConfigStore struct {
	db        *gorm.DB
	crypto    *ConfigCrypto
	registry  *Registry
	fallbacks map[string]*Config
}

// NewConfigStore 创建配置存储。
// fallbacks 为各存储类型的环境变量降级配置（ID为0），数据库中没有可用配置时使用
func NewConfigStore(db *gorm.DB, crypto *ConfigCrypto, registry *Registry, fallbacks map[string]*Config) *ConfigStore {
	return &ConfigStore{
		db:        db,
		crypto:    crypto,
		registry:  registry,
		fallbacks: fallbacks,
	}
}

// Create 创建存储配置。设为默认时在同一事务内清除同归属同类型的其他默认标记
func (s *ConfigStore) Create(cfg *Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	credential, err := s.crypto.Encrypt(&cfg.Material)
	if err != nil {
		return nil, err
	}

	row := s.toRow(cfg)
	row.Credential = credential

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if cfg.IsDefault {
			if err := clearDefaults(tx, cfg.OwnerID, cfg.Type, 0); err != nil {
				return err
			}
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("创建存储配置失败: %w", err)
	}

	logger.Info("存储配置已创建",
		zap.Uint("configID", row.ID),
		zap.String("type", cfg.Type),
		zap.String("name", cfg.Name))
	return s.toRuntime(row)
}

// Update 更新存储配置。凭证材料非空时重新加密覆盖，为空时保留原凭证
func (s *ConfigStore) Update(id uint, cfg *Config) (*Config, error) {
	var row models.StorageConfig
	if err := s.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError(fmt.Sprintf("存储配置 %d", id))
		}
		return nil, fmt.Errorf("查询存储配置失败: %w", err)
	}

	if cfg.Material == (CredentialMaterial{}) {
		// 保留原凭证再校验，避免只改名称也要求重传密钥
		material, err := s.decryptMaterial(row.Credential)
		if err != nil {
			return nil, err
		}
		cfg.Material = *material
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	credential, err := s.crypto.Encrypt(&cfg.Material)
	if err != nil {
		return nil, err
	}

	row.Name = cfg.Name
	row.StorageType = cfg.Type
	row.Bucket = cfg.Bucket
	row.Region = cfg.Region
	row.CustomDomain = cfg.CustomDomain
	row.Credential = credential
	row.IsDefault = cfg.IsDefault
	row.Enabled = cfg.Enabled
	row.OwnerID = cfg.OwnerID
	applySTS(&row, cfg.STS)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if cfg.IsDefault {
			if err := clearDefaults(tx, cfg.OwnerID, cfg.Type, id); err != nil {
				return err
			}
		}
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("更新存储配置失败: %w", err)
	}

	s.registry.ClearCacheByConfigID(id)
	return s.toRuntime(&row)
}

// SetDefault 把指定配置设为其归属与类型下的默认配置
func (s *ConfigStore) SetDefault(id uint) error {
	var row models.StorageConfig
	if err := s.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError(fmt.Sprintf("存储配置 %d", id))
		}
		return fmt.Errorf("查询存储配置失败: %w", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := clearDefaults(tx, row.OwnerID, row.StorageType, id); err != nil {
			return err
		}
		return tx.Model(&row).Update("is_default", true).Error
	})
	if err != nil {
		return fmt.Errorf("设置默认存储配置失败: %w", err)
	}

	s.registry.ClearCacheByConfigID(id)
	return nil
}

// Delete 软删除存储配置
func (s *ConfigStore) Delete(id uint) error {
	result := s.db.Delete(&models.StorageConfig{}, id)
	if result.Error != nil {
		return fmt.Errorf("删除存储配置失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError(fmt.Sprintf("存储配置 %d", id))
	}

	s.registry.ClearCacheByConfigID(id)
	logger.Info("存储配置已删除", zap.Uint("configID", id))
	return nil
}

// GetByID 按ID查询存储配置
func (s *ConfigStore) GetByID(id uint) (*Config, error) {
	var row models.StorageConfig
	if err := s.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError(fmt.Sprintf("存储配置 %d", id))
		}
		return nil, fmt.Errorf("查询存储配置失败: %w", err)
	}
	return s.toRuntime(&row)
}

// List 查询用户可见的配置，包含其自有配置与系统级配置
func (s *ConfigStore) List(ownerID uint) ([]*Config, error) {
	var rows []models.StorageConfig
	query := s.db.Order("id")
	if ownerID == SystemOwnerID {
		query = query.Where("owner_id = ?", SystemOwnerID)
	} else {
		query = query.Where("owner_id IN ?", []uint{ownerID, SystemOwnerID})
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询存储配置列表失败: %w", err)
	}

	configs := make([]*Config, 0, len(rows))
	for i := range rows {
		cfg, err := s.toRuntime(&rows[i])
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// GetDefaultForType 解析指定类型的默认配置。
// 解析顺序：用户默认配置、系统默认配置、环境变量降级配置；
// 都没有时返回 (nil, nil)，由调用方决定如何处理
func (s *ConfigStore) GetDefaultForType(ownerID uint, storageType string) (*Config, error) {
	for _, owner := range []uint{ownerID, SystemOwnerID} {
		var row models.StorageConfig
		err := s.db.
			Where("owner_id = ? AND storage_type = ? AND is_default = ? AND enabled = ?",
				owner, storageType, true, true).
			First(&row).Error
		if err == nil {
			return s.toRuntime(&row)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("查询默认存储配置失败: %w", err)
		}
		if owner == SystemOwnerID {
			break
		}
	}

	if fallback, ok := s.fallbacks[storageType]; ok {
		logger.Info("使用环境变量降级存储配置", zap.String("type", storageType))
		return fallback, nil
	}
	return nil, nil
}

// GetAdapter 解析配置并获取适配器
func (s *ConfigStore) GetAdapter(id uint) (Adapter, error) {
	cfg, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.registry.GetAdapter(cfg)
}

// GetDefaultAdapter 解析默认配置并获取适配器
func (s *ConfigStore) GetDefaultAdapter(ownerID uint, storageType string) (Adapter, error) {
	cfg, err := s.GetDefaultForType(ownerID, storageType)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, NewConfigError(fmt.Sprintf("没有可用的 %s 存储配置", storageType))
	}
	return s.registry.GetAdapter(cfg)
}

// clearDefaults 清除同归属同类型下其他配置的默认标记
func clearDefaults(tx *gorm.DB, ownerID uint, storageType string, excludeID uint) error {
	query := tx.Model(&models.StorageConfig{}).
		Where("owner_id = ? AND storage_type = ? AND is_default = ?", ownerID, storageType, true)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Update("is_default", false).Error; err != nil {
		return fmt.Errorf("清除默认标记失败: %w", err)
	}
	return nil
}

// decryptMaterial 解密凭证材料。
// 以 { 开头的是历史明文JSON凭证，直接解析兼容
func (s *ConfigStore) decryptMaterial(credential string) (*CredentialMaterial, error) {
	material := &CredentialMaterial{}
	if credential == "" {
		return material, nil
	}
	if strings.HasPrefix(credential, "{") {
		if err := json.Unmarshal([]byte(credential), material); err != nil {
			return nil, NewConfigError("解析历史明文凭证失败")
		}
		return material, nil
	}
	if err := s.crypto.Decrypt(credential, material); err != nil {
		return nil, err
	}
	return material, nil
}

// toRuntime 数据库行转运行期配置
func (s *ConfigStore) toRuntime(row *models.StorageConfig) (*Config, error) {
	material, err := s.decryptMaterial(row.Credential)
	if err != nil {
		logger.Error("解密存储配置凭证失败", zap.Uint("configID", row.ID), zap.Error(err))
		return nil, err
	}

	cfg := &Config{
		ID:           row.ID,
		Type:         row.StorageType,
		Name:         row.Name,
		Bucket:       row.Bucket,
		Region:       row.Region,
		CustomDomain: row.CustomDomain,
		Enabled:      row.Enabled,
		IsDefault:    row.IsDefault,
		OwnerID:      row.OwnerID,
		Material:     *material,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.STSRoleArn != "" {
		cfg.STS = &STSRole{
			RoleArn:         row.STSRoleArn,
			SessionName:     row.STSSessionName,
			DurationSeconds: row.STSDurationSeconds,
		}
	}
	return cfg, nil
}

// toRow 运行期配置转数据库行（不含凭证列）
func (s *ConfigStore) toRow(cfg *Config) *models.StorageConfig {
	row := &models.StorageConfig{
		Name:         cfg.Name,
		StorageType:  cfg.Type,
		Bucket:       cfg.Bucket,
		Region:       cfg.Region,
		CustomDomain: cfg.CustomDomain,
		IsDefault:    cfg.IsDefault,
		Enabled:      cfg.Enabled,
		OwnerID:      cfg.OwnerID,
	}
	applySTS(row, cfg.STS)
	return row
}

// applySTS 同步STS角色字段到数据库行
func applySTS(row *models.StorageConfig, sts *STSRole) {
	if sts == nil {
		row.STSRoleArn = ""
		row.STSSessionName = ""
		row.STSDurationSeconds = 0
		return
	}
	row.STSRoleArn = sts.RoleArn
	row.STSSessionName = sts.SessionName
	row.STSDurationSeconds = sts.DurationSeconds
}
