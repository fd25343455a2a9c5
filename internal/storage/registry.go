package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/myysophia/storagehub/internal/logger"
	"go.uber.org/zap"
)

// stsExpiryMargin STS临时凭证提前失效的安全边界，
// 避免缓存的适配器拿着即将过期的凭证继续签名
const stsExpiryMargin = 5 * time.Minute

// registryEntry 缓存条目，记录构建时的配置指纹与凭证过期时间
type registryEntry struct {
	adapter     Adapter
	configID    uint
	fingerprint string
	expiresAt   time.Time
}

// expired 凭证是否已过期（仅STS凭证有过期时间）
func (e *registryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt.Add(-stsExpiryMargin))
}

// Registry 存储适配器注册表。
// 按配置ID缓存已构建的适配器实例，配置更新或STS凭证过期后自动重建
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*registryEntry
	resolver *CredentialResolver
	engine   *SignatureEngine
	now      func() time.Time
}

// NewRegistry 创建适配器注册表
func NewRegistry(resolver *CredentialResolver, engine *SignatureEngine) *Registry {
	return &Registry{
		entries:  make(map[string]*registryEntry),
		resolver: resolver,
		engine:   engine,
		now:      time.Now,
	}
}

// cacheKey 缓存槽位。环境变量降级配置共用ID 0，
// 必须把存储类型纳入键名，否则不同供应商的降级配置互相覆盖
func cacheKey(cfg *Config) string {
	return fmt.Sprintf("%d:%s", cfg.ID, cfg.Type)
}

// fingerprint 配置指纹。UpdatedAt变化意味着凭证或参数可能已被修改，
// 此时缓存的适配器必须重建
func fingerprint(cfg *Config) string {
	return fmt.Sprintf("%d:%s:%s:%d", cfg.ID, cfg.Type, cfg.Bucket, cfg.UpdatedAt.UnixNano())
}

// GetAdapter 获取配置对应的适配器，优先返回缓存实例
func (r *Registry) GetAdapter(cfg *Config) (Adapter, error) {
	if cfg == nil {
		return nil, NewConfigError("存储配置为空")
	}
	if !cfg.Enabled {
		return nil, NewConfigError(fmt.Sprintf("存储配置 %s 已禁用", cfg.Name))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	key := cacheKey(cfg)
	fp := fingerprint(cfg)

	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()
	if ok && entry.fingerprint == fp && !entry.expired(r.now()) {
		return entry.adapter, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// 双重检查，避免并发请求重复构建同一适配器
	if entry, ok := r.entries[key]; ok && entry.fingerprint == fp && !entry.expired(r.now()) {
		return entry.adapter, nil
	}

	adapter, expiresAt, err := r.build(cfg)
	if err != nil {
		return nil, err
	}

	r.entries[key] = &registryEntry{
		adapter:     adapter,
		configID:    cfg.ID,
		fingerprint: fp,
		expiresAt:   expiresAt,
	}
	logger.Info("存储适配器已构建",
		zap.Uint("configID", cfg.ID),
		zap.String("type", cfg.Type),
		zap.String("bucket", cfg.Bucket))
	return adapter, nil
}

// build 解析凭证并按存储类型构建适配器
func (r *Registry) build(cfg *Config) (Adapter, time.Time, error) {
	creds, err := r.resolver.Resolve(cfg)
	if err != nil {
		return nil, time.Time{}, err
	}

	var adapter Adapter
	switch cfg.Type {
	case TypeAliyunOSS:
		adapter, err = newAliyunAdapter(cfg, creds, r.engine)
	case TypeQiniu:
		adapter, err = newQiniuAdapter(cfg, creds, r.engine)
	case TypeTencentCOS:
		adapter, err = newTencentAdapter(cfg, creds, r.engine)
	case TypeAWSS3:
		adapter, err = newS3Adapter(cfg, creds)
	default:
		return nil, time.Time{}, NewConfigError(fmt.Sprintf("不支持的存储类型: %s", cfg.Type))
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return adapter, creds.Expiration, nil
}

// ClearCacheByConfigID 清除指定配置的缓存适配器，配置被修改或删除时调用
func (r *Registry) ClearCacheByConfigID(configID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, entry := range r.entries {
		if entry.configID == configID {
			delete(r.entries, key)
		}
	}
}

// ClearCache 清空全部缓存
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*registryEntry)
}

// CacheSize 当前缓存的适配器数量
func (r *Registry) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
