package services

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"repairhub/internal/models"
	"repairhub/pkg/logger"

	"gorm.io/gorm"
)

// SettingsCacheTTL 设置缓存有效期
const SettingsCacheTTL = 30 * time.Second

// 公司类型常量（决定税制）
const (
	CompanyTypeStandard      = "standard"
	CompanyTypeSmallBusiness = "small_business" // 小规模经营者，零税率
)

// StandardTaxRate 标准税率默认值
const StandardTaxRate = 19.0

type settingsEntry struct {
	values    map[string]string
	expiresAt time.Time
}

// SettingsCache 租户设置缓存
// 短TTL加显式失效：写入后必须调用Invalidate，读取方才能立即看到新值
type SettingsCache struct {
	mu      sync.RWMutex
	entries map[uint]settingsEntry
	ttl     time.Duration
}

// NewSettingsCache 创建设置缓存
func NewSettingsCache() *SettingsCache {
	return &SettingsCache{
		entries: make(map[uint]settingsEntry),
		ttl:     SettingsCacheTTL,
	}
}

// Get 读取租户全部设置，TTL内返回缓存
// 设置读取对外永不失败：查询出错记录日志并返回空表
func (c *SettingsCache) Get(tenantID uint, store *gorm.DB) map[string]string {
	c.mu.RLock()
	entry, ok := c.entries[tenantID]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.values
	}

	values := make(map[string]string)
	var settings []*models.Setting
	if err := store.Find(&settings).Error; err != nil {
		logger.GetLogger().Warnf("Settings load failed for tenant %d: %v", tenantID, err)
		return values
	}
	for _, s := range settings {
		values[s.Key] = s.Value
	}

	c.mu.Lock()
	c.entries[tenantID] = settingsEntry{
		values:    values,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()

	return values
}

// Invalidate 显式失效某租户的缓存，每次写设置后必须调用
func (c *SettingsCache) Invalidate(tenantID uint) {
	c.mu.Lock()
	delete(c.entries, tenantID)
	c.mu.Unlock()
}

// Set 写入单个设置项并失效缓存
func (c *SettingsCache) Set(tenantID uint, store *gorm.DB, key, value string) error {
	var setting models.Setting
	err := store.Where("key = ?", key).First(&setting).Error
	switch {
	case err == nil:
		setting.Value = value
		err = store.Save(&setting).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = store.Create(&models.Setting{Key: key, Value: value}).Error
	}
	if err != nil {
		return err
	}

	c.Invalidate(tenantID)
	return nil
}

// GetString 读取单个设置，缺失时返回默认值
func (c *SettingsCache) GetString(tenantID uint, store *gorm.DB, key, defaultValue string) string {
	if value, ok := c.Get(tenantID, store)[key]; ok && value != "" {
		return value
	}
	return defaultValue
}

// GetBool 读取布尔设置（"true"/"false"字符串），缺失或格式错误返回默认值
func (c *SettingsCache) GetBool(tenantID uint, store *gorm.DB, key string, defaultValue bool) bool {
	value, ok := c.Get(tenantID, store)[key]
	if !ok || value == "" {
		return defaultValue
	}
	return strings.ToLower(value) == "true"
}

// TaxRate 读取税率
// 未设置公司类型或小规模经营者按零税率处理，解析失败回落到标准税率
func (c *SettingsCache) TaxRate(tenantID uint, store *gorm.DB) float64 {
	values := c.Get(tenantID, store)

	companyType := values[models.SettingKeyCompanyType]
	if companyType == "" || companyType == CompanyTypeSmallBusiness {
		return 0
	}

	raw := values[models.SettingKeyTaxRate]
	if raw == "" {
		return StandardTaxRate
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return StandardTaxRate
	}
	return rate
}
