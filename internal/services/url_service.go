package services

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"repairhub/internal/database"
	"repairhub/internal/models"
	"repairhub/pkg/config"
	"repairhub/pkg/logger"

	"gorm.io/gorm"
)

// 短链码参数
const (
	ShortCodeLength   = 8
	ShortCodeAttempts = 10
	shortCodeCharset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// baseURLCacheTTL 基础URL缓存有效期
const baseURLCacheTTL = 30 * time.Second

type baseURLEntry struct {
	url       string
	expiresAt time.Time
}

// URLService 基础URL与短链服务
// 基础URL分层解析：本租户设置 → 跨租户扫描 → 环境变量回退链 → 本地默认值
type URLService struct {
	db       *gorm.DB
	registry *database.TenantRegistry
	scanner  *ScannerService
	settings *SettingsCache
	fallback config.BaseURLConfig

	mu    sync.RWMutex
	cache map[uint]baseURLEntry // 键0表示无租户上下文
}

// NewURLService 创建URL服务
func NewURLService(db *gorm.DB, registry *database.TenantRegistry, scanner *ScannerService, settings *SettingsCache, fallback config.BaseURLConfig) *URLService {
	return &URLService{
		db:       db,
		registry: registry,
		scanner:  scanner,
		settings: settings,
		fallback: fallback,
		cache:    make(map[uint]baseURLEntry),
	}
}

// BaseURL 解析基础URL，tenantID为0表示无租户上下文
// 结果短TTL缓存，末尾斜杠统一去除
func (s *URLService) BaseURL(tenantID uint) string {
	s.mu.RLock()
	entry, ok := s.cache[tenantID]
	s.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.url
	}

	url := s.resolveBaseURL(tenantID)
	url = strings.TrimRight(url, "/")

	s.mu.Lock()
	s.cache[tenantID] = baseURLEntry{url: url, expiresAt: time.Now().Add(baseURLCacheTTL)}
	s.mu.Unlock()

	return url
}

func (s *URLService) resolveBaseURL(tenantID uint) string {
	// 有租户上下文：只看本租户设置，缺失直接走环境回退链
	if tenantID > 0 {
		if store, err := s.registry.GetOrCreate(tenantID); err == nil {
			if url := s.settings.GetString(tenantID, store, models.SettingKeyBaseURL, ""); url != "" {
				return url
			}
		} else {
			logger.GetLogger().Warnf("BaseURL: open tenant %d store failed: %v", tenantID, err)
		}
		return s.envFallback()
	}

	// 无租户上下文：有界扫描全部租户的base_url设置
	if _, url, err := s.scanner.FindSetting(models.SettingKeyBaseURL); err == nil {
		return url
	}
	return s.envFallback()
}

// envFallback 环境变量回退链，按顺序取第一个非空值
func (s *URLService) envFallback() string {
	for _, candidate := range []string{s.fallback.CallbackURL, s.fallback.AppURL, s.fallback.PublicURL} {
		if candidate != "" {
			return candidate
		}
	}
	return s.fallback.Default
}

// InvalidateBaseURL 失效基础URL缓存，写入base_url设置后必须调用
// 无上下文解析可能扫描到该租户，两个缓存键一起失效
func (s *URLService) InvalidateBaseURL(tenantID uint) {
	s.mu.Lock()
	delete(s.cache, tenantID)
	delete(s.cache, 0)
	s.mu.Unlock()
}

// Shorten 为长链接生成或复用短链码
// 复用顺序：本租户已有映射 → 其他租户已有映射（复制回本租户）→ 新生成
func (s *URLService) Shorten(tenantID uint, longURL string) (string, error) {
	if longURL == "" {
		return "", fmt.Errorf("长链接不能为空")
	}

	// 无租户上下文时只能复用扫描命中的映射
	if tenantID == 0 {
		if code, err := s.scanForCode(longURL); err == nil {
			return code, nil
		}
		return "", ErrNotFound
	}

	store, err := s.registry.GetOrCreate(tenantID)
	if err != nil {
		return "", err
	}

	// 1. 本租户已有该长链接的映射，直接复用
	if code, ok := s.findOwnCode(tenantID, store, longURL); ok {
		return code, nil
	}

	// 2. 其他租户已有映射：把映射复制进本租户库，缩短后续扫描
	if code, err := s.scanForCode(longURL); err == nil {
		settings := s.settings.Get(tenantID, store)
		if existing, ok := settings[models.ShortURLKey(code)]; !ok || existing == longURL {
			if err := s.settings.Set(tenantID, store, models.ShortURLKey(code), longURL); err != nil {
				logger.GetLogger().Warnf("Shorten: copy-forward failed for tenant %d: %v", tenantID, err)
			} else {
				return code, nil
			}
		}
		// 本租户该码已被其他链接占用或写入失败，退回到新生成
	}

	// 3. 生成新码，有限次数内检查本租户冲突
	code, err := s.mintCode(tenantID, store)
	if err != nil {
		return "", err
	}
	if err := s.settings.Set(tenantID, store, models.ShortURLKey(code), longURL); err != nil {
		return "", err
	}
	return code, nil
}

// ResolveCode 短链码还原为长链接
// 有租户上下文只查本租户库；匿名访问没有上下文，走有界扫描
func (s *URLService) ResolveCode(tenantID uint, code string) (string, error) {
	if code == "" {
		return "", ErrNotFound
	}

	if tenantID > 0 {
		store, err := s.registry.GetOrCreate(tenantID)
		if err != nil {
			return "", err
		}
		if url, ok := s.settings.Get(tenantID, store)[models.ShortURLKey(code)]; ok && url != "" {
			return url, nil
		}
		return "", ErrNotFound
	}

	_, url, err := s.scanner.FindSetting(models.ShortURLKey(code))
	if err != nil {
		return "", err
	}
	return url, nil
}

// findOwnCode 在本租户设置中查找长链接已有的短码
func (s *URLService) findOwnCode(tenantID uint, store *gorm.DB, longURL string) (string, bool) {
	for key, value := range s.settings.Get(tenantID, store) {
		if strings.HasPrefix(key, models.SettingShortURLPrefix) && value == longURL {
			return strings.TrimPrefix(key, models.SettingShortURLPrefix), true
		}
	}
	return "", false
}

// scanForCode 跨租户查找长链接已有的短码
func (s *URLService) scanForCode(longURL string) (string, error) {
	var code string
	_, err := s.scanner.Scan(func(_ uint, store *gorm.DB) (bool, error) {
		var setting models.Setting
		err := store.Where("value = ? AND key LIKE ?", longURL, models.SettingShortURLPrefix+"%").
			First(&setting).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		code = strings.TrimPrefix(setting.Key, models.SettingShortURLPrefix)
		return true, nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// mintCode 生成URL安全的随机短码，在本租户内检查冲突
func (s *URLService) mintCode(tenantID uint, store *gorm.DB) (string, error) {
	settings := s.settings.Get(tenantID, store)
	for attempt := 0; attempt < ShortCodeAttempts; attempt++ {
		code := randomCode(ShortCodeLength)
		if _, taken := settings[models.ShortURLKey(code)]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("短码生成冲突重试%d次仍失败", ShortCodeAttempts)
}

func randomCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = shortCodeCharset[rand.Intn(len(shortCodeCharset))]
	}
	return string(b)
}
