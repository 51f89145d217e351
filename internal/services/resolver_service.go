package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"repairhub/internal/database"
	"repairhub/internal/models"
	"repairhub/pkg/logger"
	"repairhub/pkg/queue"

	"gorm.io/gorm"
)

// ResolverService 租户解析服务
// 把调用方身份映射到正确的租户库连接，必要时开通新租户
type ResolverService struct {
	db       *gorm.DB
	registry *database.TenantRegistry
	notify   *queue.NotifyQueue // 可为nil（测试或未配置Redis）

	// 按用户串行化开通，防止同一用户并发开通出两个租户
	provisionMu  sync.Mutex
	provisioning map[uint]*sync.Mutex
}

// NewResolverService 创建租户解析服务
func NewResolverService(db *gorm.DB, registry *database.TenantRegistry, notify *queue.NotifyQueue) *ResolverService {
	return &ResolverService{
		db:           db,
		registry:     registry,
		notify:       notify,
		provisioning: make(map[uint]*sync.Mutex),
	}
}

// Resolve 根据用户ID解析租户库连接
// 返回(nil, nil)表示平台管理员无专属租户，直接操作控制平面
func (s *ResolverService) Resolve(userID uint) (*gorm.DB, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, err
	}
	return s.ResolveUser(&user)
}

// ResolveUser 根据已加载的用户解析租户库连接
func (s *ResolverService) ResolveUser(user *models.User) (*gorm.DB, error) {
	if !user.Approved || user.Suspended {
		return nil, ErrAccessDenied
	}

	if user.HasTenant() {
		if !s.entitled(*user.TenantID) {
			return nil, ErrAccessDenied
		}
		return s.registry.GetOrCreate(*user.TenantID)
	}

	// 平台管理员无专属租户：跨租户操作控制平面，不分配租户库
	if user.IsPlatformAdmin() {
		return nil, nil
	}

	// 已审核且无租户的普通用户：懒开通
	tenant, err := s.provision(user)
	if err != nil {
		return nil, err
	}
	return s.registry.GetOrCreate(tenant.ID)
}

// provision 开通新租户：创建目录记录、回写用户归属、初始化租户库
func (s *ResolverService) provision(user *models.User) (*models.Tenant, error) {
	lock := s.userLock(user.ID)
	lock.Lock()
	defer lock.Unlock()

	// 拿到锁后重读用户，竞争的开通请求在这里收敛
	var fresh models.User
	if err := s.db.First(&fresh, user.ID).Error; err != nil {
		return nil, fmt.Errorf("%w: 重读用户失败: %v", ErrProvisioning, err)
	}
	if fresh.HasTenant() {
		var existing models.Tenant
		if err := s.db.First(&existing, *fresh.TenantID).Error; err != nil {
			return nil, fmt.Errorf("%w: 读取已有租户失败: %v", ErrProvisioning, err)
		}
		user.TenantID = fresh.TenantID
		return &existing, nil
	}

	tenant := &models.Tenant{
		Name:         defaultTenantName(&fresh),
		Code:         defaultTenantCode(&fresh),
		ContactEmail: fresh.Email,
		Phone:        fresh.Phone,
		Status:       models.TenantStatusActive,
	}

	// 先建目录记录再回写用户，两步在同一事务内
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}
		trialEnd := time.Now().AddDate(0, 0, 14)
		sub := &models.Subscription{
			TenantID:    tenant.ID,
			Status:      models.SubscriptionStatusTrialing,
			TrialEndsAt: &trialEnd,
		}
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", fresh.ID).
			Update("tenant_id", tenant.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}
	user.TenantID = &tenant.ID

	// 初始化租户库，失败可重试：目录记录已在，下次解析走已有租户路径补建库
	if _, err := s.registry.GetOrCreate(tenant.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}

	logger.GetLogger().Infof("Provisioned tenant %d (%s) for user %d", tenant.ID, tenant.Code, fresh.ID)

	// 欢迎通知入队，失败不影响开通结果
	if s.notify != nil {
		if _, err := s.notify.Enqueue(tenant.ID, fresh.ID, "email", queue.TemplateTenantWelcome, map[string]interface{}{
			"tenant_name": tenant.Name,
		}); err != nil {
			logger.GetLogger().Warnf("Failed to enqueue welcome notification: %v", err)
		}
	}

	return tenant, nil
}

// entitled 订阅资格门槛：已取消或试用过期拒绝，无订阅记录放行
func (s *ResolverService) entitled(tenantID uint) bool {
	var sub models.Subscription
	err := s.db.Where("tenant_id = ?", tenantID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true
		}
		logger.GetLogger().Warnf("Subscription lookup failed for tenant %d: %v", tenantID, err)
		return true
	}
	return sub.Entitled(time.Now())
}

func (s *ResolverService) userLock(userID uint) *sync.Mutex {
	s.provisionMu.Lock()
	defer s.provisionMu.Unlock()
	lock, ok := s.provisioning[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.provisioning[userID] = lock
	}
	return lock
}

// defaultTenantName 由用户信息推导默认门店名
func defaultTenantName(user *models.User) string {
	if user.Name != "" {
		return user.Name + "的维修店"
	}
	return user.Username + "的维修店"
}

// defaultTenantCode 由用户名推导租户代码，带用户ID避免冲突
func defaultTenantCode(user *models.User) string {
	return fmt.Sprintf("shop-%s-%d", user.Username, user.ID)
}
