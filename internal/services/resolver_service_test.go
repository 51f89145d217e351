package services

import (
	"sync"
	"testing"
	"time"

	"repairhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestResolveDeniesUnapprovedUser(t *testing.T) {
	db, registry := newTestEnv(t)
	resolver := NewResolverService(db, registry, nil)

	user := createUser(t, db, "pending", models.RoleTenantMember, nil, false)

	store, err := resolver.Resolve(user.ID)
	assert.Nil(t, store)
	assert.ErrorIs(t, err, ErrAccessDenied)

	// 未审核用户不触发开通
	var count int64
	require.NoError(t, db.Model(&models.Tenant{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestResolveDeniesSuspendedUser(t *testing.T) {
	db, registry := newTestEnv(t)
	resolver := NewResolverService(db, registry, nil)

	tenant := createTenant(t, db, "某维修店", "shop-x")
	user := createUser(t, db, "banned", models.RoleTenantMember, &tenant.ID, true)
	require.NoError(t, db.Model(user).Update("suspended", true).Error)

	_, err := resolver.Resolve(user.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestResolveReturnsTenantStore(t *testing.T) {
	db, registry := newTestEnv(t)
	resolver := NewResolverService(db, registry, nil)

	tenant := createTenant(t, db, "某维修店", "shop-a")
	user := createUser(t, db, "owner", models.RoleTenantMember, &tenant.ID, true)

	store, err := resolver.Resolve(user.ID)
	require.NoError(t, err)
	require.NotNil(t, store)

	// 再次解析拿到同一个连接
	again, err := resolver.Resolve(user.ID)
	require.NoError(t, err)
	assert.Same(t, store, again)
}

func TestResolvePlatformAdminWithoutTenant(t *testing.T) {
	db, registry := newTestEnv(t)
	resolver := NewResolverService(db, registry, nil)

	admin := createUser(t, db, "root", models.RolePlatformAdmin, nil, true)

	store, err := resolver.Resolve(admin.ID)
	// 无租户的平台管理员：不分配租户库，直接操作控制平面
	assert.NoError(t, err)
	assert.Nil(t, store)
	assert.Zero(t, registry.Len())
}

func TestResolveProvisionsLazily(t *testing.T) {
	db, registry := newTestEnv(t)
	resolver := NewResolverService(db, registry, nil)

	user := createUser(t, db, "newshop", models.RoleTenantMember, nil, true)

	store, err := resolver.Resolve(user.ID)
	require.NoError(t, err)
	require.NotNil(t, store)

	// 租户记录已创建且回写到用户
	var fresh models.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	require.True(t, fresh.HasTenant())

	var tenant models.Tenant
	require.NoError(t, db.First(&tenant, *fresh.TenantID).Error)
	assert.Contains(t, tenant.Name, "newshop")
	assert.Equal(t, fresh.Email, tenant.ContactEmail)

	// 默认进入试用订阅
	var sub models.Subscription
	require.NoError(t, db.Where("tenant_id = ?", tenant.ID).First(&sub).Error)
	assert.Equal(t, models.SubscriptionStatusTrialing, sub.Status)
}

func TestResolveProvisionsExactlyOnce(t *testing.T) {
	db, registry := newTestEnv(t)
	resolver := NewResolverService(db, registry, nil)

	user := createUser(t, db, "oneshop", models.RoleTenantMember, nil, true)

	_, err := resolver.Resolve(user.ID)
	require.NoError(t, err)
	_, err = resolver.Resolve(user.ID)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Tenant{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "重复解析不得开通第二个租户")
}

func TestResolveConcurrentProvisionSingleTenant(t *testing.T) {
	db, registry := newTestEnv(t)
	resolver := NewResolverService(db, registry, nil)

	user := createUser(t, db, "raceshop", models.RoleTenantMember, nil, true)

	const workers = 10
	stores := make([]*gorm.DB, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			store, err := resolver.Resolve(user.ID)
			assert.NoError(t, err)
			stores[idx] = store
		}(i)
	}
	wg.Wait()

	var count int64
	require.NoError(t, db.Model(&models.Tenant{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	for i := 1; i < workers; i++ {
		assert.Same(t, stores[0], stores[i])
	}
}

func TestResolveDeniesCanceledSubscription(t *testing.T) {
	db, registry := newTestEnv(t)
	resolver := NewResolverService(db, registry, nil)

	tenant := createTenant(t, db, "欠费店", "shop-canceled")
	require.NoError(t, db.Create(&models.Subscription{
		TenantID: tenant.ID,
		Status:   models.SubscriptionStatusCanceled,
	}).Error)
	user := createUser(t, db, "canceled", models.RoleTenantMember, &tenant.ID, true)

	_, err := resolver.Resolve(user.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestResolveDeniesExpiredTrial(t *testing.T) {
	db, registry := newTestEnv(t)
	resolver := NewResolverService(db, registry, nil)

	tenant := createTenant(t, db, "过期店", "shop-expired")
	expired := time.Now().AddDate(0, 0, -1)
	require.NoError(t, db.Create(&models.Subscription{
		TenantID:    tenant.ID,
		Status:      models.SubscriptionStatusTrialing,
		TrialEndsAt: &expired,
	}).Error)
	user := createUser(t, db, "expired", models.RoleTenantMember, &tenant.ID, true)

	_, err := resolver.Resolve(user.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}
