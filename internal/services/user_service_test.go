package services

import (
	"errors"
	"testing"

	"repairhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserServiceGetByEmail(t *testing.T) {
	db, _ := newTestEnv(t)
	service := NewUserService(db)
	created := createUser(t, db, "meister", models.RoleTenantMember, nil, true)

	user, err := service.GetByEmail("meister@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Equal(t, "meister", user.Username)

	_, err = service.GetByEmail("nobody@example.com")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUserServiceIsActive(t *testing.T) {
	db, _ := newTestEnv(t)
	service := NewUserService(db)

	active := createUser(t, db, "active", models.RoleTenantMember, nil, true)
	assert.True(t, service.IsActive(active))

	// 未审核或已停用都不可用
	pending := createUser(t, db, "pending", models.RoleTenantMember, nil, false)
	assert.False(t, service.IsActive(pending))

	suspended := createUser(t, db, "suspended", models.RoleTenantMember, nil, true)
	suspended.Suspended = true
	assert.False(t, service.IsActive(suspended))
}
