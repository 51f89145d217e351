package services

import (
	"errors"
)

// ========== 领域错误定义 ==========

var (
	// ErrAccessDenied 调用方未审核通过/被停用/无订阅资格，作为返回值而非异常
	ErrAccessDenied = errors.New("访问被拒绝")

	// ErrProvisioning 租户开通失败，可重试
	ErrProvisioning = errors.New("租户开通失败")

	// ErrNotFound 扫描/查找未命中，属正常结果而非故障
	ErrNotFound = errors.New("未找到匹配项")
)
