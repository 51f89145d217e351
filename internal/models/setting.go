package models

// Setting 租户库设置项 - 键在单个租户库内唯一，跨租户不唯一
type Setting struct {
	BaseModel
	Key         string `json:"key" gorm:"uniqueIndex;not null;size:100"`
	Value       string `json:"value" gorm:"not null;size:2000"`
	Description string `json:"description" gorm:"size:255"`
}

// TableName 表名
func (s *Setting) TableName() string {
	return "settings"
}

// 常用设置键
const (
	SettingKeyBaseURL        = "base_url"
	SettingKeyTaxRate        = "tax_rate"
	SettingKeyCompanyType    = "company_type"
	SettingKeyNotifyProvider = "notification_provider"
	SettingShortURLPrefix    = "short_url_" // short_url_<code> -> 原始长链接
)

// ShortURLKey 短链码对应的设置键
func ShortURLKey(code string) string {
	return SettingShortURLPrefix + code
}
