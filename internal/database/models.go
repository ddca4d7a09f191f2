package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvForge/internal/resume"
)

// 订阅档位；Template 的付费标记与 Profile.Tier 对应。
const (
	TierFree    = "free"
	TierPremium = "premium"
)

// 导出任务状态。
const (
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Username     string   `gorm:"uniqueIndex;size:64"`
	PasswordHash string   `gorm:"size:255"`
	Resumes      []Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// Profile 表示账号的展示资料，每个用户恰好一条。
// 由注册流程显式创建（EnsureProfile），登录时幂等回填。
type Profile struct {
	gorm.Model
	UserID      uint   `gorm:"uniqueIndex"`
	User        User   `gorm:"constraint:OnDelete:CASCADE"`
	DisplayName string `gorm:"size:128"`
	AvatarKey   string `gorm:"size:512"`
	Tier        string `gorm:"size:16;default:free"`
}

// Resume 表示用户创建的简历。Content 为结构化 JSONB，
// 形态约束见 resume.Content；UserID 创建后不可变更。
type Resume struct {
	gorm.Model
	Title        string         `gorm:"size:255"`
	Content      datatypes.JSON `gorm:"type:jsonb"`
	UserID       uint           `gorm:"index"`
	User         User           `gorm:"constraint:OnDelete:CASCADE"`
	TemplateID   *uint          `gorm:"index"`
	IsPublic     bool           `gorm:"default:false"`
	ExportStatus string         `gorm:"size:32"`
	ExportKey    string         `gorm:"size:512"`
}

// DecodeContent 解码并规范化简历内容。
func (r *Resume) DecodeContent() (resume.Content, error) {
	return resume.Parse([]byte(r.Content))
}

// Template 表示模板目录中的一个条目。目录对所有人只读，
// Rating/Downloads 为种子数据，应用侧不提供写路径。
type Template struct {
	gorm.Model
	Name       string  `gorm:"size:128"`
	Category   string  `gorm:"size:64;index"`
	PreviewKey string  `gorm:"size:512"`
	IsPremium  bool    `gorm:"default:false"`
	Rating     float64 // 0–5，一位小数
	Downloads  int
	Styles     datatypes.JSON `gorm:"type:jsonb"`
}
