package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileStore 封装用户资料的读写，所有操作都以 userID 为作用域。
type ProfileStore struct {
	db *gorm.DB
}

// NewProfileStore 构造 ProfileStore。
func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Ensure 确保用户恰好存在一条资料记录，重复调用幂等。
// 注册后同步调用；登录时再调用一次，回填历史账号。
func (s *ProfileStore) Ensure(ctx context.Context, userID uint, displayName string) (Profile, error) {
	profile := Profile{
		UserID:      userID,
		DisplayName: displayName,
		Tier:        TierFree,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&profile).Error
	if err != nil {
		return Profile{}, err
	}

	// 冲突时 Create 不回读已有行，统一再查一次。
	return s.Get(ctx, userID)
}

// Get 读取用户的资料。
func (s *ProfileStore) Get(ctx context.Context, userID uint) (Profile, error) {
	var profile Profile
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error; err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// UpdateDisplayName 更新展示名。
func (s *ProfileStore) UpdateDisplayName(ctx context.Context, userID uint, displayName string) (Profile, error) {
	result := s.db.WithContext(ctx).
		Model(&Profile{}).
		Where("user_id = ?", userID).
		Update("display_name", displayName)
	if result.Error != nil {
		return Profile{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Profile{}, gorm.ErrRecordNotFound
	}
	return s.Get(ctx, userID)
}

// SetAvatarKey 记录头像在对象存储中的键。
func (s *ProfileStore) SetAvatarKey(ctx context.Context, userID uint, objectKey string) error {
	result := s.db.WithContext(ctx).
		Model(&Profile{}).
		Where("user_id = ?", userID).
		Update("avatar_key", objectKey)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
