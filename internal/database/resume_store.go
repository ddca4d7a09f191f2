package database

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvForge/internal/resume"
)

// DefaultResumeTitle 是创建简历时的默认标题。
const DefaultResumeTitle = "Untitled Resume"

// ResumeStore 封装简历的全部读写路径，并在查询谓词中落实访问控制：
// 写操作只匹配 owner 行，读操作额外放行 is_public 行。
// 越权访问与记录缺失一样返回 gorm.ErrRecordNotFound，调用方无法区分。
type ResumeStore struct {
	db *gorm.DB
}

// NewResumeStore 构造 ResumeStore。
func NewResumeStore(db *gorm.DB) *ResumeStore {
	return &ResumeStore{db: db}
}

// ListOwned 返回用户的全部简历，按最近更新排序。
func (s *ResumeStore) ListOwned(ctx context.Context, ownerID uint) ([]Resume, error) {
	var resumes []Resume
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&resumes).Error; err != nil {
		return nil, err
	}
	return resumes, nil
}

// CountOwned 返回用户的简历数量（用于限额检查）。
func (s *ResumeStore) CountOwned(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Resume{}).
		Where("user_id = ?", ownerID).
		Count(&count).Error
	return count, err
}

// Create 为用户插入一份新简历，内容为规范化的空结构。
func (s *ResumeStore) Create(ctx context.Context, ownerID uint, title string, templateID *uint) (Resume, error) {
	if title == "" {
		title = DefaultResumeTitle
	}

	data, err := resume.Empty().Encode()
	if err != nil {
		return Resume{}, err
	}

	model := Resume{
		Title:      title,
		Content:    datatypes.JSON(data),
		UserID:     ownerID,
		TemplateID: templateID,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return Resume{}, err
	}
	return model, nil
}

// GetOwned 按 ID 读取属于指定用户的简历。
func (s *ResumeStore) GetOwned(ctx context.Context, id, ownerID uint) (Resume, error) {
	var model Resume
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&model).Error; err != nil {
		return Resume{}, err
	}
	return model, nil
}

// GetVisible 按 ID 读取对 viewer 可见的简历：本人或已公开。
// viewer 为 nil 表示匿名访问，仅公开简历可见。
func (s *ResumeStore) GetVisible(ctx context.Context, id uint, viewer *uint) (Resume, error) {
	query := s.db.WithContext(ctx).Where("id = ?", id)
	if viewer != nil {
		query = query.Where("user_id = ? OR is_public = ?", *viewer, true)
	} else {
		query = query.Where("is_public = ?", true)
	}

	var model Resume
	if err := query.First(&model).Error; err != nil {
		return Resume{}, err
	}
	return model, nil
}

// Save 以整体覆盖的方式写入标题与内容。UpdatedAt 由 GORM 在更新时刷新，
// 调用方无法指定。
func (s *ResumeStore) Save(ctx context.Context, id, ownerID uint, title string, content resume.Content) (Resume, error) {
	data, err := content.Encode()
	if err != nil {
		return Resume{}, err
	}

	result := s.db.WithContext(ctx).
		Model(&Resume{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(map[string]any{
			"title":   title,
			"content": datatypes.JSON(data),
		})
	if result.Error != nil {
		return Resume{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Resume{}, gorm.ErrRecordNotFound
	}

	return s.GetOwned(ctx, id, ownerID)
}

// SetPublic 切换公开可见标记。
func (s *ResumeStore) SetPublic(ctx context.Context, id, ownerID uint, public bool) (Resume, error) {
	result := s.db.WithContext(ctx).
		Model(&Resume{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Update("is_public", public)
	if result.Error != nil {
		return Resume{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Resume{}, gorm.ErrRecordNotFound
	}
	return s.GetOwned(ctx, id, ownerID)
}

// Delete 物理删除属于指定用户的简历。删除立即生效，不可恢复，
// 不走软删除。
func (s *ResumeStore) Delete(ctx context.Context, id, ownerID uint) error {
	result := s.db.WithContext(ctx).
		Unscoped().
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&Resume{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Get 按 ID 读取简历，不做归属过滤。仅供 worker 等系统内部路径使用。
func (s *ResumeStore) Get(ctx context.Context, id uint) (Resume, error) {
	var model Resume
	if err := s.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return Resume{}, err
	}
	return model, nil
}

// MarkExport 记录导出任务的状态与产物对象键。
func (s *ResumeStore) MarkExport(ctx context.Context, id uint, status, objectKey string) error {
	return s.db.WithContext(ctx).
		Model(&Resume{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"export_status": status,
			"export_key":    objectKey,
		}).Error
}
