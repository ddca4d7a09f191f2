package database

import (
	"context"
	"errors"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TemplateStore 提供模板目录的只读查询与种子写入。
// 目录对所有人可见，应用不暴露任何修改 Rating/Downloads 的路径。
type TemplateStore struct {
	db *gorm.DB
}

// NewTemplateStore 构造 TemplateStore。
func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// List 返回模板目录，按下载量降序。
// category 非空时做大小写不敏感的等值过滤；
// query 非空时对名称与分类做大小写不敏感的子串匹配。
func (s *TemplateStore) List(ctx context.Context, category, query string) ([]Template, error) {
	q := s.db.WithContext(ctx).Model(&Template{})
	if category = strings.TrimSpace(category); category != "" {
		q = q.Where("LOWER(category) = ?", strings.ToLower(category))
	}
	if query = strings.TrimSpace(query); query != "" {
		pattern := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern)
	}

	var templates []Template
	if err := q.Order("downloads DESC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// Get 按 ID 读取模板。
func (s *TemplateStore) Get(ctx context.Context, id uint) (Template, error) {
	var model Template
	if err := s.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return Template{}, err
	}
	return model, nil
}

// Seed 按名称幂等写入种子模板，已存在的行整体覆盖为种子值。
func (s *TemplateStore) Seed(ctx context.Context, templates []Template) error {
	for i := range templates {
		t := templates[i]
		var existing Template
		err := s.db.WithContext(ctx).Where("name = ?", t.Name).First(&existing).Error
		switch {
		case err == nil:
			t.ID = existing.ID
			t.CreatedAt = existing.CreatedAt
			if err := s.db.WithContext(ctx).Save(&t).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&t).Error; err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}

// SeedCatalog 是随服务分发的模板目录种子数据。
func SeedCatalog() []Template {
	styles := func(accent, font, layout string) datatypes.JSON {
		return datatypes.JSON([]byte(`{"accentColor":"` + accent + `","fontFamily":"` + font + `","layout":"` + layout + `"}`))
	}

	return []Template{
		{
			Name:       "Modern Professional",
			Category:   "Professional",
			PreviewKey: "template-previews/modern-professional.png",
			Rating:     4.8,
			Downloads:  12400,
			Styles:     styles("#2563eb", "Inter", "single-column"),
		},
		{
			Name:       "Executive Suite",
			Category:   "Professional",
			PreviewKey: "template-previews/executive-suite.png",
			IsPremium:  true,
			Rating:     4.7,
			Downloads:  9200,
			Styles:     styles("#0f172a", "Georgia", "two-column"),
		},
		{
			Name:       "Creative Edge",
			Category:   "Creative",
			PreviewKey: "template-previews/creative-edge.png",
			Rating:     4.8,
			Downloads:  8500,
			Styles:     styles("#db2777", "Poppins", "sidebar-left"),
		},
		{
			Name:       "Classic Minimal",
			Category:   "Minimal",
			PreviewKey: "template-previews/classic-minimal.png",
			Rating:     4.5,
			Downloads:  7600,
			Styles:     styles("#111827", "Helvetica", "single-column"),
		},
		{
			Name:       "Designer's Choice",
			Category:   "Creative",
			PreviewKey: "template-previews/designers-choice.png",
			IsPremium:  true,
			Rating:     4.6,
			Downloads:  6800,
			Styles:     styles("#7c3aed", "Montserrat", "sidebar-right"),
		},
		{
			Name:       "Tech Innovator",
			Category:   "Tech",
			PreviewKey: "template-previews/tech-innovator.png",
			IsPremium:  true,
			Rating:     4.4,
			Downloads:  5400,
			Styles:     styles("#059669", "JetBrains Mono", "two-column"),
		},
	}
}
