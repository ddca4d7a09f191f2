package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvForge/internal/database"
)

// TemplateHandler 负责模板目录相关的 API。
// 目录对所有人只读，无需鉴权。
type TemplateHandler struct {
	store *database.TemplateStore
}

// NewTemplateHandler 构造 TemplateHandler。
func NewTemplateHandler(store *database.TemplateStore) *TemplateHandler {
	return &TemplateHandler{store: store}
}

type templateListItem struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	PreviewKey string  `json:"preview_key,omitempty"`
	IsPremium  bool    `json:"is_premium"`
	Rating     float64 `json:"rating"`
	Downloads  int     `json:"downloads"`
}

type templateDetailResponse struct {
	ID         uint           `json:"id"`
	Name       string         `json:"name"`
	Category   string         `json:"category"`
	PreviewKey string         `json:"preview_key,omitempty"`
	IsPremium  bool           `json:"is_premium"`
	Rating     float64        `json:"rating"`
	Downloads  int            `json:"downloads"`
	Styles     datatypes.JSON `json:"styles"`
}

// GET /v1/templates
// 列表：按下载量降序；?category= 做等值过滤，?q= 做名称/分类子串搜索，
// 两者均大小写不敏感。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	templates, err := h.store.List(c.Request.Context(), c.Query("category"), c.Query("q"))
	if err != nil {
		Internal(c, "failed to list templates")
		return
	}

	items := make([]templateListItem, 0, len(templates))
	for _, t := range templates {
		items = append(items, templateListItem{
			ID:         t.ID,
			Name:       t.Name,
			Category:   t.Category,
			PreviewKey: t.PreviewKey,
			IsPremium:  t.IsPremium,
			Rating:     t.Rating,
			Downloads:  t.Downloads,
		})
	}
	c.JSON(http.StatusOK, items)
}

// GET /v1/templates/:id
// 详情：返回含样式文档的完整模板。
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid template id")
		return
	}

	model, err := h.store.Get(c.Request.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "template not found")
		default:
			Internal(c, "failed to query template")
		}
		return
	}

	c.JSON(http.StatusOK, templateDetailResponse{
		ID:         model.ID,
		Name:       model.Name,
		Category:   model.Category,
		PreviewKey: model.PreviewKey,
		IsPremium:  model.IsPremium,
		Rating:     model.Rating,
		Downloads:  model.Downloads,
		Styles:     model.Styles,
	})
}
