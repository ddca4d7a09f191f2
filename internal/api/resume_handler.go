package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"cvForge/internal/api/middleware"
	"cvForge/internal/database"
	"cvForge/internal/resume"
	"cvForge/internal/storage"
	"cvForge/internal/tasks"
)

// TaskEnqueuer 是导出任务的队列依赖，由 asynq.Client 满足。
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ResumeHandler 负责处理与简历相关的 API 请求。
type ResumeHandler struct {
	store       *database.ResumeStore
	asynqClient TaskEnqueuer
	storage     *storage.Client
	maxResumes  int
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(store *database.ResumeStore, asynqClient TaskEnqueuer, storageClient *storage.Client, maxResumes int) *ResumeHandler {
	return &ResumeHandler{
		store:       store,
		asynqClient: asynqClient,
		storage:     storageClient,
		maxResumes:  maxResumes,
	}
}

var errInvalidResumeID = errors.New("invalid resume id")

type createResumeRequest struct {
	Title      string `json:"title"`
	TemplateID *uint  `json:"template_id"`
}

type saveResumeRequest struct {
	Title   string         `json:"title" binding:"required"`
	Content resume.Content `json:"content"`
}

type visibilityRequest struct {
	IsPublic *bool `json:"is_public" binding:"required"`
}

type resumeListItem struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	TemplateID *uint     `json:"template_id,omitempty"`
	IsPublic   bool      `json:"is_public"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type resumeResponse struct {
	ID           uint           `json:"id"`
	Title        string         `json:"title"`
	Content      resume.Content `json:"content"`
	TemplateID   *uint          `json:"template_id,omitempty"`
	IsPublic     bool           `json:"is_public"`
	ExportStatus string         `json:"export_status,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func newResumeResponse(model database.Resume) (resumeResponse, error) {
	content, err := model.DecodeContent()
	if err != nil {
		return resumeResponse{}, err
	}
	return resumeResponse{
		ID:           model.ID,
		Title:        model.Title,
		Content:      content,
		TemplateID:   model.TemplateID,
		IsPublic:     model.IsPublic,
		ExportStatus: model.ExportStatus,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}, nil
}

// ListResumes 列出用户全部简历，最近更新的排在最前。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resumes, err := h.store.ListOwned(c.Request.Context(), userID)
	if err != nil {
		Internal(c, "failed to list resumes")
		return
	}

	items := make([]resumeListItem, 0, len(resumes))
	for _, r := range resumes {
		items = append(items, resumeListItem{
			ID:         r.ID,
			Title:      r.Title,
			TemplateID: r.TemplateID,
			IsPublic:   r.IsPublic,
			CreatedAt:  r.CreatedAt,
			UpdatedAt:  r.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// CreateResume 创建一份内容为空结构的新简历，超过限额则提示升级。
// 返回完整记录，便于前端直接跳转进编辑器。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	var req createResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()

	count, err := h.store.CountOwned(ctx, userID)
	if err != nil {
		Internal(c, "failed to count resumes")
		return
	}
	if h.maxResumes > 0 && count >= int64(h.maxResumes) {
		Forbidden(c, "resume limit reached")
		return
	}

	model, err := h.store.Create(ctx, userID, req.Title, req.TemplateID)
	if err != nil {
		Internal(c, "failed to create resume")
		return
	}

	resp, err := newResumeResponse(model)
	if err != nil {
		Internal(c, "failed to decode resume")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetResume 返回指定 ID 的简历（编辑入口，仅限本人）。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	model, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeError(c, err)
		return
	}

	resp, err := newResumeResponse(*model)
	if err != nil {
		Internal(c, "failed to decode resume")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PreviewResume 返回对访问者可见的简历：本人或已公开。
// 路由挂在可选鉴权下，匿名访问只能看到公开简历。
func (h *ResumeHandler) PreviewResume(c *gin.Context) {
	resumeID, err := parseResumeID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid resume id")
		return
	}

	var viewer *uint
	if userID, ok := userIDFromContext(c); ok {
		viewer = &userID
	}

	model, err := h.store.GetVisible(c.Request.Context(), resumeID, viewer)
	if err != nil {
		h.replyResumeError(c, err)
		return
	}

	resp, err := newResumeResponse(model)
	if err != nil {
		Internal(c, "failed to decode resume")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SaveResume 以整体覆盖的方式保存标题与内容。
func (h *ResumeHandler) SaveResume(c *gin.Context) {
	var req saveResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resumeID, err := parseResumeID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid resume id")
		return
	}

	model, err := h.store.Save(c.Request.Context(), resumeID, userID, req.Title, req.Content)
	if err != nil {
		h.replyResumeError(c, err)
		return
	}

	resp, err := newResumeResponse(model)
	if err != nil {
		Internal(c, "failed to decode resume")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SetVisibility 切换简历的公开可见标记。
func (h *ResumeHandler) SetVisibility(c *gin.Context) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resumeID, err := parseResumeID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid resume id")
		return
	}

	model, err := h.store.SetPublic(c.Request.Context(), resumeID, userID, *req.IsPublic)
	if err != nil {
		h.replyResumeError(c, err)
		return
	}

	resp, err := newResumeResponse(model)
	if err != nil {
		Internal(c, "failed to decode resume")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteResume 删除指定简历，并清理已生成的导出产物。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resumeID, err := parseResumeID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid resume id")
		return
	}

	ctx := c.Request.Context()
	if err := h.store.Delete(ctx, resumeID, userID); err != nil {
		h.replyResumeError(c, err)
		return
	}

	if h.storage != nil {
		prefix := fmt.Sprintf("exports/%d/%d-", userID, resumeID)
		if err := h.storage.DeletePrefix(ctx, prefix); err != nil {
			// 产物清理失败不影响删除结果。
			middleware.LoggerFromContext(c).Warn("delete export artifacts failed", "error", err)
		}
	}

	c.Status(http.StatusNoContent)
}

// ExportResume 将导出任务入队并立即返回 202。
func (h *ResumeHandler) ExportResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	model, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeError(c, err)
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewResumeExportTask(model.ID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	// 先置 pending 再入队：否则 worker 可能在入队与状态写入之间
	// 完成任务，随后被这里的 pending 覆盖。
	if err := h.store.MarkExport(c.Request.Context(), model.ID, database.ExportStatusPending, model.ExportKey); err != nil {
		Internal(c, "failed to mark export pending")
		return
	}

	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5))
	if err != nil {
		Internal(c, "failed to enqueue export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "export request accepted",
		"task_id": info.ID,
	})
}

// GetExportLink 生成导出产物的预签名下载链接。
func (h *ResumeHandler) GetExportLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	model, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeError(c, err)
		return
	}

	if model.ExportKey == "" || model.ExportStatus != database.ExportStatusCompleted {
		Conflict(c, "export not ready")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), model.ExportKey, 5*time.Minute)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

func (h *ResumeHandler) getResumeForUser(ctx context.Context, idParam string, userID uint) (*database.Resume, error) {
	resumeID, err := parseResumeID(idParam)
	if err != nil {
		return nil, err
	}

	model, err := h.store.GetOwned(ctx, resumeID, userID)
	if err != nil {
		return nil, err
	}
	return &model, nil
}

func (h *ResumeHandler) replyResumeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidResumeID):
		BadRequest(c, "invalid resume id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "resume not found")
	default:
		Internal(c, "failed to query resume")
	}
}

func parseResumeID(idParam string) (uint, error) {
	id, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidResumeID
	}
	return uint(id), nil
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}
