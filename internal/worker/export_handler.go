package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"cvForge/internal/database"
	"cvForge/internal/errcode"
	"cvForge/internal/resume"
	"cvForge/internal/tasks"
)

// ObjectUploader 是导出产物的存储依赖，由 storage.Client 满足。
type ObjectUploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

// ExportTaskHandler 负责消费简历导出任务。
// 导出目前不做渲染：产物是规范化内容的 JSON 快照。
type ExportTaskHandler struct {
	store    *database.ResumeStore
	uploads  ObjectUploader
	notifier Notifier
	logger   *slog.Logger
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(store *database.ResumeStore, uploads ObjectUploader, notifier Notifier, logger *slog.Logger) *ExportTaskHandler {
	return &ExportTaskHandler{
		store:    store,
		uploads:  uploads,
		notifier: notifier,
		logger:   logger,
	}
}

// exportSnapshot 是写入对象存储的导出文档。
type exportSnapshot struct {
	ResumeID   uint           `json:"resume_id"`
	Title      string         `json:"title"`
	Content    resume.Content `json:"content"`
	ExportedAt time.Time      `json:"exported_at"`
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ResumeExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("resume_id", int(payload.ResumeID)),
	)
	log.Info("starting resume export task")

	model, err := h.store.Get(ctx, payload.ResumeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(model.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}
		_ = h.store.MarkExport(ctx, model.ID, database.ExportStatusFailed, "")
		notify := ExportNotifyMessage{
			Status:        "error",
			ResumeID:      model.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.notifier.NotifyExport(ctx, model.UserID, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	content, err := model.DecodeContent()
	if err != nil {
		log.Error("decode resume content failed", slog.Any("error", err))
		return err
	}

	snapshot := exportSnapshot{
		ResumeID:   model.ID,
		Title:      model.Title,
		Content:    content,
		ExportedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Error("marshal export snapshot failed", slog.Any("error", err))
		return err
	}

	objectKey := fmt.Sprintf("exports/%d/%d-%s.json", model.UserID, model.ID, uuid.NewString())
	if _, err := h.uploads.UploadFile(ctx, objectKey, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		log.Error("upload export snapshot failed", slog.Any("error", err))
		return err
	}

	if err := h.store.MarkExport(ctx, model.ID, database.ExportStatusCompleted, objectKey); err != nil {
		log.Error("update export status failed", slog.Any("error", err))
		return err
	}

	notify := ExportNotifyMessage{
		Status:        "completed",
		ResumeID:      model.ID,
		ObjectKey:     objectKey,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := h.notifier.NotifyExport(ctx, model.UserID, notify); err != nil {
		log.Error("publish export notification failed", slog.Any("error", err))
		return err
	}

	log.Info("resume export task completed")
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
