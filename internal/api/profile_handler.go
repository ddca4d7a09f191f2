package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"cvForge/internal/database"
	"cvForge/internal/storage"
)

const maxAvatarBytes = 5 * 1024 * 1024

// AvatarStorage 是头像的对象存储依赖，由 storage.Client 满足。
type AvatarStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// ProfileHandler 负责用户资料与头像相关的 API。
type ProfileHandler struct {
	store     *database.ProfileStore
	storage   AvatarStorage
	logger    *slog.Logger
	clamdAddr string
}

// NewProfileHandler 构造 ProfileHandler。
func NewProfileHandler(store *database.ProfileStore, storageClient AvatarStorage, logger *slog.Logger, clamdAddr string) *ProfileHandler {
	return &ProfileHandler{
		store:     store,
		storage:   storageClient,
		logger:    logger,
		clamdAddr: clamdAddr,
	}
}

type profileResponse struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarKey   string    `json:"avatar_key,omitempty"`
	Tier        string    `json:"tier"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newProfileResponse(p database.Profile) profileResponse {
	return profileResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		AvatarKey:   p.AvatarKey,
		Tier:        p.Tier,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// GetProfile 返回当前用户的资料。
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	profile, err := h.store.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "profile not found")
			return
		}
		Internal(c, "failed to query profile")
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(profile))
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required,min=1,max=128"`
}

// UpdateProfile 修改展示名。
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	profile, err := h.store.UpdateDisplayName(c.Request.Context(), userID, strings.TrimSpace(req.DisplayName))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "profile not found")
			return
		}
		Internal(c, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(profile))
}

// UploadAvatar 处理头像上传，上传前做病毒扫描。
// 每个用户固定一个对象键，重复上传即覆盖。
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size > maxAvatarBytes {
		BadRequest(c, "file too large")
		return
	}

	contentType := file.Header.Get("Content-Type")
	var ext string
	switch contentType {
	case "image/png":
		ext = "png"
	case "image/jpeg":
		ext = "jpg"
	case "image/webp":
		ext = "webp"
	default:
		BadRequest(c, "unsupported content type")
		return
	}

	if h.clamdAddr != "" {
		fileReader, err := file.Open()
		if err != nil {
			Internal(c, "failed to open file")
			return
		}

		clamdClient := clamd.NewClamd(h.clamdAddr)
		abortChan := make(chan bool)
		scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
		fileReader.Close()
		if err != nil {
			h.logger.Error("scan file", slog.String("error", err.Error()))
			Internal(c, "failed to scan file")
			return
		}
		defer close(abortChan)

		for result := range scanChan {
			if result.Status != clamd.RES_OK {
				BadRequest(c, "malicious file detected")
				return
			}
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to reopen file")
		return
	}
	defer fileReader.Close()

	objectKey := fmt.Sprintf("avatars/%d.%s", userID, ext)
	ctx := c.Request.Context()
	if _, err := h.storage.UploadFile(ctx, objectKey, fileReader, file.Size, contentType); err != nil {
		h.logger.Error("upload avatar", slog.String("error", err.Error()))
		Internal(c, "failed to upload file")
		return
	}

	if err := h.store.SetAvatarKey(ctx, userID, objectKey); err != nil {
		Internal(c, "failed to record avatar")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"avatar_key": objectKey})
}

// GetAvatarLink 生成头像的预签名访问链接。
func (h *ProfileHandler) GetAvatarLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	profile, err := h.store.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "profile not found")
			return
		}
		Internal(c, "failed to query profile")
		return
	}

	if profile.AvatarKey == "" {
		NotFound(c, "avatar not set")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), profile.AvatarKey, 15*time.Minute)
	if err != nil {
		if storage.IsNoSuchKey(err) {
			NotFound(c, "avatar object missing")
			return
		}
		Internal(c, "failed to generate avatar link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}
