package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"cvForge/internal/resume"
)

func TestResumeStoreCreate_DefaultsTitleAndNormalizesContent(t *testing.T) {
	ctx := context.Background()
	store := NewResumeStore(newTestDB(t))

	model, err := store.Create(ctx, 1, "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if model.Title != DefaultResumeTitle {
		t.Fatalf("expected default title, got %q", model.Title)
	}

	content, err := model.DecodeContent()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if content.Experience == nil || content.Education == nil || content.Skills == nil {
		t.Fatalf("content not normalized: %#v", content)
	}
}

func TestResumeStoreList_OrdersByRecencyAndScopesToOwner(t *testing.T) {
	ctx := context.Background()
	store := NewResumeStore(newTestDB(t))

	first, err := store.Create(ctx, 1, "first", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	second, err := store.Create(ctx, 1, "second", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, 2, "other user", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	// 更新 first 让它成为最近修改的。
	time.Sleep(10 * time.Millisecond)
	if _, err := store.Save(ctx, first.ID, 1, "first updated", resume.Empty()); err != nil {
		t.Fatalf("save: %v", err)
	}

	resumes, err := store.ListOwned(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resumes) != 2 {
		t.Fatalf("expected 2 resumes, got %d", len(resumes))
	}
	if resumes[0].ID != first.ID || resumes[1].ID != second.ID {
		t.Fatalf("wrong order: %d, %d", resumes[0].ID, resumes[1].ID)
	}

	count, err := store.CountOwned(ctx, 1)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestResumeStoreGetOwned_MasksOtherUsersResumes(t *testing.T) {
	ctx := context.Background()
	store := NewResumeStore(newTestDB(t))

	model, err := store.Create(ctx, 1, "mine", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.GetOwned(ctx, model.ID, 1); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := store.GetOwned(ctx, model.ID, 2); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found for non-owner, got %v", err)
	}
}

func TestResumeStoreGetVisible_PublicFlagMatrix(t *testing.T) {
	ctx := context.Background()
	store := NewResumeStore(newTestDB(t))

	model, err := store.Create(ctx, 1, "mine", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	owner := uint(1)
	stranger := uint(2)

	// 私有：仅拥有者可见。
	if _, err := store.GetVisible(ctx, model.ID, &owner); err != nil {
		t.Fatalf("owner on private: %v", err)
	}
	if _, err := store.GetVisible(ctx, model.ID, &stranger); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("stranger on private: %v", err)
	}
	if _, err := store.GetVisible(ctx, model.ID, nil); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("anonymous on private: %v", err)
	}

	if _, err := store.SetPublic(ctx, model.ID, 1, true); err != nil {
		t.Fatalf("set public: %v", err)
	}

	// 公开：全部可见。
	if _, err := store.GetVisible(ctx, model.ID, &stranger); err != nil {
		t.Fatalf("stranger on public: %v", err)
	}
	if _, err := store.GetVisible(ctx, model.ID, nil); err != nil {
		t.Fatalf("anonymous on public: %v", err)
	}

	// 切回私有后立即生效。
	if _, err := store.SetPublic(ctx, model.ID, 1, false); err != nil {
		t.Fatalf("set private: %v", err)
	}
	if _, err := store.GetVisible(ctx, model.ID, nil); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("anonymous after unpublish: %v", err)
	}
}

func TestResumeStoreSetPublic_NonOwnerRejected(t *testing.T) {
	ctx := context.Background()
	store := NewResumeStore(newTestDB(t))

	model, err := store.Create(ctx, 1, "mine", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.SetPublic(ctx, model.ID, 2, true); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestResumeStoreSave_OverwritesAndBumpsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	store := NewResumeStore(newTestDB(t))

	model, err := store.Create(ctx, 1, "draft", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	content := resume.Empty()
	content.PersonalInfo.FullName = "Ada"
	content.Skills = []string{"Go"}

	time.Sleep(10 * time.Millisecond)
	saved, err := store.Save(ctx, model.ID, 1, "final", content)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Title != "final" {
		t.Fatalf("title not saved: %q", saved.Title)
	}
	if !saved.UpdatedAt.After(model.UpdatedAt) {
		t.Fatalf("UpdatedAt not bumped: %v -> %v", model.UpdatedAt, saved.UpdatedAt)
	}
	if d := saved.CreatedAt.Sub(model.CreatedAt); d < -time.Millisecond || d > time.Millisecond {
		t.Fatalf("CreatedAt changed: %v -> %v", model.CreatedAt, saved.CreatedAt)
	}

	got, err := saved.DecodeContent()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PersonalInfo.FullName != "Ada" || len(got.Skills) != 1 {
		t.Fatalf("content not saved: %#v", got)
	}

	// 非拥有者保存被拒。
	if _, err := store.Save(ctx, model.ID, 2, "hijack", content); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestResumeStoreDelete_RemovesForEveryone(t *testing.T) {
	ctx := context.Background()
	store := NewResumeStore(newTestDB(t))

	model, err := store.Create(ctx, 1, "mine", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.SetPublic(ctx, model.ID, 1, true); err != nil {
		t.Fatalf("set public: %v", err)
	}

	if err := store.Delete(ctx, model.ID, 2); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found for non-owner delete, got %v", err)
	}
	if err := store.Delete(ctx, model.ID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.GetOwned(ctx, model.ID, 1); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("owner still sees deleted resume: %v", err)
	}
	if _, err := store.GetVisible(ctx, model.ID, nil); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("anonymous still sees deleted resume: %v", err)
	}
	if err := store.Delete(ctx, model.ID, 1); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestResumeStoreDelete_RemovesRowPhysically(t *testing.T) {
	ctx := context.Background()
	store := NewResumeStore(newTestDB(t))

	model, err := store.Create(ctx, 1, "mine", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Delete(ctx, model.ID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// 行必须被物理删除，而不是留下 deleted_at 标记。
	var survivor Resume
	if err := store.db.Unscoped().First(&survivor, model.ID).Error; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("row survives deletion: err=%v deleted_at=%v", err, survivor.DeletedAt)
	}
}

func TestResumeStoreMarkExport(t *testing.T) {
	ctx := context.Background()
	store := NewResumeStore(newTestDB(t))

	model, err := store.Create(ctx, 1, "mine", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.MarkExport(ctx, model.ID, ExportStatusCompleted, "exports/1/1-abc.json"); err != nil {
		t.Fatalf("mark export: %v", err)
	}
	got, err := store.Get(ctx, model.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ExportStatus != ExportStatusCompleted || got.ExportKey != "exports/1/1-abc.json" {
		t.Fatalf("export fields not recorded: %q %q", got.ExportStatus, got.ExportKey)
	}
}
