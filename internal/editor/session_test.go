package editor

import (
	"context"
	"errors"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvForge/internal/database"
	"cvForge/internal/resume"
)

type fakeStore struct {
	resumes map[uint]database.Resume

	saveErr   error
	saveCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{resumes: map[uint]database.Resume{}}
}

func (f *fakeStore) put(id, ownerID uint, title string, content resume.Content) {
	data, _ := content.Encode()
	f.resumes[id] = database.Resume{
		Model:   gorm.Model{ID: id},
		Title:   title,
		Content: datatypes.JSON(data),
		UserID:  ownerID,
	}
}

func (f *fakeStore) GetOwned(_ context.Context, id, ownerID uint) (database.Resume, error) {
	model, ok := f.resumes[id]
	if !ok || model.UserID != ownerID {
		return database.Resume{}, gorm.ErrRecordNotFound
	}
	return model, nil
}

func (f *fakeStore) Save(_ context.Context, id, ownerID uint, title string, content resume.Content) (database.Resume, error) {
	f.saveCalls++
	if f.saveErr != nil {
		return database.Resume{}, f.saveErr
	}
	if _, err := f.GetOwned(context.Background(), id, ownerID); err != nil {
		return database.Resume{}, err
	}
	f.put(id, ownerID, title, content)
	return f.resumes[id], nil
}

func readySession(t *testing.T, store *fakeStore) *Session {
	t.Helper()
	s := NewSession(store, 1, 10)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.State() != StateReady {
		t.Fatalf("expected ready, got %s", s.State())
	}
	return s
}

func TestSessionLoad_FailureClosesSession(t *testing.T) {
	store := newFakeStore()
	s := NewSession(store, 99, 10)
	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected load failure for missing resume")
	}
	if s.State() != StateClosed {
		t.Fatalf("expected closed, got %s", s.State())
	}
	if err := s.SetTitle("x"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady after close, got %v", err)
	}
}

func TestSessionLoad_CrossOwnerFails(t *testing.T) {
	store := newFakeStore()
	store.put(1, 20, "someone else", resume.Empty())

	s := NewSession(store, 1, 10)
	if err := s.Load(context.Background()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestSession_RejectsEditsBeforeLoad(t *testing.T) {
	s := NewSession(newFakeStore(), 1, 10)
	if _, err := s.AddExperience(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if err := s.Save(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestSession_AddThenRemoveExperienceRestoresContent(t *testing.T) {
	store := newFakeStore()
	store.put(1, 10, "t", resume.Empty())
	s := readySession(t, store)

	before := s.Content()

	entry, err := s.AddExperience()
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("expected a fresh entry ID")
	}
	if len(s.Content().Experience) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(s.Content().Experience))
	}

	if err := s.RemoveExperience(entry.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	after := s.Content()
	if len(after.Experience) != len(before.Experience) {
		t.Fatalf("add+remove did not restore: %#v", after.Experience)
	}
}

func TestSession_UpdateExperiencePreservesID(t *testing.T) {
	store := newFakeStore()
	store.put(1, 10, "t", resume.Empty())
	s := readySession(t, store)

	entry, _ := s.AddExperience()
	err := s.UpdateExperience(entry.ID, resume.ExperienceEntry{
		ID:      "attacker-chosen",
		Company: "Acme",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got := s.Content().Experience[0]
	if got.ID != entry.ID {
		t.Fatalf("entry ID changed on update: %q", got.ID)
	}
	if got.Company != "Acme" {
		t.Fatalf("fields not applied: %#v", got)
	}
}

func TestSession_UpdateUnknownEntryFails(t *testing.T) {
	store := newFakeStore()
	store.put(1, 10, "t", resume.Empty())
	s := readySession(t, store)

	if err := s.UpdateExperience("missing", resume.ExperienceEntry{}); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	if err := s.RemoveEducation("missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestSession_SkillIndexOps(t *testing.T) {
	store := newFakeStore()
	store.put(1, 10, "t", resume.Empty())
	s := readySession(t, store)

	if err := s.AddSkill("Go"); err != nil {
		t.Fatalf("add skill: %v", err)
	}
	if err := s.AddSkill("SQL"); err != nil {
		t.Fatalf("add skill: %v", err)
	}
	if err := s.UpdateSkill(1, "Postgres"); err != nil {
		t.Fatalf("update skill: %v", err)
	}
	if err := s.UpdateSkill(2, "nope"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := s.RemoveSkill(0); err != nil {
		t.Fatalf("remove skill: %v", err)
	}

	skills := s.Content().Skills
	if len(skills) != 1 || skills[0] != "Postgres" {
		t.Fatalf("unexpected skills: %#v", skills)
	}
	if err := s.RemoveSkill(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestSession_SaveWritesTitleAndContent(t *testing.T) {
	store := newFakeStore()
	store.put(1, 10, "old title", resume.Empty())
	s := readySession(t, store)

	if err := s.SetTitle("new title"); err != nil {
		t.Fatalf("set title: %v", err)
	}
	if err := s.SetPersonalInfo(resume.PersonalInfo{FullName: "Ada"}); err != nil {
		t.Fatalf("set personal info: %v", err)
	}
	if _, err := s.AddExperience(); err != nil {
		t.Fatalf("add experience: %v", err)
	}

	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.State() != StateReady {
		t.Fatalf("expected ready after save, got %s", s.State())
	}

	stored := store.resumes[1]
	if stored.Title != "new title" {
		t.Fatalf("title not persisted: %q", stored.Title)
	}
	content, err := stored.DecodeContent()
	if err != nil {
		t.Fatalf("decode stored: %v", err)
	}
	if content.PersonalInfo.FullName != "Ada" || len(content.Experience) != 1 {
		t.Fatalf("content not persisted: %#v", content)
	}
}

func TestSession_SaveFailureKeepsLocalEdits(t *testing.T) {
	store := newFakeStore()
	store.put(1, 10, "t", resume.Empty())
	s := readySession(t, store)

	if err := s.AddSkill("Go"); err != nil {
		t.Fatalf("add skill: %v", err)
	}

	store.saveErr = errors.New("connection reset")
	if err := s.Save(context.Background()); err == nil {
		t.Fatal("expected save failure")
	}
	if s.State() != StateReady {
		t.Fatalf("expected ready after failed save, got %s", s.State())
	}
	if skills := s.Content().Skills; len(skills) != 1 || skills[0] != "Go" {
		t.Fatalf("local edits lost on failed save: %#v", skills)
	}

	// 远端不变。
	rec := store.resumes[1]
	stored, _ := rec.DecodeContent()
	if len(stored.Skills) != 0 {
		t.Fatalf("remote changed on failed save: %#v", stored.Skills)
	}

	// 恢复后可重试。
	store.saveErr = nil
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("retry save: %v", err)
	}
	rec = store.resumes[1]
	stored, _ = rec.DecodeContent()
	if len(stored.Skills) != 1 {
		t.Fatalf("retry did not persist: %#v", stored.Skills)
	}
}

func TestSession_CloseStopsEdits(t *testing.T) {
	store := newFakeStore()
	store.put(1, 10, "t", resume.Empty())
	s := readySession(t, store)

	s.Close()
	if s.State() != StateClosed {
		t.Fatalf("expected closed, got %s", s.State())
	}
	if err := s.AddSkill("Go"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if err := s.Save(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if store.saveCalls != 0 {
		t.Fatalf("save reached store after close: %d calls", store.saveCalls)
	}
}

func TestSession_ContentReturnsCopy(t *testing.T) {
	store := newFakeStore()
	store.put(1, 10, "t", resume.Empty())
	s := readySession(t, store)

	if err := s.AddSkill("Go"); err != nil {
		t.Fatalf("add skill: %v", err)
	}
	c := s.Content()
	c.Skills[0] = "mutated"
	if s.Content().Skills[0] != "Go" {
		t.Fatal("Content() exposed internal state")
	}
}
