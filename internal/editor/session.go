package editor

import (
	"context"
	"errors"
	"fmt"

	"cvForge/internal/database"
	"cvForge/internal/resume"
)

// Store 是编辑会话的持久化依赖，由 database.ResumeStore 满足。
type Store interface {
	GetOwned(ctx context.Context, id, ownerID uint) (database.Resume, error)
	Save(ctx context.Context, id, ownerID uint, title string, content resume.Content) (database.Resume, error)
}

// State 表示编辑会话的阶段。
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateSaving  State = "saving"
	StateClosed  State = "closed"
)

var (
	// ErrNotReady 表示会话尚未加载完成或已关闭，拒绝本地修改。
	ErrNotReady = errors.New("editor: session is not ready")
	// ErrEntryNotFound 表示按 ID 寻址的条目不存在。
	ErrEntryNotFound = errors.New("editor: entry not found")
	// ErrIndexOutOfRange 表示技能序号越界。
	ErrIndexOutOfRange = errors.New("editor: skill index out of range")
)

// Session 维护一份简历的内存副本。所有修改都只作用于本地，
// 直到显式调用 Save 才整体写回存储；保存失败时本地内容保持不变。
// 不做自动保存，也不检测并发编辑，后写者胜。
type Session struct {
	store    Store
	resumeID uint
	ownerID  uint

	state   State
	title   string
	content resume.Content
}

// NewSession 创建处于 loading 状态的会话，需调用 Load 完成初始化。
func NewSession(store Store, resumeID, ownerID uint) *Session {
	return &Session{
		store:    store,
		resumeID: resumeID,
		ownerID:  ownerID,
		state:    StateLoading,
	}
}

// Load 拉取目标简历并进入 ready 状态。
// 失败时会话进入 closed，调用方应回退到简历列表。
func (s *Session) Load(ctx context.Context) error {
	if s.state != StateLoading {
		return fmt.Errorf("editor: load called in state %s", s.state)
	}

	model, err := s.store.GetOwned(ctx, s.resumeID, s.ownerID)
	if err != nil {
		s.state = StateClosed
		return fmt.Errorf("load resume %d: %w", s.resumeID, err)
	}

	content, err := model.DecodeContent()
	if err != nil {
		s.state = StateClosed
		return fmt.Errorf("load resume %d: %w", s.resumeID, err)
	}

	s.title = model.Title
	s.content = content
	s.state = StateReady
	return nil
}

// State 返回当前状态。
func (s *Session) State() State { return s.state }

// Title 返回当前标题。
func (s *Session) Title() string { return s.title }

// ResumeID 返回目标简历 ID。
func (s *Session) ResumeID() uint { return s.resumeID }

// Content 返回内容的深拷贝，外部修改不影响会话。
func (s *Session) Content() resume.Content { return s.content.Clone() }

// SetTitle 修改标题。
func (s *Session) SetTitle(title string) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	s.title = title
	return nil
}

// SetPersonalInfo 整体替换个人信息区块。
func (s *Session) SetPersonalInfo(info resume.PersonalInfo) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	s.content.PersonalInfo = info
	return nil
}

// AddExperience 末尾追加一条空白经历并返回（含新分配的 ID）。
func (s *Session) AddExperience() (resume.ExperienceEntry, error) {
	if s.state != StateReady {
		return resume.ExperienceEntry{}, ErrNotReady
	}
	entry := resume.NewExperienceEntry()
	s.content.Experience = append(s.content.Experience, entry)
	return entry, nil
}

// UpdateExperience 按 ID 覆盖一条经历的字段，ID 本身保持不变。
func (s *Session) UpdateExperience(id string, entry resume.ExperienceEntry) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	for i := range s.content.Experience {
		if s.content.Experience[i].ID == id {
			entry.ID = id
			s.content.Experience[i] = entry
			return nil
		}
	}
	return ErrEntryNotFound
}

// RemoveExperience 按 ID 删除一条经历。
func (s *Session) RemoveExperience(id string) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	for i := range s.content.Experience {
		if s.content.Experience[i].ID == id {
			s.content.Experience = append(s.content.Experience[:i], s.content.Experience[i+1:]...)
			return nil
		}
	}
	return ErrEntryNotFound
}

// AddEducation 末尾追加一条空白教育经历并返回。
func (s *Session) AddEducation() (resume.EducationEntry, error) {
	if s.state != StateReady {
		return resume.EducationEntry{}, ErrNotReady
	}
	entry := resume.NewEducationEntry()
	s.content.Education = append(s.content.Education, entry)
	return entry, nil
}

// UpdateEducation 按 ID 覆盖一条教育经历，ID 保持不变。
func (s *Session) UpdateEducation(id string, entry resume.EducationEntry) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	for i := range s.content.Education {
		if s.content.Education[i].ID == id {
			entry.ID = id
			s.content.Education[i] = entry
			return nil
		}
	}
	return ErrEntryNotFound
}

// RemoveEducation 按 ID 删除一条教育经历。
func (s *Session) RemoveEducation(id string) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	for i := range s.content.Education {
		if s.content.Education[i].ID == id {
			s.content.Education = append(s.content.Education[:i], s.content.Education[i+1:]...)
			return nil
		}
	}
	return ErrEntryNotFound
}

// AddSkill 追加一条技能。
func (s *Session) AddSkill(skill string) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	s.content.Skills = append(s.content.Skills, skill)
	return nil
}

// UpdateSkill 按序号修改技能。
func (s *Session) UpdateSkill(index int, skill string) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	if index < 0 || index >= len(s.content.Skills) {
		return ErrIndexOutOfRange
	}
	s.content.Skills[index] = skill
	return nil
}

// RemoveSkill 按序号删除技能。
func (s *Session) RemoveSkill(index int) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	if index < 0 || index >= len(s.content.Skills) {
		return ErrIndexOutOfRange
	}
	s.content.Skills = append(s.content.Skills[:index], s.content.Skills[index+1:]...)
	return nil
}

// Save 将标题与完整内容一次性写回存储。
// 失败时回到 ready 且本地内容不变——远端未发生任何修改，无需回滚。
func (s *Session) Save(ctx context.Context) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	s.state = StateSaving

	stored, err := s.store.Save(ctx, s.resumeID, s.ownerID, s.title, s.content)
	if err != nil {
		s.state = StateReady
		return fmt.Errorf("save resume %d: %w", s.resumeID, err)
	}

	// 以存储回读的规范化结果为准。
	content, err := stored.DecodeContent()
	if err != nil {
		s.state = StateReady
		return fmt.Errorf("save resume %d: %w", s.resumeID, err)
	}
	s.title = stored.Title
	s.content = content
	s.state = StateReady
	return nil
}

// Close 结束会话，后续修改一律拒绝。
func (s *Session) Close() {
	s.state = StateClosed
}
