package resume

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Content 表示存储在简历 Content(JSONB) 中的结构化数据。
// 字段名与前端编辑器保持一致（camelCase）。
type Content struct {
	PersonalInfo PersonalInfo      `json:"personalInfo"`
	Experience   []ExperienceEntry `json:"experience"`
	Education    []EducationEntry  `json:"education"`
	Skills       []string          `json:"skills"`
}

// PersonalInfo 描述简历头部的个人信息，全部为自由文本。
type PersonalInfo struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Summary  string `json:"summary"`
}

// ExperienceEntry 表示一段工作经历。
// StartDate/EndDate 为自由文本 "YYYY-MM"，EndDate 为空表示至今。
type ExperienceEntry struct {
	ID          string `json:"id"`
	Company     string `json:"company"`
	Position    string `json:"position"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

// EducationEntry 表示一段教育经历，结构与工作经历一致。
type EducationEntry struct {
	ID          string `json:"id"`
	School      string `json:"school"`
	Degree      string `json:"degree"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

// Empty 返回规范化的空内容结构：五个空字符串的 personalInfo 与三个空序列。
func Empty() Content {
	return Content{
		Experience: []ExperienceEntry{},
		Education:  []EducationEntry{},
		Skills:     []string{},
	}
}

// NewExperienceEntry 生成带唯一 ID 的空白经历条目。
func NewExperienceEntry() ExperienceEntry {
	return ExperienceEntry{ID: uuid.NewString()}
}

// NewEducationEntry 生成带唯一 ID 的空白教育条目。
func NewEducationEntry() EducationEntry {
	return EducationEntry{ID: uuid.NewString()}
}

// Normalize 将缺失的子结构补齐为空默认形态，并为缺失 ID 的条目补发 ID。
// 存取两侧都会调用，保证应用永远不会观察到半空的内容结构。
func (c *Content) Normalize() {
	if c.Experience == nil {
		c.Experience = []ExperienceEntry{}
	}
	if c.Education == nil {
		c.Education = []EducationEntry{}
	}
	if c.Skills == nil {
		c.Skills = []string{}
	}
	for i := range c.Experience {
		if c.Experience[i].ID == "" {
			c.Experience[i].ID = uuid.NewString()
		}
	}
	for i := range c.Education {
		if c.Education[i].ID == "" {
			c.Education[i].ID = uuid.NewString()
		}
	}
}

// Clone 返回内容的深拷贝，便于编辑会话在本地安全修改。
func (c Content) Clone() Content {
	out := c
	out.Experience = make([]ExperienceEntry, len(c.Experience))
	copy(out.Experience, c.Experience)
	out.Education = make([]EducationEntry, len(c.Education))
	copy(out.Education, c.Education)
	out.Skills = make([]string, len(c.Skills))
	copy(out.Skills, c.Skills)
	return out
}

// Parse 解码 JSONB 中的内容并做规范化。
func Parse(data []byte) (Content, error) {
	if len(data) == 0 {
		return Empty(), nil
	}
	var c Content
	if err := json.Unmarshal(data, &c); err != nil {
		return Content{}, fmt.Errorf("decode resume content: %w", err)
	}
	c.Normalize()
	return c, nil
}

// Encode 规范化后序列化为 JSONB 字节。
func (c Content) Encode() ([]byte, error) {
	c = c.Clone()
	c.Normalize()
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode resume content: %w", err)
	}
	return data, nil
}
