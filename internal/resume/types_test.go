package resume

import (
	"encoding/json"
	"testing"
)

func TestParse_EmptyBytesYieldsNormalizedShape(t *testing.T) {
	c, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if c.Experience == nil || c.Education == nil || c.Skills == nil {
		t.Fatalf("expected empty slices, got %#v", c)
	}
	if len(c.Experience)+len(c.Education)+len(c.Skills) != 0 {
		t.Fatalf("expected zero entries, got %#v", c)
	}
}

func TestParse_FillsMissingSectionsAndEntryIDs(t *testing.T) {
	raw := []byte(`{"personalInfo":{"fullName":"Ada"},"experience":[{"company":"Acme"}]}`)
	c, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.PersonalInfo.FullName != "Ada" {
		t.Fatalf("expected fullName Ada, got %q", c.PersonalInfo.FullName)
	}
	if c.Education == nil || c.Skills == nil {
		t.Fatalf("missing sections not filled: %#v", c)
	}
	if len(c.Experience) != 1 {
		t.Fatalf("expected 1 experience entry, got %d", len(c.Experience))
	}
	if c.Experience[0].ID == "" {
		t.Fatal("expected entry ID to be backfilled")
	}
}

func TestParse_RejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"experience":`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestNormalize_PreservesExistingIDs(t *testing.T) {
	c := Content{
		Experience: []ExperienceEntry{{ID: "keep-me", Company: "Acme"}, {Company: "NoID"}},
	}
	c.Normalize()
	if c.Experience[0].ID != "keep-me" {
		t.Fatalf("existing ID overwritten: %q", c.Experience[0].ID)
	}
	if c.Experience[1].ID == "" {
		t.Fatal("missing ID not assigned")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	c := Empty()
	c.PersonalInfo.Email = "ada@example.com"
	c.Skills = []string{"Go", "SQL"}
	c.Experience = append(c.Experience, ExperienceEntry{Company: "Acme", StartDate: "2020-01"})

	data, err := c.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// Encode 不应回写调用方的副本。
	if c.Experience[0].ID != "" {
		t.Fatalf("encode mutated caller copy: %#v", c.Experience[0])
	}

	got, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.PersonalInfo.Email != "ada@example.com" {
		t.Fatalf("email lost: %q", got.PersonalInfo.Email)
	}
	if len(got.Skills) != 2 || got.Skills[1] != "SQL" {
		t.Fatalf("skills lost: %#v", got.Skills)
	}
	if got.Experience[0].ID == "" {
		t.Fatal("expected encoded entry to carry an ID")
	}
}

func TestEncode_EmitsCamelCaseKeys(t *testing.T) {
	data, err := Empty().Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"personalInfo", "experience", "education", "skills"} {
		if _, ok := m[key]; !ok {
			t.Fatalf("missing key %q in %s", key, data)
		}
	}
}

func TestClone_IsDeep(t *testing.T) {
	c := Empty()
	c.Experience = append(c.Experience, ExperienceEntry{ID: "a", Company: "Acme"})
	c.Skills = append(c.Skills, "Go")

	clone := c.Clone()
	clone.Experience[0].Company = "Changed"
	clone.Skills[0] = "Rust"

	if c.Experience[0].Company != "Acme" {
		t.Fatalf("clone shares experience backing array: %q", c.Experience[0].Company)
	}
	if c.Skills[0] != "Go" {
		t.Fatalf("clone shares skills backing array: %q", c.Skills[0])
	}
}
