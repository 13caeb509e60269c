package repositoryimpl

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/kazz187/voicetask/internal/task"
)

// record is the persisted shape of a task. Optional fields are pointers and
// the decoded keys are remembered so records written by older versions can
// be detected and normalized.
type record struct {
	ID          string     `json:"id" yaml:"id"`
	Text        string     `json:"text" yaml:"text"`
	Completed   bool       `json:"completed" yaml:"completed"`
	Priority    *string    `json:"priority" yaml:"priority"`
	Category    *string    `json:"category" yaml:"category"`
	CreatedAt   timestamp  `json:"created_at" yaml:"created_at"`
	ModifiedAt  *timestamp `json:"modified_at" yaml:"modified_at"`
	CompletedAt *timestamp `json:"completed_at" yaml:"completed_at"`

	keys map[string]bool
}

func (r *record) UnmarshalJSON(data []byte) error {
	type plain record
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = record(p)
	r.keys = make(map[string]bool, len(raw))
	for k := range raw {
		r.keys[k] = true
	}
	return nil
}

func (r *record) UnmarshalYAML(node *yaml.Node) error {
	type plain record
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = record(p)
	r.keys = make(map[string]bool)
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			r.keys[node.Content[i].Value] = true
		}
	}
	return nil
}

func newRecord(t *task.Task) record {
	p := string(t.Priority)
	r := record{
		ID:         t.ID,
		Text:       t.Text,
		Completed:  t.Completed,
		Priority:   &p,
		CreatedAt:  timestamp{t.CreatedAt},
		ModifiedAt: &timestamp{t.ModifiedAt},
	}
	if t.Category != task.CategoryNone {
		c := string(t.Category)
		r.Category = &c
	}
	if t.CompletedAt != nil {
		r.CompletedAt = &timestamp{*t.CompletedAt}
	}
	return r
}

// toTask converts r, defaulting anything missing or invalid. migrated is
// true when the stored form differs from what Save would write.
func (r *record) toTask(now time.Time) (t *task.Task, migrated bool) {
	t = &task.Task{
		ID:        r.ID,
		Text:      r.Text,
		Completed: r.Completed,
		CreatedAt: r.CreatedAt.Time,
	}
	if t.ID == "" {
		t.ID = ulid.Make().String()
		migrated = true
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
		migrated = true
	}

	if !r.keys["priority"] || r.Priority == nil {
		t.Priority = task.PriorityMedium
		migrated = true
	} else {
		t.Priority = task.ParsePriority(*r.Priority)
		if string(t.Priority) != *r.Priority {
			migrated = true
		}
	}

	if !r.keys["category"] {
		migrated = true
	}
	if r.Category != nil {
		t.Category = task.ParseCategory(*r.Category)
		if string(t.Category) != *r.Category {
			migrated = true
		}
	}

	if r.ModifiedAt == nil || r.ModifiedAt.IsZero() {
		t.ModifiedAt = t.CreatedAt
		migrated = true
	} else {
		t.ModifiedAt = r.ModifiedAt.Time
	}
	if t.ModifiedAt.Before(t.CreatedAt) {
		t.ModifiedAt = t.CreatedAt
		migrated = true
	}

	switch {
	case t.Completed && r.CompletedAt == nil:
		at := t.ModifiedAt
		t.CompletedAt = &at
		migrated = true
	case t.Completed:
		at := r.CompletedAt.Time
		t.CompletedAt = &at
	case r.CompletedAt != nil:
		migrated = true
	}
	return t, migrated
}

// timestamp accepts RFC 3339 as well as the zone-less ISO 8601 forms
// found in older task files, which are read as local time.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (t timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := parseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t timestamp) MarshalYAML() (any, error) {
	return t.Time.Format(time.RFC3339Nano), nil
}

func (t *timestamp) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		return nil
	}
	parsed, err := parseTimestamp(node.Value)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
