package task

import (
	"encoding/json"
	"strings"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists the valid priorities from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority coerces any input to a valid priority. Unknown values
// become medium.
func ParsePriority(s string) Priority {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p.Valid() {
		return p
	}
	return PriorityMedium
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank orders priorities for sorting; lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Category is optional. CategoryNone is the unset value and is encoded
// as null.
type Category string

const (
	CategoryNone     Category = ""
	CategoryClient   Category = "client"
	CategoryBusiness Category = "business"
	CategoryPersonal Category = "personal"
)

var Categories = []Category{CategoryClient, CategoryBusiness, CategoryPersonal}

// ParseCategory coerces any input to a valid category. Unknown values
// become CategoryNone.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return CategoryNone
}

func (c Category) Valid() bool {
	switch c {
	case CategoryClient, CategoryBusiness, CategoryPersonal:
		return true
	}
	return false
}

func (c Category) MarshalJSON() ([]byte, error) {
	if c == CategoryNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*c = CategoryNone
		return nil
	}
	*c = ParseCategory(*s)
	return nil
}

type Task struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	Category    Category   `json:"category"`
	CreatedAt   time.Time  `json:"created_at"`
	ModifiedAt  time.Time  `json:"modified_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Clone returns a copy that shares no memory with t.
func (t *Task) Clone() Task {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return c
}

// setCompleted keeps CompletedAt non-nil exactly when Completed is true.
func (t *Task) setCompleted(completed bool, now time.Time) {
	if t.Completed == completed {
		return
	}
	t.Completed = completed
	if completed {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
}

// UpdateFields carries the optional fields accepted by Store.Update.
// Nil fields are left unchanged.
type UpdateFields struct {
	Text      *string
	Priority  *Priority
	Category  *Category
	Completed *bool
}

type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	HighPriority   int `json:"high_priority"`
	MediumPriority int `json:"medium_priority"`
	LowPriority    int `json:"low_priority"`
	ClientTasks    int `json:"client_tasks"`
	BusinessTasks  int `json:"business_tasks"`
	PersonalTasks  int `json:"personal_tasks"`
}
