// Package intake turns free-form task drafts, such as the JSON an assistant
// produces, into stored tasks by resolving category and subcategory names
// against an owner's tree.
package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidDraft is returned when draft input cannot be decoded.
var ErrInvalidDraft = errors.New("invalid task draft")

// Draft is one task as described by name, before any id resolution.
type Draft struct {
	Value       decimal.NullDecimal `json:"value"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Category    string              `json:"category,omitempty"`
	Subcategory string              `json:"subcategory,omitempty"`
	DueDate     string              `json:"due_date,omitempty"`
	Priority    string              `json:"priority,omitempty"`
	Flow        string              `json:"flow,omitempty"`
	Recurrence  string              `json:"recurrence,omitempty"`
}

// Due parses the draft's due date. Both RFC 3339 timestamps and plain dates
// are accepted; an empty value yields nil.
func (d Draft) Due() (*time.Time, error) {
	raw := strings.TrimSpace(d.DueDate)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: unrecognized due date %q", ErrInvalidDraft, d.DueDate)
}

// ParseDrafts decodes drafts from raw assistant output. It accepts a JSON
// array, an object with a "tasks" array, or a single task object, optionally
// wrapped in a markdown code fence.
func ParseDrafts(raw []byte) ([]Draft, error) {
	content := bytes.TrimSpace(stripCodeFence(raw))
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidDraft)
	}

	var drafts []Draft
	switch content[0] {
	case '[':
		if err := json.Unmarshal(content, &drafts); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
		}
	case '{':
		var envelope struct {
			Tasks *[]Draft `json:"tasks"`
		}
		if err := json.Unmarshal(content, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
		}
		if envelope.Tasks != nil {
			drafts = *envelope.Tasks
			break
		}
		var single Draft
		if err := json.Unmarshal(content, &single); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
		}
		drafts = []Draft{single}
	default:
		return nil, fmt.Errorf("%w: expected a JSON object or array", ErrInvalidDraft)
	}

	for i := range drafts {
		drafts[i].Title = strings.TrimSpace(drafts[i].Title)
		if drafts[i].Title == "" {
			return nil, fmt.Errorf("%w: draft %d has no title", ErrInvalidDraft, i)
		}
	}
	return drafts, nil
}

// stripCodeFence removes a surrounding ```json ... ``` block if present.
func stripCodeFence(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(s)
}
