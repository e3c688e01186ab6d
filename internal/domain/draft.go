package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DraftKey is the fixed slot under which the in-progress creation form is stored.
const DraftKey = "campaignDraft"

// Draft is an unsubmitted campaign creation form. Fields hold raw user input.
type Draft struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Target      string    `json:"target"`
	Deadline    string    `json:"deadline"`
	Image       string    `json:"image"`
	Category    string    `json:"category,omitempty"`
	Revision    string    `json:"revision,omitempty"`
	SavedAt     time.Time `json:"saved_at,omitempty"`
}

// IsEmpty reports whether every form field is blank.
func (d Draft) IsEmpty() bool {
	for _, v := range []string{d.Title, d.Description, d.Target, d.Deadline, d.Image, d.Category} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDeadline accepts RFC3339 and the date/datetime-local layouts browsers submit.
// Layouts without a zone are read in loc.
func ParseDeadline(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	var lastErr error
	for _, layout := range deadlineLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Form converts the raw draft into a typed creation form. Parse failures are
// returned as field-level validation errors.
func (d Draft) Form(owner string, loc *time.Location) (CampaignForm, error) {
	form := CampaignForm{
		Owner:       strings.TrimSpace(owner),
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Image:       strings.TrimSpace(d.Image),
	}
	var fields []FieldError
	if target := strings.TrimSpace(d.Target); target == "" {
		fields = append(fields, FieldError{Field: "target", Code: CodeTargetInvalid})
	} else if v, err := decimal.NewFromString(target); err != nil {
		fields = append(fields, FieldError{Field: "target", Code: CodeTargetInvalid})
	} else {
		form.Target = v
	}
	if deadline := strings.TrimSpace(d.Deadline); deadline == "" {
		fields = append(fields, FieldError{Field: "deadline", Code: CodeDeadlineRequired})
	} else if t, err := ParseDeadline(deadline, loc); err != nil {
		fields = append(fields, FieldError{Field: "deadline", Code: CodeDeadlineInvalid})
	} else {
		form.Deadline = t
	}
	if len(fields) > 0 {
		return form, NewValidationError("draft form", fields...)
	}
	return form, nil
}
