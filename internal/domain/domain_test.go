package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCampaignProgressZeroTarget(t *testing.T) {
	c := Campaign{Target: decimal.Zero, AmountCollected: decimal.NewFromInt(5)}
	if !c.Progress().IsZero() {
		t.Fatalf("progress = %s, want 0", c.Progress())
	}
}

func TestCampaignProgressOverfunded(t *testing.T) {
	c := Campaign{Target: decimal.RequireFromString("1"), AmountCollected: decimal.RequireFromString("1.5")}
	if got := c.Progress(); !got.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("progress = %s, want 1.5", got)
	}
}

func TestCampaignExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		deadline time.Time
		want     bool
	}{
		{name: "past", deadline: now.Add(-time.Hour), want: true},
		{name: "exactly now", deadline: now, want: true},
		{name: "future", deadline: now.Add(time.Minute), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := (Campaign{Deadline: tc.deadline}).Expired(now); got != tc.want {
				t.Fatalf("Expired() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCampaignOwnedBy(t *testing.T) {
	c := Campaign{Owner: "0xAbCd000000000000000000000000000000000001"}
	if !c.OwnedBy("0xabcd000000000000000000000000000000000001") {
		t.Fatal("expected case-insensitive owner match")
	}
	if c.OwnedBy("") {
		t.Fatal("empty account must not own anything")
	}
}

func TestParseCategory(t *testing.T) {
	if c, ok := ParseCategory(" Health "); !ok || c != CategoryHealth {
		t.Fatalf("ParseCategory(Health) = %q, %v", c, ok)
	}
	if c, ok := ParseCategory(""); !ok || c != CategoryAll {
		t.Fatalf("ParseCategory(\"\") = %q, %v", c, ok)
	}
	if _, ok := ParseCategory("sports"); ok {
		t.Fatal("expected unknown category to be rejected")
	}
}

func TestErrorIsMatchesKindAndCause(t *testing.T) {
	err := fmt.Errorf("donate: %w", &Error{Kind: KindTransactionFailed, Cause: CauseInsufficientFunds, Message: "insufficient funds for gas"})
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatal("expected kind match")
	}
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatal("expected cause match")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatal("unexpected validation match")
	}
	if KindOf(err) != KindTransactionFailed {
		t.Fatalf("KindOf = %q", KindOf(err))
	}
}

func TestValidationErrorFields(t *testing.T) {
	err := NewValidationError("create campaign",
		FieldError{Field: "title", Code: CodeTitleRequired},
		FieldError{Field: "target", Code: CodeTargetInvalid},
	)
	if err.Code != CodeTitleRequired {
		t.Fatalf("code = %q", err.Code)
	}
	if code, ok := err.Field("target"); !ok || code != CodeTargetInvalid {
		t.Fatalf("Field(target) = %q, %v", code, ok)
	}
	if err.Retryable() {
		t.Fatal("validation errors are not retryable")
	}
}

func TestDraftIsEmpty(t *testing.T) {
	if !(Draft{Title: "  "}).IsEmpty() {
		t.Fatal("whitespace-only draft should be empty")
	}
	if (Draft{Image: "https://example.com/a.png"}).IsEmpty() {
		t.Fatal("draft with image should not be empty")
	}
}

func TestDraftForm(t *testing.T) {
	d := Draft{
		Title:       " Clean water ",
		Description: "wells",
		Target:      "1.25",
		Deadline:    "2026-03-01T10:30",
	}
	form, err := d.Form("0x01", time.UTC)
	if err != nil {
		t.Fatalf("Form: %v", err)
	}
	if form.Title != "Clean water" {
		t.Fatalf("title = %q", form.Title)
	}
	if !form.Target.Equal(decimal.RequireFromString("1.25")) {
		t.Fatalf("target = %s", form.Target)
	}
	want := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	if !form.Deadline.Equal(want) {
		t.Fatalf("deadline = %s, want %s", form.Deadline, want)
	}
}

func TestDraftFormReportsFieldErrors(t *testing.T) {
	_, err := Draft{Target: "abc", Deadline: "tomorrow"}.Form("", time.UTC)
	verr, ok := AsError(err)
	if !ok || verr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if code, _ := verr.Field("target"); code != CodeTargetInvalid {
		t.Fatalf("target code = %q", code)
	}
	if code, _ := verr.Field("deadline"); code != CodeDeadlineInvalid {
		t.Fatalf("deadline code = %q", code)
	}
}

func TestNotOwnerIsTransactionFailedClass(t *testing.T) {
	err := &Error{Kind: KindNotOwner, Code: CodeNotOwner}
	if !errors.Is(err, ErrNotOwner) || !errors.Is(err, ErrTransactionFailed) {
		t.Fatal("not-owner should match both sentinels")
	}
	if errors.Is(err, ErrInsufficientFunds) {
		t.Fatal("not-owner must not match a specific cause")
	}
}
