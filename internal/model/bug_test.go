package model

import (
	"strings"
	"testing"
)

// =========================================================================
// TITLE + DESCRIPTION VALIDATION
// =========================================================================

func TestValidateTitle(t *testing.T) {
	cases := []struct {
		name    string
		title   string
		wantMsg string // "" means valid
	}{
		{"exactly 5 chars", "Crash", ""},
		{"normal title", "Login button does nothing", ""},
		{"exactly 255 chars", strings.Repeat("a", 255), ""},
		{"4 chars", "Oops", "Title must be at least 5 characters long."},
		{"empty", "", "Title must be at least 5 characters long."},
		{"256 chars", strings.Repeat("a", 256), "Title must not exceed 255 characters."},
		// Rune counting: five multi-byte characters are five characters.
		{"5 multibyte runes", "héllö", ""},
		{"4 multibyte runes", "héll", "Title must be at least 5 characters long."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTitle(tc.title)
			if tc.wantMsg == "" {
				if err != nil {
					t.Errorf("ValidateTitle(%q) = %v, want nil", tc.title, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateTitle(%q) should have failed", tc.title)
			}
			if err.Field != "title" {
				t.Errorf("Field = %q, want title", err.Field)
			}
			if err.Message != tc.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tc.wantMsg)
			}
		})
	}
}

func TestValidateDescription(t *testing.T) {
	if err := ValidateDescription(strings.Repeat("x", 10)); err != nil {
		t.Errorf("10 chars should be valid, got %v", err)
	}
	// No maximum.
	if err := ValidateDescription(strings.Repeat("x", 100000)); err != nil {
		t.Errorf("a very long description should be valid, got %v", err)
	}

	err := ValidateDescription("too short")
	if err == nil {
		t.Fatal("9 chars should fail")
	}
	if err.Message != "Description must be at least 10 characters long." {
		t.Errorf("Message = %q", err.Message)
	}
}

// =========================================================================
// ENUM TESTS
// =========================================================================

func TestSeverity(t *testing.T) {
	for _, s := range Severities {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []Severity{"", "urgent", "LOW", "Medium"} {
		// Matching is exact: codes are lower-case on the wire.
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}

	if got := SeverityCritical.Display(); got != "Critical" {
		t.Errorf("Display() = %q, want Critical", got)
	}
}

func TestStatus(t *testing.T) {
	for _, s := range Statuses {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []Status{"", "snoozed", "OPEN", "in progress"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}

	if got := StatusInProgress.Display(); got != "In Progress" {
		t.Errorf("Display() = %q, want In Progress", got)
	}
}

func TestValidateSeverity_MessageListsChoices(t *testing.T) {
	err := ValidateSeverity("urgent")
	if err == nil {
		t.Fatal("unknown severity should fail")
	}
	if err.Message != "Invalid severity. Choose from: low, medium, high, critical" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestValidateStatus_MessageListsChoices(t *testing.T) {
	err := ValidateStatus("snoozed")
	if err == nil {
		t.Fatal("unknown status should fail")
	}
	if err.Message != "Invalid status. Choose from: open, in_progress, resolved, closed" {
		t.Errorf("Message = %q", err.Message)
	}
}

// =========================================================================
// TAG CLEANING
// =========================================================================

func TestCleanTags(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil input", nil, []string{}},
		{"already clean", []string{"ui", "crash"}, []string{"ui", "crash"}},
		{"trims whitespace", []string{"  ui  ", "\tcrash\n"}, []string{"ui", "crash"}},
		{"lower-cases", []string{"UI", "CraSh"}, []string{"ui", "crash"}},
		{"drops empties after cleaning", []string{"ui", "   ", "", "crash"}, []string{"ui", "crash"}},
		{"preserves input order", []string{"zebra", "apple", "mango"}, []string{"zebra", "apple", "mango"}},
		{"everything empty", []string{" ", "\t"}, []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CleanTags(tc.in)
			if err != nil {
				t.Fatalf("CleanTags(%v) error = %v", tc.in, err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("CleanTags(%v) = %v, want %v", tc.in, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("CleanTags(%v)[%d] = %q, want %q", tc.in, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestCleanTags_Idempotent(t *testing.T) {
	once, err := CleanTags([]string{"  UI ", "Crash", "  "})
	if err != nil {
		t.Fatalf("CleanTags() error = %v", err)
	}

	twice, err := CleanTags(once)
	if err != nil {
		t.Fatalf("CleanTags() second pass error = %v", err)
	}
	if len(once) != len(twice) {
		t.Fatalf("second pass changed the result: %v vs %v", once, twice)
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("second pass changed tag %d: %q vs %q", i, once[i], twice[i])
		}
	}
}

func TestCleanTags_OversizedTag(t *testing.T) {
	longTag := strings.Repeat("a", 51)

	_, err := CleanTags([]string{"fine", longTag})
	if err == nil {
		t.Fatal("a 51-character tag should fail")
	}
	if err.Field != "tags" {
		t.Errorf("Field = %q, want tags", err.Field)
	}

	// The message quotes only the first 20 characters of the offender.
	want := "Tag '" + strings.Repeat("a", 20) + "...' exceeds 50 characters."
	if err.Message != want {
		t.Errorf("Message = %q, want %q", err.Message, want)
	}
}

func TestCleanTags_ExactlyFiftyCharsIsFine(t *testing.T) {
	tag := strings.Repeat("a", 50)

	got, err := CleanTags([]string{tag})
	if err != nil {
		t.Fatalf("a 50-character tag should be accepted: %v", err)
	}
	if len(got) != 1 || got[0] != tag {
		t.Errorf("got %v", got)
	}
}

// Length is checked after trimming: surrounding whitespace doesn't count
// against the 50-character limit.
func TestCleanTags_LengthCheckedAfterTrim(t *testing.T) {
	tag := "   " + strings.Repeat("a", 50) + "   "

	got, err := CleanTags([]string{tag})
	if err != nil {
		t.Fatalf("trimmed tag is exactly 50 chars, should be accepted: %v", err)
	}
	if len(got) != 1 || got[0] != strings.Repeat("a", 50) {
		t.Errorf("got %v", got)
	}
}
