package models

import (
	"testing"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Category
		wantErr bool
	}{
		{"exact lowercase", "decision", CategoryDecision, false},
		{"title case", "Decision", CategoryDecision, false},
		{"upper case", "COMMITMENT", CategoryCommitment, false},
		{"camel case quality risk", "QualityRisk", CategoryQualityRisk, false},
		{"snake case quality risk", "quality_risk", CategoryQualityRisk, false},
		{"hyphenated", "quality-risk", CategoryQualityRisk, false},
		{"spaced", "Quality Risk", CategoryQualityRisk, false},
		{"surrounding whitespace", "  feedback  ", CategoryFeedback, false},
		{"unknown", "escalation", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCategory(%q) expected error, got %q", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCategory(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestJobStatusTerminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobPending, false},
		{JobProcessing, false},
		{JobDone, true},
		{JobFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestRecordIDString(t *testing.T) {
	id := surrealmodels.RecordID{Table: "event", ID: "abc123"}
	s, err := RecordIDString(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "abc123" {
		t.Errorf("got %q, want %q", s, "abc123")
	}

	bad := surrealmodels.RecordID{Table: "event", ID: 42}
	if _, err := RecordIDString(bad); err == nil {
		t.Error("expected error for non-string ID")
	}
}
