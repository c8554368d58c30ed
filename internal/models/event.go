package models

import (
	"fmt"
	"strings"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Category classifies a semantic event. The enumeration is closed; anything
// an extraction pass returns outside it is a malformed output, not a new
// category.
type Category string

const (
	CategoryDecision      Category = "decision"
	CategoryCommitment    Category = "commitment"
	CategoryExecution     Category = "execution"
	CategoryCollaboration Category = "collaboration"
	CategoryQualityRisk   Category = "quality_risk"
	CategoryFeedback      Category = "feedback"
	CategoryChange        Category = "change"
	CategoryStakeholder   Category = "stakeholder"
)

// Categories lists every valid category, in stable order.
var Categories = []Category{
	CategoryDecision,
	CategoryCommitment,
	CategoryExecution,
	CategoryCollaboration,
	CategoryQualityRisk,
	CategoryFeedback,
	CategoryChange,
	CategoryStakeholder,
}

// ParseCategory maps a free-form category label to its canonical value.
// Accepts case variations and "QualityRisk"/"quality-risk" style spellings.
func ParseCategory(s string) (Category, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	norm = strings.ReplaceAll(norm, " ", "_")
	if norm == "qualityrisk" {
		norm = "quality_risk"
	}
	for _, c := range Categories {
		if norm == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown event category %q", s)
}

// SemanticEvent is a structured fact derived from one content revision.
// Events are written only by the extraction worker and are immutable except
// for the all-or-nothing replace during re-extraction.
type SemanticEvent struct {
	ID         surrealmodels.RecordID `json:"id"`
	ContentID  string                 `json:"content_id"`
	RevisionID string                 `json:"revision_id"`
	Category   Category               `json:"category"`
	Narrative  string                 `json:"narrative"`
	Confidence float64                `json:"confidence"`
	EventTime  *time.Time             `json:"event_time,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// EventEvidence is a verifiable source-text span supporting an event.
// Offsets are global character offsets into the revision's full text; the
// quote must equal the chunk text sliced at the chunk-local projection of
// those offsets.
type EventEvidence struct {
	ID        surrealmodels.RecordID `json:"id"`
	EventID   surrealmodels.RecordID `json:"event"`
	ChunkID   string                 `json:"chunk_id"`
	Quote     string                 `json:"quote"`
	StartChar int                    `json:"start_char"`
	EndChar   int                    `json:"end_char"`
}
