package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dkaufhold/factgraph/internal/models"
)

type passOneEvent struct {
	Category   string        `json:"category"`
	Narrative  string        `json:"narrative"`
	Confidence float64       `json:"confidence"`
	EventTime  *string       `json:"event_time"`
	Actors     []string      `json:"actors"`
	Subjects   []string      `json:"subjects"`
	Evidence   []passOneSpan `json:"evidence"`
}

type passOneSpan struct {
	Quote     string `json:"quote"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

type passTwoMerge struct {
	Sources    []int   `json:"sources"`
	Category   string  `json:"category"`
	Narrative  string  `json:"narrative"`
	Confidence float64 `json:"confidence"`
	EventTime  *string `json:"event_time"`
}

type passTwoPlan struct {
	Merges []passTwoMerge `json:"merges"`
	Drops  []int          `json:"drops"`
}

// stripCodeFence removes a surrounding markdown code fence, which chat models
// add despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language tag line
		if lang := strings.TrimSpace(s[:i]); lang == "" || !strings.ContainsAny(lang, " {[") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseEventTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" || strings.EqualFold(*s, "null") {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unparseable event time %q", *s)
}

// parsePassOne decodes one window's extraction output into candidates with
// window-local evidence offsets. Any structural problem is malformed output.
func parsePassOne(raw string, chunkID string) ([]Candidate, error) {
	var wire []passOneEvent
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &wire); err != nil {
		return nil, fmt.Errorf("malformed extraction output: %w", err)
	}

	candidates := make([]Candidate, 0, len(wire))
	for i, e := range wire {
		category, err := models.ParseCategory(e.Category)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		if e.Narrative == "" {
			return nil, fmt.Errorf("event %d: empty narrative", i)
		}
		if e.Confidence < 0 || e.Confidence > 1 {
			return nil, fmt.Errorf("event %d: confidence %v out of range", i, e.Confidence)
		}
		eventTime, err := parseEventTime(e.EventTime)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}

		spans := make([]Span, len(e.Evidence))
		for j, ev := range e.Evidence {
			spans[j] = Span{
				ChunkID:   chunkID,
				Quote:     ev.Quote,
				StartChar: ev.StartChar,
				EndChar:   ev.EndChar,
			}
		}
		candidates = append(candidates, Candidate{
			Category:   category,
			Narrative:  e.Narrative,
			Confidence: e.Confidence,
			EventTime:  eventTime,
			Actors:     e.Actors,
			Subjects:   e.Subjects,
			Evidence:   spans,
		})
	}
	return candidates, nil
}

// parsePassTwo decodes the canonicalization plan and checks every index is in
// range and used at most once.
func parsePassTwo(raw string, candidateCount int) (*passTwoPlan, error) {
	var plan passTwoPlan
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &plan); err != nil {
		return nil, fmt.Errorf("malformed canonicalization output: %w", err)
	}

	used := make(map[int]bool)
	claim := func(idx int) error {
		if idx < 0 || idx >= candidateCount {
			return fmt.Errorf("candidate index %d out of range", idx)
		}
		if used[idx] {
			return fmt.Errorf("candidate index %d used twice", idx)
		}
		used[idx] = true
		return nil
	}

	for mi, m := range plan.Merges {
		if len(m.Sources) == 0 {
			return nil, fmt.Errorf("merge %d has no sources", mi)
		}
		if _, err := models.ParseCategory(m.Category); err != nil {
			return nil, fmt.Errorf("merge %d: %w", mi, err)
		}
		if m.Narrative == "" {
			return nil, fmt.Errorf("merge %d: empty narrative", mi)
		}
		if m.Confidence < 0 || m.Confidence > 1 {
			return nil, fmt.Errorf("merge %d: confidence %v out of range", mi, m.Confidence)
		}
		for _, idx := range m.Sources {
			if err := claim(idx); err != nil {
				return nil, fmt.Errorf("merge %d: %w", mi, err)
			}
		}
	}
	for _, idx := range plan.Drops {
		if err := claim(idx); err != nil {
			return nil, fmt.Errorf("drops: %w", err)
		}
	}
	return &plan, nil
}
