// Package extract turns revision text into candidate semantic events via a
// two-pass LLM protocol: draft extraction per window, then cross-window
// canonicalization.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dkaufhold/factgraph/internal/models"
)

// Completer is the completion surface the service needs from an LLM.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Window is one ordered span of a revision's text. StartChar/EndChar are
// offsets into the full revision text.
type Window struct {
	ChunkID   string
	Text      string
	StartChar int
	EndChar   int
}

// Span is one evidence span. After Extract returns, offsets are global to the
// revision text.
type Span struct {
	ChunkID   string
	Quote     string
	StartChar int
	EndChar   int
}

// Candidate is one extracted event ready for entity resolution.
type Candidate struct {
	Category   models.Category
	Narrative  string
	Confidence float64
	EventTime  *time.Time
	Actors     []string
	Subjects   []string
	Evidence   []Span
}

// Service runs the extraction protocol. It holds no persistent state.
type Service struct {
	llm    Completer
	logger *slog.Logger
}

// NewService creates an extraction service.
func NewService(llm Completer, logger *slog.Logger) *Service {
	return &Service{llm: llm, logger: logger}
}

// Extract runs pass 1 over every window, pass 2 across windows when there is
// more than one, then verifies evidence. LLM failures and malformed output
// are returned as errors; events with unverifiable evidence are dropped, not
// errors.
func (s *Service) Extract(ctx context.Context, windows []Window) ([]Candidate, error) {
	if len(windows) == 0 {
		return nil, nil
	}

	var candidates []Candidate
	for _, w := range windows {
		raw, err := s.llm.Complete(ctx, passOneSystem, passOneUser(w.Text))
		if err != nil {
			return nil, fmt.Errorf("extraction pass: %w", err)
		}
		parsed, err := parsePassOne(raw, w.ChunkID)
		if err != nil {
			return nil, err
		}
		// Globalize window-local offsets immediately so pass 2 never has
		// to reason about windows.
		for i := range parsed {
			for j := range parsed[i].Evidence {
				parsed[i].Evidence[j].StartChar += w.StartChar
				parsed[i].Evidence[j].EndChar += w.StartChar
			}
		}
		candidates = append(candidates, parsed...)
	}

	if len(windows) > 1 && len(candidates) > 1 {
		merged, err := s.canonicalize(ctx, candidates)
		if err != nil {
			return nil, err
		}
		candidates = merged
	}

	kept, dropped := verifyEvidence(candidates, windows)
	if dropped > 0 {
		s.logger.Warn("dropped events with unverifiable evidence",
			"dropped", dropped,
			"kept", len(kept))
	}
	return kept, nil
}

// canonicalize asks the LLM for a merge/drop plan over the candidate list and
// applies it. Candidates the plan does not mention are kept unchanged.
func (s *Service) canonicalize(ctx context.Context, candidates []Candidate) ([]Candidate, error) {
	raw, err := s.llm.Complete(ctx, passTwoSystem, passTwoUser(candidates))
	if err != nil {
		return nil, fmt.Errorf("canonicalization pass: %w", err)
	}
	plan, err := parsePassTwo(raw, len(candidates))
	if err != nil {
		return nil, err
	}

	consumed := make(map[int]bool)
	var out []Candidate
	for _, m := range plan.Merges {
		merged, err := mergeCandidates(candidates, m)
		if err != nil {
			return nil, err
		}
		out = append(out, merged)
		for _, idx := range m.Sources {
			consumed[idx] = true
		}
	}
	for _, idx := range plan.Drops {
		consumed[idx] = true
	}
	for i, c := range candidates {
		if !consumed[i] {
			out = append(out, c)
		}
	}
	return out, nil
}

// mergeCandidates folds the plan's source candidates into one event carrying
// the union of their mentions and evidence.
func mergeCandidates(candidates []Candidate, m passTwoMerge) (Candidate, error) {
	category, err := models.ParseCategory(m.Category)
	if err != nil {
		return Candidate{}, err
	}
	eventTime, err := parseEventTime(m.EventTime)
	if err != nil {
		return Candidate{}, err
	}

	merged := Candidate{
		Category:   category,
		Narrative:  m.Narrative,
		Confidence: m.Confidence,
		EventTime:  eventTime,
	}
	seenActor := make(map[string]bool)
	seenSubject := make(map[string]bool)
	seenSpan := make(map[Span]bool)
	for _, idx := range m.Sources {
		src := candidates[idx]
		if merged.EventTime == nil {
			merged.EventTime = src.EventTime
		}
		for _, a := range src.Actors {
			if !seenActor[a] {
				seenActor[a] = true
				merged.Actors = append(merged.Actors, a)
			}
		}
		for _, sub := range src.Subjects {
			if !seenSubject[sub] {
				seenSubject[sub] = true
				merged.Subjects = append(merged.Subjects, sub)
			}
		}
		for _, span := range src.Evidence {
			if !seenSpan[span] {
				seenSpan[span] = true
				merged.Evidence = append(merged.Evidence, span)
			}
		}
	}
	return merged, nil
}

// verifyEvidence drops candidates whose quotes do not match their window text
// at the stated offsets, and candidates with no evidence at all.
func verifyEvidence(candidates []Candidate, windows []Window) (kept []Candidate, dropped int) {
	byChunk := make(map[string]Window, len(windows))
	for _, w := range windows {
		byChunk[w.ChunkID] = w
	}

	for _, c := range candidates {
		if len(c.Evidence) == 0 {
			dropped++
			continue
		}
		ok := true
		for _, span := range c.Evidence {
			if !spanVerifies(span, byChunk) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, c)
		} else {
			dropped++
		}
	}
	return kept, dropped
}

func spanVerifies(span Span, byChunk map[string]Window) bool {
	w, found := byChunk[span.ChunkID]
	if !found {
		return false
	}
	local := span.StartChar - w.StartChar
	if local < 0 || span.EndChar-span.StartChar != len(span.Quote) {
		return false
	}
	end := local + len(span.Quote)
	if end > len(w.Text) {
		return false
	}
	return w.Text[local:end] == span.Quote
}
