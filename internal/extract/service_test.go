package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkaufhold/factgraph/internal/models"
)

// fakeLLM replays scripted responses in call order.
type fakeLLM struct {
	responses []string
	err       error
	calls     int
}

func (f *fakeLLM) Complete(_ context.Context, _, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.calls >= len(f.responses) {
		return "", fmt.Errorf("unexpected call %d", f.calls)
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func evidenceJSON(windowText, quote string) string {
	start := strings.Index(windowText, quote)
	return fmt.Sprintf(`{"quote": %q, "start_char": %d, "end_char": %d}`, quote, start, start+len(quote))
}

func TestExtract_SingleWindowDecision(t *testing.T) {
	text := "Alice approved the budget on March 1."
	window := Window{ChunkID: "c1", Text: text, StartChar: 0, EndChar: len(text)}

	llm := &fakeLLM{responses: []string{fmt.Sprintf(`[
		{
			"category": "decision",
			"narrative": "Alice approved the budget",
			"confidence": 0.92,
			"event_time": "2026-03-01T00:00:00Z",
			"actors": ["Alice"],
			"subjects": ["budget"],
			"evidence": [%s]
		}
	]`, evidenceJSON(text, text))}}

	svc := NewService(llm, testLogger())
	candidates, err := svc.Extract(context.Background(), []Window{window})
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, models.CategoryDecision, c.Category)
	assert.Equal(t, []string{"Alice"}, c.Actors)
	assert.GreaterOrEqual(t, c.Confidence, 0.0)
	assert.LessOrEqual(t, c.Confidence, 1.0)
	require.NotNil(t, c.EventTime)

	require.Len(t, c.Evidence, 1)
	assert.Equal(t, text, c.Evidence[0].Quote)
	assert.Equal(t, 0, c.Evidence[0].StartChar)
	assert.Equal(t, len(text), c.Evidence[0].EndChar)
	assert.Equal(t, "c1", c.Evidence[0].ChunkID)

	// Only one window, so the canonicalization pass never ran.
	assert.Equal(t, 1, llm.calls)
}

func TestExtract_CodeFencedOutput(t *testing.T) {
	text := "Bob committed to the migration."
	window := Window{ChunkID: "c1", Text: text, StartChar: 0, EndChar: len(text)}

	llm := &fakeLLM{responses: []string{fmt.Sprintf("```json\n[{\"category\": \"commitment\", \"narrative\": \"Bob committed to the migration\", \"confidence\": 0.8, \"event_time\": null, \"actors\": [\"Bob\"], \"subjects\": [], \"evidence\": [%s]}]\n```", evidenceJSON(text, text))}}

	svc := NewService(llm, testLogger())
	candidates, err := svc.Extract(context.Background(), []Window{window})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.CategoryCommitment, candidates[0].Category)
	assert.Nil(t, candidates[0].EventTime)
}

func TestExtract_MalformedOutput(t *testing.T) {
	window := Window{ChunkID: "c1", Text: "some text", StartChar: 0, EndChar: 9}

	tests := []struct {
		name     string
		response string
	}{
		{name: "not json", response: "I could not find any events in this text."},
		{name: "unknown category", response: `[{"category": "gossip", "narrative": "x", "confidence": 0.5, "evidence": []}]`},
		{name: "confidence out of range", response: `[{"category": "decision", "narrative": "x", "confidence": 1.7, "evidence": []}]`},
		{name: "empty narrative", response: `[{"category": "decision", "narrative": "", "confidence": 0.5, "evidence": []}]`},
		{name: "bad event time", response: `[{"category": "decision", "narrative": "x", "confidence": 0.5, "event_time": "soon", "evidence": []}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&fakeLLM{responses: []string{tt.response}}, testLogger())
			_, err := svc.Extract(context.Background(), []Window{window})
			require.Error(t, err)
		})
	}
}

func TestExtract_LLMError(t *testing.T) {
	llm := &fakeLLM{err: fmt.Errorf("connection refused")}
	svc := NewService(llm, testLogger())

	_, err := svc.Extract(context.Background(), []Window{{ChunkID: "c1", Text: "text", EndChar: 4}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction pass")
}

func TestExtract_UnverifiableEvidenceDropped(t *testing.T) {
	text := "Carol flagged a risk in the rollout plan."
	window := Window{ChunkID: "c1", Text: text, StartChar: 0, EndChar: len(text)}

	llm := &fakeLLM{responses: []string{fmt.Sprintf(`[
		{
			"category": "quality_risk",
			"narrative": "Carol flagged a rollout risk",
			"confidence": 0.7,
			"event_time": null,
			"actors": ["Carol"],
			"subjects": [],
			"evidence": [{"quote": "a quote that is not in the text", "start_char": 0, "end_char": 31}]
		},
		{
			"category": "quality_risk",
			"narrative": "Carol flagged a rollout risk",
			"confidence": 0.7,
			"event_time": null,
			"actors": ["Carol"],
			"subjects": [],
			"evidence": [%s]
		}
	]`, evidenceJSON(text, text))}}

	svc := NewService(llm, testLogger())
	candidates, err := svc.Extract(context.Background(), []Window{window})
	require.NoError(t, err)

	// The fabricated quote is dropped, the verifiable one survives.
	require.Len(t, candidates, 1)
	assert.Equal(t, text, candidates[0].Evidence[0].Quote)
}

func TestExtract_TwoWindowCanonicalization(t *testing.T) {
	text := "Alice approved the budget. Bob shipped the release to production."
	w1 := Window{ChunkID: "c1", Text: text[:40], StartChar: 0, EndChar: 40}
	w2 := Window{ChunkID: "c2", Text: text[19:], StartChar: 19, EndChar: len(text)}

	approvalQuote := "Alice approved the budget."
	dupQuote := "budget."
	shippedQuote := "Bob shipped the release to production."

	passOneW1 := fmt.Sprintf(`[{"category": "decision", "narrative": "Alice approved the budget", "confidence": 0.9, "event_time": null, "actors": ["Alice"], "subjects": ["budget"], "evidence": [%s]}]`,
		evidenceJSON(w1.Text, approvalQuote))
	passOneW2 := fmt.Sprintf(`[
		{"category": "decision", "narrative": "the budget was approved", "confidence": 0.6, "event_time": null, "actors": [], "subjects": ["budget"], "evidence": [%s]},
		{"category": "execution", "narrative": "Bob shipped the release", "confidence": 0.85, "event_time": null, "actors": ["Bob"], "subjects": ["release"], "evidence": [%s]}
	]`, evidenceJSON(w2.Text, dupQuote), evidenceJSON(w2.Text, shippedQuote))
	passTwo := `{"merges": [{"sources": [0, 1], "category": "decision", "narrative": "Alice approved the budget", "confidence": 0.9, "event_time": null}], "drops": []}`

	llm := &fakeLLM{responses: []string{passOneW1, passOneW2, passTwo}}
	svc := NewService(llm, testLogger())

	candidates, err := svc.Extract(context.Background(), []Window{w1, w2})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, 3, llm.calls)

	merged := candidates[0]
	assert.Equal(t, models.CategoryDecision, merged.Category)
	assert.Equal(t, []string{"Alice"}, merged.Actors)
	require.Len(t, merged.Evidence, 2)

	// Offsets were globalized: each quote matches the full text at its span.
	for _, span := range merged.Evidence {
		assert.Equal(t, span.Quote, text[span.StartChar:span.EndChar])
	}
	assert.Equal(t, strings.Index(text, approvalQuote), merged.Evidence[0].StartChar)
	assert.Equal(t, w2.StartChar+strings.Index(w2.Text, dupQuote), merged.Evidence[1].StartChar)

	shipped := candidates[1]
	assert.Equal(t, models.CategoryExecution, shipped.Category)
	assert.Equal(t, []string{"Bob"}, shipped.Actors)
	assert.Equal(t, shippedQuote, shipped.Evidence[0].Quote)
}

func TestExtract_PassTwoDrops(t *testing.T) {
	text := "The team agreed to migrate. The migration was agreed."
	w1 := Window{ChunkID: "c1", Text: text[:30], StartChar: 0, EndChar: 30}
	w2 := Window{ChunkID: "c2", Text: text[25:], StartChar: 25, EndChar: len(text)}

	passOneW1 := fmt.Sprintf(`[{"category": "decision", "narrative": "team agreed to migrate", "confidence": 0.8, "event_time": null, "actors": ["team"], "subjects": [], "evidence": [%s]}]`,
		evidenceJSON(w1.Text, "The team agreed to migrate."))
	passOneW2 := fmt.Sprintf(`[{"category": "decision", "narrative": "migration agreed", "confidence": 0.5, "event_time": null, "actors": [], "subjects": [], "evidence": [%s]}]`,
		evidenceJSON(w2.Text, "The migration was agreed."))
	passTwo := `{"merges": [], "drops": [1]}`

	llm := &fakeLLM{responses: []string{passOneW1, passOneW2, passTwo}}
	svc := NewService(llm, testLogger())

	candidates, err := svc.Extract(context.Background(), []Window{w1, w2})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "team agreed to migrate", candidates[0].Narrative)
}

func TestExtract_PassTwoInvalidPlan(t *testing.T) {
	w1 := Window{ChunkID: "c1", Text: "aaaa bbbb", StartChar: 0, EndChar: 9}
	w2 := Window{ChunkID: "c2", Text: "bbbb cccc", StartChar: 5, EndChar: 14}

	passOne := `[{"category": "change", "narrative": "x", "confidence": 0.5, "event_time": null, "actors": [], "subjects": [], "evidence": [{"quote": "aaaa", "start_char": 0, "end_char": 4}]}]`

	tests := []struct {
		name string
		plan string
	}{
		{name: "index out of range", plan: `{"merges": [], "drops": [7]}`},
		{name: "index used twice", plan: `{"merges": [{"sources": [0], "category": "change", "narrative": "x", "confidence": 0.5}], "drops": [0]}`},
		{name: "empty sources", plan: `{"merges": [{"sources": [], "category": "change", "narrative": "x", "confidence": 0.5}], "drops": []}`},
		{name: "not json", plan: `merge everything`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{responses: []string{passOne, passOne, tt.plan}}
			svc := NewService(llm, testLogger())
			_, err := svc.Extract(context.Background(), []Window{w1, w2})
			require.Error(t, err)
		})
	}
}
