package extract

import (
	"fmt"
	"strings"
)

const passOneSystem = `You are an information extraction engine. Extract semantic events from the given text.

Event categories: decision, commitment, execution, collaboration, quality_risk, feedback, change, stakeholder

Respond with a JSON array only, no prose. Each element:
{
  "category": "<one of the categories above>",
  "narrative": "<one-sentence description of the fact>",
  "confidence": <0.0-1.0>,
  "event_time": "<RFC3339 timestamp or null if the text gives no date>",
  "actors": ["<name of each person/team/org initiating the event>"],
  "subjects": ["<name of each person/team/org affected by the event>"],
  "evidence": [{"quote": "<exact verbatim span from the text>", "start_char": <offset>, "end_char": <offset>}]
}

Rules:
- Quotes must be copied verbatim from the text; offsets are 0-based character positions of the quote within the text.
- Only extract facts actually stated. Do not infer events.
- Return [] if the text contains no events.`

func passOneUser(text string) string {
	return fmt.Sprintf("Text:\n%s\n\nExtracted events (JSON array):", text)
}

const passTwoSystem = `You are a deduplication engine. You are given a numbered list of candidate events extracted from overlapping windows of one document. Windows overlap, so the same fact may appear more than once.

Respond with a JSON object only, no prose:
{
  "merges": [{"sources": [<candidate indices describing the same fact>], "category": "<category>", "narrative": "<merged one-sentence description>", "confidence": <0.0-1.0>, "event_time": "<RFC3339 or null>"}],
  "drops": [<indices of candidates that are mere sub-fragments of another retained event>]
}

Rules:
- Each candidate index may appear in at most one merges.sources list or in drops, never both.
- Candidates listed in neither place are kept unchanged.
- Merge only candidates that describe the same fact. When unsure, keep them separate.`

func passTwoUser(candidates []Candidate) string {
	var b strings.Builder
	b.WriteString("Candidates:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. [%s] %s (confidence %.2f)\n", i, c.Category, c.Narrative, c.Confidence)
	}
	b.WriteString("\nCanonicalization (JSON object):")
	return b.String()
}
