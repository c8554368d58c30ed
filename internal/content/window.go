// Package content stores revision text and splits it into fixed-size
// overlapping windows for embedding and extraction.
package content

import "unicode/utf8"

// Window is one bounded sub-span of a revision's text. StartChar/EndChar are
// byte offsets into the revision text, so Text == revision[StartChar:EndChar].
type Window struct {
	Seq       int
	Text      string
	StartChar int
	EndChar   int
}

// Split cuts text into windows of at most size bytes with the given overlap
// between consecutive windows. Boundaries never split a UTF-8 rune. The same
// input always yields the same windows.
func Split(text string, size, overlap int) []Window {
	if size <= 0 {
		size = 4000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}

	if len(text) <= size {
		if text == "" {
			return nil
		}
		return []Window{{Seq: 0, Text: text, StartChar: 0, EndChar: len(text)}}
	}

	var windows []Window
	step := size - overlap
	start := 0
	for seq := 0; start < len(text); seq++ {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else {
			end = runeBoundary(text, end)
		}

		windows = append(windows, Window{
			Seq:       seq,
			Text:      text[start:end],
			StartChar: start,
			EndChar:   end,
		})

		if end == len(text) {
			break
		}
		start = runeBoundary(text, start+step)
	}
	return windows
}

// runeBoundary moves i backward to the start of the rune it points into.
func runeBoundary(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
