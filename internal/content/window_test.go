package content

import (
	"strings"
	"testing"
)

func TestSplit_ShortText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantLen int
	}{
		{name: "empty", text: "", wantLen: 0},
		{name: "below size", text: "short text", wantLen: 1},
		{name: "exactly size", text: strings.Repeat("a", 100), wantLen: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows := Split(tt.text, 100, 10)
			if len(windows) != tt.wantLen {
				t.Fatalf("Split() got %d windows, want %d", len(windows), tt.wantLen)
			}
			if tt.wantLen == 1 {
				w := windows[0]
				if w.Seq != 0 || w.StartChar != 0 || w.EndChar != len(tt.text) || w.Text != tt.text {
					t.Errorf("Split() single window = %+v", w)
				}
			}
		})
	}
}

func TestSplit_OffsetsMatchSource(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)
	windows := Split(text, 200, 40)

	if len(windows) < 2 {
		t.Fatalf("Split() got %d windows, want several", len(windows))
	}

	for i, w := range windows {
		if w.Seq != i {
			t.Errorf("window %d has seq %d", i, w.Seq)
		}
		if got := text[w.StartChar:w.EndChar]; got != w.Text {
			t.Errorf("window %d text does not match source span [%d:%d]", i, w.StartChar, w.EndChar)
		}
		if len(w.Text) > 200 {
			t.Errorf("window %d is %d bytes, max 200", i, len(w.Text))
		}
	}

	// Consecutive windows overlap and cover the whole text.
	for i := 1; i < len(windows); i++ {
		if windows[i].StartChar >= windows[i-1].EndChar {
			t.Errorf("gap between window %d and %d", i-1, i)
		}
	}
	if last := windows[len(windows)-1]; last.EndChar != len(text) {
		t.Errorf("last window ends at %d, want %d", last.EndChar, len(text))
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta ", 100)
	a := Split(text, 150, 30)
	b := Split(text, 150, 30)

	if len(a) != len(b) {
		t.Fatalf("runs disagree: %d vs %d windows", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("window %d differs between runs", i)
		}
	}
}

func TestSplit_RuneBoundaries(t *testing.T) {
	text := strings.Repeat("héllo wörld ü ", 60)
	windows := Split(text, 100, 20)

	for i, w := range windows {
		if !strings.Contains(text, w.Text) {
			t.Errorf("window %d split a rune", i)
		}
		if got := text[w.StartChar:w.EndChar]; got != w.Text {
			t.Errorf("window %d offsets do not match source", i)
		}
	}
}

func TestSplit_BadConfig(t *testing.T) {
	text := strings.Repeat("x", 500)

	// Overlap >= size falls back to a sane overlap instead of looping.
	windows := Split(text, 100, 100)
	if len(windows) == 0 {
		t.Fatal("Split() returned no windows")
	}
	if last := windows[len(windows)-1]; last.EndChar != len(text) {
		t.Errorf("last window ends at %d, want %d", last.EndChar, len(text))
	}
}
