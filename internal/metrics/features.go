package metrics

import (
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/go-director/memory"
)

// Features holds basic local text features derived from an input string.
type Features struct {
	Bytes int `json:"bytes"`
	Runes int `json:"runes"`
	Words int `json:"words"`
	Lines int `json:"lines"`
}

// Add returns the field-wise sum of f and o.
func (f Features) Add(o Features) Features {
	return Features{
		Bytes: f.Bytes + o.Bytes,
		Runes: f.Runes + o.Runes,
		Words: f.Words + o.Words,
		Lines: f.Lines + o.Lines,
	}
}

// CountFeatures computes and returns byte, rune, word, and line counts for the input string.
func CountFeatures(s string) Features {
	b := len(s)
	r := utf8.RuneCountInString(s)
	w := countWords(s)
	l := countLines(s)
	return Features{Bytes: b, Runes: r, Words: w, Lines: l}
}

// CountMessages aggregates features over message content and tool call
// arguments. Tool names and ids are not counted.
func CountMessages(msgs []memory.Message) Features {
	var total Features
	for _, m := range msgs {
		total = total.Add(CountFeatures(m.Content))
		for _, c := range m.ToolCalls {
			total = total.Add(CountFeatures(string(c.Arguments)))
		}
	}
	return total
}

// countWords counts words split on Unicode whitespace.
func countWords(s string) int {
	return len(strings.Fields(s))
}

// countLines returns 0 for empty strings; otherwise 1 plus the number of '\n' runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}
