package core

import "strings"

// Literal directive vocabulary. The model embeds these markers inside
// otherwise free-form prose, so recognition is by exact token, never by
// structured output.
const (
	emojiOpenToken  = "【表情包】"
	emojiCloseToken = "【/表情包】"
	mindStateToken  = "【心声】"
)

// The five mind-state fields, keyed by their Chinese labels. English
// aliases only matter to the sanitizer's redundant line sweep.
var mindFieldLabels = []string{"穿搭", "心情", "动作", "心声", "坏心思"}

var englishFieldLabels = []string{"outfit", "mood", "action", "thought", "badthought"}

// fieldOccurrence marks one recognized "label + colon" inside a
// mind-state block body.
type fieldOccurrence struct {
	label      string
	start      int // byte offset of the label
	valueStart int // byte offset just past the colon
}

// matchFieldLabel reports whether body[i:] begins with a field label
// followed (after optional spaces) by a full- or half-width colon, and
// returns the label with the offset just past the colon.
func matchFieldLabel(body string, i int) (string, int, bool) {
	for _, label := range mindFieldLabels {
		if !strings.HasPrefix(body[i:], label) {
			continue
		}
		j := i + len(label)
		for j < len(body) && (body[j] == ' ' || body[j] == '\t') {
			j++
		}
		if strings.HasPrefix(body[j:], "：") {
			return label, j + len("："), true
		}
		if j < len(body) && body[j] == ':' {
			return label, j + 1, true
		}
	}
	return "", 0, false
}

// scanFieldOccurrences finds every recognized field label in a block
// body, in order of appearance. Labels never overlap each other, so a
// plain left-to-right scan is unambiguous.
func scanFieldOccurrences(body string) []fieldOccurrence {
	var occ []fieldOccurrence
	for i := 0; i < len(body); {
		label, valueStart, ok := matchFieldLabel(body, i)
		if !ok {
			i++
			continue
		}
		occ = append(occ, fieldOccurrence{label: label, start: i, valueStart: valueStart})
		i = valueStart
	}
	return occ
}

// stripTrailingFieldLabel removes a field label that dangles at the end
// of a value with no colon after it, which happens when verbose model
// output truncates mid-field.
func stripTrailingFieldLabel(value string) string {
	for _, label := range mindFieldLabels {
		if len(value) > len(label) && strings.HasSuffix(value, label) {
			return strings.TrimSpace(value[:len(value)-len(label)])
		}
	}
	return value
}

// lineEnd returns the offset of the next newline at or after i, or
// len(text) if the line runs to the end of the string.
func lineEnd(text string, i int) int {
	if j := strings.IndexByte(text[i:], '\n'); j >= 0 {
		return i + j
	}
	return len(text)
}
