package core

import (
	"strings"

	"pawchat/internal/store"
)

// EmojiRef is a resolved emoji directive: the label the model echoed and
// the image it maps to.
type EmojiRef struct {
	Label    string `json:"label"`
	ImageRef string `json:"image_ref"`
}

// Extraction is the side-channel data pulled out of one raw model reply.
// Text is the sanitized display text; it is legitimately empty for an
// emoji-only reply.
type Extraction struct {
	Emoji     *EmojiRef
	MindState *store.MindState
	Text      string
}

// Extract pulls at most one emoji reference and at most one mind-state
// record out of raw model output, removes their directive spans, and
// sanitizes what remains. It never fails: malformed directives degrade to
// whatever parses cleanly.
func Extract(raw string, library []store.EmojiAsset) Extraction {
	var ext Extraction

	text, emoji := extractEmoji(raw, library)
	ext.Emoji = emoji

	text, mindState := extractMindState(text)
	ext.MindState = mindState

	ext.Text = Sanitize(text)
	return ext
}

// extractEmoji honors only the first well-formed emoji marker. The span
// is removed even when the label resolves to nothing, so the raw marker
// can never leak into the transcript. Duplicate labels resolve to the
// first asset in library order.
func extractEmoji(text string, library []store.EmojiAsset) (string, *EmojiRef) {
	open := strings.Index(text, emojiOpenToken)
	if open < 0 {
		return text, nil
	}
	labelStart := open + len(emojiOpenToken)
	closeRel := strings.Index(text[labelStart:], emojiCloseToken)
	if closeRel < 0 {
		return text, nil
	}
	label := strings.TrimSpace(text[labelStart : labelStart+closeRel])
	remaining := text[:open] + text[labelStart+closeRel+len(emojiCloseToken):]

	for _, asset := range library {
		if asset.Label == label {
			return remaining, &EmojiRef{Label: label, ImageRef: asset.ImageRef}
		}
	}
	return remaining, nil
}

// extractMindState parses the first mind-state block. The block runs from
// its opening token to the end of the line; field values are bounded by
// the next recognized field label. Empty values are absent, never empty
// strings. The whole block is removed, with its leading newline when the
// block starts a line.
func extractMindState(text string) (string, *store.MindState) {
	tokenStart := strings.Index(text, mindStateToken)
	if tokenStart < 0 {
		return text, nil
	}
	bodyStart := tokenStart + len(mindStateToken)
	bodyEnd := lineEnd(text, bodyStart)
	body := text[bodyStart:bodyEnd]

	removeStart := tokenStart
	if removeStart > 0 && text[removeStart-1] == '\n' {
		removeStart--
	}
	remaining := text[:removeStart] + text[bodyEnd:]

	record := parseMindFields(body)
	return remaining, record
}

func parseMindFields(body string) *store.MindState {
	occ := scanFieldOccurrences(body)
	if len(occ) == 0 {
		return nil
	}

	var record store.MindState
	for i, o := range occ {
		end := len(body)
		if i+1 < len(occ) {
			end = occ[i+1].start
		}
		value := stripTrailingFieldLabel(strings.TrimSpace(body[o.valueStart:end]))
		if value == "" {
			continue
		}
		switch o.label {
		case "穿搭":
			record.Outfit = value
		case "心情":
			record.Mood = value
		case "动作":
			record.Action = value
		case "心声":
			record.Thought = value
		case "坏心思":
			record.BadThought = value
		}
	}

	if record.IsZero() {
		return nil
	}
	return &record
}
