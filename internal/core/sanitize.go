package core

import (
	"regexp"
	"strings"
)

// Bracket-token names that mark internal model chatter. The emoji marker
// is deliberately absent: it belongs to the extractor, which removes the
// span once consumed.
var internalMarkerNames = []string{
	"心声", "思维链", "思考", "系统", "指令", "提示", "缓冲", "内部", "调试", "日志",
}

var (
	englishDebugSpanRe = regexp.MustCompile(`(?i)[\[{][^\n\]}]*(?:thinking|thought|mindstate|internal|debug|system|instruction)[^\n]*`)

	fieldLineStartRe = regexp.MustCompile(`(?m)^[ \t]*(?:穿搭|心情|动作|心声|坏心思|(?i:outfit|mood|action|thought|badthought))[ \t]*[:：]`)
	fieldLabelRe     = regexp.MustCompile(`(?:穿搭|心情|动作|心声|坏心思|(?i:outfit|mood|action|thought|badthought))[ \t]*[:：]`)

	jsonFragmentRe  = regexp.MustCompile(`\{[^{}]*"(?:穿搭|心情|动作|心声|坏心思|(?i:outfit|mood|action|thought|badthought))"[ \t]*[:：][^{}]*\}`)
	yamlFenceRe     = regexp.MustCompile(`(?s)-{3,}\n.*?\n-{3,}`)
	timestampRe     = regexp.MustCompile(`\(?\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}\)?`)
	timestampLineRe = regexp.MustCompile(`(?m)^[ \t]*(?:当前时间|系统时间)[ \t]*[:：][^\n]*\n?`)
	excessNewlineRe = regexp.MustCompile(`\n{3,}`)
)

// Sanitize strips recognized internal-directive patterns from raw model
// output, leaving only user-facing prose. It is idempotent and never
// fails on malformed input; a clean string passes through unchanged
// modulo whitespace normalization.
//
// A later pass can expose a pattern an earlier pass already ran past
// (a removed timestamp uncovering a dashed fence, say), so the sweep
// repeats until the text stops changing. Every pass only removes text,
// which guarantees the loop terminates.
func Sanitize(raw string) string {
	text := raw
	for {
		swept := sweep(text)
		if swept == text {
			return swept
		}
		text = swept
	}
}

func sweep(text string) string {
	text = stripInternalMarkerBlocks(text)
	text = englishDebugSpanRe.ReplaceAllString(text, "")
	text = stripFieldLabelLines(text)
	text = jsonFragmentRe.ReplaceAllString(text, "")
	text = yamlFenceRe.ReplaceAllString(text, "")
	text = timestampRe.ReplaceAllString(text, "")
	text = timestampLineRe.ReplaceAllString(text, "")
	text = excessNewlineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// stripInternalMarkerBlocks removes every 【token】 block whose token name
// contains a denylisted internal-marker name, from the opening bracket up
// to the next 【 or end of text. Unrecognized bracketed tokens are left
// alone.
func stripInternalMarkerBlocks(text string) string {
	var b strings.Builder
	cursor := 0
	for cursor < len(text) {
		start := strings.Index(text[cursor:], "【")
		if start < 0 {
			b.WriteString(text[cursor:])
			break
		}
		start += cursor
		b.WriteString(text[cursor:start])

		tokenEnd := strings.Index(text[start:], "】")
		if tokenEnd < 0 {
			// Unterminated bracket, keep the rest as-is.
			b.WriteString(text[start:])
			break
		}
		token := text[start+len("【") : start+tokenEnd]

		blockEnd := len(text)
		if next := strings.Index(text[start+len("【"):], "【"); next >= 0 {
			blockEnd = start + len("【") + next
		}

		if isInternalMarker(token) {
			cursor = blockEnd
			continue
		}
		b.WriteString(text[start:blockEnd])
		cursor = blockEnd
	}
	return b.String()
}

func isInternalMarker(token string) bool {
	if strings.Contains(token, "表情包") {
		return false
	}
	for _, name := range internalMarkerNames {
		if strings.Contains(token, name) {
			return true
		}
	}
	return false
}

// stripFieldLabelLines removes lines that begin with a mind-state field
// label and a colon, through to the next recognized label or end of text.
// This is a safety net for blocks the marker pass missed.
func stripFieldLabelLines(text string) string {
	for {
		loc := fieldLineStartRe.FindStringIndex(text)
		if loc == nil {
			return text
		}
		end := len(text)
		if next := fieldLabelRe.FindStringIndex(text[loc[1]:]); next != nil {
			end = loc[1] + next[0]
		}
		text = text[:loc[0]] + text[end:]
	}
}
