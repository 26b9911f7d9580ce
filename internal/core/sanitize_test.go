package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "clean text passes through",
			input: "你好呀",
			want:  "你好呀",
		},
		{
			name:  "mind state block at line start",
			input: "今天天气真好。\n【心声】心情：开心 动作：散步",
			want:  "今天天气真好。",
		},
		{
			name:  "denylisted marker removed up to next bracket token",
			input: "前面【调试】dump state【表情包】开心【/表情包】后面",
			want:  "前面【表情包】开心【/表情包】后面",
		},
		{
			name:  "unrecognized bracket token kept",
			input: "她说【重要】这件事不能忘。",
			want:  "她说【重要】这件事不能忘。",
		},
		{
			name:  "english debug span removed through end of line",
			input: "正文开始\n[debug] 内部信息\n正文结束",
			want:  "正文开始\n\n正文结束",
		},
		{
			name:  "brace thinking span removed",
			input: "{thinking: should I say this}\n就这样吧",
			want:  "就这样吧",
		},
		{
			name:  "field label lines swept",
			input: "回复内容\n心情：不太好\n穿搭：校服",
			want:  "回复内容",
		},
		{
			name:  "english field label line swept",
			input: "回复内容\nmood: gloomy",
			want:  "回复内容",
		},
		{
			name:  "json fragment with field key removed",
			input: `嗯{"mood":"sad"}好`,
			want:  "嗯好",
		},
		{
			name:  "dashed fence removed",
			input: "前\n---\ninternal notes\n---\n后",
			want:  "前\n\n后",
		},
		{
			name:  "bare timestamp removed",
			input: "好的 2024-01-02 03:04:05",
			want:  "好的",
		},
		{
			name:  "parenthesized timestamp removed",
			input: "(2024-01-02 03:04:05)\n到了就说一声",
			want:  "到了就说一声",
		},
		{
			name:  "current time line removed",
			input: "当前时间: 下午三点\n你好",
			want:  "你好",
		},
		{
			name:  "system time line removed",
			input: "系统时间：2024-01-02 03:04:05\n晚安",
			want:  "晚安",
		},
		{
			name:  "excess newlines collapsed",
			input: "第一段\n\n\n\n第二段",
			want:  "第一段\n\n第二段",
		},
		{
			// A removed timestamp uncovers a dashed fence the fence
			// pass already ran past; the sweep must go again.
			name:  "timestamp removal exposes dashed fence",
			input: "你好\n---(2024-01-01 00:00:00)\nX\n---",
			want:  "你好",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"你好呀",
		"今天天气真好。\n【心声】心情：开心 动作：散步",
		"前面【调试】dump state【表情包】开心【/表情包】后面",
		"正文开始\n[debug] 内部信息\n正文结束",
		"回复内容\n心情：不太好\n穿搭：校服",
		`嗯{"mood":"sad"}好`,
		"前\n---\ninternal notes\n---\n后",
		"好的 2024-01-02 03:04:05",
		"当前时间: 下午三点\n你好",
		"第一段\n\n\n\n第二段",
		"---\n只有一个分隔线",
		"【心声】没有字段的块",
		"你好\n---(2024-01-01 00:00:00)\nX\n---",
		"当前时间：2024-01-01 00:00:00\n---\n笔记\n---",
		"",
	}
	for _, input := range inputs {
		once := Sanitize(input)
		assert.Equal(t, once, Sanitize(once), "sanitize must be idempotent for %q", input)
	}
}
