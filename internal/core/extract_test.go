package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawchat/internal/store"
)

func TestExtractEmojiRoundTrip(t *testing.T) {
	library := []store.EmojiAsset{{Label: "开心", ImageRef: "X"}}

	ext := Extract("你好【表情包】开心【/表情包】呀", library)

	require.NotNil(t, ext.Emoji)
	assert.Equal(t, "开心", ext.Emoji.Label)
	assert.Equal(t, "X", ext.Emoji.ImageRef)
	assert.Equal(t, "你好呀", ext.Text)
	assert.Nil(t, ext.MindState)
}

func TestExtractEmojiUnknownLabel(t *testing.T) {
	ext := Extract("嗯【表情包】不存在【/表情包】", nil)

	assert.Nil(t, ext.Emoji, "unknown label must not resolve")
	assert.Equal(t, "嗯", ext.Text, "the marker span is removed even when unresolved")
}

func TestExtractEmojiLabelTrimmed(t *testing.T) {
	library := []store.EmojiAsset{{Label: "开心", ImageRef: "X"}}

	ext := Extract("【表情包】 开心 【/表情包】", library)

	require.NotNil(t, ext.Emoji)
	assert.Equal(t, "X", ext.Emoji.ImageRef)
	assert.Equal(t, "", ext.Text, "emoji-only reply leaves empty display text")
}

func TestExtractEmojiDuplicateLabelsFirstWins(t *testing.T) {
	library := []store.EmojiAsset{
		{Label: "开心", ImageRef: "first"},
		{Label: "开心", ImageRef: "second"},
	}

	ext := Extract("【表情包】开心【/表情包】", library)

	require.NotNil(t, ext.Emoji)
	assert.Equal(t, "first", ext.Emoji.ImageRef)
}

func TestExtractEmojiOnlyFirstMarkerHonored(t *testing.T) {
	library := []store.EmojiAsset{
		{Label: "开心", ImageRef: "X"},
		{Label: "难过", ImageRef: "Y"},
	}

	ext := Extract("【表情包】开心【/表情包】和【表情包】难过【/表情包】", library)

	require.NotNil(t, ext.Emoji)
	assert.Equal(t, "X", ext.Emoji.ImageRef)
	assert.Equal(t, "和【表情包】难过【/表情包】", ext.Text)
}

func TestExtractMindStateFull(t *testing.T) {
	ext := Extract("今天真不错。\n【心声】穿搭：白衬衫 心情：平静 动作：发呆 心声：今天真好 坏心思：无", nil)

	require.NotNil(t, ext.MindState)
	assert.Equal(t, "白衬衫", ext.MindState.Outfit)
	assert.Equal(t, "平静", ext.MindState.Mood)
	assert.Equal(t, "发呆", ext.MindState.Action)
	assert.Equal(t, "今天真好", ext.MindState.Thought)
	assert.Equal(t, "无", ext.MindState.BadThought)
	assert.Equal(t, "今天真不错。", ext.Text)
}

func TestExtractMindStateSameLineProsePreserved(t *testing.T) {
	ext := Extract("嗯嗯 【心声】穿搭：白衬衫 心情：平静 动作：发呆 心声：今天真好 坏心思：无", nil)

	require.NotNil(t, ext.MindState)
	assert.Equal(t, "白衬衫", ext.MindState.Outfit)
	assert.Equal(t, "嗯嗯", ext.Text)
}

func TestExtractMindStatePartial(t *testing.T) {
	ext := Extract("【心声】心情：开心", nil)

	require.NotNil(t, ext.MindState)
	assert.Equal(t, "开心", ext.MindState.Mood)
	assert.Empty(t, ext.MindState.Outfit)
	assert.Empty(t, ext.MindState.Action)
	assert.Empty(t, ext.MindState.Thought)
	assert.Empty(t, ext.MindState.BadThought)
}

func TestExtractMindStateHalfWidthColon(t *testing.T) {
	ext := Extract("【心声】心情: 放松 动作: 喝茶", nil)

	require.NotNil(t, ext.MindState)
	assert.Equal(t, "放松", ext.MindState.Mood)
	assert.Equal(t, "喝茶", ext.MindState.Action)
}

func TestExtractMindStateEmptyFieldAbsent(t *testing.T) {
	ext := Extract("【心声】穿搭： 心情：开心", nil)

	require.NotNil(t, ext.MindState)
	assert.Empty(t, ext.MindState.Outfit, "blank value is absent, not empty string semantics")
	assert.Equal(t, "开心", ext.MindState.Mood)
}

func TestExtractMindStateUnparseableBlockStillStripped(t *testing.T) {
	ext := Extract("你好\n【心声】乱七八糟没有字段", nil)

	assert.Nil(t, ext.MindState)
	assert.Equal(t, "你好", ext.Text)
}

func TestExtractMindStateBlockScopedToLine(t *testing.T) {
	ext := Extract("【心声】心情：开心\n后面的正文还在", nil)

	require.NotNil(t, ext.MindState)
	assert.Equal(t, "开心", ext.MindState.Mood)
	assert.Equal(t, "后面的正文还在", ext.Text)
}

func TestExtractStripsTrailingFieldLabelFragment(t *testing.T) {
	// Verbose output that truncates mid-field leaves a dangling label.
	ext := Extract("【心声】心情：还不错 坏心思", nil)

	require.NotNil(t, ext.MindState)
	assert.Equal(t, "还不错", ext.MindState.Mood)
	assert.Empty(t, ext.MindState.BadThought)
}

func TestExtractDirectiveStrippingCompleteness(t *testing.T) {
	inputs := []string{
		"好呀\n【心声】穿搭：白衬衫 心情：平静 动作：发呆 心声：今天真好 坏心思：无",
		"【心声】心情：开心",
		"散步去了。【心声】动作：散步 心情：轻松",
	}
	labels := []string{"穿搭：", "心情：", "动作：", "心声：", "坏心思："}

	for _, input := range inputs {
		ext := Extract(input, nil)
		for _, label := range labels {
			assert.False(t, strings.Contains(ext.Text, label),
				"remaining text %q must not contain %q", ext.Text, label)
		}
	}
}

func TestExtractEmojiAndMindStateTogether(t *testing.T) {
	library := []store.EmojiAsset{{Label: "开心", ImageRef: "X"}}

	ext := Extract("等你下课【表情包】开心【/表情包】\n【心声】心情：期待 动作：看表", library)

	require.NotNil(t, ext.Emoji)
	assert.Equal(t, "X", ext.Emoji.ImageRef)
	require.NotNil(t, ext.MindState)
	assert.Equal(t, "期待", ext.MindState.Mood)
	assert.Equal(t, "看表", ext.MindState.Action)
	assert.Equal(t, "等你下课", ext.Text)
}
