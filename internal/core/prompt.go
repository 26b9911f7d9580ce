package core

import (
	"fmt"
	"strings"
	"time"

	"pawchat/internal/store"
)

// PromptSegment is one role-tagged entry of the assembled completion
// request, wire-compatible with the chat-completions messages array.
type PromptSegment struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AppState is the application-state snapshot the assembler works from.
// It is plain data injected by the caller; the assembler holds no global
// state and touches no storage.
type AppState struct {
	Conversations []store.Conversation
	Characters    []store.Character
	Messages      []store.Message // all conversations, history order
	UserProfile   store.UserProfile
	Worldbooks    []store.Worldbook
	EmojiGroups   []store.EmojiGroup
	EmojiAssets   []store.EmojiAsset // whole library, insertion order
	PromptPresets []store.PromptPreset
	Settings      store.Settings
	DefaultPrompt string
	Now           time.Time
}

const defaultContextLineLimit = 200

// Every reply must end with a mind-state block. Appended unconditionally,
// whether or not anything currently reads the data.
const mindStateInstruction = `每次回复的最后，你必须换行并附上一段以【心声】开头的内心状态，格式为：
【心声】穿搭：当前的穿搭 心情：当前的心情 动作：当前的动作 心声：此刻真实的内心想法 坏心思：藏在心里不会说出口的念头
示例回复：
今天也想你啦，刚刚还在翻我们之前的聊天记录。
【心声】穿搭：米色针织衫和牛仔裤 心情：有点想念 动作：抱着靠枕窝在沙发上 心声：要是现在能见面就好了 坏心思：偷偷存了一张对方的照片
五个字段每次都必须完整出现，并且要根据当前对话重新生成，不得照搬上一条回复的内容。`

const inboundShapesInstruction = `用户发来的消息可能有以下几种形式：
1. [用户发送了表情包: 表情名称]——用户发送了一个表情包，请把它当作情绪信号来回应，而不是一个需要回答的问题。
2. [用户发送了一张图片，图片内容：图片数据]——用户发送了图片，其后可能附有"用户对图片的描述"，请描述你看到的内容并作出反应。
3. 普通文字消息——正常回复即可。`

// Assemble builds the ordered prompt for one conversation from the given
// state snapshot. Each construction step appends zero or one segment,
// except message replay which appends one segment per retained message.
func Assemble(conversationID string, state *AppState) []PromptSegment {
	conv := state.conversation(conversationID)
	if conv == nil {
		return nil
	}
	character := state.character(conv.CharacterID)
	if character == nil {
		return nil
	}

	var segments []PromptSegment
	appendSystem := func(content string) {
		if content != "" {
			segments = append(segments, PromptSegment{Role: "system", Content: content})
		}
	}

	appendSystem(personaSegment(character, &state.UserProfile))
	appendSystem(mindStateInstruction)
	appendSystem(inboundShapesInstruction)

	group, assets := state.boundEmojiGroup(character)
	appendSystem(emojiUsageSegment(assets))
	appendSystem(selectedPromptSegment(state))
	appendSystem(worldbookSegment(character, state.Worldbooks))
	if group != nil && group.Description != "" {
		appendSystem(fmt.Sprintf("关于表情包组「%s」的说明：%s", group.Name, group.Description))
	}
	if state.Settings.TimeAwareness {
		appendSystem("当前时间：" + state.Now.Format("2006年01月02日 15:04:05"))
	}

	history := state.conversationMessages(conversationID)
	limit := state.Settings.ContextLineLimit
	if limit <= 0 {
		limit = defaultContextLineLimit
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	for _, msg := range history {
		segments = append(segments, replaySegment(msg, state.Messages))
	}
	return segments
}

func (s *AppState) conversation(id string) *store.Conversation {
	for i := range s.Conversations {
		if s.Conversations[i].ID == id {
			return &s.Conversations[i]
		}
	}
	return nil
}

func (s *AppState) character(id string) *store.Character {
	for i := range s.Characters {
		if s.Characters[i].ID == id {
			return &s.Characters[i]
		}
	}
	return nil
}

func (s *AppState) conversationMessages(conversationID string) []store.Message {
	var msgs []store.Message
	for _, m := range s.Messages {
		if m.ConversationID == conversationID {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

func (s *AppState) boundEmojiGroup(c *store.Character) (*store.EmojiGroup, []store.EmojiAsset) {
	if c.BoundEmojiGroupID == nil || *c.BoundEmojiGroupID == "" {
		return nil, nil
	}
	var group *store.EmojiGroup
	for i := range s.EmojiGroups {
		if s.EmojiGroups[i].ID == *c.BoundEmojiGroupID {
			group = &s.EmojiGroups[i]
			break
		}
	}
	if group == nil {
		return nil, nil
	}
	var assets []store.EmojiAsset
	for _, a := range s.EmojiAssets {
		if a.GroupID == group.ID {
			assets = append(assets, a)
		}
	}
	return group, assets
}

// personaSegment concatenates character identity and the user profile as
// this conversation knows it, omitting every empty sub-part.
func personaSegment(c *store.Character, profile *store.UserProfile) string {
	var parts []string
	if c.Name != "" {
		parts = append(parts, "你的名字是："+c.Name+"。")
	}
	if g := InferGender(c.Description); g != GenderUnspecified {
		parts = append(parts, "你的性别是："+g.String()+"。")
	}
	if c.Description != "" {
		parts = append(parts, "你的人设："+c.Description)
	}
	userName := c.UserNameOverride
	if userName == "" {
		userName = profile.Name
	}
	if userName != "" {
		parts = append(parts, "和你聊天的用户名字是："+userName+"。")
	}
	if g := InferGender(profile.Personality); g != GenderUnspecified {
		parts = append(parts, "用户的性别是："+g.String()+"。")
	}
	if profile.Personality != "" {
		parts = append(parts, "用户的人设："+profile.Personality)
	}
	return strings.Join(parts, "\n")
}

// emojiUsageSegment lists every label of the bound group and the marker
// grammar. Emitted only for a bound, non-empty group.
func emojiUsageSegment(assets []store.EmojiAsset) string {
	if len(assets) == 0 {
		return ""
	}
	labels := make([]string, len(assets))
	for i, a := range assets {
		labels[i] = a.Label
	}
	return fmt.Sprintf("你可以使用以下表情包：%s。\n需要时用【表情包】表情名称【/表情包】的格式发送，所选表情要贴合当前回复的情绪。"+
		"不要每条回复都带表情包，每条回复最多使用一个。", strings.Join(labels, "、"))
}

func selectedPromptSegment(state *AppState) string {
	if id := state.Settings.SelectedPromptID; id != "" {
		for _, p := range state.PromptPresets {
			if p.ID == id {
				return p.Content
			}
		}
	}
	return state.DefaultPrompt
}

// worldbookSegment joins globally-flagged worldbooks with the ones bound
// to this character, as two sub-groups separated by a blank line. Omitted
// when both are empty.
func worldbookSegment(c *store.Character, worldbooks []store.Worldbook) string {
	bound := make(map[string]bool, len(c.BoundWorldbookIDs))
	for _, id := range c.BoundWorldbookIDs {
		bound[id] = true
	}

	var global, character []string
	for _, wb := range worldbooks {
		block := fmt.Sprintf("【%s】\n%s", wb.Name, wb.Content)
		if wb.IsGlobal {
			global = append(global, block)
		} else if bound[wb.ID] {
			character = append(character, block)
		}
	}

	var groups []string
	if len(global) > 0 {
		groups = append(groups, "以下是世界背景设定：\n"+strings.Join(global, "\n"))
	}
	if len(character) > 0 {
		groups = append(groups, "以下是与你相关的背景设定：\n"+strings.Join(character, "\n"))
	}
	return strings.Join(groups, "\n\n")
}

// replaySegment renders one stored message back into the prompt. Stored
// system messages replay verbatim; retractions replay as their notice
// text, with assistant retractions informed out-of-band under the system
// role; emoji, image, voice and location messages replay as bracketed
// placeholders of their payload.
func replaySegment(msg store.Message, allMessages []store.Message) PromptSegment {
	if msg.Role == "system" {
		return PromptSegment{Role: "system", Content: msg.Content}
	}

	if msg.Retracted {
		if msg.Role == "assistant" {
			return PromptSegment{Role: "system", Content: "[对方撤回了一条消息]"}
		}
		return PromptSegment{Role: "user", Content: "[用户撤回了一条消息]"}
	}

	var content string
	switch msg.Kind {
	case store.KindEmoji:
		if msg.Role == "assistant" {
			content = fmt.Sprintf("[你发送了表情包: %s]", msg.EmojiLabel)
		} else {
			content = fmt.Sprintf("[用户发送了表情包: %s]", msg.EmojiLabel)
		}
	case store.KindImage:
		if msg.ImageData != "" {
			content = fmt.Sprintf("[用户发送了一张图片，图片内容：%s]", msg.ImageData)
		} else {
			content = "[用户发送了一张图片]"
		}
		if msg.Caption != "" {
			content += "\n用户对图片的描述：" + msg.Caption
		}
	case store.KindVoice:
		content = fmt.Sprintf("[用户发送了一条语音，内容：%s]", msg.Content)
	case store.KindLocation:
		content = fmt.Sprintf("[用户发送了位置：%s]", msg.Content)
	default:
		content = msg.Content
	}

	if msg.ReplyToID != nil {
		if quoted := findMessage(allMessages, *msg.ReplyToID); quoted != nil {
			content = replyQuotePrefix(quoted) + "\n" + content
		}
	}

	role := "user"
	if msg.Role == "assistant" {
		role = "assistant"
	}
	return PromptSegment{Role: role, Content: content}
}

func findMessage(messages []store.Message, id string) *store.Message {
	for i := range messages {
		if messages[i].ID == id {
			return &messages[i]
		}
	}
	return nil
}

// replyQuotePrefix quotes the first 30 characters of the replied-to
// message; the ellipsis appears only when the quote was truncated.
func replyQuotePrefix(quoted *store.Message) string {
	text := quoted.Content
	if quoted.Kind == store.KindEmoji {
		text = quoted.EmojiLabel
	}
	runes := []rune(text)
	if len(runes) > 30 {
		return fmt.Sprintf("[回复: \"%s...\"]", string(runes[:30]))
	}
	return fmt.Sprintf("[回复: \"%s\"]", text)
}
