package store

import "time"

type User struct {
	ID            int64     `json:"id"`
	DiscordUserID string    `json:"discord_user_id"`
	Username      string    `json:"username"`
	CreatedAt     time.Time `json:"created_at"`
}

// Conversation is a friend or group chat. AvatarOverride is the
// per-conversation override of the global user avatar; the rest of the
// user profile is shared across conversations.
type Conversation struct {
	ID             string    `json:"id"` // UUID
	UserID         int64     `json:"user_id"`
	CharacterID    string    `json:"character_id"`
	Kind           string    `json:"kind"` // "friend" or "group"
	AvatarOverride *string   `json:"avatar_override,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Message kinds. A kind other than "text" changes how the message is
// replayed into the prompt, not how it is stored.
const (
	KindText     = "text"
	KindEmoji    = "emoji"
	KindImage    = "image"
	KindVoice    = "voice"
	KindLocation = "location"
)

type Message struct {
	ID             string    `json:"id"` // UUID
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // "user", "assistant" or "system"
	Kind           string    `json:"kind"`
	Content        string    `json:"content"`
	EmojiLabel     string    `json:"emoji_label,omitempty"`
	EmojiImage     string    `json:"emoji_image,omitempty"`
	ImageData      string    `json:"image_data,omitempty"`
	Caption        string    `json:"caption,omitempty"`
	ReplyToID      *string   `json:"reply_to_id,omitempty"`
	Retracted      bool      `json:"retracted"`
	IsEdited       bool      `json:"is_edited"`
	CreatedAt      time.Time `json:"created_at"`
}

type Character struct {
	ID                string    `json:"id"` // UUID
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Greeting          string    `json:"greeting"`
	BoundEmojiGroupID *string   `json:"bound_emoji_group_id,omitempty"`
	BoundWorldbookIDs []string  `json:"bound_worldbook_ids"`
	UserNameOverride  string    `json:"user_name_override,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// UserProfile is a singleton shared by every conversation.
type UserProfile struct {
	Name        string `json:"name"`
	Personality string `json:"personality,omitempty"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
}

type EmojiGroup struct {
	ID          string `json:"id"` // UUID
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// EmojiAsset.Label is the token the model must echo verbatim to reference
// this asset. Labels are not enforced unique; lookups take the first match
// in library order.
type EmojiAsset struct {
	ID       string `json:"id"` // UUID
	GroupID  string `json:"group_id"`
	Label    string `json:"label"`
	ImageRef string `json:"image_ref"`
}

type Worldbook struct {
	ID       string `json:"id"` // UUID
	Name     string `json:"name"`
	Content  string `json:"content"`
	IsGlobal bool   `json:"is_global"`
}

// MindState is one snapshot extracted from an assistant reply. Absent
// fields are empty strings and omitted from JSON; they are never
// distinguished from "empty value".
type MindState struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Outfit         string    `json:"outfit,omitempty"`
	Mood           string    `json:"mood,omitempty"`
	Action         string    `json:"action,omitempty"`
	Thought        string    `json:"thought,omitempty"`
	BadThought     string    `json:"bad_thought,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (m MindState) IsZero() bool {
	return m.Outfit == "" && m.Mood == "" && m.Action == "" && m.Thought == "" && m.BadThought == ""
}

type PromptPreset struct {
	ID      string `json:"id"` // UUID
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Settings is a singleton row.
type Settings struct {
	Endpoint         string `json:"endpoint"`
	APIKey           string `json:"-"` // never exposed in responses
	Model            string `json:"model"`
	ContextLineLimit int    `json:"context_line_limit"`
	TimeAwareness    bool   `json:"time_awareness"`
	SelectedPromptID string `json:"selected_prompt_id,omitempty"`
}
