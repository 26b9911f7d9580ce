package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// StateSnapshot is the whole application state as one JSON document,
// mirroring the single-blob persistence boundary the clients use. The
// store only guarantees it round-trips a valid JSON object; it does not
// validate entity contents beyond what the schema enforces.
type StateSnapshot struct {
	Characters    []Character    `json:"characters"`
	Conversations []Conversation `json:"conversations"`
	Messages      []Message      `json:"messages"`
	UserProfile   *UserProfile   `json:"user_profile,omitempty"`
	EmojiGroups   []EmojiGroup   `json:"emoji_groups"`
	EmojiAssets   []EmojiAsset   `json:"emoji_assets"`
	Worldbooks    []Worldbook    `json:"worldbooks"`
	MindStates    []MindState    `json:"mind_states"`
	PromptPresets []PromptPreset `json:"prompt_presets"`
	Settings      *Settings      `json:"settings,omitempty"`
}

func (s *SQLiteStore) ExportState(userID int64) (*StateSnapshot, error) {
	snap := &StateSnapshot{}
	var err error

	if snap.Characters, err = s.GetAllCharacters(); err != nil {
		return nil, err
	}
	if snap.Conversations, err = s.GetConversationsByUserID(userID); err != nil {
		return nil, err
	}
	for _, conv := range snap.Conversations {
		msgs, err := s.GetMessagesByConversationID(conv.ID)
		if err != nil {
			return nil, err
		}
		snap.Messages = append(snap.Messages, msgs...)

		states, err := s.GetMindStatesByConversationID(conv.ID)
		if err != nil {
			return nil, err
		}
		snap.MindStates = append(snap.MindStates, states...)
	}
	if snap.UserProfile, err = s.GetUserProfile(); err != nil {
		return nil, err
	}
	if snap.EmojiGroups, err = s.GetAllEmojiGroups(); err != nil {
		return nil, err
	}
	if snap.EmojiAssets, err = s.GetAllEmojiAssets(); err != nil {
		return nil, err
	}
	if snap.Worldbooks, err = s.GetAllWorldbooks(); err != nil {
		return nil, err
	}
	if snap.PromptPresets, err = s.GetAllPromptPresets(); err != nil {
		return nil, err
	}
	if snap.Settings, err = s.GetSettings(); err != nil {
		return nil, err
	}
	return snap, nil
}

// ImportState replaces the user's data with the snapshot contents.
// Entities are inserted with their snapshot ids so cross-references
// (bound worldbooks, reply targets, emoji groups) survive the round trip.
func (s *SQLiteStore) ImportState(userID int64, raw []byte) error {
	var snap StateSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("snapshot is not a valid JSON object: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE user_id = ?)",
		"DELETE FROM mind_states WHERE conversation_id IN (SELECT id FROM conversations WHERE user_id = ?)",
		"DELETE FROM conversations WHERE user_id = ?",
	} {
		if _, err := tx.Exec(q, userID); err != nil {
			return fmt.Errorf("failed to clear previous state: %w", err)
		}
	}
	for _, q := range []string{
		"DELETE FROM characters", "DELETE FROM emoji_assets", "DELETE FROM emoji_groups",
		"DELETE FROM worldbooks", "DELETE FROM prompt_presets",
	} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("failed to clear previous state: %w", err)
		}
	}

	for _, c := range snap.Characters {
		boundJSON, err := json.Marshal(c.BoundWorldbookIDs)
		if err != nil {
			return fmt.Errorf("failed to marshal bound worldbook ids: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO characters (id, name, description, greeting, bound_emoji_group_id, bound_worldbook_ids, user_name_override, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Description, c.Greeting, c.BoundEmojiGroupID, string(boundJSON), c.UserNameOverride, c.CreatedAt); err != nil {
			return fmt.Errorf("failed to import character %s: %w", c.ID, err)
		}
	}
	for _, conv := range snap.Conversations {
		if _, err := tx.Exec(
			"INSERT INTO conversations (id, user_id, character_id, kind, avatar_override, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			conv.ID, userID, conv.CharacterID, conv.Kind, conv.AvatarOverride, conv.CreatedAt); err != nil {
			return fmt.Errorf("failed to import conversation %s: %w", conv.ID, err)
		}
	}
	for _, msg := range snap.Messages {
		if msg.Kind == "" {
			msg.Kind = KindText
		}
		if _, err := tx.Exec(
			`INSERT INTO messages (id, conversation_id, role, kind, content, emoji_label, emoji_image, image_data, caption, reply_to_id, retracted, is_edited, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, msg.ConversationID, msg.Role, msg.Kind, msg.Content, msg.EmojiLabel, msg.EmojiImage,
			msg.ImageData, msg.Caption, msg.ReplyToID, msg.Retracted, msg.IsEdited, msg.CreatedAt); err != nil {
			return fmt.Errorf("failed to import message %s: %w", msg.ID, err)
		}
	}
	for _, g := range snap.EmojiGroups {
		if _, err := tx.Exec("INSERT INTO emoji_groups (id, name, description) VALUES (?, ?, ?)", g.ID, g.Name, g.Description); err != nil {
			return fmt.Errorf("failed to import emoji group %s: %w", g.ID, err)
		}
	}
	for _, a := range snap.EmojiAssets {
		if _, err := tx.Exec("INSERT INTO emoji_assets (id, group_id, label, image_ref) VALUES (?, ?, ?, ?)",
			a.ID, a.GroupID, a.Label, a.ImageRef); err != nil {
			return fmt.Errorf("failed to import emoji asset %s: %w", a.ID, err)
		}
	}
	for _, w := range snap.Worldbooks {
		if _, err := tx.Exec("INSERT INTO worldbooks (id, name, content, is_global) VALUES (?, ?, ?, ?)",
			w.ID, w.Name, w.Content, w.IsGlobal); err != nil {
			return fmt.Errorf("failed to import worldbook %s: %w", w.ID, err)
		}
	}
	for _, m := range snap.MindStates {
		if _, err := tx.Exec(
			`INSERT INTO mind_states (conversation_id, outfit, mood, action, thought, bad_thought, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ConversationID, m.Outfit, m.Mood, m.Action, m.Thought, m.BadThought, m.CreatedAt); err != nil {
			return fmt.Errorf("failed to import mind state: %w", err)
		}
	}
	for _, p := range snap.PromptPresets {
		if _, err := tx.Exec("INSERT INTO prompt_presets (id, name, content) VALUES (?, ?, ?)", p.ID, p.Name, p.Content); err != nil {
			return fmt.Errorf("failed to import prompt preset %s: %w", p.ID, err)
		}
	}
	if snap.UserProfile != nil {
		if _, err := tx.Exec(
			`INSERT INTO user_profile (id, name, personality, avatar_ref) VALUES (1, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET name = excluded.name, personality = excluded.personality, avatar_ref = excluded.avatar_ref`,
			snap.UserProfile.Name, snap.UserProfile.Personality, snap.UserProfile.AvatarRef); err != nil {
			return fmt.Errorf("failed to import user profile: %w", err)
		}
	}
	if snap.Settings != nil {
		if snap.Settings.APIKey == "" {
			// Exported snapshots never carry the key; a blank key on
			// import keeps the stored one, same as the settings API.
			var stored string
			err := tx.QueryRow("SELECT api_key FROM settings WHERE id = 1").Scan(&stored)
			if err != nil && err != sql.ErrNoRows {
				return fmt.Errorf("failed to read stored api key: %w", err)
			}
			snap.Settings.APIKey = stored
		}
		if _, err := tx.Exec(
			`INSERT INTO settings (id, endpoint, api_key, model, context_line_limit, time_awareness, selected_prompt_id)
             VALUES (1, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET endpoint = excluded.endpoint, api_key = excluded.api_key, model = excluded.model,
                 context_line_limit = excluded.context_line_limit, time_awareness = excluded.time_awareness,
                 selected_prompt_id = excluded.selected_prompt_id`,
			snap.Settings.Endpoint, snap.Settings.APIKey, snap.Settings.Model, snap.Settings.ContextLineLimit,
			snap.Settings.TimeAwareness, snap.Settings.SelectedPromptID); err != nil {
			return fmt.Errorf("failed to import settings: %w", err)
		}
	}
	return tx.Commit()
}
