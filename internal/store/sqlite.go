package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        discord_user_id TEXT UNIQUE NOT NULL,
        username TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS characters (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        greeting TEXT NOT NULL DEFAULT '',
        bound_emoji_group_id TEXT,
        bound_worldbook_ids TEXT NOT NULL DEFAULT '[]', -- JSON array of worldbook UUIDs
        user_name_override TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS conversations (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        character_id TEXT NOT NULL,
        kind TEXT NOT NULL DEFAULT 'friend' CHECK (kind IN ('friend', 'group')),
        avatar_override TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id),
        FOREIGN KEY (character_id) REFERENCES characters (id)
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        conversation_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
        kind TEXT NOT NULL DEFAULT 'text',
        content TEXT NOT NULL DEFAULT '',
        emoji_label TEXT NOT NULL DEFAULT '',
        emoji_image TEXT NOT NULL DEFAULT '',
        image_data TEXT NOT NULL DEFAULT '',
        caption TEXT NOT NULL DEFAULT '',
        reply_to_id TEXT,
        retracted BOOLEAN DEFAULT FALSE,
        is_edited BOOLEAN DEFAULT FALSE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (conversation_id) REFERENCES conversations (id)
    );

    CREATE TABLE IF NOT EXISTS user_profile (
        id INTEGER PRIMARY KEY CHECK (id = 1), -- singleton
        name TEXT NOT NULL DEFAULT '',
        personality TEXT NOT NULL DEFAULT '',
        avatar_ref TEXT NOT NULL DEFAULT ''
    );

    CREATE TABLE IF NOT EXISTS emoji_groups (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT ''
    );

    CREATE TABLE IF NOT EXISTS emoji_assets (
        id TEXT PRIMARY KEY, -- UUID
        group_id TEXT NOT NULL,
        label TEXT NOT NULL,
        image_ref TEXT NOT NULL, -- rowid gives library insertion order
        FOREIGN KEY (group_id) REFERENCES emoji_groups (id)
    );

    CREATE TABLE IF NOT EXISTS worldbooks (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT NOT NULL,
        content TEXT NOT NULL DEFAULT '',
        is_global BOOLEAN DEFAULT FALSE
    );

    CREATE TABLE IF NOT EXISTS mind_states (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        conversation_id TEXT NOT NULL,
        outfit TEXT NOT NULL DEFAULT '',
        mood TEXT NOT NULL DEFAULT '',
        action TEXT NOT NULL DEFAULT '',
        thought TEXT NOT NULL DEFAULT '',
        bad_thought TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (conversation_id) REFERENCES conversations (id)
    );

    CREATE TABLE IF NOT EXISTS prompt_presets (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT NOT NULL,
        content TEXT NOT NULL DEFAULT ''
    );

    CREATE TABLE IF NOT EXISTS settings (
        id INTEGER PRIMARY KEY CHECK (id = 1), -- singleton
        endpoint TEXT NOT NULL DEFAULT '',
        api_key TEXT NOT NULL DEFAULT '',
        model TEXT NOT NULL DEFAULT '',
        context_line_limit INTEGER NOT NULL DEFAULT 200,
        time_awareness BOOLEAN DEFAULT FALSE,
        selected_prompt_id TEXT NOT NULL DEFAULT ''
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) GetOrCreateUser(discordUserID, username string) (*User, error) {
	user, err := s.GetUserByDiscordID(discordUserID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	res, err := s.db.Exec("INSERT INTO users (discord_user_id, username) VALUES (?, ?)", discordUserID, username)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.getUserByID(id)
}

func (s *SQLiteStore) GetUserByDiscordID(discordUserID string) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, discord_user_id, username, created_at FROM users WHERE discord_user_id = ?", discordUserID).
		Scan(&user.ID, &user.DiscordUserID, &user.Username, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) getUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, discord_user_id, username, created_at FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.DiscordUserID, &user.Username, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Character methods

func (s *SQLiteStore) CreateCharacter(c *Character) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now()
	boundJSON, err := json.Marshal(c.BoundWorldbookIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal bound worldbook ids: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO characters (id, name, description, greeting, bound_emoji_group_id, bound_worldbook_ids, user_name_override, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.Greeting, c.BoundEmojiGroupID, string(boundJSON), c.UserNameOverride, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert character: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateCharacter(c *Character) error {
	boundJSON, err := json.Marshal(c.BoundWorldbookIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal bound worldbook ids: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE characters SET name = ?, description = ?, greeting = ?, bound_emoji_group_id = ?, bound_worldbook_ids = ?, user_name_override = ?
         WHERE id = ?`,
		c.Name, c.Description, c.Greeting, c.BoundEmojiGroupID, string(boundJSON), c.UserNameOverride, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update character: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("character not found")
	}
	return nil
}

func (s *SQLiteStore) GetCharacterByID(id string) (*Character, error) {
	var c Character
	var boundJSON string
	err := s.db.QueryRow(
		`SELECT id, name, description, greeting, bound_emoji_group_id, bound_worldbook_ids, user_name_override, created_at
         FROM characters WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.Greeting, &c.BoundEmojiGroupID, &boundJSON, &c.UserNameOverride, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query character: %w", err)
	}
	if err := json.Unmarshal([]byte(boundJSON), &c.BoundWorldbookIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bound worldbook ids for character %s: %w", c.ID, err)
	}
	return &c, nil
}

func (s *SQLiteStore) GetAllCharacters() ([]Character, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, greeting, bound_emoji_group_id, bound_worldbook_ids, user_name_override, created_at
         FROM characters ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query characters: %w", err)
	}
	defer rows.Close()

	var characters []Character
	for rows.Next() {
		var c Character
		var boundJSON string
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Greeting, &c.BoundEmojiGroupID, &boundJSON, &c.UserNameOverride, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan character: %w", err)
		}
		if err := json.Unmarshal([]byte(boundJSON), &c.BoundWorldbookIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bound worldbook ids for character %s: %w", c.ID, err)
		}
		characters = append(characters, c)
	}
	return characters, rows.Err()
}

// DeleteCharacter removes the character with its conversations, their
// messages and mind-state history.
func (s *SQLiteStore) DeleteCharacter(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE character_id = ?)",
		"DELETE FROM mind_states WHERE conversation_id IN (SELECT id FROM conversations WHERE character_id = ?)",
		"DELETE FROM conversations WHERE character_id = ?",
		"DELETE FROM characters WHERE id = ?",
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("failed to delete character data: %w", err)
		}
	}
	return tx.Commit()
}

// Conversation methods

func (s *SQLiteStore) CreateConversation(userID int64, characterID, kind string) (*Conversation, error) {
	conv := Conversation{
		ID:          uuid.NewString(),
		UserID:      userID,
		CharacterID: characterID,
		Kind:        kind,
		CreatedAt:   time.Now(),
	}
	_, err := s.db.Exec(
		"INSERT INTO conversations (id, user_id, character_id, kind, created_at) VALUES (?, ?, ?, ?, ?)",
		conv.ID, conv.UserID, conv.CharacterID, conv.Kind, conv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	return &conv, nil
}

func (s *SQLiteStore) GetConversationByID(id string, userID int64) (*Conversation, error) {
	var conv Conversation
	err := s.db.QueryRow(
		"SELECT id, user_id, character_id, kind, avatar_override, created_at FROM conversations WHERE id = ? AND user_id = ?",
		id, userID).
		Scan(&conv.ID, &conv.UserID, &conv.CharacterID, &conv.Kind, &conv.AvatarOverride, &conv.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	return &conv, nil
}

func (s *SQLiteStore) GetConversationsByUserID(userID int64) ([]Conversation, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, character_id, kind, avatar_override, created_at FROM conversations WHERE user_id = ? ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.CharacterID, &conv.Kind, &conv.AvatarOverride, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

func (s *SQLiteStore) UpdateConversationAvatarOverride(id string, userID int64, avatar *string) error {
	res, err := s.db.Exec("UPDATE conversations SET avatar_override = ? WHERE id = ? AND user_id = ?", avatar, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update avatar override: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation not found")
	}
	return nil
}

// Message methods

func (s *SQLiteStore) CreateMessage(msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Kind == "" {
		msg.Kind = KindText
	}
	msg.CreatedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO messages (id, conversation_id, role, kind, content, emoji_label, emoji_image, image_data, caption, reply_to_id, retracted, is_edited, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Kind, msg.Content, msg.EmojiLabel, msg.EmojiImage,
		msg.ImageData, msg.Caption, msg.ReplyToID, msg.Retracted, msg.IsEdited, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMessageByID(id string) (*Message, error) {
	var msg Message
	err := s.db.QueryRow(
		`SELECT id, conversation_id, role, kind, content, emoji_label, emoji_image, image_data, caption, reply_to_id, retracted, is_edited, created_at
         FROM messages WHERE id = ?`, id).
		Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Kind, &msg.Content, &msg.EmojiLabel, &msg.EmojiImage,
			&msg.ImageData, &msg.Caption, &msg.ReplyToID, &msg.Retracted, &msg.IsEdited, &msg.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	return &msg, nil
}

func (s *SQLiteStore) GetMessagesByConversationID(conversationID string) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, conversation_id, role, kind, content, emoji_label, emoji_image, image_data, caption, reply_to_id, retracted, is_edited, created_at
         FROM messages WHERE conversation_id = ? ORDER BY created_at, id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Kind, &msg.Content, &msg.EmojiLabel, &msg.EmojiImage,
			&msg.ImageData, &msg.Caption, &msg.ReplyToID, &msg.Retracted, &msg.IsEdited, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) UpdateMessageContent(id, content string) error {
	res, err := s.db.Exec("UPDATE messages SET content = ?, is_edited = TRUE WHERE id = ?", content, id)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("message not found")
	}
	return nil
}

func (s *SQLiteStore) RetractMessage(id string) error {
	res, err := s.db.Exec("UPDATE messages SET retracted = TRUE WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to retract message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("message not found")
	}
	return nil
}

func (s *SQLiteStore) DeleteMessage(id string) error {
	res, err := s.db.Exec("DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("message not found")
	}
	return nil
}

// User profile (singleton)

func (s *SQLiteStore) GetUserProfile() (*UserProfile, error) {
	var p UserProfile
	err := s.db.QueryRow("SELECT name, personality, avatar_ref FROM user_profile WHERE id = 1").
		Scan(&p.Name, &p.Personality, &p.AvatarRef)
	if err != nil {
		if err == sql.ErrNoRows {
			return &UserProfile{}, nil
		}
		return nil, fmt.Errorf("failed to query user profile: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStore) SaveUserProfile(p *UserProfile) error {
	_, err := s.db.Exec(
		`INSERT INTO user_profile (id, name, personality, avatar_ref) VALUES (1, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET name = excluded.name, personality = excluded.personality, avatar_ref = excluded.avatar_ref`,
		p.Name, p.Personality, p.AvatarRef)
	if err != nil {
		return fmt.Errorf("failed to save user profile: %w", err)
	}
	return nil
}

// Emoji library

func (s *SQLiteStore) CreateEmojiGroup(g *EmojiGroup) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	_, err := s.db.Exec("INSERT INTO emoji_groups (id, name, description) VALUES (?, ?, ?)", g.ID, g.Name, g.Description)
	if err != nil {
		return fmt.Errorf("failed to insert emoji group: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetEmojiGroupByID(id string) (*EmojiGroup, error) {
	var g EmojiGroup
	err := s.db.QueryRow("SELECT id, name, description FROM emoji_groups WHERE id = ?", id).
		Scan(&g.ID, &g.Name, &g.Description)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query emoji group: %w", err)
	}
	return &g, nil
}

func (s *SQLiteStore) GetAllEmojiGroups() ([]EmojiGroup, error) {
	rows, err := s.db.Query("SELECT id, name, description FROM emoji_groups ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query emoji groups: %w", err)
	}
	defer rows.Close()

	var groups []EmojiGroup
	for rows.Next() {
		var g EmojiGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description); err != nil {
			return nil, fmt.Errorf("failed to scan emoji group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *SQLiteStore) CreateEmojiAsset(a *EmojiAsset) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.Exec("INSERT INTO emoji_assets (id, group_id, label, image_ref) VALUES (?, ?, ?, ?)",
		a.ID, a.GroupID, a.Label, a.ImageRef)
	if err != nil {
		return fmt.Errorf("failed to insert emoji asset: %w", err)
	}
	return nil
}

// GetEmojiAssetsByGroupID returns assets in library (insertion) order.
func (s *SQLiteStore) GetEmojiAssetsByGroupID(groupID string) ([]EmojiAsset, error) {
	rows, err := s.db.Query("SELECT id, group_id, label, image_ref FROM emoji_assets WHERE group_id = ? ORDER BY rowid", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query emoji assets: %w", err)
	}
	defer rows.Close()

	var assets []EmojiAsset
	for rows.Next() {
		var a EmojiAsset
		if err := rows.Scan(&a.ID, &a.GroupID, &a.Label, &a.ImageRef); err != nil {
			return nil, fmt.Errorf("failed to scan emoji asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *SQLiteStore) GetAllEmojiAssets() ([]EmojiAsset, error) {
	rows, err := s.db.Query("SELECT id, group_id, label, image_ref FROM emoji_assets ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to query emoji assets: %w", err)
	}
	defer rows.Close()

	var assets []EmojiAsset
	for rows.Next() {
		var a EmojiAsset
		if err := rows.Scan(&a.ID, &a.GroupID, &a.Label, &a.ImageRef); err != nil {
			return nil, fmt.Errorf("failed to scan emoji asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *SQLiteStore) DeleteEmojiAsset(id string) error {
	res, err := s.db.Exec("DELETE FROM emoji_assets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete emoji asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("emoji asset not found")
	}
	return nil
}

func (s *SQLiteStore) DeleteEmojiGroup(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM emoji_assets WHERE group_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete emoji assets: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM emoji_groups WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete emoji group: %w", err)
	}
	return tx.Commit()
}

// Worldbooks

func (s *SQLiteStore) CreateWorldbook(w *Worldbook) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	_, err := s.db.Exec("INSERT INTO worldbooks (id, name, content, is_global) VALUES (?, ?, ?, ?)",
		w.ID, w.Name, w.Content, w.IsGlobal)
	if err != nil {
		return fmt.Errorf("failed to insert worldbook: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateWorldbook(w *Worldbook) error {
	res, err := s.db.Exec("UPDATE worldbooks SET name = ?, content = ?, is_global = ? WHERE id = ?",
		w.Name, w.Content, w.IsGlobal, w.ID)
	if err != nil {
		return fmt.Errorf("failed to update worldbook: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("worldbook not found")
	}
	return nil
}

func (s *SQLiteStore) GetAllWorldbooks() ([]Worldbook, error) {
	rows, err := s.db.Query("SELECT id, name, content, is_global FROM worldbooks ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query worldbooks: %w", err)
	}
	defer rows.Close()

	var worldbooks []Worldbook
	for rows.Next() {
		var w Worldbook
		if err := rows.Scan(&w.ID, &w.Name, &w.Content, &w.IsGlobal); err != nil {
			return nil, fmt.Errorf("failed to scan worldbook: %w", err)
		}
		worldbooks = append(worldbooks, w)
	}
	return worldbooks, rows.Err()
}

func (s *SQLiteStore) DeleteWorldbook(id string) error {
	res, err := s.db.Exec("DELETE FROM worldbooks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete worldbook: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("worldbook not found")
	}
	return nil
}

// Mind-state history (append-only per conversation)

func (s *SQLiteStore) AppendMindState(m *MindState) error {
	m.CreatedAt = time.Now()
	res, err := s.db.Exec(
		`INSERT INTO mind_states (conversation_id, outfit, mood, action, thought, bad_thought, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ConversationID, m.Outfit, m.Mood, m.Action, m.Thought, m.BadThought, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert mind state: %w", err)
	}
	m.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) GetMindStatesByConversationID(conversationID string) ([]MindState, error) {
	rows, err := s.db.Query(
		`SELECT id, conversation_id, outfit, mood, action, thought, bad_thought, created_at
         FROM mind_states WHERE conversation_id = ? ORDER BY id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mind states: %w", err)
	}
	defer rows.Close()

	var states []MindState
	for rows.Next() {
		var m MindState
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Outfit, &m.Mood, &m.Action, &m.Thought, &m.BadThought, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mind state: %w", err)
		}
		states = append(states, m)
	}
	return states, rows.Err()
}

func (s *SQLiteStore) ClearMindStates(conversationID string) error {
	_, err := s.db.Exec("DELETE FROM mind_states WHERE conversation_id = ?", conversationID)
	if err != nil {
		return fmt.Errorf("failed to clear mind states: %w", err)
	}
	return nil
}

// Prompt presets

func (s *SQLiteStore) CreatePromptPreset(p *PromptPreset) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.Exec("INSERT INTO prompt_presets (id, name, content) VALUES (?, ?, ?)", p.ID, p.Name, p.Content)
	if err != nil {
		return fmt.Errorf("failed to insert prompt preset: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAllPromptPresets() ([]PromptPreset, error) {
	rows, err := s.db.Query("SELECT id, name, content FROM prompt_presets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query prompt presets: %w", err)
	}
	defer rows.Close()

	var presets []PromptPreset
	for rows.Next() {
		var p PromptPreset
		if err := rows.Scan(&p.ID, &p.Name, &p.Content); err != nil {
			return nil, fmt.Errorf("failed to scan prompt preset: %w", err)
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

func (s *SQLiteStore) DeletePromptPreset(id string) error {
	res, err := s.db.Exec("DELETE FROM prompt_presets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete prompt preset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("prompt preset not found")
	}
	return nil
}

// Settings (singleton)

func (s *SQLiteStore) GetSettings() (*Settings, error) {
	var cfg Settings
	err := s.db.QueryRow(
		"SELECT endpoint, api_key, model, context_line_limit, time_awareness, selected_prompt_id FROM settings WHERE id = 1").
		Scan(&cfg.Endpoint, &cfg.APIKey, &cfg.Model, &cfg.ContextLineLimit, &cfg.TimeAwareness, &cfg.SelectedPromptID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not yet seeded
		}
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	return &cfg, nil
}

func (s *SQLiteStore) SaveSettings(cfg *Settings) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (id, endpoint, api_key, model, context_line_limit, time_awareness, selected_prompt_id)
         VALUES (1, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET endpoint = excluded.endpoint, api_key = excluded.api_key, model = excluded.model,
             context_line_limit = excluded.context_line_limit, time_awareness = excluded.time_awareness,
             selected_prompt_id = excluded.selected_prompt_id`,
		cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.ContextLineLimit, cfg.TimeAwareness, cfg.SelectedPromptID)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
