package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"pawchat/internal/store"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrReplyInFlight rejects a second generate-reply request for a
	// conversation that is already awaiting a response. Requests are
	// never queued or cancelled.
	ErrReplyInFlight = errors.New("a reply is already being generated for this conversation")
)

type ChatService struct {
	dbStore       *store.SQLiteStore
	llmService    *LLMService
	defaultPrompt string

	mu       sync.Mutex
	inFlight map[string]bool // conversation id -> reply generation in progress
}

func NewChatService(db *store.SQLiteStore, llm *LLMService, defaultPrompt string) *ChatService {
	return &ChatService{
		dbStore:       db,
		llmService:    llm,
		defaultPrompt: defaultPrompt,
		inFlight:      make(map[string]bool),
	}
}

func (s *ChatService) GetOrCreateUser(discordUserID, username string) (*store.User, error) {
	return s.dbStore.GetOrCreateUser(discordUserID, username)
}

func (s *ChatService) GetUserByDiscordID(discordUserID string) (*store.User, error) {
	return s.dbStore.GetUserByDiscordID(discordUserID)
}

// CreateConversation starts a friend or group chat with a character. A
// non-empty character greeting seeds the first assistant message.
func (s *ChatService) CreateConversation(userID int64, characterID, kind string) (*store.Conversation, []store.Message, error) {
	character, err := s.dbStore.GetCharacterByID(characterID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify character: %w", err)
	}
	if character == nil {
		return nil, nil, fmt.Errorf("character not found")
	}
	if kind == "" {
		kind = "friend"
	}

	conv, err := s.dbStore.CreateConversation(userID, characterID, kind)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	var messages []store.Message
	if character.Greeting != "" {
		greeting := store.Message{
			ConversationID: conv.ID,
			Role:           "assistant",
			Kind:           store.KindText,
			Content:        character.Greeting,
		}
		if err := s.dbStore.CreateMessage(&greeting); err != nil {
			log.Printf("Failed to store greeting for new conversation %s: %v", conv.ID, err)
		} else {
			messages = append(messages, greeting)
		}
	}
	return conv, messages, nil
}

func (s *ChatService) GetConversations(userID int64) ([]store.Conversation, error) {
	return s.dbStore.GetConversationsByUserID(userID)
}

func (s *ChatService) GetConversationDetails(conversationID string, userID int64) (*store.Conversation, []store.Message, error) {
	conv, err := s.dbStore.GetConversationByID(conversationID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return nil, nil, nil // Not found
	}
	messages, err := s.dbStore.GetMessagesByConversationID(conversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get messages for conversation: %w", err)
	}
	return conv, messages, nil
}

// MessageInput is one inbound user message in any of the supported
// shapes. Content carries the text, voice transcript or location name;
// image and emoji payloads ride their own fields.
type MessageInput struct {
	Kind       string  `json:"kind"`
	Content    string  `json:"content"`
	EmojiLabel string  `json:"emoji_label,omitempty"`
	ImageData  string  `json:"image_data,omitempty"`
	Caption    string  `json:"caption,omitempty"`
	ReplyToID  *string `json:"reply_to_id,omitempty"`
}

// SendMessage stores the user message, then generates the assistant
// reply. The user message survives a failed generation; the caller can
// retry with GenerateReply.
func (s *ChatService) SendMessage(ctx context.Context, conversationID string, userID int64, in MessageInput) (*store.Message, *store.Message, error) {
	conv, err := s.dbStore.GetConversationByID(conversationID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify conversation: %w", err)
	}
	if conv == nil {
		return nil, nil, ErrConversationNotFound
	}

	kind := in.Kind
	if kind == "" {
		kind = store.KindText
	}
	userMsg := store.Message{
		ConversationID: conversationID,
		Role:           "user",
		Kind:           kind,
		Content:        in.Content,
		EmojiLabel:     in.EmojiLabel,
		ImageData:      in.ImageData,
		Caption:        in.Caption,
		ReplyToID:      in.ReplyToID,
	}
	if kind == store.KindEmoji {
		if asset := s.resolveEmojiLabel(in.EmojiLabel); asset != nil {
			userMsg.EmojiImage = asset.ImageRef
		}
	}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		return nil, nil, fmt.Errorf("failed to store user message: %w", err)
	}

	assistantMsg, err := s.GenerateReply(ctx, conversationID, userID)
	if err != nil {
		return &userMsg, nil, err
	}
	return &userMsg, assistantMsg, nil
}

// GenerateReply runs the whole pipeline for one assistant turn: assemble
// the prompt, call the endpoint, extract side-channel directives,
// sanitize and persist. On any failure nothing is appended to the
// conversation. The per-conversation guard is released on every path.
func (s *ChatService) GenerateReply(ctx context.Context, conversationID string, userID int64) (*store.Message, error) {
	if !s.tryAcquireReply(conversationID) {
		return nil, ErrReplyInFlight
	}
	defer s.releaseReply(conversationID)

	state, err := s.buildAppState(userID)
	if err != nil {
		return nil, err
	}
	segments := Assemble(conversationID, state)
	if len(segments) == 0 {
		return nil, ErrConversationNotFound
	}

	raw, err := s.llmService.ChatCompletion(ctx, &state.Settings, segments)
	if err != nil {
		return nil, err
	}

	ext := Extract(raw, state.EmojiAssets)
	if ext.Text == "" && ext.Emoji == nil {
		// The endpoint produced only internal chatter.
		return nil, ErrNoAssistantText
	}

	assistantMsg := store.Message{
		ConversationID: conversationID,
		Role:           "assistant",
		Kind:           store.KindText,
		Content:        ext.Text,
	}
	if ext.Emoji != nil {
		assistantMsg.EmojiLabel = ext.Emoji.Label
		assistantMsg.EmojiImage = ext.Emoji.ImageRef
		if ext.Text == "" {
			assistantMsg.Kind = store.KindEmoji // emoji-only bubble
		}
	}
	if err := s.dbStore.CreateMessage(&assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}

	if ext.MindState != nil {
		ext.MindState.ConversationID = conversationID
		if err := s.dbStore.AppendMindState(ext.MindState); err != nil {
			// The reply already stands; losing one snapshot is not fatal.
			log.Printf("Failed to append mind state for conversation %s: %v", conversationID, err)
		}
	}
	return &assistantMsg, nil
}

func (s *ChatService) tryAcquireReply(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[conversationID] {
		return false
	}
	s.inFlight[conversationID] = true
	return true
}

func (s *ChatService) releaseReply(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, conversationID)
}

// buildAppState loads the snapshot the assembler and extractor work from.
func (s *ChatService) buildAppState(userID int64) (*AppState, error) {
	state := &AppState{
		DefaultPrompt: s.defaultPrompt,
		Now:           time.Now(),
	}
	var err error

	if state.Conversations, err = s.dbStore.GetConversationsByUserID(userID); err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	if state.Characters, err = s.dbStore.GetAllCharacters(); err != nil {
		return nil, fmt.Errorf("failed to load characters: %w", err)
	}
	for _, conv := range state.Conversations {
		msgs, err := s.dbStore.GetMessagesByConversationID(conv.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load messages: %w", err)
		}
		state.Messages = append(state.Messages, msgs...)
	}
	profile, err := s.dbStore.GetUserProfile()
	if err != nil {
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}
	state.UserProfile = *profile
	if state.Worldbooks, err = s.dbStore.GetAllWorldbooks(); err != nil {
		return nil, fmt.Errorf("failed to load worldbooks: %w", err)
	}
	if state.EmojiGroups, err = s.dbStore.GetAllEmojiGroups(); err != nil {
		return nil, fmt.Errorf("failed to load emoji groups: %w", err)
	}
	if state.EmojiAssets, err = s.dbStore.GetAllEmojiAssets(); err != nil {
		return nil, fmt.Errorf("failed to load emoji assets: %w", err)
	}
	if state.PromptPresets, err = s.dbStore.GetAllPromptPresets(); err != nil {
		return nil, fmt.Errorf("failed to load prompt presets: %w", err)
	}
	settings, err := s.dbStore.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings == nil {
		return nil, fmt.Errorf("settings are not configured")
	}
	state.Settings = *settings
	return state, nil
}

func (s *ChatService) resolveEmojiLabel(label string) *store.EmojiAsset {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}
	assets, err := s.dbStore.GetAllEmojiAssets()
	if err != nil {
		log.Printf("Failed to resolve emoji label %q: %v", label, err)
		return nil
	}
	for i := range assets {
		if assets[i].Label == label {
			return &assets[i]
		}
	}
	return nil
}

// EditMessage replaces the text of a message the user owns and marks it
// edited.
func (s *ChatService) EditMessage(messageID string, userID int64, content string) (*store.Message, error) {
	msg, err := s.ownedMessage(messageID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.dbStore.UpdateMessageContent(msg.ID, content); err != nil {
		return nil, err
	}
	return s.dbStore.GetMessageByID(msg.ID)
}

// RetractMessage flags a message as retracted; the stored content stays
// but replays only as the retraction notice.
func (s *ChatService) RetractMessage(messageID string, userID int64) (*store.Message, error) {
	msg, err := s.ownedMessage(messageID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.dbStore.RetractMessage(msg.ID); err != nil {
		return nil, err
	}
	return s.dbStore.GetMessageByID(msg.ID)
}

func (s *ChatService) DeleteMessage(messageID string, userID int64) error {
	msg, err := s.ownedMessage(messageID, userID)
	if err != nil {
		return err
	}
	return s.dbStore.DeleteMessage(msg.ID)
}

// ownedMessage loads a message and verifies it belongs to one of the
// user's conversations.
func (s *ChatService) ownedMessage(messageID string, userID int64) (*store.Message, error) {
	msg, err := s.dbStore.GetMessageByID(messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message not found")
	}
	conv, err := s.dbStore.GetConversationByID(msg.ConversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return msg, nil
}

func (s *ChatService) GetMindStates(conversationID string, userID int64) ([]store.MindState, error) {
	conv, err := s.dbStore.GetConversationByID(conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return s.dbStore.GetMindStatesByConversationID(conversationID)
}

// ClearMindStates is the only way mind-state history shrinks.
func (s *ChatService) ClearMindStates(conversationID string, userID int64) error {
	conv, err := s.dbStore.GetConversationByID(conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to verify conversation: %w", err)
	}
	if conv == nil {
		return ErrConversationNotFound
	}
	return s.dbStore.ClearMindStates(conversationID)
}
