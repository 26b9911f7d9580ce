package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"pawchat/internal/auth"
	"pawchat/internal/core"
	"pawchat/internal/store"
)

type APIHandler struct {
	chatService *core.ChatService
	llmService  *core.LLMService
	dbStore     *store.SQLiteStore
}

func NewAPIHandler(cs *core.ChatService, llm *core.LLMService, db *store.SQLiteStore) *APIHandler {
	return &APIHandler{chatService: cs, llmService: llm, dbStore: db}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		discordUserID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.chatService.GetUserByDiscordID(discordUserID)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %s: %v", discordUserID, err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type DiscordCallbackRequest struct {
	Code string `json:"code"`
}

// DiscordCallbackHandler trades the OAuth code for the user identity and
// issues a session token.
func (h *APIHandler) DiscordCallbackHandler(w http.ResponseWriter, r *http.Request) {
	var req DiscordCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		http.Error(w, "Authorization code is required", http.StatusBadRequest)
		return
	}

	tokenResp, err := auth.ExchangeDiscordCode(r.Context(), req.Code)
	if err != nil {
		log.Printf("Error exchanging discord code: %v", err)
		http.Error(w, "Failed to exchange authorization code", http.StatusBadGateway)
		return
	}

	user, err := h.chatService.GetOrCreateUser(tokenResp.User.ID, tokenResp.User.Username)
	if err != nil {
		log.Printf("Error creating user %s: %v", tokenResp.User.ID, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	token, err := auth.GenerateJWT(user.DiscordUserID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", user.DiscordUserID, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{"token": token, "user": user})
}

type CreateConversationRequest struct {
	CharacterID string `json:"character_id"`
	Kind        string `json:"kind,omitempty"`
}

type ConversationResponse struct {
	*store.Conversation
	Messages []store.Message `json:"messages,omitempty"`
}

func (h *APIHandler) CreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.CharacterID == "" {
		http.Error(w, "character_id is required", http.StatusBadRequest)
		return
	}

	conv, messages, err := h.chatService.CreateConversation(userID, req.CharacterID, req.Kind)
	if err != nil {
		if err.Error() == "character not found" {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("Error creating conversation for user %d: %v", userID, err)
		http.Error(w, "Failed to create conversation", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ConversationResponse{Conversation: conv, Messages: messages})
}

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	conversations, err := h.chatService.GetConversations(userID)
	if err != nil {
		log.Printf("Error listing conversations for user %d: %v", userID, err)
		http.Error(w, "Failed to list conversations", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(conversations)
}

func (h *APIHandler) GetConversationDetailsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	conversationID := chi.URLParam(r, "conversationID")

	conv, messages, err := h.chatService.GetConversationDetails(conversationID, userID)
	if err != nil {
		log.Printf("Error getting conversation %s for user %d: %v", conversationID, userID, err)
		http.Error(w, "Failed to get conversation", http.StatusInternalServerError)
		return
	}
	if conv == nil {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(ConversationResponse{Conversation: conv, Messages: messages})
}

type UpdateConversationRequest struct {
	AvatarOverride *string `json:"avatar_override"`
}

// UpdateConversationHandler sets or clears the per-conversation user
// avatar; null clears it back to the shared profile avatar.
func (h *APIHandler) UpdateConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	conversationID := chi.URLParam(r, "conversationID")

	var req UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.dbStore.UpdateConversationAvatarOverride(conversationID, userID, req.AvatarOverride); err != nil {
		if err.Error() == "conversation not found" {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		log.Printf("Error updating conversation %s: %v", conversationID, err)
		http.Error(w, "Failed to update conversation", http.StatusInternalServerError)
		return
	}

	conv, err := h.dbStore.GetConversationByID(conversationID, userID)
	if err != nil || conv == nil {
		http.Error(w, "Failed to update conversation", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(conv)
}

type PostMessageResponse struct {
	UserMessage      *store.Message `json:"user_message"`
	AssistantMessage *store.Message `json:"assistant_message,omitempty"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	conversationID := chi.URLParam(r, "conversationID")

	var req core.MessageInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" && req.EmojiLabel == "" && req.ImageData == "" {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	userMsg, assistantMsg, err := h.chatService.SendMessage(r.Context(), conversationID, userID, req)
	if err != nil {
		if errors.Is(err, core.ErrConversationNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, core.ErrReplyInFlight) {
			// The user message is already stored; tell the client so.
			if userMsg != nil {
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(PostMessageResponse{UserMessage: userMsg})
				return
			}
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		// The user message is stored; the reply can be retried.
		log.Printf("Error generating reply for conversation %s: %v", conversationID, err)
		if userMsg != nil {
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(PostMessageResponse{UserMessage: userMsg})
			return
		}
		http.Error(w, "Failed to post message", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(PostMessageResponse{UserMessage: userMsg, AssistantMessage: assistantMsg})
}

// GenerateReplyHandler retries a reply without a new user message.
func (h *APIHandler) GenerateReplyHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	conversationID := chi.URLParam(r, "conversationID")

	assistantMsg, err := h.chatService.GenerateReply(r.Context(), conversationID, userID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrConversationNotFound):
			http.Error(w, "Conversation not found", http.StatusNotFound)
		case errors.Is(err, core.ErrReplyInFlight):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			log.Printf("Error generating reply for conversation %s: %v", conversationID, err)
			http.Error(w, "Failed to generate reply", http.StatusBadGateway)
		}
		return
	}
	json.NewEncoder(w).Encode(assistantMsg)
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) EditMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	messageID := chi.URLParam(r, "messageID")

	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	msg, err := h.chatService.EditMessage(messageID, userID, req.Content)
	if err != nil {
		h.writeMessageError(w, messageID, userID, err)
		return
	}
	json.NewEncoder(w).Encode(msg)
}

func (h *APIHandler) RetractMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	messageID := chi.URLParam(r, "messageID")

	msg, err := h.chatService.RetractMessage(messageID, userID)
	if err != nil {
		h.writeMessageError(w, messageID, userID, err)
		return
	}
	json.NewEncoder(w).Encode(msg)
}

func (h *APIHandler) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	messageID := chi.URLParam(r, "messageID")

	if err := h.chatService.DeleteMessage(messageID, userID); err != nil {
		h.writeMessageError(w, messageID, userID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) writeMessageError(w http.ResponseWriter, messageID string, userID int64, err error) {
	if err.Error() == "message not found" || errors.Is(err, core.ErrConversationNotFound) {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}
	log.Printf("Error handling message %s for user %d: %v", messageID, userID, err)
	http.Error(w, "Failed to update message", http.StatusInternalServerError)
}

func (h *APIHandler) ListMindStatesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	conversationID := chi.URLParam(r, "conversationID")

	states, err := h.chatService.GetMindStates(conversationID, userID)
	if err != nil {
		if errors.Is(err, core.ErrConversationNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		log.Printf("Error listing mind states for conversation %s: %v", conversationID, err)
		http.Error(w, "Failed to list mind states", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(states)
}

func (h *APIHandler) ClearMindStatesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	conversationID := chi.URLParam(r, "conversationID")

	if err := h.chatService.ClearMindStates(conversationID, userID); err != nil {
		if errors.Is(err, core.ErrConversationNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		log.Printf("Error clearing mind states for conversation %s: %v", conversationID, err)
		http.Error(w, "Failed to clear mind states", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
