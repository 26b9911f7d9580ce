package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pawchat/internal/store"
)

// Characters

func (h *APIHandler) CreateCharacterHandler(w http.ResponseWriter, r *http.Request) {
	var c store.Character
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if c.Name == "" {
		http.Error(w, "Character name is required", http.StatusBadRequest)
		return
	}
	if c.BoundWorldbookIDs == nil {
		c.BoundWorldbookIDs = []string{}
	}
	c.ID = "" // server-assigned

	if err := h.dbStore.CreateCharacter(&c); err != nil {
		log.Printf("Error creating character: %v", err)
		http.Error(w, "Failed to create character", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

func (h *APIHandler) ListCharactersHandler(w http.ResponseWriter, r *http.Request) {
	characters, err := h.dbStore.GetAllCharacters()
	if err != nil {
		log.Printf("Error listing characters: %v", err)
		http.Error(w, "Failed to list characters", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(characters)
}

func (h *APIHandler) UpdateCharacterHandler(w http.ResponseWriter, r *http.Request) {
	var c store.Character
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	c.ID = chi.URLParam(r, "characterID")
	if c.BoundWorldbookIDs == nil {
		c.BoundWorldbookIDs = []string{}
	}

	if err := h.dbStore.UpdateCharacter(&c); err != nil {
		if err.Error() == "character not found" {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("Error updating character %s: %v", c.ID, err)
		http.Error(w, "Failed to update character", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(c)
}

// DeleteCharacterHandler removes the character together with its
// conversations and their histories.
func (h *APIHandler) DeleteCharacterHandler(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "characterID")
	if err := h.dbStore.DeleteCharacter(characterID); err != nil {
		log.Printf("Error deleting character %s: %v", characterID, err)
		http.Error(w, "Failed to delete character", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Worldbooks

func (h *APIHandler) CreateWorldbookHandler(w http.ResponseWriter, r *http.Request) {
	var wb store.Worldbook
	if err := json.NewDecoder(r.Body).Decode(&wb); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if wb.Name == "" {
		http.Error(w, "Worldbook name is required", http.StatusBadRequest)
		return
	}
	wb.ID = ""

	if err := h.dbStore.CreateWorldbook(&wb); err != nil {
		log.Printf("Error creating worldbook: %v", err)
		http.Error(w, "Failed to create worldbook", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(wb)
}

func (h *APIHandler) ListWorldbooksHandler(w http.ResponseWriter, r *http.Request) {
	worldbooks, err := h.dbStore.GetAllWorldbooks()
	if err != nil {
		log.Printf("Error listing worldbooks: %v", err)
		http.Error(w, "Failed to list worldbooks", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(worldbooks)
}

func (h *APIHandler) UpdateWorldbookHandler(w http.ResponseWriter, r *http.Request) {
	var wb store.Worldbook
	if err := json.NewDecoder(r.Body).Decode(&wb); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	wb.ID = chi.URLParam(r, "worldbookID")

	if err := h.dbStore.UpdateWorldbook(&wb); err != nil {
		if err.Error() == "worldbook not found" {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("Error updating worldbook %s: %v", wb.ID, err)
		http.Error(w, "Failed to update worldbook", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(wb)
}

func (h *APIHandler) DeleteWorldbookHandler(w http.ResponseWriter, r *http.Request) {
	worldbookID := chi.URLParam(r, "worldbookID")
	if err := h.dbStore.DeleteWorldbook(worldbookID); err != nil {
		if err.Error() == "worldbook not found" {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("Error deleting worldbook %s: %v", worldbookID, err)
		http.Error(w, "Failed to delete worldbook", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Emoji library

func (h *APIHandler) CreateEmojiGroupHandler(w http.ResponseWriter, r *http.Request) {
	var g store.EmojiGroup
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if g.Name == "" {
		http.Error(w, "Emoji group name is required", http.StatusBadRequest)
		return
	}
	g.ID = ""

	if err := h.dbStore.CreateEmojiGroup(&g); err != nil {
		log.Printf("Error creating emoji group: %v", err)
		http.Error(w, "Failed to create emoji group", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(g)
}

func (h *APIHandler) ListEmojiGroupsHandler(w http.ResponseWriter, r *http.Request) {
	groups, err := h.dbStore.GetAllEmojiGroups()
	if err != nil {
		log.Printf("Error listing emoji groups: %v", err)
		http.Error(w, "Failed to list emoji groups", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(groups)
}

func (h *APIHandler) DeleteEmojiGroupHandler(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	if err := h.dbStore.DeleteEmojiGroup(groupID); err != nil {
		log.Printf("Error deleting emoji group %s: %v", groupID, err)
		http.Error(w, "Failed to delete emoji group", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) CreateEmojiAssetHandler(w http.ResponseWriter, r *http.Request) {
	var a store.EmojiAsset
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if a.Label == "" || a.ImageRef == "" {
		http.Error(w, "Emoji label and image_ref are required", http.StatusBadRequest)
		return
	}
	a.ID = ""
	a.GroupID = chi.URLParam(r, "groupID")

	group, err := h.dbStore.GetEmojiGroupByID(a.GroupID)
	if err != nil {
		log.Printf("Error verifying emoji group %s: %v", a.GroupID, err)
		http.Error(w, "Failed to create emoji asset", http.StatusInternalServerError)
		return
	}
	if group == nil {
		http.Error(w, "Emoji group not found", http.StatusNotFound)
		return
	}

	if err := h.dbStore.CreateEmojiAsset(&a); err != nil {
		log.Printf("Error creating emoji asset: %v", err)
		http.Error(w, "Failed to create emoji asset", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(a)
}

func (h *APIHandler) ListEmojiAssetsHandler(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	assets, err := h.dbStore.GetEmojiAssetsByGroupID(groupID)
	if err != nil {
		log.Printf("Error listing emoji assets for group %s: %v", groupID, err)
		http.Error(w, "Failed to list emoji assets", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(assets)
}

func (h *APIHandler) DeleteEmojiAssetHandler(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")
	if err := h.dbStore.DeleteEmojiAsset(assetID); err != nil {
		if err.Error() == "emoji asset not found" {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("Error deleting emoji asset %s: %v", assetID, err)
		http.Error(w, "Failed to delete emoji asset", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Prompt presets

func (h *APIHandler) CreatePromptPresetHandler(w http.ResponseWriter, r *http.Request) {
	var p store.PromptPreset
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if p.Name == "" {
		http.Error(w, "Prompt name is required", http.StatusBadRequest)
		return
	}
	p.ID = ""

	if err := h.dbStore.CreatePromptPreset(&p); err != nil {
		log.Printf("Error creating prompt preset: %v", err)
		http.Error(w, "Failed to create prompt preset", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(p)
}

func (h *APIHandler) ListPromptPresetsHandler(w http.ResponseWriter, r *http.Request) {
	presets, err := h.dbStore.GetAllPromptPresets()
	if err != nil {
		log.Printf("Error listing prompt presets: %v", err)
		http.Error(w, "Failed to list prompt presets", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(presets)
}

func (h *APIHandler) DeletePromptPresetHandler(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "promptID")
	if err := h.dbStore.DeletePromptPreset(promptID); err != nil {
		if err.Error() == "prompt preset not found" {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("Error deleting prompt preset %s: %v", promptID, err)
		http.Error(w, "Failed to delete prompt preset", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// User profile

func (h *APIHandler) GetUserProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := h.dbStore.GetUserProfile()
	if err != nil {
		log.Printf("Error getting user profile: %v", err)
		http.Error(w, "Failed to get user profile", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(profile)
}

func (h *APIHandler) SaveUserProfileHandler(w http.ResponseWriter, r *http.Request) {
	var profile store.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.dbStore.SaveUserProfile(&profile); err != nil {
		log.Printf("Error saving user profile: %v", err)
		http.Error(w, "Failed to save user profile", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(profile)
}

// Settings

type SettingsRequest struct {
	Endpoint         string `json:"endpoint"`
	APIKey           string `json:"api_key,omitempty"`
	Model            string `json:"model"`
	ContextLineLimit int    `json:"context_line_limit"`
	TimeAwareness    bool   `json:"time_awareness"`
	SelectedPromptID string `json:"selected_prompt_id,omitempty"`
}

func (h *APIHandler) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := h.dbStore.GetSettings()
	if err != nil {
		log.Printf("Error getting settings: %v", err)
		http.Error(w, "Failed to get settings", http.StatusInternalServerError)
		return
	}
	if settings == nil {
		settings = &store.Settings{}
	}
	json.NewEncoder(w).Encode(settings)
}

func (h *APIHandler) SaveSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	settings := store.Settings{
		Endpoint:         req.Endpoint,
		APIKey:           req.APIKey,
		Model:            req.Model,
		ContextLineLimit: req.ContextLineLimit,
		TimeAwareness:    req.TimeAwareness,
		SelectedPromptID: req.SelectedPromptID,
	}
	if settings.APIKey == "" {
		// Blank key in the request keeps the stored one.
		if current, err := h.dbStore.GetSettings(); err == nil && current != nil {
			settings.APIKey = current.APIKey
		}
	}

	if err := h.dbStore.SaveSettings(&settings); err != nil {
		log.Printf("Error saving settings: %v", err)
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(settings)
}

// Models proxy

func (h *APIHandler) ListModelsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := h.dbStore.GetSettings()
	if err != nil || settings == nil {
		http.Error(w, "Settings are not configured", http.StatusBadRequest)
		return
	}

	models, err := h.llmService.ListModels(r.Context(), settings)
	if err != nil {
		log.Printf("Error listing models: %v", err)
		http.Error(w, "Failed to list models", http.StatusBadGateway)
		return
	}
	json.NewEncoder(w).Encode(map[string][]string{"models": models})
}

// State snapshot

func (h *APIHandler) ExportStateHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	snap, err := h.dbStore.ExportState(userID)
	if err != nil {
		log.Printf("Error exporting state for user %d: %v", userID, err)
		http.Error(w, "Failed to export state", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(snap)
}

func (h *APIHandler) ImportStateHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if err := h.dbStore.ImportState(userID, raw); err != nil {
		log.Printf("Error importing state for user %d: %v", userID, err)
		http.Error(w, "Failed to import state: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
