package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/discord/callback", apiHandler.DiscordCallbackHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			// Conversations and messages
			r.Post("/conversations", apiHandler.CreateConversationHandler)
			r.Get("/conversations", apiHandler.ListConversationsHandler)
			r.Get("/conversations/{conversationID}", apiHandler.GetConversationDetailsHandler)
			r.Patch("/conversations/{conversationID}", apiHandler.UpdateConversationHandler)
			r.Post("/conversations/{conversationID}/messages", apiHandler.PostMessageHandler)
			r.Post("/conversations/{conversationID}/reply", apiHandler.GenerateReplyHandler)
			r.Get("/conversations/{conversationID}/mindstates", apiHandler.ListMindStatesHandler)
			r.Delete("/conversations/{conversationID}/mindstates", apiHandler.ClearMindStatesHandler)
			r.Patch("/messages/{messageID}", apiHandler.EditMessageHandler)
			r.Post("/messages/{messageID}/retract", apiHandler.RetractMessageHandler)
			r.Delete("/messages/{messageID}", apiHandler.DeleteMessageHandler)

			// Characters
			r.Post("/characters", apiHandler.CreateCharacterHandler)
			r.Get("/characters", apiHandler.ListCharactersHandler)
			r.Put("/characters/{characterID}", apiHandler.UpdateCharacterHandler)
			r.Delete("/characters/{characterID}", apiHandler.DeleteCharacterHandler)

			// Worldbooks
			r.Post("/worldbooks", apiHandler.CreateWorldbookHandler)
			r.Get("/worldbooks", apiHandler.ListWorldbooksHandler)
			r.Put("/worldbooks/{worldbookID}", apiHandler.UpdateWorldbookHandler)
			r.Delete("/worldbooks/{worldbookID}", apiHandler.DeleteWorldbookHandler)

			// Emoji library
			r.Post("/emoji-groups", apiHandler.CreateEmojiGroupHandler)
			r.Get("/emoji-groups", apiHandler.ListEmojiGroupsHandler)
			r.Delete("/emoji-groups/{groupID}", apiHandler.DeleteEmojiGroupHandler)
			r.Post("/emoji-groups/{groupID}/assets", apiHandler.CreateEmojiAssetHandler)
			r.Get("/emoji-groups/{groupID}/assets", apiHandler.ListEmojiAssetsHandler)
			r.Delete("/emoji-assets/{assetID}", apiHandler.DeleteEmojiAssetHandler)

			// Prompt presets
			r.Post("/prompts", apiHandler.CreatePromptPresetHandler)
			r.Get("/prompts", apiHandler.ListPromptPresetsHandler)
			r.Delete("/prompts/{promptID}", apiHandler.DeletePromptPresetHandler)

			// User profile, settings, models, state snapshot
			r.Get("/profile", apiHandler.GetUserProfileHandler)
			r.Put("/profile", apiHandler.SaveUserProfileHandler)
			r.Get("/settings", apiHandler.GetSettingsHandler)
			r.Put("/settings", apiHandler.SaveSettingsHandler)
			r.Get("/models", apiHandler.ListModelsHandler)
			r.Get("/state", apiHandler.ExportStateHandler)
			r.Put("/state", apiHandler.ImportStateHandler)
		})
	})

	return r
}
