package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetOrCreateUserIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	first, err := s.GetOrCreateUser("discord-1", "tester")
	require.NoError(t, err)
	second, err := s.GetOrCreateUser("discord-1", "tester")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	found, err := s.GetUserByDiscordID("discord-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "tester", found.Username)
}

func TestCharacterWorldbookBindingRoundTrip(t *testing.T) {
	s := newTestStore(t)

	wbA := Worldbook{Name: "王国", Content: "北方的雪国", IsGlobal: false}
	wbB := Worldbook{Name: "通史", Content: "大陆纪年", IsGlobal: true}
	require.NoError(t, s.CreateWorldbook(&wbA))
	require.NoError(t, s.CreateWorldbook(&wbB))

	groupID := "group-1"
	c := Character{
		Name:              "小雨",
		Description:       "一个温柔的女孩",
		Greeting:          "你好呀",
		BoundEmojiGroupID: &groupID,
		BoundWorldbookIDs: []string{wbA.ID},
		UserNameOverride:  "小明",
	}
	require.NoError(t, s.CreateCharacter(&c))
	require.NotEmpty(t, c.ID)

	got, err := s.GetCharacterByID(c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "小雨", got.Name)
	assert.Equal(t, []string{wbA.ID}, got.BoundWorldbookIDs)
	require.NotNil(t, got.BoundEmojiGroupID)
	assert.Equal(t, groupID, *got.BoundEmojiGroupID)
	assert.Equal(t, "小明", got.UserNameOverride)

	got.BoundWorldbookIDs = []string{wbA.ID, wbB.ID}
	got.Description = "改过的人设"
	require.NoError(t, s.UpdateCharacter(got))

	updated, err := s.GetCharacterByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{wbA.ID, wbB.ID}, updated.BoundWorldbookIDs)
	assert.Equal(t, "改过的人设", updated.Description)
}

func TestDeleteCharacterCascades(t *testing.T) {
	s := newTestStore(t)

	user, err := s.GetOrCreateUser("discord-1", "tester")
	require.NoError(t, err)

	c := Character{Name: "小雨", Description: "人设"}
	require.NoError(t, s.CreateCharacter(&c))
	conv, err := s.CreateConversation(user.ID, c.ID, "friend")
	require.NoError(t, err)
	require.NoError(t, s.CreateMessage(&Message{ConversationID: conv.ID, Role: "user", Content: "你好"}))
	require.NoError(t, s.AppendMindState(&MindState{ConversationID: conv.ID, Mood: "开心"}))

	require.NoError(t, s.DeleteCharacter(c.ID))

	gone, err := s.GetCharacterByID(c.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	convGone, err := s.GetConversationByID(conv.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, convGone)
	msgs, err := s.GetMessagesByConversationID(conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	states, err := s.GetMindStatesByConversationID(conv.ID)
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestConversationOwnership(t *testing.T) {
	s := newTestStore(t)

	owner, err := s.GetOrCreateUser("discord-1", "owner")
	require.NoError(t, err)
	other, err := s.GetOrCreateUser("discord-2", "other")
	require.NoError(t, err)

	c := Character{Name: "小雨", Description: "人设"}
	require.NoError(t, s.CreateCharacter(&c))
	conv, err := s.CreateConversation(owner.ID, c.ID, "friend")
	require.NoError(t, err)

	got, err := s.GetConversationByID(conv.ID, owner.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)

	// Another user's lookup must see nothing.
	hidden, err := s.GetConversationByID(conv.ID, other.ID)
	require.NoError(t, err)
	assert.Nil(t, hidden)
}

func TestMessageLifecycle(t *testing.T) {
	s := newTestStore(t)

	user, err := s.GetOrCreateUser("discord-1", "tester")
	require.NoError(t, err)
	c := Character{Name: "小雨", Description: "人设"}
	require.NoError(t, s.CreateCharacter(&c))
	conv, err := s.CreateConversation(user.ID, c.ID, "friend")
	require.NoError(t, err)

	msg := Message{ConversationID: conv.ID, Role: "user", Content: "原文"}
	require.NoError(t, s.CreateMessage(&msg))
	assert.Equal(t, KindText, msg.Kind) // defaulted on insert

	require.NoError(t, s.UpdateMessageContent(msg.ID, "新内容"))
	got, err := s.GetMessageByID(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "新内容", got.Content)
	assert.True(t, got.IsEdited)

	require.NoError(t, s.RetractMessage(msg.ID))
	got, err = s.GetMessageByID(msg.ID)
	require.NoError(t, err)
	assert.True(t, got.Retracted)
	assert.Equal(t, "新内容", got.Content)

	require.NoError(t, s.DeleteMessage(msg.ID))
	gone, err := s.GetMessageByID(msg.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	assert.Error(t, s.UpdateMessageContent("no-such-id", "x"))
	assert.Error(t, s.RetractMessage("no-such-id"))
	assert.Error(t, s.DeleteMessage("no-such-id"))
}

func TestEmojiLibraryOrderAndCascade(t *testing.T) {
	s := newTestStore(t)

	group := EmojiGroup{Name: "日常", Description: "常用表情"}
	require.NoError(t, s.CreateEmojiGroup(&group))

	labels := []string{"开心", "生气", "难过"}
	for _, label := range labels {
		require.NoError(t, s.CreateEmojiAsset(&EmojiAsset{GroupID: group.ID, Label: label, ImageRef: "ref/" + label}))
	}

	assets, err := s.GetAllEmojiAssets()
	require.NoError(t, err)
	require.Len(t, assets, 3)
	for i, label := range labels {
		assert.Equal(t, label, assets[i].Label) // insertion order is library order
	}

	byGroup, err := s.GetEmojiAssetsByGroupID(group.ID)
	require.NoError(t, err)
	assert.Len(t, byGroup, 3)

	require.NoError(t, s.DeleteEmojiGroup(group.ID))
	assets, err = s.GetAllEmojiAssets()
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestMindStateAppendAndClear(t *testing.T) {
	s := newTestStore(t)

	user, err := s.GetOrCreateUser("discord-1", "tester")
	require.NoError(t, err)
	c := Character{Name: "小雨", Description: "人设"}
	require.NoError(t, s.CreateCharacter(&c))
	conv, err := s.CreateConversation(user.ID, c.ID, "friend")
	require.NoError(t, err)

	require.NoError(t, s.AppendMindState(&MindState{ConversationID: conv.ID, Outfit: "白裙", Mood: "开心"}))
	require.NoError(t, s.AppendMindState(&MindState{ConversationID: conv.ID, Mood: "平静", Thought: "想出门"}))

	states, err := s.GetMindStatesByConversationID(conv.ID)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "白裙", states[0].Outfit)
	assert.Equal(t, "想出门", states[1].Thought)

	require.NoError(t, s.ClearMindStates(conv.ID))
	states, err = s.GetMindStatesByConversationID(conv.ID)
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestSettingsSingletonUpsert(t *testing.T) {
	s := newTestStore(t)

	missing, err := s.GetSettings()
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.SaveSettings(&Settings{Endpoint: "https://a.example", APIKey: "k1", Model: "m1"}))
	require.NoError(t, s.SaveSettings(&Settings{Endpoint: "https://b.example", APIKey: "k2", Model: "m2", TimeAwareness: true, ContextLineLimit: 50}))

	got, err := s.GetSettings()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://b.example", got.Endpoint)
	assert.Equal(t, "k2", got.APIKey)
	assert.Equal(t, "m2", got.Model)
	assert.Equal(t, 50, got.ContextLineLimit)
	assert.True(t, got.TimeAwareness)
}

func TestSettingsAPIKeyHiddenFromJSON(t *testing.T) {
	raw, err := json.Marshal(Settings{Endpoint: "https://a.example", APIKey: "secret", Model: "m"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
}

func TestStateSnapshotRoundTrip(t *testing.T) {
	src := newTestStore(t)

	user, err := src.GetOrCreateUser("discord-1", "tester")
	require.NoError(t, err)

	wb := Worldbook{Name: "王国", Content: "北方的雪国", IsGlobal: true}
	require.NoError(t, src.CreateWorldbook(&wb))
	c := Character{Name: "小雨", Description: "人设", BoundWorldbookIDs: []string{wb.ID}}
	require.NoError(t, src.CreateCharacter(&c))
	group := EmojiGroup{Name: "日常"}
	require.NoError(t, src.CreateEmojiGroup(&group))
	require.NoError(t, src.CreateEmojiAsset(&EmojiAsset{GroupID: group.ID, Label: "开心", ImageRef: "ref/happy"}))
	require.NoError(t, src.CreatePromptPreset(&PromptPreset{Name: "预设", Content: "扮演要求"}))
	require.NoError(t, src.SaveUserProfile(&UserProfile{Name: "阿明", Personality: "开朗"}))
	require.NoError(t, src.SaveSettings(&Settings{Endpoint: "https://a.example", Model: "m1"}))

	conv, err := src.CreateConversation(user.ID, c.ID, "friend")
	require.NoError(t, err)
	require.NoError(t, src.CreateMessage(&Message{ConversationID: conv.ID, Role: "user", Content: "你好"}))
	require.NoError(t, src.CreateMessage(&Message{ConversationID: conv.ID, Role: "assistant", Content: "你好呀"}))
	require.NoError(t, src.AppendMindState(&MindState{ConversationID: conv.ID, Mood: "开心"}))

	snap, err := src.ExportState(user.ID)
	require.NoError(t, err)
	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	dst := newTestStore(t)
	dstUser, err := dst.GetOrCreateUser("discord-1", "tester")
	require.NoError(t, err)
	require.NoError(t, dst.ImportState(dstUser.ID, raw))

	restored, err := dst.GetCharacterByID(c.ID)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, []string{wb.ID}, restored.BoundWorldbookIDs)

	convs, err := dst.GetConversationsByUserID(dstUser.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, conv.ID, convs[0].ID)

	msgs, err := dst.GetMessagesByConversationID(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "你好", msgs[0].Content)

	states, err := dst.GetMindStatesByConversationID(conv.ID)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "开心", states[0].Mood)

	profile, err := dst.GetUserProfile()
	require.NoError(t, err)
	assert.Equal(t, "阿明", profile.Name)

	settings, err := dst.GetSettings()
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, "https://a.example", settings.Endpoint)
}

func TestImportStatePreservesStoredAPIKey(t *testing.T) {
	s := newTestStore(t)

	user, err := s.GetOrCreateUser("discord-1", "tester")
	require.NoError(t, err)
	require.NoError(t, s.SaveSettings(&Settings{Endpoint: "https://a.example", APIKey: "sk-secret", Model: "m1"}))

	snap, err := s.ExportState(user.ID)
	require.NoError(t, err)
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	// The key must never leak into the exported blob.
	assert.NotContains(t, string(raw), "sk-secret")

	require.NoError(t, s.ImportState(user.ID, raw))

	settings, err := s.GetSettings()
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, "sk-secret", settings.APIKey)
	assert.Equal(t, "https://a.example", settings.Endpoint)

	// A hand-written snapshot with settings but no key keeps it too.
	require.NoError(t, s.ImportState(user.ID, []byte(`{"settings":{"endpoint":"https://b.example"}}`)))
	settings, err = s.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", settings.APIKey)
	assert.Equal(t, "https://b.example", settings.Endpoint)
}

func TestImportStateReplacesExisting(t *testing.T) {
	s := newTestStore(t)

	user, err := s.GetOrCreateUser("discord-1", "tester")
	require.NoError(t, err)
	old := Character{Name: "旧角色", Description: "人设"}
	require.NoError(t, s.CreateCharacter(&old))
	conv, err := s.CreateConversation(user.ID, old.ID, "friend")
	require.NoError(t, err)
	require.NoError(t, s.CreateMessage(&Message{ConversationID: conv.ID, Role: "user", Content: "旧消息"}))

	require.NoError(t, s.ImportState(user.ID, []byte(`{"characters":[{"id":"char-new","name":"新角色","description":"新人设","bound_worldbook_ids":[]}]}`)))

	gone, err := s.GetCharacterByID(old.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	convs, err := s.GetConversationsByUserID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, convs)

	fresh, err := s.GetCharacterByID("char-new")
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, "新角色", fresh.Name)
}

func TestImportStateRejectsInvalidJSON(t *testing.T) {
	s := newTestStore(t)
	user, err := s.GetOrCreateUser("discord-1", "tester")
	require.NoError(t, err)

	assert.Error(t, s.ImportState(user.ID, []byte("not json")))
}
