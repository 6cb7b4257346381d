package service

import (
	"botforge_backend/internal/model"
	"botforge_backend/internal/repository"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func historyFixture() (base time.Time, feed []model.ConversationRecord) {
	base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// 倒序总览：s2 的两条比 s1 的两条新
	feed = []model.ConversationRecord{
		{UserID: 1, Scope: model.ScopeSession, SessionID: "s2", Prompt: "s2 second", CreatedAt: base.Add(3 * time.Hour)},
		{UserID: 1, Scope: model.ScopeSession, SessionID: "s2", Prompt: "s2 first", CreatedAt: base.Add(2 * time.Hour)},
		{UserID: 1, Scope: model.ScopeSession, SessionID: "s1", Prompt: "s1 second", CreatedAt: base.Add(time.Hour)},
		{UserID: 1, Scope: model.ScopeSession, SessionID: "s1", Prompt: "s1 first", CreatedAt: base},
	}
	return base, feed
}

func TestSessionGroups(t *testing.T) {
	base, feed := historyFixture()

	store := new(MockConversationStore)
	store.On("Find", mock.Anything).Return(feed, nil)

	svc := NewHistoryService(NewConversationService(store))
	groups, err := svc.SessionGroups(1, 0)

	assert.NoError(t, err)
	assert.Len(t, groups, 2)

	// 分组按各自最早记录时间倒序
	assert.Equal(t, "s2", groups[0].SessionID)
	assert.Equal(t, "s1", groups[1].SessionID)

	// 标题与起点取最早的一条
	assert.Equal(t, "s2 first", groups[0].Title)
	assert.Equal(t, base.Add(2*time.Hour), groups[0].StartedAt)
	assert.Equal(t, "s1 first", groups[1].Title)
	assert.Equal(t, base, groups[1].StartedAt)

	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, 2, groups[1].Count)
}

func TestSessionGroupsDefaultLimit(t *testing.T) {
	store := new(MockConversationStore)
	store.On("Find", repository.Query{
		UserID: 1,
		Scope:  model.ScopeSession,
		Limit:  DefaultFeedLimit,
	}).Return([]model.ConversationRecord{}, nil)

	svc := NewHistoryService(NewConversationService(store))
	groups, err := svc.SessionGroups(1, 0)

	assert.NoError(t, err)
	assert.Empty(t, groups)
	store.AssertExpectations(t)
}

func TestBotGroups(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// 正序镜像记录，bot-a 先出现
	records := []model.ConversationRecord{
		{UserID: 1, Scope: model.ScopeSidebar, APILink: "https://f/api/v1/chatbots/chat/a", Prompt: "build me a bot", CreatedAt: base},
		{UserID: 1, Scope: model.ScopeSidebar, APILink: "https://f/api/v1/chatbots/chat/b", Prompt: "another bot", CreatedAt: base.Add(time.Hour)},
		{UserID: 1, Scope: model.ScopeSidebar, APILink: "https://f/api/v1/chatbots/chat/a", Prompt: "follow up", CreatedAt: base.Add(2 * time.Hour)},
	}

	store := new(MockConversationStore)
	store.On("Find", mock.Anything).Return(records, nil)

	svc := NewHistoryService(NewConversationService(store))
	groups, err := svc.BotGroups(1)

	assert.NoError(t, err)
	assert.Len(t, groups, 2)

	// 首次出现顺序，标签取首条提问
	assert.Equal(t, "https://f/api/v1/chatbots/chat/a", groups[0].APILink)
	assert.Equal(t, "build me a bot", groups[0].Label)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, "https://f/api/v1/chatbots/chat/b", groups[1].APILink)
	assert.Equal(t, "another bot", groups[1].Label)
	assert.Equal(t, 1, groups[1].Count)
}

func TestTranscriptExpandsRoles(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []model.ConversationRecord{
		{Prompt: "q1", Response: "a1", CreatedAt: base},
		{Prompt: "q2", Response: "a2", CreatedAt: base.Add(time.Minute)},
	}

	store := new(MockConversationStore)
	store.On("Find", mock.Anything).Return(records, nil)

	svc := NewHistoryService(NewConversationService(store))
	messages, err := svc.Transcript(1, "https://f/api/v1/chatbots/chat/a")

	assert.NoError(t, err)
	assert.Len(t, messages, 4)

	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "q1", messages[0].Content)
	assert.Equal(t, "bot", messages[1].Role)
	assert.Equal(t, "a1", messages[1].Content)
	assert.Equal(t, "user", messages[2].Role)
	assert.Equal(t, "q2", messages[2].Content)
	assert.Equal(t, "bot", messages[3].Role)
	assert.Equal(t, "a2", messages[3].Content)
}
