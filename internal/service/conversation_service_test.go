package service

import (
	"botforge_backend/internal/model"
	"botforge_backend/internal/repository"
	"botforge_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockConversationStore is a mock type for the ConversationStore interface
type MockConversationStore struct {
	mock.Mock
}

func (m *MockConversationStore) Insert(rec *model.ConversationRecord) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *MockConversationStore) Find(q repository.Query) ([]model.ConversationRecord, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConversationRecord), args.Error(1)
}

func (m *MockConversationStore) FindSessionTranscript(userID uint, sessionID string) ([]model.ConversationRecord, error) {
	args := m.Called(userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConversationRecord), args.Error(1)
}

func TestAppendValidation(t *testing.T) {
	store := new(MockConversationStore)
	svc := NewConversationService(store)

	cases := []struct {
		name string
		in   RecordInput
		want error
	}{
		{
			name: "unknown scope",
			in:   RecordInput{Scope: "bogus", Prompt: "hi"},
			want: util.ErrInvalidScope,
		},
		{
			name: "session scope without session id",
			in:   RecordInput{Scope: model.ScopeSession, Prompt: "hi"},
			want: util.ErrSessionRequired,
		},
		{
			name: "endpoint scope without api link",
			in:   RecordInput{Scope: model.ScopeEndpoint, Prompt: "hi"},
			want: util.ErrEndpointRequired,
		},
		{
			name: "empty submission",
			in:   RecordInput{Scope: model.ScopeSession, SessionID: "s1"},
			want: util.ErrEmptySubmission,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Append(1, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	store.AssertNotCalled(t, "Insert", mock.Anything)
}

func TestAppendNormalizesAPILink(t *testing.T) {
	store := new(MockConversationStore)
	svc := NewConversationService(store)

	store.On("Insert", mock.MatchedBy(func(rec *model.ConversationRecord) bool {
		return rec.APILink == "https://f.example.com/api/v1/chatbots/chat/abc" &&
			rec.UserID == 7 &&
			rec.Scope == model.ScopeEndpoint
	})).Return(nil)

	rec, err := svc.Append(7, RecordInput{
		Scope:   model.ScopeEndpoint,
		Prompt:  "hi",
		APILink: "https://f.example.com/api/v1/api/v1/chatbots/chat/abc",
	})

	assert.NoError(t, err)
	assert.Equal(t, "https://f.example.com/api/v1/chatbots/chat/abc", rec.APILink)
	store.AssertExpectations(t)
}

func TestAppendFileOnlySubmissionAllowed(t *testing.T) {
	store := new(MockConversationStore)
	svc := NewConversationService(store)

	store.On("Insert", mock.Anything).Return(nil)

	rec, err := svc.Append(1, RecordInput{
		Scope:     model.ScopeSession,
		SessionID: "s1",
		Files:     []string{"doc.pdf"},
	})

	assert.NoError(t, err)
	assert.Empty(t, rec.Prompt)
	assert.Equal(t, model.FileList{"doc.pdf"}, rec.Files)
}

func TestSessionTranscriptRequiresSessionID(t *testing.T) {
	store := new(MockConversationStore)
	svc := NewConversationService(store)

	_, err := svc.SessionTranscript(1, "  ")
	assert.ErrorIs(t, err, util.ErrSessionRequired)
}

func TestEndpointTranscriptQueriesNormalizedAscending(t *testing.T) {
	store := new(MockConversationStore)
	svc := NewConversationService(store)

	store.On("Find", repository.Query{
		UserID:    3,
		Scope:     model.ScopeEndpoint,
		APILink:   "https://f.example.com/api/v1/chatbots/chat/abc",
		Ascending: true,
	}).Return([]model.ConversationRecord{}, nil)

	_, err := svc.EndpointTranscript(3, "https://f.example.com/api/v1/api/v1/chatbots/chat/abc")

	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestSessionFeedIsDescendingAndLimited(t *testing.T) {
	store := new(MockConversationStore)
	svc := NewConversationService(store)

	store.On("Find", repository.Query{
		UserID: 3,
		Scope:  model.ScopeSession,
		Limit:  10,
	}).Return([]model.ConversationRecord{}, nil)

	_, err := svc.SessionFeed(3, 10)

	assert.NoError(t, err)
	store.AssertExpectations(t)
}
