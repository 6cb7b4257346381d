package service

import (
	"botforge_backend/internal/config"
	"botforge_backend/internal/model"
	"botforge_backend/internal/util"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// 可控的工厂后端替身
type fakeFactory struct {
	loginStatus   int
	loginBody     string
	createBody    string
	uploadBody    string
	chatBody      string
	lastCreateReq map[string]string
	uploadedFiles []string
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		loginStatus: http.StatusOK,
		loginBody:   `{"status":"success","token":"tok-123"}`,
		createBody:  `{"status":"success","data":{"chatbot":{"_id":"bot1","apiEndpoint":"/api/v1/chatbots/chat/bot1"},"response":"hello there"}}`,
		uploadBody:  `{"status":"success"}`,
		chatBody:    `{"status":"success","data":{"response":"pong"}}`,
	}
}

func (f *fakeFactory) server(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/users/login":
			w.WriteHeader(f.loginStatus)
			w.Write([]byte(f.loginBody))
		case r.URL.Path == "/chatbots":
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			f.lastCreateReq = map[string]string{}
			json.NewDecoder(r.Body).Decode(&f.lastCreateReq)
			w.Write([]byte(f.createBody))
		case strings.HasSuffix(r.URL.Path, "/upload"):
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			assert.NoError(t, r.ParseMultipartForm(32<<20))
			for _, fh := range r.MultipartForm.File["file"] {
				f.uploadedFiles = append(f.uploadedFiles, fh.Filename)
			}
			w.Write([]byte(f.uploadBody))
		case strings.Contains(r.URL.Path, "/chatbots/chat/"):
			w.Write([]byte(f.chatBody))
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestFactoryService(t *testing.T, baseURL string, store *MockConversationStore) *FactoryService {
	storage := &StorageService{Provider: &LocalStorageProvider{
		Config: &config.StorageConfig{LocalPath: t.TempDir()},
	}}
	return NewFactoryService(config.FactoryConfig{
		BaseURL:  baseURL,
		Email:    "test@example.com",
		Password: "password123",
	}, NewConversationService(store), storage)
}

func TestCreateChatbotWorkflow(t *testing.T) {
	fake := newFakeFactory()
	srv := fake.server(t)
	defer srv.Close()

	store := new(MockConversationStore)
	store.On("FindSessionTranscript", uint(1), "sess").Return([]model.ConversationRecord{}, nil)

	var inserted []*model.ConversationRecord
	store.On("Insert", mock.Anything).Run(func(args mock.Arguments) {
		inserted = append(inserted, args.Get(0).(*model.ConversationRecord))
	}).Return(nil)

	svc := newTestFactoryService(t, srv.URL, store)
	result, err := svc.CreateChatbot(context.Background(), 1, CreateBotInput{
		SessionID: "sess",
		Message:   "build me a bot",
		Mode:      "precision",
	})

	assert.NoError(t, err)
	assert.Equal(t, "bot1", result.BotID)
	// /api/v1 前缀剥掉后拼到基地址
	assert.Equal(t, srv.URL+"/chatbots/chat/bot1", result.APIEndpoint)
	assert.Equal(t, "hello there", result.Response)

	// 提交给工厂的请求：命名规则、模式透传、提示词头部
	assert.True(t, strings.HasPrefix(fake.lastCreateReq["name"], "Chatbot-"))
	assert.Equal(t, "precision", fake.lastCreateReq["mode"])
	assert.True(t, strings.HasPrefix(fake.lastCreateReq["prompt"], "Conversation history:\n"))

	// 会话记录加侧栏镜像各一条
	assert.Len(t, inserted, 2)
	assert.Equal(t, model.ScopeSession, inserted[0].Scope)
	assert.Equal(t, model.ScopeSidebar, inserted[1].Scope)
	for _, rec := range inserted {
		assert.Equal(t, "build me a bot", rec.Prompt)
		assert.Equal(t, "hello there", rec.Response)
		assert.Equal(t, srv.URL+"/chatbots/chat/bot1", rec.APILink)
	}
}

func TestCreateChatbotUploadsAttachments(t *testing.T) {
	fake := newFakeFactory()
	srv := fake.server(t)
	defer srv.Close()

	store := new(MockConversationStore)
	store.On("FindSessionTranscript", uint(1), "sess").Return([]model.ConversationRecord{}, nil)
	store.On("Insert", mock.Anything).Return(nil)

	svc := newTestFactoryService(t, srv.URL, store)
	result, err := svc.CreateChatbot(context.Background(), 1, CreateBotInput{
		SessionID: "sess",
		Attachments: []Attachment{
			{Name: "notes.txt", ContentType: "text/plain", Data: []byte("plain text notes")},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, fake.uploadedFiles)
	assert.Equal(t, model.FileList{"notes.txt"}, result.Record.Files)
	// 纯附件提交使用占位提问
	assert.Equal(t, "File upload", result.Record.Prompt)
}

func TestCreateChatbotLoginFailure(t *testing.T) {
	fake := newFakeFactory()
	fake.loginStatus = http.StatusUnauthorized
	fake.loginBody = `{"status":"error","message":"bad credentials"}`
	srv := fake.server(t)
	defer srv.Close()

	store := new(MockConversationStore)
	store.On("FindSessionTranscript", uint(1), "sess").Return([]model.ConversationRecord{}, nil)

	var inserted []*model.ConversationRecord
	store.On("Insert", mock.Anything).Run(func(args mock.Arguments) {
		inserted = append(inserted, args.Get(0).(*model.ConversationRecord))
	}).Return(nil)

	svc := newTestFactoryService(t, srv.URL, store)
	_, err := svc.CreateChatbot(context.Background(), 1, CreateBotInput{
		SessionID: "sess",
		Message:   "hi",
	})

	var ue *UpstreamError
	assert.ErrorAs(t, err, &ue)
	assert.Equal(t, "login", ue.Step)

	// 失败的轮次同样留痕
	assert.Len(t, inserted, 1)
	assert.Equal(t, model.ScopeSession, inserted[0].Scope)
	assert.Equal(t, "Error: bad credentials", inserted[0].Response)
}

func TestCreateChatbotValidation(t *testing.T) {
	store := new(MockConversationStore)
	svc := newTestFactoryService(t, "http://unused", store)

	_, err := svc.CreateChatbot(context.Background(), 1, CreateBotInput{SessionID: "sess"})
	assert.ErrorIs(t, err, util.ErrEmptySubmission)

	_, err = svc.CreateChatbot(context.Background(), 1, CreateBotInput{
		SessionID: "sess",
		Message:   "hi",
		Mode:      "turbo",
	})
	assert.ErrorIs(t, err, util.ErrInvalidMode)

	_, err = svc.CreateChatbot(context.Background(), 1, CreateBotInput{
		SessionID: "sess",
		Attachments: []Attachment{
			{Name: "track.mp3", Data: []byte{0xFF, 0xFB, 0x90, 0x00}},
		},
	})
	assert.ErrorIs(t, err, util.ErrInvalidFileType)

	store.AssertNotCalled(t, "Insert", mock.Anything)
}

func TestChatPersistsTurn(t *testing.T) {
	fake := newFakeFactory()
	srv := fake.server(t)
	defer srv.Close()

	store := new(MockConversationStore)
	store.On("Insert", mock.Anything).Return(nil)

	svc := newTestFactoryService(t, srv.URL, store)
	rec, err := svc.Chat(context.Background(), 1, ChatInput{
		APILink: srv.URL + "/chatbots/chat/bot1",
		Message: "ping",
	})

	assert.NoError(t, err)
	assert.Equal(t, model.ScopeEndpoint, rec.Scope)
	assert.Equal(t, "ping", rec.Prompt)
	assert.Equal(t, "pong", rec.Response)
}

func TestChatUpstreamFailureRecordsErrorTurn(t *testing.T) {
	fake := newFakeFactory()
	fake.chatBody = `{"status":"error","message":"boom"}`
	srv := fake.server(t)
	defer srv.Close()

	store := new(MockConversationStore)
	store.On("Insert", mock.Anything).Return(nil)

	svc := newTestFactoryService(t, srv.URL, store)
	rec, err := svc.Chat(context.Background(), 1, ChatInput{
		APILink: srv.URL + "/chatbots/chat/bot1",
		Message: "ping",
	})

	var ue *UpstreamError
	assert.ErrorAs(t, err, &ue)
	assert.Equal(t, "chat", ue.Step)

	// 失败的轮次也写入历史，回答是错误文本
	assert.NotNil(t, rec)
	assert.Equal(t, "Error: boom", rec.Response)
}

func TestChatNormalizesEndpointBeforeCall(t *testing.T) {
	fake := newFakeFactory()
	srv := fake.server(t)
	defer srv.Close()

	store := new(MockConversationStore)
	store.On("Insert", mock.MatchedBy(func(rec *model.ConversationRecord) bool {
		return !strings.Contains(rec.APILink, "/api/v1/api/v1/")
	})).Return(nil)

	svc := newTestFactoryService(t, srv.URL, store)
	// 带重复前缀的地址也能正常对话并以规范形式落库
	rec, err := svc.Chat(context.Background(), 1, ChatInput{
		APILink: srv.URL + "/api/v1/api/v1/chatbots/chat/bot1",
		Message: "ping",
	})

	assert.NoError(t, err)
	assert.Equal(t, srv.URL+"/api/v1/chatbots/chat/bot1", rec.APILink)
	store.AssertExpectations(t)
}
