package service

import (
	"botforge_backend/internal/model"
	"botforge_backend/internal/repository"
	"botforge_backend/internal/util"
	"strings"
)

// ConversationStore 会话记录的存储入口，按属主隔离
type ConversationStore interface {
	Insert(rec *model.ConversationRecord) error
	Find(q repository.Query) ([]model.ConversationRecord, error)
	FindSessionTranscript(userID uint, sessionID string) ([]model.ConversationRecord, error)
}

// ConversationService 负责会话记录的写入校验与各视图的读取。
// 所有操作都以调用方身份为属主，不接受跨用户访问。
type ConversationService struct {
	Store ConversationStore
}

func NewConversationService(store ConversationStore) *ConversationService {
	return &ConversationService{Store: store}
}

// RecordInput 一条待写入的问答记录
type RecordInput struct {
	Scope     model.ScopeKind `json:"scope"`
	SessionID string          `json:"sessionId"`
	Prompt    string          `json:"prompt"`
	Response  string          `json:"response"`
	APILink   string          `json:"apiLink"`
	Files     []string        `json:"files"`
}

// Append 校验并落库一条记录。
// session 范围必须带会话标识，endpoint 范围必须带接口地址；
// 正文与附件不能同时为空；接口地址在落库前统一规范化。
func (s *ConversationService) Append(userID uint, in RecordInput) (*model.ConversationRecord, error) {
	if !in.Scope.Valid() {
		return nil, util.ErrInvalidScope
	}

	if in.Scope == model.ScopeSession && strings.TrimSpace(in.SessionID) == "" {
		return nil, util.ErrSessionRequired
	}
	if in.Scope == model.ScopeEndpoint && strings.TrimSpace(in.APILink) == "" {
		return nil, util.ErrEndpointRequired
	}
	if strings.TrimSpace(in.Prompt) == "" && len(in.Files) == 0 {
		return nil, util.ErrEmptySubmission
	}

	rec := &model.ConversationRecord{
		UserID:    userID,
		Scope:     in.Scope,
		SessionID: in.SessionID,
		Prompt:    in.Prompt,
		Response:  in.Response,
		APILink:   util.CleanEndpoint(in.APILink),
		Files:     in.Files,
	}
	if err := s.Store.Insert(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// SessionTranscript 单个会话的完整对话，按时间正序
func (s *ConversationService) SessionTranscript(userID uint, sessionID string) ([]model.ConversationRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, util.ErrSessionRequired
	}
	return s.Store.FindSessionTranscript(userID, sessionID)
}

// EndpointTranscript 某个机器人接口下的完整对话，按时间正序。
// 查询前同样做地址规范化，保证与落库时的键一致。
func (s *ConversationService) EndpointTranscript(userID uint, apiLink string) ([]model.ConversationRecord, error) {
	if strings.TrimSpace(apiLink) == "" {
		return nil, util.ErrEndpointRequired
	}
	return s.Store.Find(repository.Query{
		UserID:    userID,
		Scope:     model.ScopeEndpoint,
		APILink:   util.CleanEndpoint(apiLink),
		Ascending: true,
	})
}

// SessionFeed 会话范围的记录总览，按时间倒序，可限制条数
func (s *ConversationService) SessionFeed(userID uint, limit int) ([]model.ConversationRecord, error) {
	return s.Store.Find(repository.Query{
		UserID: userID,
		Scope:  model.ScopeSession,
		Limit:  limit,
	})
}

// SidebarRecords 侧栏镜像记录，按时间正序，用于机器人分组
func (s *ConversationService) SidebarRecords(userID uint) ([]model.ConversationRecord, error) {
	return s.Store.Find(repository.Query{
		UserID:    userID,
		Scope:     model.ScopeSidebar,
		Ascending: true,
	})
}
