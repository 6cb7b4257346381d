package service

import (
	"botforge_backend/internal/config"
	"botforge_backend/internal/model"
	"botforge_backend/internal/util"
	"botforge_backend/pkg/logger"
	"botforge_backend/pkg/monitoring"
	"botforge_backend/pkg/tracing"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// WorkflowState 机器人创建工作流所处的阶段
type WorkflowState string

const (
	StateAuthenticating WorkflowState = "authenticating"
	StateCreatingBot    WorkflowState = "creating_bot"
	StateUploadingFiles WorkflowState = "uploading_files"
	StatePersisting     WorkflowState = "persisting"
	StateDone           WorkflowState = "done"
	StateFailed         WorkflowState = "failed"
)

// UpstreamError 工厂后端返回的失败，向外映射为 502
type UpstreamError struct {
	Step    string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("factory %s failed (status %d): %s", e.Step, e.Status, e.Message)
}

var stepMessages = map[string]string{
	"login":          "Login failed",
	"create_chatbot": "Chatbot creation failed",
	"upload_files":   "File upload failed",
	"chat":           "Chat failed",
}

// Human 给调用方看的失败文案
func (e *UpstreamError) Human() string {
	msg := stepMessages[e.Step]
	if msg == "" {
		msg = "Upstream request failed"
	}
	if e.Message != "" {
		return msg + ": " + e.Message
	}
	return msg
}

// 网络层错误同样归为上游失败
func wrapUpstream(step string, err error) error {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Step: step, Message: err.Error()}
}

// 工厂后端统一响应包络
type factoryEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Data    json.RawMessage `json:"data"`
}

type factoryChatbot struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	APIEndpoint string `json:"apiEndpoint"`
}

type factoryCreateData struct {
	Chatbot  factoryChatbot `json:"chatbot"`
	Response string         `json:"response"`
}

type factoryChatData struct {
	Response string `json:"response"`
}

// FactoryService 驱动远端机器人工厂的完整创建工作流：
// 登录取票、创建机器人、上传附件、落库留痕。
// 工厂凭据来自服务端配置，永远不由请求方提供。
type FactoryService struct {
	Cfg           config.FactoryConfig
	Conversations *ConversationService
	Storage       *StorageService
	Client        *http.Client
}

func NewFactoryService(cfg config.FactoryConfig, conversations *ConversationService, storage *StorageService) *FactoryService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FactoryService{
		Cfg:           cfg,
		Conversations: conversations,
		Storage:       storage,
		Client:        &http.Client{Timeout: timeout},
	}
}

// CreateBotInput 一次机器人创建提交
type CreateBotInput struct {
	SessionID   string
	Message     string
	Mode        string
	Attachments []Attachment
}

// CreateBotResult 创建成功后的产物
type CreateBotResult struct {
	BotID       string                    `json:"botId"`
	APIEndpoint string                    `json:"apiEndpoint"`
	Response    string                    `json:"response"`
	Record      *model.ConversationRecord `json:"record"`
}

var validModes = map[string]bool{
	"":            true,
	"default":     true,
	"precision":   true,
	"exploration": true,
}

// CreateChatbot 执行完整的创建工作流。
// 阶段严格顺序推进，任何一步失败整个工作流终止于 failed，
// 已产生的远端副作用（已创建的机器人）不回滚。
func (s *FactoryService) CreateChatbot(ctx context.Context, userID uint, in CreateBotInput) (*CreateBotResult, error) {
	if strings.TrimSpace(in.Message) == "" && len(in.Attachments) == 0 {
		return nil, util.ErrEmptySubmission
	}
	if !validModes[in.Mode] {
		return nil, util.ErrInvalidMode
	}
	if strings.TrimSpace(in.SessionID) == "" {
		return nil, util.ErrSessionRequired
	}
	for _, att := range in.Attachments {
		if _, err := util.DetectAttachmentType(att.Name, att.Data); err != nil {
			return nil, err
		}
	}

	// 提示词携带当前会话的既往历史
	history, err := s.Conversations.SessionTranscript(userID, in.SessionID)
	if err != nil {
		return nil, err
	}

	fileNames := make([]string, 0, len(in.Attachments))
	for _, att := range in.Attachments {
		fileNames = append(fileNames, att.Name)
	}
	prompt := BuildCreationPrompt(history, in.Message, fileNames)

	recordPrompt := in.Message
	if recordPrompt == "" {
		recordPrompt = fileUploadPrompt
	}

	state := StateAuthenticating
	fail := func(err error) (*CreateBotResult, error) {
		monitoring.WorkflowCounter.WithLabelValues(string(StateFailed)).Inc()
		logger.Log.Error("Chatbot workflow failed",
			zap.String("state", string(state)),
			zap.Uint("userID", userID),
			zap.Error(err))
		// 失败的轮次同样留痕，回答记为错误文本。留痕失败只告警
		if _, perr := s.Conversations.Append(userID, RecordInput{
			Scope:     model.ScopeSession,
			SessionID: in.SessionID,
			Prompt:    recordPrompt,
			Response:  fmt.Sprintf("Error: %s", upstreamMessage(err)),
			Files:     fileNames,
		}); perr != nil {
			logger.Log.Warn("Failed to record failed workflow turn", zap.Error(perr))
		}
		return nil, err
	}

	token, err := s.login(ctx)
	if err != nil {
		return fail(err)
	}

	state = StateCreatingBot
	botName := fmt.Sprintf("Chatbot-%d", time.Now().UnixMilli())
	bot, response, err := s.createChatbot(ctx, token, botName, prompt, in.Mode)
	if err != nil {
		return fail(err)
	}

	// 工厂返回的是相对自身 /api/v1 的路径，去掉前缀再拼到基地址上
	apiEndpoint := s.Cfg.BaseURL + util.TrimEndpointPath(bot.APIEndpoint)

	if len(in.Attachments) > 0 {
		state = StateUploadingFiles
		if err := s.uploadFiles(ctx, token, bot.ID, in.Attachments); err != nil {
			return fail(err)
		}
		s.Storage.ArchiveAttachments(ctx, in.SessionID, in.Attachments)
	}

	state = StatePersisting
	rec, err := s.Conversations.Append(userID, RecordInput{
		Scope:     model.ScopeSession,
		SessionID: in.SessionID,
		Prompt:    recordPrompt,
		Response:  response,
		APILink:   apiEndpoint,
		Files:     fileNames,
	})
	if err != nil {
		return fail(err)
	}

	// 侧栏镜像：同一轮问答再记一条 sidebar 范围的副本，
	// 供按机器人分组的总览使用。镜像失败不终止工作流。
	if _, err := s.Conversations.Append(userID, RecordInput{
		Scope:     model.ScopeSidebar,
		SessionID: in.SessionID,
		Prompt:    recordPrompt,
		Response:  response,
		APILink:   apiEndpoint,
		Files:     fileNames,
	}); err != nil {
		logger.Log.Warn("Failed to mirror sidebar record", zap.Error(err))
	}

	monitoring.WorkflowCounter.WithLabelValues(string(StateDone)).Inc()
	logger.Log.Info("Chatbot created",
		zap.Uint("userID", userID),
		zap.String("botId", bot.ID),
		zap.String("endpoint", apiEndpoint))

	return &CreateBotResult{
		BotID:       bot.ID,
		APIEndpoint: apiEndpoint,
		Response:    response,
		Record:      rec,
	}, nil
}

// ChatInput 与既有机器人的一轮对话
type ChatInput struct {
	APILink string
	Message string
}

// Chat 把消息转发给机器人接口并把问答落库（endpoint 范围）。
// 上游失败同样落库，回答记为错误文本，调用方据此仍可回放失败的轮次。
func (s *FactoryService) Chat(ctx context.Context, userID uint, in ChatInput) (*model.ConversationRecord, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, util.ErrEmptySubmission
	}
	if strings.TrimSpace(in.APILink) == "" {
		return nil, util.ErrEndpointRequired
	}

	apiLink := util.CleanEndpoint(in.APILink)

	response, chatErr := s.sendMessage(ctx, apiLink, in.Message)
	if chatErr != nil {
		response = fmt.Sprintf("Error: %s", upstreamMessage(chatErr))
	}

	rec, err := s.Conversations.Append(userID, RecordInput{
		Scope:    model.ScopeEndpoint,
		Prompt:   in.Message,
		Response: response,
		APILink:  apiLink,
	})
	if err != nil {
		return nil, err
	}
	if chatErr != nil {
		return rec, chatErr
	}
	return rec, nil
}

func upstreamMessage(err error) string {
	if ue, ok := err.(*UpstreamError); ok {
		return ue.Message
	}
	return err.Error()
}

func (s *FactoryService) login(ctx context.Context) (string, error) {
	ctx, span := tracing.Tracer.Start(ctx, "factory.login")
	defer span.End()
	timer := time.Now()
	defer func() {
		monitoring.UpstreamDuration.WithLabelValues("login").Observe(time.Since(timer).Seconds())
	}()

	body, _ := json.Marshal(map[string]string{
		"email":    s.Cfg.Email,
		"password": s.Cfg.Password,
	})

	env, status, err := s.postJSON(ctx, s.Cfg.BaseURL+"/users/login", "", body)
	if err != nil {
		return "", wrapUpstream("login", err)
	}
	if status != http.StatusOK || env.Status != "success" || env.Token == "" {
		return "", &UpstreamError{Step: "login", Status: status, Message: env.Message}
	}
	return env.Token, nil
}

func (s *FactoryService) createChatbot(ctx context.Context, token, name, prompt, mode string) (*factoryChatbot, string, error) {
	ctx, span := tracing.Tracer.Start(ctx, "factory.create_chatbot")
	defer span.End()
	timer := time.Now()
	defer func() {
		monitoring.UpstreamDuration.WithLabelValues("create_chatbot").Observe(time.Since(timer).Seconds())
	}()

	payload := map[string]string{
		"name":   name,
		"prompt": prompt,
	}
	if mode != "" {
		payload["mode"] = mode
	}
	body, _ := json.Marshal(payload)

	env, status, err := s.postJSON(ctx, s.Cfg.BaseURL+"/chatbots", token, body)
	if err != nil {
		return nil, "", wrapUpstream("create_chatbot", err)
	}
	if env.Status != "success" {
		return nil, "", &UpstreamError{Step: "create_chatbot", Status: status, Message: env.Message}
	}

	var data factoryCreateData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, "", &UpstreamError{Step: "create_chatbot", Status: status, Message: "malformed response payload"}
	}
	if data.Chatbot.APIEndpoint == "" {
		return nil, "", &UpstreamError{Step: "create_chatbot", Status: status, Message: "chatbot API endpoint is missing"}
	}
	return &data.Chatbot, data.Response, nil
}

func (s *FactoryService) uploadFiles(ctx context.Context, token, botID string, attachments []Attachment) error {
	ctx, span := tracing.Tracer.Start(ctx, "factory.upload_files")
	defer span.End()
	timer := time.Now()
	defer func() {
		monitoring.UpstreamDuration.WithLabelValues("upload_files").Observe(time.Since(timer).Seconds())
	}()

	// 所有附件放进同一个 multipart 请求，字段名固定为 file
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, att := range attachments {
		part, err := w.CreateFormFile("file", att.Name)
		if err != nil {
			return err
		}
		if _, err := part.Write(att.Data); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/chatbots/%s/upload", s.Cfg.BaseURL, botID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	env, status, err := s.do(req)
	if err != nil {
		return wrapUpstream("upload_files", err)
	}
	if env.Status != "success" {
		return &UpstreamError{Step: "upload_files", Status: status, Message: env.Message}
	}
	return nil
}

func (s *FactoryService) sendMessage(ctx context.Context, apiLink, message string) (string, error) {
	ctx, span := tracing.Tracer.Start(ctx, "factory.chat")
	defer span.End()
	timer := time.Now()
	defer func() {
		monitoring.UpstreamDuration.WithLabelValues("chat").Observe(time.Since(timer).Seconds())
	}()

	body, _ := json.Marshal(map[string]string{"message": message})

	env, status, err := s.postJSON(ctx, apiLink, "", body)
	if err != nil {
		return "", wrapUpstream("chat", err)
	}
	if env.Status != "success" {
		msg := env.Message
		if msg == "" {
			msg = "Chat failed"
		}
		return "", &UpstreamError{Step: "chat", Status: status, Message: msg}
	}

	var data factoryChatData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", &UpstreamError{Step: "chat", Status: status, Message: "malformed response payload"}
	}
	return data.Response, nil
}

func (s *FactoryService) postJSON(ctx context.Context, url, token string, body []byte) (*factoryEnvelope, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(req)
}

func (s *FactoryService) do(req *http.Request) (*factoryEnvelope, int, error) {
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var env factoryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("factory returned non-JSON response (status %d)", resp.StatusCode)
	}
	return &env, resp.StatusCode, nil
}
