package controller

import (
	"botforge_backend/internal/model"
	"botforge_backend/internal/service"
	"botforge_backend/internal/util"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ConversationController struct {
	ConversationService *service.ConversationService
}

func NewConversationController(conversationService *service.ConversationService) *ConversationController {
	return &ConversationController{ConversationService: conversationService}
}

// 路径参数 variant → 记录范围
func scopeFromVariant(variant string) (model.ScopeKind, bool) {
	scope := model.ScopeKind(variant)
	return scope, scope.Valid()
}

// AppendRequest 追加一条会话记录的请求体
type AppendRequest struct {
	SessionID string   `json:"sessionId"`
	Prompt    string   `json:"prompt"`
	Response  string   `json:"response"`
	APILink   string   `json:"apiLink"`
	Files     []string `json:"files"`
}

// Append godoc
// @Summary 追加会话记录
// @Description 向指定范围（session / endpoint / sidebar）追加一条问答记录
// @Tags 会话记录
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   variant path string true "记录范围" Enums(session, endpoint, sidebar)
// @Param   body body AppendRequest true "记录内容"
// @Success 201 {object} util.Response{data=model.ConversationRecord} "已写入"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "未授权"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/conversations/{variant} [post]
func (c *ConversationController) Append(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	scope, ok := scopeFromVariant(ctx.Param("variant"))
	if !ok {
		util.BadRequest(ctx, util.ErrInvalidScope.Error())
		return
	}

	var req AppendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	rec, err := c.ConversationService.Append(claims.UserID, service.RecordInput{
		Scope:     scope,
		SessionID: req.SessionID,
		Prompt:    req.Prompt,
		Response:  req.Response,
		APILink:   req.APILink,
		Files:     req.Files,
	})
	if err != nil {
		if isValidationError(err) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, rec)
}

// List godoc
// @Summary 查询会话记录
// @Description session 范围带 sessionId 返回该会话正序对话，不带则返回倒序总览；endpoint 范围按 apiEndpoint 查询；sidebar 返回全部镜像记录
// @Tags 会话记录
// @Produce  json
// @Security BearerAuth
// @Param   variant path string true "记录范围" Enums(session, endpoint, sidebar)
// @Param   sessionId query string false "会话标识（session 范围）"
// @Param   apiEndpoint query string false "机器人接口地址（endpoint 范围）"
// @Param   limit query int false "总览条数上限"
// @Success 200 {object} util.Response{data=[]model.ConversationRecord} "记录列表"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "未授权"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/conversations/{variant} [get]
func (c *ConversationController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	scope, ok := scopeFromVariant(ctx.Param("variant"))
	if !ok {
		util.BadRequest(ctx, util.ErrInvalidScope.Error())
		return
	}

	var (
		records []model.ConversationRecord
		err     error
	)

	switch scope {
	case model.ScopeSession:
		if sessionID := ctx.Query("sessionId"); sessionID != "" {
			records, err = c.ConversationService.SessionTranscript(claims.UserID, sessionID)
		} else {
			limit, _ := strconv.Atoi(ctx.Query("limit"))
			records, err = c.ConversationService.SessionFeed(claims.UserID, service.NormalizeFeedLimit(limit))
		}
	case model.ScopeEndpoint:
		records, err = c.ConversationService.EndpointTranscript(claims.UserID, ctx.Query("apiEndpoint"))
	case model.ScopeSidebar:
		records, err = c.ConversationService.SidebarRecords(claims.UserID)
	}

	if err != nil {
		if isValidationError(err) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, records)
}

// 属于调用方输入问题的错误，一律 400
func isValidationError(err error) bool {
	return errors.Is(err, util.ErrInvalidScope) ||
		errors.Is(err, util.ErrSessionRequired) ||
		errors.Is(err, util.ErrEndpointRequired) ||
		errors.Is(err, util.ErrEmptySubmission) ||
		errors.Is(err, util.ErrInvalidMode) ||
		errors.Is(err, util.ErrInvalidFileType)
}
