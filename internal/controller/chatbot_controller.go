package controller

import (
	"botforge_backend/internal/service"
	"botforge_backend/internal/util"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
)

// 单个附件大小上限 10MB
const maxAttachmentSize = 10 << 20

type ChatbotController struct {
	FactoryService *service.FactoryService
	SessionService *service.SessionService
}

func NewChatbotController(factoryService *service.FactoryService, sessionService *service.SessionService) *ChatbotController {
	return &ChatbotController{
		FactoryService: factoryService,
		SessionService: sessionService,
	}
}

// Create godoc
// @Summary 创建聊天机器人
// @Description 执行完整创建工作流：登录工厂后端、创建机器人、上传附件、写入历史。附件仅接受 PDF / TXT
// @Tags 机器人
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   message formData string false "本次提交的消息"
// @Param   mode formData string false "机器人模式" Enums(default, precision, exploration)
// @Param   sessionId formData string false "会话标识，缺省时取当前会话"
// @Param   file formData file false "附件（可多个）"
// @Success 201 {object} util.Response{data=service.CreateBotResult} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "未授权"
// @Failure 502 {object} util.Response "工厂后端失败"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/chatbots [post]
func (c *ChatbotController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	message := ctx.PostForm("message")
	mode := ctx.PostForm("mode")
	sessionID := ctx.PostForm("sessionId")
	if sessionID == "" {
		sessionID = c.SessionService.Current(ctx.Request.Context(), claims.UserID, "")
	}

	var attachments []service.Attachment
	for _, fh := range form.File["file"] {
		if fh.Size > maxAttachmentSize {
			util.BadRequest(ctx, "file too large: "+fh.Filename)
			return
		}

		f, err := fh.Open()
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}

		contentType, err := util.DetectAttachmentType(fh.Filename, data)
		if err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}

		attachments = append(attachments, service.Attachment{
			Name:        fh.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}

	result, err := c.FactoryService.CreateChatbot(ctx.Request.Context(), claims.UserID, service.CreateBotInput{
		SessionID:   sessionID,
		Message:     message,
		Mode:        mode,
		Attachments: attachments,
	})
	if err != nil {
		respondFactoryError(ctx, err)
		return
	}

	util.Created(ctx, result)
}

// ChatRequest 与既有机器人的一轮对话请求
type ChatRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

// Chat godoc
// @Summary 与机器人对话
// @Description 把消息转发给机器人接口并记录问答，上游失败的轮次同样会被记录
// @Tags 机器人
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body ChatRequest true "对话内容"
// @Success 200 {object} util.Response{data=model.ConversationRecord} "机器人回答"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "未授权"
// @Failure 502 {object} util.Response "机器人接口失败"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/chatbots/chat [post]
func (c *ChatbotController) Chat(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	rec, err := c.FactoryService.Chat(ctx.Request.Context(), claims.UserID, service.ChatInput{
		APILink: req.Endpoint,
		Message: req.Message,
	})
	if err != nil {
		respondFactoryError(ctx, err)
		return
	}

	util.Success(ctx, rec)
}

// 工厂相关错误统一映射：输入问题 400，上游失败 502，其余 500
func respondFactoryError(ctx *gin.Context, err error) {
	var ue *service.UpstreamError
	switch {
	case isValidationError(err):
		util.BadRequest(ctx, err.Error())
	case errors.As(err, &ue):
		util.BadGateway(ctx, ue.Human())
	default:
		util.LogInternalError(ctx, err)
	}
}
