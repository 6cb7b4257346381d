package controller

import (
	"botforge_backend/internal/service"
	"botforge_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	SessionService *service.SessionService
}

func NewSessionController(sessionService *service.SessionService) *SessionController {
	return &SessionController{SessionService: sessionService}
}

// Current godoc
// @Summary 解析当前会话标识
// @Description 请求携带的 sessionId 优先被采纳；否则返回已保存的标识；都没有则新生成
// @Tags 会话
// @Produce  json
// @Security BearerAuth
// @Param   sessionId query string false "要恢复的会话标识"
// @Success 200 {object} util.Response{data=object} "当前会话标识"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/sessions/current [get]
func (c *SessionController) Current(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	sessionID := c.SessionService.Current(ctx.Request.Context(), claims.UserID, ctx.Query("sessionId"))
	util.Success(ctx, gin.H{"sessionId": sessionID})
}

// Rotate godoc
// @Summary 开启新会话
// @Description 生成并保存一个新的会话标识（New Chat）
// @Tags 会话
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object} "新会话标识"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/sessions/rotate [post]
func (c *SessionController) Rotate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	sessionID := c.SessionService.Rotate(ctx.Request.Context(), claims.UserID)
	util.Success(ctx, gin.H{"sessionId": sessionID})
}
