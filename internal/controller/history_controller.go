package controller

import (
	"botforge_backend/internal/service"
	"botforge_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type HistoryController struct {
	HistoryService *service.HistoryService
}

func NewHistoryController(historyService *service.HistoryService) *HistoryController {
	return &HistoryController{HistoryService: historyService}
}

// Sessions godoc
// @Summary 会话分组历史
// @Description 按会话聚合的历史总览，分组按最早记录时间倒序，默认取最近 10 条记录
// @Tags 历史
// @Produce  json
// @Security BearerAuth
// @Param   limit query int false "记录条数上限（加载更多时递增 10）"
// @Success 200 {object} util.Response{data=[]service.SessionGroup} "会话分组"
// @Failure 401 {object} util.Response "未授权"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/history/sessions [get]
func (c *HistoryController) Sessions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))
	groups, err := c.HistoryService.SessionGroups(claims.UserID, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, groups)
}

// Bots godoc
// @Summary 机器人分组索引
// @Description 按机器人接口聚合的侧栏索引，标签取该机器人的首条提问
// @Tags 历史
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.BotGroup} "机器人分组"
// @Failure 401 {object} util.Response "未授权"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/history/bots [get]
func (c *HistoryController) Bots(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	groups, err := c.HistoryService.BotGroups(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, groups)
}

// Transcript godoc
// @Summary 对话回放
// @Description 把某个机器人接口下的记录展开为逐条消息（user / bot 交替），按时间正序
// @Tags 历史
// @Produce  json
// @Security BearerAuth
// @Param   apiEndpoint query string true "机器人接口地址"
// @Success 200 {object} util.Response{data=[]model.TranscriptMessage} "对话消息"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "未授权"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/history/transcript [get]
func (c *HistoryController) Transcript(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	messages, err := c.HistoryService.Transcript(claims.UserID, ctx.Query("apiEndpoint"))
	if err != nil {
		if isValidationError(err) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, messages)
}
