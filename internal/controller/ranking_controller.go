package controller

import (
	"errors"
	"ranking_engine/internal/service"
	"ranking_engine/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// RefreshTrigger 手动触发刷新
type RefreshTrigger interface {
	TriggerNow() (string, error)
}

type RankingController struct {
	SessionService     *service.SessionService
	LeaderboardService *service.LeaderboardService
	StreakService      *service.StreakService
	Trigger            RefreshTrigger
}

func NewRankingController(
	sessionService *service.SessionService,
	leaderboardService *service.LeaderboardService,
	streakService *service.StreakService,
	trigger RefreshTrigger,
) *RankingController {
	return &RankingController{
		SessionService:     sessionService,
		LeaderboardService: leaderboardService,
		StreakService:      streakService,
		Trigger:            trigger,
	}
}

// @Summary 记录练习完成事件
// @Description 计算本次表现分，连续练习与得分汇总在后台更新
// @Tags 排行榜
// @Accept json
// @Produce json
// @Param session body service.SessionInput true "练习结果"
// @Success 200 {object} util.Response{data=service.SessionResult}
// @Failure 400 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /ranking/session [post]
func (c *RankingController) RecordSession(ctx *gin.Context) {
	var req service.SessionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.SessionService.RecordSession(ctx.Request.Context(), req)
	switch {
	case err == nil:
		util.Success(ctx, result)
	case errors.Is(err, util.ErrValidation):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrQueueFull):
		util.ServiceUnavailable(ctx, "Session queue is full, please retry later")
	default:
		util.LogInternalError(ctx, err)
	}
}

// @Summary 手动刷新排行榜
// @Description 将一次刷新放入后台队列，立即返回
// @Tags 排行榜
// @Produce json
// @Success 202 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /ranking/refresh [post]
func (c *RankingController) TriggerRefresh(ctx *gin.Context) {
	taskID, err := c.Trigger.TriggerNow()
	if err != nil {
		if errors.Is(err, util.ErrQueueFull) {
			util.ServiceUnavailable(ctx, "Background queue is full, please retry later")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Accepted(ctx, gin.H{
		"status": "triggered",
		"taskId": taskID,
	})
}

// @Summary 获取用户排名统计
// @Description 当日排行榜缓存与连续练习统计
// @Tags 排行榜
// @Produce json
// @Param user_id path string true "用户ID"
// @Success 200 {object} util.Response{data=model.UserStats}
// @Failure 404 {object} util.Response
// @Router /ranking/stats/{user_id} [get]
func (c *RankingController) GetStats(ctx *gin.Context) {
	stats, err := c.LeaderboardService.GetStats(ctx.Request.Context(), ctx.Param("user_id"))
	if err != nil {
		if errors.Is(err, util.ErrStatsNotFound) {
			util.NotFoundWithMessage(ctx, "User stats not found")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, stats)
}

// @Summary 获取排行榜
// @Description 分页读取当日排行榜，可按国家和活跃时间范围过滤
// @Tags 排行榜
// @Produce json
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Param country query string false "国家代码"
// @Param timeframe query string false "all, weekly, monthly" default(all)
// @Param user_id query string false "附带该用户的排名位置"
// @Success 200 {object} util.Response{data=service.LeaderboardPage}
// @Failure 400 {object} util.Response
// @Router /ranking/leaderboard [get]
func (c *RankingController) GetLeaderboard(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(util.DefaultPageSize)))

	result, err := c.LeaderboardService.GetLeaderboard(ctx.Request.Context(), service.LeaderboardQuery{
		Page:      page,
		Limit:     limit,
		Country:   ctx.Query("country"),
		Timeframe: ctx.DefaultQuery("timeframe", util.TimeframeAll),
		UserID:    ctx.Query("user_id"),
	})
	if err != nil {
		if errors.Is(err, util.ErrValidation) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 获取用户排名历史
// @Tags 排行榜
// @Produce json
// @Param user_id path string true "用户ID"
// @Param days query int false "天数" default(30)
// @Success 200 {object} util.Response
// @Router /ranking/history/{user_id} [get]
func (c *RankingController) GetHistory(ctx *gin.Context) {
	days, err := strconv.Atoi(ctx.DefaultQuery("days", "30"))
	if err != nil {
		util.BadRequest(ctx, "days must be an integer")
		return
	}

	history, err := c.LeaderboardService.GetHistory(ctx.Request.Context(), ctx.Param("user_id"), days)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"userId":  ctx.Param("user_id"),
		"history": history,
	})
}

// @Summary 获取用户成就
// @Tags 排行榜
// @Produce json
// @Param user_id path string true "用户ID"
// @Success 200 {object} util.Response
// @Router /ranking/achievements/{user_id} [get]
func (c *RankingController) GetAchievements(ctx *gin.Context) {
	achievements, err := c.StreakService.GetAchievements(ctx.Request.Context(), ctx.Param("user_id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"userId":       ctx.Param("user_id"),
		"achievements": achievements,
	})
}
