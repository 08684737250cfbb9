package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"roadmap_tutor/models"
	"roadmap_tutor/utils"
)

// AnalyticsAPI 路线图统计分析
type AnalyticsAPI interface {
	Overview(ctx context.Context) (models.AnalyticsOverview, error)
	Roadmap(ctx context.Context, id string) (*models.RoadmapAnalytics, error)
	Compare(ctx context.Context, ids []string) ([]models.RoadmapComparison, error)
	Topic(ctx context.Context, topic string) (*models.TopicAnalysis, error)
	Insights(ctx context.Context) (*models.Insights, error)
	TopRoadmaps(ctx context.Context, topic string, limit int) ([]models.TopRoadmap, error)
	Recommend(ctx context.Context, topic string, limit int) (*models.TopicRecommendations, error)
}

// AnalyticsHandler /api/analytics 路由
type AnalyticsHandler struct {
	svc AnalyticsAPI
}

func NewAnalyticsHandler(svc AnalyticsAPI) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Overview godoc
// @Summary 统计汇总
// @Tags 统计
// @Produce json
// @Success 200 {object} models.AnalyticsOverview "成功"
// @Router /api/analytics/overview [get]
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Overview(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, out)
}

// Roadmap godoc
// @Summary 单个路线图的统计
// @Tags 统计
// @Produce json
// @Param id path string true "路线图ID"
// @Success 200 {object} models.RoadmapAnalytics "成功"
// @Failure 404 {object} models.ErrorResponse "路线图不存在或没有统计数据"
// @Router /api/analytics/roadmaps/{id} [get]
func (h *AnalyticsHandler) Roadmap(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Roadmap(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, out)
}

// Compare godoc
// @Summary 对比路线图
// @Tags 统计
// @Accept json
// @Produce json
// @Param request body models.CompareRequest true "路线图ID列表"
// @Success 200 {array} models.RoadmapComparison "成功"
// @Failure 422 {object} models.ErrorResponse "参数错误"
// @Router /api/analytics/compare [post]
func (h *AnalyticsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, "roadmap_ids must contain between 1 and 50 ids")
		return
	}

	out, err := h.svc.Compare(r.Context(), req.RoadmapIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, out)
}

// Topic godoc
// @Summary 按主题分析
// @Tags 统计
// @Produce json
// @Param topic path string true "主题"
// @Success 200 {object} models.TopicAnalysis "成功"
// @Failure 404 {object} models.ErrorResponse "没有匹配的路线图"
// @Router /api/analytics/topics/{topic} [get]
func (h *AnalyticsHandler) Topic(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Topic(r.Context(), chi.URLParam(r, "topic"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, out)
}

// Insights godoc
// @Summary 主题趋势
// @Tags 统计
// @Produce json
// @Success 200 {object} models.Insights "成功"
// @Router /api/analytics/insights [get]
func (h *AnalyticsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Insights(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, out)
}

// queryLimit 解析 limit 查询参数，缺省时为 0（由服务层取默认值）
func queryLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	return limit, err == nil
}

// TopRoadmaps godoc
// @Summary 综合评分排名
// @Description 按完成率、有用度、效率和收藏数的综合评分排序，topic 可选；limit 默认 10，最大 50
// @Tags 统计
// @Produce json
// @Param topic query string false "主题"
// @Param limit query int false "返回数量"
// @Success 200 {array} models.TopRoadmap "成功"
// @Failure 422 {object} models.ErrorResponse "参数错误"
// @Router /api/analytics/top [get]
func (h *AnalyticsHandler) TopRoadmaps(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		writeValidationError(w, "limit must be an integer")
		return
	}

	out, err := h.svc.TopRoadmaps(r.Context(), strings.TrimSpace(r.URL.Query().Get("topic")), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, out)
}

// Recommend godoc
// @Summary 主题推荐
// @Description 主题下按推荐评分排序的路线图；limit 默认 5，最大 50
// @Tags 统计
// @Produce json
// @Param topic query string true "主题"
// @Param limit query int false "返回数量"
// @Success 200 {object} models.TopicRecommendations "成功"
// @Failure 422 {object} models.ErrorResponse "缺少主题"
// @Router /api/analytics/recommend [get]
func (h *AnalyticsHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		writeValidationError(w, "limit must be an integer")
		return
	}

	out, err := h.svc.Recommend(r.Context(), strings.TrimSpace(r.URL.Query().Get("topic")), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, out)
}
