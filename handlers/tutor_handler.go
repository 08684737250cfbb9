package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"roadmap_tutor/models"
	"roadmap_tutor/utils"
)

// TutorAPI 推荐流程
type TutorAPI interface {
	Analyze(ctx context.Context, userID, tag string) (*models.AnalyzeResponse, error)
	Personalized(ctx context.Context, userID, tag string) (*models.PersonalizedResponse, error)
	TopByTag(ctx context.Context, tag string, limit int) (*models.TopRoadmapsResponse, error)
	PopularTags(ctx context.Context) ([]string, error)
}

// TutorHandler /api/tutor 路由
type TutorHandler struct {
	svc TutorAPI
}

func NewTutorHandler(svc TutorAPI) *TutorHandler {
	return &TutorHandler{svc: svc}
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// decodeBody 解析 JSON 请求体；空请求体视为 {}
func decodeBody(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Analyze godoc
// @Summary 分析标签并推荐路线图
// @Description 刷新数据集后调用推荐模型，为标签推荐最合适的路线图；用户有点赞记录时附带个性化推荐
// @Tags 推荐
// @Accept json
// @Produce json
// @Param request body models.AnalyzeRequest true "标签"
// @Success 200 {object} models.AnalyzeResponse "成功"
// @Failure 400 {object} models.DomainErrorResponse "推荐业务错误"
// @Failure 401 {object} models.ErrorResponse "未识别用户"
// @Failure 422 {object} models.ErrorResponse "参数错误"
// @Failure 500 {object} models.ErrorResponse "数据集生成失败"
// @Failure 502 {object} models.ErrorResponse "推荐进程失败"
// @Failure 503 {object} models.ErrorResponse "推荐进程不可用"
// @Failure 504 {object} models.ErrorResponse "推荐进程超时"
// @Router /api/tutor/analyze [post]
func (h *TutorHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, validationMessage(err))
		return
	}

	resp, err := h.svc.Analyze(r.Context(), UserIDFromContext(r.Context()), req.Tag)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, resp)
}

// Personalized godoc
// @Summary 个性化推荐
// @Description 基于用户点赞和已完成节点的推荐，tag 可选
// @Tags 推荐
// @Accept json
// @Produce json
// @Param request body models.PersonalizedRequest false "可选标签"
// @Success 200 {object} models.PersonalizedResponse "成功"
// @Failure 400 {object} models.DomainErrorResponse "推荐业务错误"
// @Failure 401 {object} models.ErrorResponse "未识别用户"
// @Failure 422 {object} models.ErrorResponse "参数错误"
// @Failure 500 {object} models.ErrorResponse "服务器错误"
// @Router /api/tutor/personalized [post]
func (h *TutorHandler) Personalized(w http.ResponseWriter, r *http.Request) {
	var req models.PersonalizedRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, validationMessage(err))
		return
	}

	resp, err := h.svc.Personalized(r.Context(), UserIDFromContext(r.Context()), req.Tag)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, resp)
}

// TopByTag godoc
// @Summary 按标签的质量排名
// @Description 标签不区分大小写按子串匹配；limit 默认 5，范围 1-10
// @Tags 推荐
// @Produce json
// @Param tag path string true "标签"
// @Param limit query int false "返回数量"
// @Success 200 {object} models.TopRoadmapsResponse "成功"
// @Failure 422 {object} models.ErrorResponse "参数错误"
// @Failure 500 {object} models.ErrorResponse "服务器错误"
// @Router /api/tutor/top/{tag} [get]
func (h *TutorHandler) TopByTag(w http.ResponseWriter, r *http.Request) {
	params := models.TopByTagParams{Tag: chi.URLParam(r, "tag")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeValidationError(w, "limit must be an integer")
			return
		}
		params.Limit = limit
	}
	if err := validate.Var(params.Tag, "required,min=2,max=50"); err != nil {
		writeValidationError(w, "tag must be between 2 and 50 characters")
		return
	}

	resp, err := h.svc.TopByTag(r.Context(), params.Tag, params.Limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, resp)
}

// PopularTags godoc
// @Summary 热门标签
// @Description 出现次数最多的 20 个标签，用于输入提示
// @Tags 推荐
// @Produce json
// @Success 200 {object} models.PopularTagsResponse "成功"
// @Failure 500 {object} models.ErrorResponse "服务器错误"
// @Router /api/tutor/tags/popular [get]
func (h *TutorHandler) PopularTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.PopularTags(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, models.PopularTagsResponse{Tags: tags})
}
