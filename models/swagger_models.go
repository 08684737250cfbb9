package models

// AnalyzeRequest 分析请求体
type AnalyzeRequest struct {
	Tag string `json:"tag" validate:"required,min=2,max=50" example:"javascript"`
}

// PersonalizedRequest 个性化推荐请求体，tag 可选
type PersonalizedRequest struct {
	Tag string `json:"tag" validate:"omitempty,min=2,max=50" example:"python"`
}

// TopByTagParams 按标签查询排名的参数
type TopByTagParams struct {
	Tag   string `validate:"required,min=2,max=50"`
	Limit int    `validate:"min=0"`
}

// CompareRequest 路线图对比请求体
type CompareRequest struct {
	RoadmapIDs []string `json:"roadmap_ids" validate:"required,min=1,max=50,dive,required"`
}

// AnalyzeResponse 分析接口响应
type AnalyzeResponse struct {
	Success        bool                           `json:"success" example:"true"`
	Recommendation *RecommendationResult          `json:"recommendation"`
	Personalized   *PersonalizedRecommendationSet `json:"personalized"`
	UserLikedCount int                            `json:"user_liked_count" example:"3"`
	AnalyzedAt     string                         `json:"analyzed_at" example:"2025-11-18 10:30:00"`
}

// PersonalizedResponse 个性化推荐接口响应
type PersonalizedResponse struct {
	Success         bool                           `json:"success" example:"true"`
	Recommendations *PersonalizedRecommendationSet `json:"recommendations"`
	UserLikedCount  int                            `json:"user_liked_count" example:"3"`
	AnalyzedAt      string                         `json:"analyzed_at" example:"2025-11-18 10:30:00"`
}

// TopRoadmapsResponse 按标签排名接口响应，total 为返回列表的长度
type TopRoadmapsResponse struct {
	Roadmaps []QualityScoreResult `json:"roadmaps"`
	Total    int                  `json:"total" example:"5"`
}

// PopularTagsResponse 热门标签接口响应
type PopularTagsResponse struct {
	Tags []string `json:"tags"`
}
