package models

import (
	"github.com/goccy/go-json"
)

// RecommendationResult 外部推荐进程返回的单个推荐结果。
// 解码时保留进程输出的全部字段，编码时原样输出并追加补充信息。
type RecommendationResult struct {
	RoadmapID       string  `json:"roadmap_id"`
	Name            string  `json:"name"`
	Tags            string  `json:"tags"`
	QualityScore    float64 `json:"quality_score"`
	CompletionRate  float64 `json:"completion_rate"`
	UsefulnessScore float64 `json:"usefulness_score"`
	EfficiencyRate  float64 `json:"efficiency_rate"`
	DropoutRate     float64 `json:"dropout_rate"`
	EngagementScore float64 `json:"engagement_score"`

	CompletionCount   int     `json:"completion_count"`
	BookmarkCount     int     `json:"bookmark_count"`
	AvgHoursSpent     float64 `json:"avg_hours_spent"`
	AvgNodesCompleted float64 `json:"avg_nodes_completed"`

	Similarity      float64 `json:"similarity"`
	Confidence      float64 `json:"confidence"`
	TotalCandidates int     `json:"total_candidates"`
	MLModelUsed     bool    `json:"ml_model_used"`
	ModelType       string  `json:"model_type"`
	Architecture    string  `json:"architecture"`
	Activation      string  `json:"activation"`
	Optimizer       string  `json:"optimizer"`

	RoadmapDetails *RoadmapDetails `json:"roadmap_details,omitempty"`
	Enrichment     *Enrichment     `json:"-"`

	raw map[string]json.RawMessage
}

// Enrichment 个性化推荐条目上补充的描述和封面
type Enrichment struct {
	Description *string
	CoverImage  *string
}

func (r *RecommendationResult) UnmarshalJSON(data []byte) error {
	type alias RecommendationResult
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = RecommendationResult(a)
	r.raw = raw
	return nil
}

func (r RecommendationResult) MarshalJSON() ([]byte, error) {
	fields := r.raw
	if fields == nil {
		// 非解码得到的结果（本地构造），按结构体字段输出
		type alias RecommendationResult
		b, err := json.Marshal(alias(r))
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
	}

	out := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		out[k] = v
	}
	if r.RoadmapDetails != nil {
		out["roadmap_details"] = r.RoadmapDetails
	}
	if r.Enrichment != nil {
		out["description"] = r.Enrichment.Description
		out["cover_image"] = r.Enrichment.CoverImage
	}
	return json.Marshal(out)
}

// Field 返回进程输出中的原始字段
func (r *RecommendationResult) Field(key string) (json.RawMessage, bool) {
	v, ok := r.raw[key]
	return v, ok
}

// PersonalizedRecommendationSet 个性化推荐结果：similar 为与已完成路线图相似的推荐，new 为探索性推荐
type PersonalizedRecommendationSet struct {
	Similar            []RecommendationResult `json:"similar"`
	New                []RecommendationResult `json:"new"`
	UserHasCompleted   int                    `json:"user_has_completed"`
	UserNodesCompleted int                    `json:"user_nodes_completed"`
	UserTagsCount      int                    `json:"user_tags_count"`
	TotalAvailable     int                    `json:"total_available"`
	ModelType          string                 `json:"model_type,omitempty"`
	Personalized       bool                   `json:"personalized"`
}

// PersonalizationProfile 传给个性化推荐进程的用户画像（请求信封）
type PersonalizationProfile struct {
	RequestID              string   `json:"request_id,omitempty"`
	CompletedRoadmaps      []string `json:"completed_roadmaps"`
	CompletedNodes         []string `json:"completed_nodes"`
	TotalRoadmapsCompleted int      `json:"total_roadmaps_completed"`
	TotalNodesCompleted    int      `json:"total_nodes_completed"`
}

// LikedCount 返回用户点赞过的路线图数量
func (p PersonalizationProfile) LikedCount() int {
	return len(p.CompletedRoadmaps)
}
