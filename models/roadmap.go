package models

import "time"

// Roadmap 路线图记录（只读视图）
type Roadmap struct {
	RoadmapID   string    `json:"roadmap_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Tags        string    `json:"tags"` // 逗号分隔的自由文本
	CoverImage  *string   `json:"cover_image"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoadmapStatistics 路线图统计数据，由持久层维护，核心逻辑只读
type RoadmapStatistics struct {
	RoadmapID         string  `json:"-"`
	CompletionCount   int     `json:"completion_count"`
	DropoutCount      int     `json:"dropout_count"`
	AvgHoursSpent     float64 `json:"avg_hours_spent"`
	AvgNodesCompleted float64 `json:"avg_nodes_completed"`
	BookmarkCount     int     `json:"bookmark_count"`
	UsefulnessScore   float64 `json:"usefulness_score"` // 0-5
}

// RoadmapWithStats 路线图及其统计数据；Statistics 为 nil 表示没有统计记录
type RoadmapWithStats struct {
	Roadmap
	Statistics *RoadmapStatistics `json:"statistics"`
}

// QualityScoreResult 单次排名请求中生成的质量评分结果，不持久化
type QualityScoreResult struct {
	RoadmapID       string  `json:"roadmap_id"`
	Name            string  `json:"name"`
	Tags            string  `json:"tags"`
	CoverImage      *string `json:"cover_image"`
	QualityScore    float64 `json:"quality_score"`
	CompletionRate  float64 `json:"completion_rate"`
	UsefulnessScore float64 `json:"usefulness_score"`
}

// RoadmapDetails 补充到单个推荐结果上的持久化信息
type RoadmapDetails struct {
	Description *string `json:"description"`
	CoverImage  *string `json:"cover_image"`
	CreatedAt   string  `json:"created_at"`
}
