package services

import (
	"context"

	"roadmap_tutor/models"
)

// RoadmapReader 路线图及统计数据的只读访问
type RoadmapReader interface {
	// 标签包含 tag 的路线图（不区分大小写），按 roadmap_id 排序
	FindByTag(ctx context.Context, tag string) ([]models.RoadmapWithStats, error)

	// 批量查询，不存在的 ID 不出现在结果中
	GetRoadmapsByIDs(ctx context.Context, ids []string) (map[string]models.Roadmap, error)

	// 不存在时返回 sql.ErrNoRows
	GetRoadmapWithStats(ctx context.Context, id string) (*models.RoadmapWithStats, error)

	// 所有带统计数据的路线图
	ListWithStatistics(ctx context.Context) ([]models.RoadmapWithStats, error)

	ListByIDs(ctx context.Context, ids []string) ([]models.RoadmapWithStats, error)
	AllTags(ctx context.Context) ([]string, error)
	Overview(ctx context.Context) (models.AnalyticsOverview, error)
	TopicStats(ctx context.Context) ([]models.TopicStat, error)
}

// ProfileReader 用户的点赞和学习进度
type ProfileReader interface {
	LikedRoadmapIDs(ctx context.Context, userID string) ([]string, error)
	CompletedNodeIDs(ctx context.Context, userID string) ([]string, error)
}

// DatasetProvider 为推荐进程准备数据集，返回快照路径
type DatasetProvider interface {
	// 每次都重新导出
	Refresh(ctx context.Context) (string, error)

	// 已有快照时复用
	Ensure(ctx context.Context) (string, error)
}

// Recommender 推荐进程调用
type Recommender interface {
	Recommend(ctx context.Context, datasetPath, tag string, excludeIDs []string) (*models.RecommendationResult, error)
	Personalized(ctx context.Context, datasetPath string, profile models.PersonalizationProfile, tag string) (*models.PersonalizedRecommendationSet, error)
}
