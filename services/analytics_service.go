package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"roadmap_tutor/models"
	"roadmap_tutor/scoring"
	"roadmap_tutor/utils"
)

const (
	insightsTopN = 5

	// 综合排名和主题推荐的默认数量
	DefaultTopRoadmapsLimit = 10
	DefaultRecommendLimit   = 5
	MaxAnalyticsLimit       = 50
)

var (
	// ErrNoStatistics 路线图不存在或没有统计数据
	ErrNoStatistics = errors.New("roadmap not found or has no statistics")

	// ErrTopicNotFound 没有匹配主题的路线图
	ErrTopicNotFound = errors.New("no roadmaps found for this topic")

	// ErrTopicRequired 主题推荐缺少主题
	ErrTopicRequired = errors.New("topic is required")
)

// AnalyticsService 路线图统计分析
type AnalyticsService struct {
	roadmaps RoadmapReader
}

func NewAnalyticsService(roadmaps RoadmapReader) *AnalyticsService {
	return &AnalyticsService{roadmaps: roadmaps}
}

// Overview 全站汇总
func (s *AnalyticsService) Overview(ctx context.Context) (models.AnalyticsOverview, error) {
	return s.roadmaps.Overview(ctx)
}

// Roadmap 单个路线图的统计和派生指标
func (s *AnalyticsService) Roadmap(ctx context.Context, id string) (*models.RoadmapAnalytics, error) {
	r, err := s.roadmaps.GetRoadmapWithStats(ctx, id)
	if err != nil {
		if utils.IsSQLNoRowsError(err) {
			return nil, ErrNoStatistics
		}
		return nil, fmt.Errorf("get roadmap: %w", err)
	}
	if r.Statistics == nil {
		return nil, ErrNoStatistics
	}

	st := *r.Statistics
	completion := scoring.Round(scoring.CompletionRate(st), 4)
	return &models.RoadmapAnalytics{
		Roadmap:    r.Roadmap,
		Statistics: st,
		Metrics: models.RoadmapMetrics{
			CompletionRate:  completion,
			DropoutRate:     scoring.Round(1-scoring.CompletionRate(st), 4),
			EfficiencyRate:  scoring.Round(scoring.EfficiencyRate(st), 4),
			EngagementScore: scoring.Round(scoring.EngagementScore(st), 2),
		},
	}, nil
}

// Compare 对比多个路线图，没有统计数据的路线图被跳过
func (s *AnalyticsService) Compare(ctx context.Context, ids []string) ([]models.RoadmapComparison, error) {
	rows, err := s.roadmaps.ListByIDs(ctx, utils.DeduplicateSlice(ids))
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}

	out := make([]models.RoadmapComparison, 0, len(rows))
	for _, r := range rows {
		if r.Statistics == nil {
			continue
		}
		st := *r.Statistics
		out = append(out, models.RoadmapComparison{
			RoadmapID:       r.RoadmapID,
			Name:            r.Name,
			CompletionRate:  scoring.Round(scoring.CompletionRate(st), 4),
			EfficiencyRate:  scoring.Round(scoring.EfficiencyRate(st), 4),
			UsefulnessScore: st.UsefulnessScore,
			BookmarkCount:   st.BookmarkCount,
			AvgHoursSpent:   st.AvgHoursSpent,
		})
	}
	return out, nil
}

// Topic 主题下路线图的平均值、合计和最佳路线图（完成率 × 有用度最高）
func (s *AnalyticsService) Topic(ctx context.Context, topic string) (*models.TopicAnalysis, error) {
	candidates, err := s.roadmaps.FindByTag(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("find roadmaps by topic: %w", err)
	}

	var (
		n      int
		sums   models.TopicAverages
		totals models.TopicTotals
		best   models.RoadmapRef
	)
	bestV := -1.0
	for _, r := range candidates {
		if r.Statistics == nil || !scoring.MatchesTag(r.Tags, topic) {
			continue
		}
		st := *r.Statistics
		n++
		sums.CompletionCount += float64(st.CompletionCount)
		sums.DropoutCount += float64(st.DropoutCount)
		sums.AvgHoursSpent += st.AvgHoursSpent
		sums.AvgNodesCompleted += st.AvgNodesCompleted
		sums.BookmarkCount += float64(st.BookmarkCount)
		sums.UsefulnessScore += st.UsefulnessScore

		totals.TotalCompletions += st.CompletionCount
		totals.TotalDropouts += st.DropoutCount
		totals.TotalBookmarks += st.BookmarkCount

		if v := scoring.CompletionRate(st) * st.UsefulnessScore; v > bestV {
			bestV = v
			best = models.RoadmapRef{RoadmapID: r.RoadmapID, Name: r.Name}
		}
	}
	if n == 0 {
		return nil, ErrTopicNotFound
	}

	avg := func(sum float64) float64 { return scoring.Round(sum/float64(n), 2) }
	return &models.TopicAnalysis{
		Topic:         topic,
		TotalRoadmaps: n,
		Averages: models.TopicAverages{
			CompletionCount:   avg(sums.CompletionCount),
			DropoutCount:      avg(sums.DropoutCount),
			AvgHoursSpent:     avg(sums.AvgHoursSpent),
			AvgNodesCompleted: avg(sums.AvgNodesCompleted),
			BookmarkCount:     avg(sums.BookmarkCount),
			UsefulnessScore:   avg(sums.UsefulnessScore),
		},
		Totals:      totals,
		BestRoadmap: best,
	}, nil
}

// analyticsLimit 0 取默认值，其余收敛到 [1, MaxAnalyticsLimit]
func analyticsLimit(limit, def int) int {
	switch {
	case limit == 0:
		return def
	case limit < 1:
		return 1
	case limit > MaxAnalyticsLimit:
		return MaxAnalyticsLimit
	}
	return limit
}

// withStatistics topic 为空时返回全部带统计数据的路线图，否则按标签子串过滤
func (s *AnalyticsService) withStatistics(ctx context.Context, topic string) ([]models.RoadmapWithStats, error) {
	var (
		rows []models.RoadmapWithStats
		err  error
	)
	if topic == "" {
		rows, err = s.roadmaps.ListWithStatistics(ctx)
	} else {
		rows, err = s.roadmaps.FindByTag(ctx, topic)
	}
	if err != nil {
		return nil, fmt.Errorf("load roadmaps: %w", err)
	}

	out := make([]models.RoadmapWithStats, 0, len(rows))
	for _, r := range rows {
		if r.Statistics == nil || (topic != "" && !scoring.MatchesTag(r.Tags, topic)) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// TopRoadmaps 按综合评分排名，topic 可选
func (s *AnalyticsService) TopRoadmaps(ctx context.Context, topic string, limit int) ([]models.TopRoadmap, error) {
	rows, err := s.withStatistics(ctx, topic)
	if err != nil {
		return nil, err
	}

	out := make([]models.TopRoadmap, 0, len(rows))
	for _, r := range rows {
		st := *r.Statistics
		out = append(out, models.TopRoadmap{
			RoadmapID:  r.RoadmapID,
			Name:       r.Name,
			Tags:       r.Tags,
			Statistics: st,
			Metrics: models.TopRoadmapMetrics{
				CompletionRate: scoring.Round(scoring.CompletionRate(st), 4),
				EfficiencyRate: scoring.Round(scoring.EfficiencyRate(st), 4),
				CompositeScore: scoring.Round(scoring.CompositeScore(st), 4),
			},
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Metrics.CompositeScore > out[j].Metrics.CompositeScore })

	if limit = analyticsLimit(limit, DefaultTopRoadmapsLimit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Recommend 主题下按推荐评分排序的路线图；没有匹配时返回空列表
func (s *AnalyticsService) Recommend(ctx context.Context, topic string, limit int) (*models.TopicRecommendations, error) {
	if topic == "" {
		return nil, ErrTopicRequired
	}
	rows, err := s.withStatistics(ctx, topic)
	if err != nil {
		return nil, err
	}

	recs := make([]models.TopicRecommendation, 0, len(rows))
	for _, r := range rows {
		st := *r.Statistics
		recs = append(recs, models.TopicRecommendation{
			RoadmapID:           r.RoadmapID,
			Name:                r.Name,
			Description:         r.Description,
			RecommendationScore: scoring.Round(scoring.RecommendationScore(st), 4),
			UsefulnessScore:     st.UsefulnessScore,
			CompletionRate:      scoring.Round(scoring.CompletionRate(st), 4),
			AvgHoursSpent:       st.AvgHoursSpent,
		})
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].RecommendationScore > recs[j].RecommendationScore })

	if limit = analyticsLimit(limit, DefaultRecommendLimit); len(recs) > limit {
		recs = recs[:limit]
	}
	return &models.TopicRecommendations{Topic: topic, Recommendations: recs}, nil
}

// Insights 以第一个标签为主题，分别按数量、有用度、完成数和收藏数取前 5
func (s *AnalyticsService) Insights(ctx context.Context) (*models.Insights, error) {
	stats, err := s.roadmaps.TopicStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load topic stats: %w", err)
	}

	// 基准顺序为有用度降序，其余排序在此基础上保持稳定
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].AvgUsefulness > stats[j].AvgUsefulness })

	return &models.Insights{
		MostPopularTopics:   topTopics(stats, func(t models.TopicStat) float64 { return float64(t.Count) }),
		HighestRatedTopics:  topTopics(stats, func(t models.TopicStat) float64 { return t.AvgUsefulness }),
		MostCompletedTopics: topTopics(stats, func(t models.TopicStat) float64 { return t.AvgCompletions }),
		MostBookmarked:      topTopics(stats, func(t models.TopicStat) float64 { return t.AvgBookmarks }),
	}, nil
}

func topTopics(stats []models.TopicStat, key func(models.TopicStat) float64) []models.TopicStat {
	sorted := make([]models.TopicStat, len(stats))
	copy(sorted, stats)
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i]) > key(sorted[j]) })
	if len(sorted) > insightsTopN {
		sorted = sorted[:insightsTopN]
	}
	return sorted
}
