package models

// AnalyticsOverview 全站统计汇总
type AnalyticsOverview struct {
	TotalRoadmaps    int     `json:"total_roadmaps"`
	TotalCompletions int     `json:"total_completions"`
	TotalDropouts    int     `json:"total_dropouts"`
	AvgUsefulness    float64 `json:"avg_usefulness"`
	TotalBookmarks   int     `json:"total_bookmarks"`
}

// RoadmapMetrics 单个路线图的派生指标
type RoadmapMetrics struct {
	CompletionRate  float64 `json:"completion_rate"`
	DropoutRate     float64 `json:"dropout_rate"`
	EfficiencyRate  float64 `json:"efficiency_rate"`
	EngagementScore float64 `json:"engagement_score"`
}

// RoadmapAnalytics 单个路线图的统计详情
type RoadmapAnalytics struct {
	Roadmap    Roadmap           `json:"roadmap"`
	Statistics RoadmapStatistics `json:"statistics"`
	Metrics    RoadmapMetrics    `json:"metrics"`
}

// RoadmapComparison 路线图对比行
type RoadmapComparison struct {
	RoadmapID       string  `json:"roadmap_id"`
	Name            string  `json:"name"`
	CompletionRate  float64 `json:"completion_rate"`
	EfficiencyRate  float64 `json:"efficiency_rate"`
	UsefulnessScore float64 `json:"usefulness_score"`
	BookmarkCount   int     `json:"bookmark_count"`
	AvgHoursSpent   float64 `json:"avg_hours_spent"`
}

// TopicAverages 主题下统计字段的平均值
type TopicAverages struct {
	CompletionCount   float64 `json:"completion_count"`
	DropoutCount      float64 `json:"dropout_count"`
	AvgHoursSpent     float64 `json:"avg_hours_spent"`
	AvgNodesCompleted float64 `json:"avg_nodes_completed"`
	BookmarkCount     float64 `json:"bookmark_count"`
	UsefulnessScore   float64 `json:"usefulness_score"`
}

// TopicTotals 主题下统计字段的合计
type TopicTotals struct {
	TotalCompletions int `json:"total_completions"`
	TotalDropouts    int `json:"total_dropouts"`
	TotalBookmarks   int `json:"total_bookmarks"`
}

// RoadmapRef 路线图引用
type RoadmapRef struct {
	RoadmapID string `json:"roadmap_id"`
	Name      string `json:"name"`
}

// TopicAnalysis 按主题的统计分析
type TopicAnalysis struct {
	Topic         string        `json:"topic"`
	TotalRoadmaps int           `json:"total_roadmaps"`
	Averages      TopicAverages `json:"averages"`
	Totals        TopicTotals   `json:"totals"`
	BestRoadmap   RoadmapRef    `json:"best_roadmap"`
}

// TopicStat 以第一个标签为主题的聚合数据
type TopicStat struct {
	Topic          string  `json:"topic"`
	Count          int     `json:"count"`
	AvgUsefulness  float64 `json:"avg_usefulness"`
	AvgCompletions float64 `json:"avg_completions"`
	AvgBookmarks   float64 `json:"avg_bookmarks"`
}

// Insights 主题趋势
type Insights struct {
	MostPopularTopics   []TopicStat `json:"most_popular_topics"`
	HighestRatedTopics  []TopicStat `json:"highest_rated_topics"`
	MostCompletedTopics []TopicStat `json:"most_completed_topics"`
	MostBookmarked      []TopicStat `json:"most_bookmarked_topics"`
}

// TopRoadmapMetrics 综合排名的派生指标
type TopRoadmapMetrics struct {
	CompletionRate float64 `json:"completion_rate"`
	EfficiencyRate float64 `json:"efficiency_rate"`
	CompositeScore float64 `json:"composite_score"`
}

// TopRoadmap 按综合评分排名的路线图
type TopRoadmap struct {
	RoadmapID  string            `json:"roadmap_id"`
	Name       string            `json:"name"`
	Tags       string            `json:"tags"`
	Statistics RoadmapStatistics `json:"statistics"`
	Metrics    TopRoadmapMetrics `json:"metrics"`
}

// TopicRecommendation 主题推荐条目
type TopicRecommendation struct {
	RoadmapID           string  `json:"roadmap_id"`
	Name                string  `json:"name"`
	Description         *string `json:"description"`
	RecommendationScore float64 `json:"recommendation_score"`
	UsefulnessScore     float64 `json:"usefulness_score"`
	CompletionRate      float64 `json:"completion_rate"`
	AvgHoursSpent       float64 `json:"avg_hours_spent"`
}

// TopicRecommendations 主题推荐响应
type TopicRecommendations struct {
	Topic           string                `json:"topic"`
	Recommendations []TopicRecommendation `json:"recommendations"`
}
