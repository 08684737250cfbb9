package scoring

import "roadmap_tutor/models"

// 统计分析页排名用的权重，收藏数按 200 归一化
const (
	bookmarkScale = 200

	compositeCompletion = 0.4
	compositeUsefulness = 0.3
	compositeEfficiency = 0.2
	compositeBookmarks  = 0.1

	recommendCompletion = 0.35
	recommendUsefulness = 0.35
	recommendEfficiency = 0.20
	recommendBookmarks  = 0.10
)

func weighted(s models.RoadmapStatistics, wc, wu, we, wb float64) float64 {
	return CompletionRate(s)*wc +
		(s.UsefulnessScore/5)*wu +
		(EfficiencyRate(s)/10)*we +
		(float64(s.BookmarkCount)/bookmarkScale)*wb
}

// CompositeScore 综合评分 = 完成率*0.4 + 有用度/5*0.3 + 效率/10*0.2 + 收藏数/200*0.1（未取整）
func CompositeScore(s models.RoadmapStatistics) float64 {
	return weighted(s, compositeCompletion, compositeUsefulness, compositeEfficiency, compositeBookmarks)
}

// RecommendationScore 主题推荐评分，完成率和有用度权重相同（未取整）
func RecommendationScore(s models.RoadmapStatistics) float64 {
	return weighted(s, recommendCompletion, recommendUsefulness, recommendEfficiency, recommendBookmarks)
}
