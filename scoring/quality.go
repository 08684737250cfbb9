// Package scoring 实现路线图质量评分和按标签的 Top-N 排名，均为无副作用的纯函数。
package scoring

import (
	"math"

	"roadmap_tutor/models"
)

// 质量评分各分量权重
const (
	WeightCompletion = 0.35
	WeightUsefulness = 0.30
	WeightDropout    = 0.20
	WeightEfficiency = 0.15

	// 输出保留的小数位数
	Precision = 4
)

// Result 质量评分及中间量（未取整）
type Result struct {
	CompletionRate float64
	EfficiencyRate float64
	DropoutPenalty float64
	QualityScore   float64
}

// floorOne 分母下限为 1：没有任何尝试记录时比率为 0，而不是除零
func floorOne(x float64) float64 {
	return math.Max(1, x)
}

func attempts(s models.RoadmapStatistics) float64 {
	return float64(s.CompletionCount + s.DropoutCount)
}

// CompletionRate 完成率 = 完成数 / max(1, 完成数+放弃数)
func CompletionRate(s models.RoadmapStatistics) float64 {
	return float64(s.CompletionCount) / floorOne(attempts(s))
}

// DropoutRate 放弃率 = 放弃数 / max(1, 完成数+放弃数)
func DropoutRate(s models.RoadmapStatistics) float64 {
	return float64(s.DropoutCount) / floorOne(attempts(s))
}

// EfficiencyRate 效率 = 平均完成节点数 / max(1, 平均耗时)
func EfficiencyRate(s models.RoadmapStatistics) float64 {
	return s.AvgNodesCompleted / floorOne(s.AvgHoursSpent)
}

// EngagementScore 参与度 = 收藏数 * 有用度
func EngagementScore(s models.RoadmapStatistics) float64 {
	return float64(s.BookmarkCount) * s.UsefulnessScore
}

// Score 计算质量评分。结果不一定落在 [0,1]，效率项没有上限。
func Score(s models.RoadmapStatistics) Result {
	completion := CompletionRate(s)
	efficiency := EfficiencyRate(s)
	penalty := 1 - DropoutRate(s)

	quality := completion*WeightCompletion +
		(s.UsefulnessScore/5)*WeightUsefulness +
		penalty*WeightDropout +
		(efficiency/10)*WeightEfficiency

	return Result{
		CompletionRate: completion,
		EfficiencyRate: efficiency,
		DropoutPenalty: penalty,
		QualityScore:   quality,
	}
}

// Round 按指定小数位四舍五入（远离零方向），与数据导出保持一致
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// ScoreRoadmap 为带统计数据的路线图生成输出结果；没有统计数据时返回 false
func ScoreRoadmap(r models.RoadmapWithStats) (models.QualityScoreResult, bool) {
	if r.Statistics == nil {
		return models.QualityScoreResult{}, false
	}
	res := Score(*r.Statistics)
	return models.QualityScoreResult{
		RoadmapID:       r.RoadmapID,
		Name:            r.Name,
		Tags:            r.Tags,
		CoverImage:      r.CoverImage,
		QualityScore:    Round(res.QualityScore, Precision),
		CompletionRate:  Round(res.CompletionRate, Precision),
		UsefulnessScore: r.Statistics.UsefulnessScore,
	}, true
}
