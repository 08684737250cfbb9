package scoring

import (
	"sort"
	"strings"

	"roadmap_tutor/models"
)

const (
	DefaultLimit = 5
	MinLimit     = 1
	MaxLimit     = 10
)

// ClampLimit 未指定（0）时取默认值，其余收敛到 [1,10]
func ClampLimit(limit int) int {
	if limit == 0 {
		return DefaultLimit
	}
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// MatchesTag 标签字段是否包含查询词（不区分大小写的子串匹配，不是精确标签匹配）
func MatchesTag(tags, tag string) bool {
	return strings.Contains(strings.ToLower(tags), strings.ToLower(tag))
}

// Rank 按标签过滤候选路线图，丢弃没有统计数据的条目后评分、降序排序并截断。
// 返回的 total 是截断后列表的长度。
func Rank(tag string, candidates []models.RoadmapWithStats, limit int) ([]models.QualityScoreResult, int) {
	limit = ClampLimit(limit)

	results := make([]models.QualityScoreResult, 0, len(candidates))
	for _, c := range candidates {
		if !MatchesTag(c.Tags, tag) {
			continue
		}
		scored, ok := ScoreRoadmap(c)
		if !ok {
			continue
		}
		results = append(results, scored)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].QualityScore > results[j].QualityScore
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, len(results)
}
