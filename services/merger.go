package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"roadmap_tutor/logger"
	"roadmap_tutor/models"
	"roadmap_tutor/utils"
)

const detailsTimeLayout = "2006-01-02 15:04:05"

// Merger 组装用户画像，并把持久化的路线图信息补充到推荐结果上
type Merger struct {
	roadmaps RoadmapReader
	profiles ProfileReader
}

func NewMerger(roadmaps RoadmapReader, profiles ProfileReader) *Merger {
	return &Merger{roadmaps: roadmaps, profiles: profiles}
}

// BuildProfile 并发读取用户点赞过的路线图和已完成的节点
func (m *Merger) BuildProfile(ctx context.Context, userID string) (models.PersonalizationProfile, error) {
	var liked, nodes []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := m.profiles.LikedRoadmapIDs(gctx, userID)
		if err != nil {
			return fmt.Errorf("load liked roadmaps: %w", err)
		}
		liked = utils.DeduplicateSlice(ids)
		return nil
	})
	g.Go(func() error {
		ids, err := m.profiles.CompletedNodeIDs(gctx, userID)
		if err != nil {
			return fmt.Errorf("load completed nodes: %w", err)
		}
		nodes = utils.DeduplicateSlice(ids)
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.PersonalizationProfile{}, err
	}

	return models.PersonalizationProfile{
		CompletedRoadmaps:      liked,
		CompletedNodes:         nodes,
		TotalRoadmapsCompleted: len(liked),
		TotalNodesCompleted:    len(nodes),
	}, nil
}

// ExclusionSet 基础推荐需要排除的路线图（用户已点赞）
func ExclusionSet(profile models.PersonalizationProfile) []string {
	return profile.CompletedRoadmaps
}

// EnrichResult 为单个推荐结果补充 roadmap_details；查不到时原样返回
func (m *Merger) EnrichResult(ctx context.Context, res *models.RecommendationResult) {
	if res == nil || res.RoadmapID == "" {
		return
	}
	found, err := m.roadmaps.GetRoadmapsByIDs(ctx, []string{res.RoadmapID})
	if err != nil {
		logger.Warn("roadmap lookup for enrichment failed", "roadmap_id", res.RoadmapID, "error", err)
		return
	}
	rm, ok := found[res.RoadmapID]
	if !ok {
		logger.Warn("recommended roadmap not found, returning unenriched", "roadmap_id", res.RoadmapID)
		return
	}

	details := &models.RoadmapDetails{
		Description: rm.Description,
		CoverImage:  rm.CoverImage,
	}
	if !rm.CreatedAt.IsZero() {
		details.CreatedAt = rm.CreatedAt.Format(detailsTimeLayout)
	}
	res.RoadmapDetails = details
}

// EnrichSet 为 similar 和 new 中的每一项补充描述和封面，一次批量查询完成。
// 查不到的条目保留但不补充。
func (m *Merger) EnrichSet(ctx context.Context, set *models.PersonalizedRecommendationSet) {
	if set == nil {
		return
	}

	ids := make([]string, 0, len(set.Similar)+len(set.New))
	for _, r := range set.Similar {
		ids = append(ids, r.RoadmapID)
	}
	for _, r := range set.New {
		ids = append(ids, r.RoadmapID)
	}
	ids = utils.DeduplicateSlice(ids)
	if len(ids) == 0 {
		return
	}

	found, err := m.roadmaps.GetRoadmapsByIDs(ctx, ids)
	if err != nil {
		logger.Warn("roadmap lookup for enrichment failed", "count", len(ids), "error", err)
		return
	}

	enrich := func(items []models.RecommendationResult) {
		for i := range items {
			rm, ok := found[items[i].RoadmapID]
			if !ok {
				logger.Warn("recommended roadmap not found, returning unenriched", "roadmap_id", items[i].RoadmapID)
				continue
			}
			items[i].Enrichment = &models.Enrichment{
				Description: rm.Description,
				CoverImage:  rm.CoverImage,
			}
		}
	}
	enrich(set.Similar)
	enrich(set.New)
}
