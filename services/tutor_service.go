package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"roadmap_tutor/lock"
	"roadmap_tutor/logger"
	"roadmap_tutor/models"
	"roadmap_tutor/scoring"
	"roadmap_tutor/utils"
)

const (
	// RefreshLockKey 数据集刷新到推荐进程返回之间持有的锁
	RefreshLockKey = "roadmap_tutor:refresh"

	PopularTagsLimit = 20

	analyzedAtLayout = "2006-01-02 15:04:05"
)

// ErrMissingUser 请求没有可识别的用户
var ErrMissingUser = errors.New("missing user identity")

// TutorService 学习路线推荐流程
type TutorService struct {
	roadmaps    RoadmapReader
	merger      *Merger
	datasets    DatasetProvider
	recommender Recommender
	locker      lock.Locker
	now         func() time.Time
}

func NewTutorService(roadmaps RoadmapReader, profiles ProfileReader, datasets DatasetProvider, recommender Recommender, locker lock.Locker) *TutorService {
	return &TutorService{
		roadmaps:    roadmaps,
		merger:      NewMerger(roadmaps, profiles),
		datasets:    datasets,
		recommender: recommender,
		locker:      locker,
		now:         time.Now,
	}
}

// Analyze 刷新数据集后为指定标签生成推荐；用户有点赞记录时附带个性化推荐。
// 个性化部分失败只记录警告，personalized 返回 null。
func (s *TutorService) Analyze(ctx context.Context, userID, tag string) (*models.AnalyzeResponse, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	log := logger.With("user_id", userID, "tag", tag)

	profile, err := s.merger.BuildProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	liked := ExclusionSet(profile)

	release, err := s.locker.Acquire(ctx, RefreshLockKey)
	if err != nil {
		return nil, fmt.Errorf("acquire refresh lock: %w", err)
	}

	recommendation, personalized, err := func() (*models.RecommendationResult, *models.PersonalizedRecommendationSet, error) {
		defer release()

		datasetPath, err := s.datasets.Refresh(ctx)
		if err != nil {
			return nil, nil, err
		}

		rec, err := s.recommender.Recommend(ctx, datasetPath, tag, liked)
		if err != nil {
			return nil, nil, err
		}

		if len(liked) == 0 {
			return rec, nil, nil
		}
		set, err := s.recommender.Personalized(ctx, datasetPath, profile, tag)
		if err != nil {
			log.Warn("error getting personalized recommendations", "error", err)
			return rec, nil, nil
		}
		return rec, set, nil
	}()
	if err != nil {
		return nil, err
	}

	s.merger.EnrichResult(ctx, recommendation)
	s.merger.EnrichSet(ctx, personalized)

	if recommendation != nil {
		log.Info("analysis completed", "roadmap_id", recommendation.RoadmapID, "personalized", personalized != nil)
	}
	return &models.AnalyzeResponse{
		Success:        true,
		Recommendation: recommendation,
		Personalized:   personalized,
		UserLikedCount: len(liked),
		AnalyzedAt:     s.now().Format(analyzedAtLayout),
	}, nil
}

// Personalized 基于用户画像的推荐，复用已有数据集快照
func (s *TutorService) Personalized(ctx context.Context, userID, tag string) (*models.PersonalizedResponse, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	profile, err := s.merger.BuildProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, RefreshLockKey)
	if err != nil {
		return nil, fmt.Errorf("acquire refresh lock: %w", err)
	}
	set, err := func() (*models.PersonalizedRecommendationSet, error) {
		defer release()

		datasetPath, err := s.datasets.Ensure(ctx)
		if err != nil {
			return nil, err
		}
		return s.recommender.Personalized(ctx, datasetPath, profile, tag)
	}()
	if err != nil {
		return nil, err
	}

	s.merger.EnrichSet(ctx, set)

	return &models.PersonalizedResponse{
		Success:         true,
		Recommendations: set,
		UserLikedCount:  profile.LikedCount(),
		AnalyzedAt:      s.now().Format(analyzedAtLayout),
	}, nil
}

// TopByTag 按质量评分排名的路线图
func (s *TutorService) TopByTag(ctx context.Context, tag string, limit int) (*models.TopRoadmapsResponse, error) {
	candidates, err := s.roadmaps.FindByTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("find roadmaps by tag: %w", err)
	}
	results, total := scoring.Rank(tag, candidates, limit)
	return &models.TopRoadmapsResponse{Roadmaps: results, Total: total}, nil
}

// PopularTags 出现次数最多的标签，次数相同时按字母序
func (s *TutorService) PopularTags(ctx context.Context) ([]string, error) {
	raw, err := s.roadmaps.AllTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	return topTags(raw, PopularTagsLimit), nil
}

func topTags(raw []string, n int) []string {
	counts := make(map[string]int)
	for _, tags := range raw {
		for _, tag := range utils.SplitTags(tags) {
			counts[tag]++
		}
	}

	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})

	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}
