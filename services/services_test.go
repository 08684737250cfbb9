package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"roadmap_tutor/lock"
	"roadmap_tutor/models"
)

type fakeRoadmaps struct {
	byTag    []models.RoadmapWithStats
	byID     map[string]models.Roadmap
	withStat map[string]*models.RoadmapWithStats
	tags     []string
	topics   []models.TopicStat
	lookups  int
}

func (f *fakeRoadmaps) FindByTag(context.Context, string) ([]models.RoadmapWithStats, error) {
	return f.byTag, nil
}

func (f *fakeRoadmaps) GetRoadmapsByIDs(_ context.Context, ids []string) (map[string]models.Roadmap, error) {
	f.lookups++
	out := make(map[string]models.Roadmap)
	for _, id := range ids {
		if r, ok := f.byID[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func (f *fakeRoadmaps) GetRoadmapWithStats(_ context.Context, id string) (*models.RoadmapWithStats, error) {
	if r, ok := f.withStat[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRoadmaps) ListWithStatistics(context.Context) ([]models.RoadmapWithStats, error) {
	out := make([]models.RoadmapWithStats, 0)
	for _, r := range f.byTag {
		if r.Statistics != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRoadmaps) ListByIDs(_ context.Context, ids []string) ([]models.RoadmapWithStats, error) {
	out := make([]models.RoadmapWithStats, 0)
	for _, id := range ids {
		if r, ok := f.withStat[id]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRoadmaps) AllTags(context.Context) ([]string, error) { return f.tags, nil }

func (f *fakeRoadmaps) Overview(context.Context) (models.AnalyticsOverview, error) {
	return models.AnalyticsOverview{TotalRoadmaps: len(f.withStat)}, nil
}

func (f *fakeRoadmaps) TopicStats(context.Context) ([]models.TopicStat, error) { return f.topics, nil }

type fakeProfiles struct {
	liked []string
	nodes []string
	err   error
}

func (f *fakeProfiles) LikedRoadmapIDs(context.Context, string) ([]string, error) { return f.liked, f.err }
func (f *fakeProfiles) CompletedNodeIDs(context.Context, string) ([]string, error) {
	return f.nodes, nil
}

type fakeDatasets struct {
	refreshes int
	ensures   int
	err       error
}

func (f *fakeDatasets) Refresh(context.Context) (string, error) {
	f.refreshes++
	return "/data/ml_dataset_roadmaps_2025-01-01_000000.csv", f.err
}

func (f *fakeDatasets) Ensure(context.Context) (string, error) {
	f.ensures++
	return "/data/ml_dataset_roadmaps_2024-01-01_000000.csv", f.err
}

type fakeRecommender struct {
	result     *models.RecommendationResult
	set        *models.PersonalizedRecommendationSet
	err        error
	persErr    error
	excluded   []string
	profile    models.PersonalizationProfile
	persCalled int
}

func (f *fakeRecommender) Recommend(_ context.Context, _, _ string, exclude []string) (*models.RecommendationResult, error) {
	f.excluded = exclude
	return f.result, f.err
}

func (f *fakeRecommender) Personalized(_ context.Context, _ string, p models.PersonalizationProfile, _ string) (*models.PersonalizedRecommendationSet, error) {
	f.persCalled++
	f.profile = p
	return f.set, f.persErr
}

func strPtr(s string) *string { return &s }

func newTutor(roadmaps *fakeRoadmaps, profiles *fakeProfiles, ds *fakeDatasets, rec *fakeRecommender) *TutorService {
	s := NewTutorService(roadmaps, profiles, ds, rec, lock.NewLocal())
	s.now = func() time.Time { return time.Date(2025, 11, 18, 10, 30, 0, 0, time.UTC) }
	return s
}

func sampleRoadmaps() *fakeRoadmaps {
	return &fakeRoadmaps{
		byID: map[string]models.Roadmap{
			"r9": {RoadmapID: "r9", Description: strPtr("Learn Go"), CoverImage: strPtr("go.png"), CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
			"s1": {RoadmapID: "s1", Description: strPtr("Similar one")},
		},
	}
}

func TestAnalyzeWithLikes(t *testing.T) {
	rec := &fakeRecommender{
		result: &models.RecommendationResult{RoadmapID: "r9"},
		set: &models.PersonalizedRecommendationSet{
			Similar: []models.RecommendationResult{{RoadmapID: "s1"}, {RoadmapID: "ghost"}},
			New:     []models.RecommendationResult{},
		},
	}
	ds := &fakeDatasets{}
	svc := newTutor(sampleRoadmaps(), &fakeProfiles{liked: []string{"a", "b", "a"}, nodes: []string{"n1"}}, ds, rec)

	resp, err := svc.Analyze(context.Background(), "42", "go")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if ds.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", ds.refreshes)
	}
	if strings.Join(rec.excluded, ",") != "a,b" {
		t.Errorf("excluded = %v", rec.excluded)
	}
	if rec.profile.TotalNodesCompleted != 1 || rec.profile.TotalRoadmapsCompleted != 2 {
		t.Errorf("profile = %+v", rec.profile)
	}
	if resp.UserLikedCount != 2 || resp.AnalyzedAt != "2025-11-18 10:30:00" || !resp.Success {
		t.Errorf("unexpected response: %+v", resp)
	}

	d := resp.Recommendation.RoadmapDetails
	if d == nil || *d.Description != "Learn Go" || d.CreatedAt != "2025-01-02 03:04:05" {
		t.Errorf("details = %+v", d)
	}

	if resp.Personalized == nil || len(resp.Personalized.Similar) != 2 {
		t.Fatalf("personalized = %+v", resp.Personalized)
	}
	if resp.Personalized.Similar[0].Enrichment == nil {
		t.Error("known roadmap should be enriched")
	}
	if resp.Personalized.Similar[1].Enrichment != nil {
		t.Error("unknown roadmap must stay unenriched")
	}
}

func TestAnalyzeWithoutLikesSkipsPersonalized(t *testing.T) {
	rec := &fakeRecommender{result: &models.RecommendationResult{RoadmapID: "r9"}}
	svc := newTutor(sampleRoadmaps(), &fakeProfiles{}, &fakeDatasets{}, rec)

	resp, err := svc.Analyze(context.Background(), "42", "go")
	if err != nil {
		t.Fatal(err)
	}
	if rec.persCalled != 0 || resp.Personalized != nil {
		t.Error("personalized must not be requested without likes")
	}

	b, _ := json.Marshal(resp)
	if !strings.Contains(string(b), `"personalized":null`) {
		t.Errorf("personalized must serialize as null: %s", b)
	}
}

func TestAnalyzePersonalizedFailureIsSoft(t *testing.T) {
	rec := &fakeRecommender{
		result:  &models.RecommendationResult{RoadmapID: "r9"},
		persErr: errors.New("boom"),
	}
	svc := newTutor(sampleRoadmaps(), &fakeProfiles{liked: []string{"a"}}, &fakeDatasets{}, rec)

	resp, err := svc.Analyze(context.Background(), "42", "go")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if resp.Personalized != nil {
		t.Error("personalized should be nil after failure")
	}
}

func TestAnalyzeReleasesLockOnError(t *testing.T) {
	ds := &fakeDatasets{err: errors.New("no roadmaps")}
	svc := newTutor(sampleRoadmaps(), &fakeProfiles{}, ds, &fakeRecommender{})

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_, err := svc.Analyze(ctx, "42", "go")
		cancel()
		if err == nil || errors.Is(err, lock.ErrNotAcquired) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
}

func TestAnalyzeMissingUser(t *testing.T) {
	svc := newTutor(sampleRoadmaps(), &fakeProfiles{}, &fakeDatasets{}, &fakeRecommender{})
	if _, err := svc.Analyze(context.Background(), "", "go"); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("err = %v", err)
	}
}

func TestPersonalizedEnsuresDataset(t *testing.T) {
	ds := &fakeDatasets{}
	rec := &fakeRecommender{set: &models.PersonalizedRecommendationSet{Similar: []models.RecommendationResult{}, New: []models.RecommendationResult{}}}
	svc := newTutor(sampleRoadmaps(), &fakeProfiles{liked: []string{"x"}}, ds, rec)

	resp, err := svc.Personalized(context.Background(), "7", "")
	if err != nil {
		t.Fatal(err)
	}
	if ds.ensures != 1 || ds.refreshes != 0 {
		t.Errorf("ensures = %d, refreshes = %d", ds.ensures, ds.refreshes)
	}
	if resp.UserLikedCount != 1 {
		t.Errorf("UserLikedCount = %d", resp.UserLikedCount)
	}
}

func TestEnrichSetUsesSingleLookup(t *testing.T) {
	roadmaps := sampleRoadmaps()
	m := NewMerger(roadmaps, &fakeProfiles{})
	set := &models.PersonalizedRecommendationSet{
		Similar: []models.RecommendationResult{{RoadmapID: "r9"}},
		New:     []models.RecommendationResult{{RoadmapID: "s1"}, {RoadmapID: "r9"}},
	}
	m.EnrichSet(context.Background(), set)
	if roadmaps.lookups != 1 {
		t.Errorf("lookups = %d, want 1", roadmaps.lookups)
	}

	b, err := json.Marshal(set.New[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"description":"Similar one"`) || !strings.Contains(string(b), `"cover_image":null`) {
		t.Errorf("enriched entry = %s", b)
	}
}

func TestTopByTag(t *testing.T) {
	roadmaps := &fakeRoadmaps{byTag: []models.RoadmapWithStats{
		{Roadmap: models.Roadmap{RoadmapID: "1", Tags: "JavaScript,Web"}, Statistics: &models.RoadmapStatistics{CompletionCount: 9, DropoutCount: 1, UsefulnessScore: 4}},
		{Roadmap: models.Roadmap{RoadmapID: "2", Tags: "JavaScript"}},
	}}
	svc := newTutor(roadmaps, &fakeProfiles{}, &fakeDatasets{}, &fakeRecommender{})

	resp, err := svc.TopByTag(context.Background(), "script", 50)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Roadmaps[0].RoadmapID != "1" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestTopTags(t *testing.T) {
	got := topTags([]string{"Go, Backend", "Python,Backend", "Go", " Rust ,Go"}, 3)
	if strings.Join(got, ",") != "Go,Backend,Python" {
		t.Errorf("topTags = %v", got)
	}
}

func TestAnalyticsRoadmap(t *testing.T) {
	roadmaps := &fakeRoadmaps{withStat: map[string]*models.RoadmapWithStats{
		"r1": {Roadmap: models.Roadmap{RoadmapID: "r1"}, Statistics: &models.RoadmapStatistics{
			CompletionCount: 80, DropoutCount: 20, AvgHoursSpent: 10, AvgNodesCompleted: 8, BookmarkCount: 3, UsefulnessScore: 4.5,
		}},
		"bare": {Roadmap: models.Roadmap{RoadmapID: "bare"}},
	}}
	svc := NewAnalyticsService(roadmaps)

	got, err := svc.Roadmap(context.Background(), "r1")
	if err != nil {
		t.Fatal(err)
	}
	want := models.RoadmapMetrics{CompletionRate: 0.8, DropoutRate: 0.2, EfficiencyRate: 0.8, EngagementScore: 13.5}
	if got.Metrics != want {
		t.Errorf("metrics = %+v, want %+v", got.Metrics, want)
	}

	for _, id := range []string{"missing", "bare"} {
		if _, err := svc.Roadmap(context.Background(), id); !errors.Is(err, ErrNoStatistics) {
			t.Errorf("%s: err = %v, want ErrNoStatistics", id, err)
		}
	}
}

func TestAnalyticsTopic(t *testing.T) {
	roadmaps := &fakeRoadmaps{byTag: []models.RoadmapWithStats{
		{Roadmap: models.Roadmap{RoadmapID: "a", Name: "A", Tags: "go"}, Statistics: &models.RoadmapStatistics{CompletionCount: 1, DropoutCount: 1, UsefulnessScore: 5, BookmarkCount: 2}},
		{Roadmap: models.Roadmap{RoadmapID: "b", Name: "B", Tags: "go"}, Statistics: &models.RoadmapStatistics{CompletionCount: 9, DropoutCount: 1, UsefulnessScore: 4, BookmarkCount: 3}},
		{Roadmap: models.Roadmap{RoadmapID: "c", Name: "C", Tags: "go"}},
	}}
	svc := NewAnalyticsService(roadmaps)

	got, err := svc.Topic(context.Background(), "go")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalRoadmaps != 2 || got.BestRoadmap.RoadmapID != "b" {
		t.Errorf("analysis = %+v", got)
	}
	if got.Averages.CompletionCount != 5 || got.Totals.TotalBookmarks != 5 {
		t.Errorf("averages/totals = %+v / %+v", got.Averages, got.Totals)
	}

	svc = NewAnalyticsService(&fakeRoadmaps{})
	if _, err := svc.Topic(context.Background(), "cobol"); !errors.Is(err, ErrTopicNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestAnalyticsInsights(t *testing.T) {
	var topics []models.TopicStat
	for i, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		topics = append(topics, models.TopicStat{Topic: name, Count: i + 1, AvgUsefulness: float64(7 - i), AvgCompletions: float64(i % 3), AvgBookmarks: 1})
	}
	svc := NewAnalyticsService(&fakeRoadmaps{topics: topics})

	got, err := svc.Insights(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got.MostPopularTopics) != 5 || got.MostPopularTopics[0].Topic != "g" {
		t.Errorf("most popular = %+v", got.MostPopularTopics)
	}
	if got.HighestRatedTopics[0].Topic != "a" {
		t.Errorf("highest rated = %+v", got.HighestRatedTopics)
	}
}

func rankingRoadmaps() *fakeRoadmaps {
	return &fakeRoadmaps{byTag: []models.RoadmapWithStats{
		{Roadmap: models.Roadmap{RoadmapID: "a", Name: "A", Tags: "Go,Backend"}, Statistics: &models.RoadmapStatistics{
			CompletionCount: 10, AvgHoursSpent: 1, AvgNodesCompleted: 1, UsefulnessScore: 1,
		}},
		{Roadmap: models.Roadmap{RoadmapID: "b", Name: "B", Tags: "go", Description: strPtr("desc b")}, Statistics: &models.RoadmapStatistics{
			CompletionCount: 5, DropoutCount: 5, AvgHoursSpent: 1, BookmarkCount: 200, UsefulnessScore: 5,
		}},
		{Roadmap: models.Roadmap{RoadmapID: "c", Name: "C", Tags: "python"}, Statistics: &models.RoadmapStatistics{
			CompletionCount: 10, UsefulnessScore: 5,
		}},
		{Roadmap: models.Roadmap{RoadmapID: "d", Name: "D", Tags: "go"}},
	}}
}

func TestAnalyticsTopRoadmaps(t *testing.T) {
	svc := NewAnalyticsService(rankingRoadmaps())

	all, err := svc.TopRoadmaps(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range all {
		ids = append(ids, r.RoadmapID)
	}
	if strings.Join(ids, ",") != "c,b,a" {
		t.Errorf("order = %v, want c,b,a", ids)
	}
	if all[0].Metrics.CompositeScore != 0.7 || all[1].Metrics.CompositeScore != 0.6 || all[2].Metrics.CompositeScore != 0.48 {
		t.Errorf("scores = %+v", all)
	}

	goOnly, err := svc.TopRoadmaps(context.Background(), "GO", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(goOnly) != 1 || goOnly[0].RoadmapID != "b" {
		t.Errorf("topic filtered = %+v", goOnly)
	}
}

func TestAnalyticsRecommend(t *testing.T) {
	svc := NewAnalyticsService(rankingRoadmaps())

	got, err := svc.Recommend(context.Background(), "go", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.Topic != "go" || len(got.Recommendations) != 2 {
		t.Fatalf("recommendations = %+v", got)
	}
	first := got.Recommendations[0]
	if first.RoadmapID != "b" || first.RecommendationScore != 0.625 || first.Description == nil || *first.Description != "desc b" {
		t.Errorf("first = %+v", first)
	}
	if got.Recommendations[1].RecommendationScore != 0.44 {
		t.Errorf("second = %+v", got.Recommendations[1])
	}

	if _, err := svc.Recommend(context.Background(), "", 5); !errors.Is(err, ErrTopicRequired) {
		t.Errorf("err = %v, want ErrTopicRequired", err)
	}

	none, err := svc.Recommend(context.Background(), "rust", 5)
	if err != nil {
		t.Fatal(err)
	}
	if none.Recommendations == nil || len(none.Recommendations) != 0 {
		t.Errorf("no match should give an empty list, got %+v", none.Recommendations)
	}
}

func TestAnalyticsLimit(t *testing.T) {
	tests := []struct{ in, def, want int }{
		{0, 10, 10},
		{-3, 10, 1},
		{7, 5, 7},
		{500, 5, MaxAnalyticsLimit},
	}
	for _, tt := range tests {
		if got := analyticsLimit(tt.in, tt.def); got != tt.want {
			t.Errorf("analyticsLimit(%d, %d) = %d, want %d", tt.in, tt.def, got, tt.want)
		}
	}
}
