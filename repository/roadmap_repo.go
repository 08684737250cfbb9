package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"roadmap_tutor/models"
)

// RoadmapRepo 路线图及统计数据的只读访问
type RoadmapRepo struct {
	db *sql.DB
}

func NewRoadmapRepo(conn *sql.DB) *RoadmapRepo {
	return &RoadmapRepo{db: conn}
}

// roadmapColumns 与 scanRoadmapWithStats 的扫描顺序一致；统计表为 LEFT JOIN，缺失时整列为 NULL
const roadmapColumns = `
	r.roadmap_id, r.name, r.description, r.tags, r.cover_image, r.created_at,
	s.roadmap_id, s.completion_count, s.dropout_count, s.avg_hours_spent,
	s.avg_nodes_completed, s.bookmark_count, s.usefulness_score`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoadmapWithStats(row rowScanner) (models.RoadmapWithStats, error) {
	var (
		out         models.RoadmapWithStats
		description sql.NullString
		tags        sql.NullString
		cover       sql.NullString
		createdAt   sql.NullTime

		statsID     sql.NullString
		completions sql.NullInt64
		dropouts    sql.NullInt64
		hours       sql.NullFloat64
		nodes       sql.NullFloat64
		bookmarks   sql.NullInt64
		usefulness  sql.NullFloat64
	)
	err := row.Scan(
		&out.RoadmapID, &out.Name, &description, &tags, &cover, &createdAt,
		&statsID, &completions, &dropouts, &hours, &nodes, &bookmarks, &usefulness,
	)
	if err != nil {
		return out, err
	}

	out.Description = nullStringPtr(description)
	out.Tags = tags.String
	out.CoverImage = nullStringPtr(cover)
	if createdAt.Valid {
		out.CreatedAt = createdAt.Time
	}

	if statsID.Valid {
		out.Statistics = &models.RoadmapStatistics{
			RoadmapID:         statsID.String,
			CompletionCount:   int(completions.Int64),
			DropoutCount:      int(dropouts.Int64),
			AvgHoursSpent:     hours.Float64,
			AvgNodesCompleted: nodes.Float64,
			BookmarkCount:     int(bookmarks.Int64),
			UsefulnessScore:   usefulness.Float64,
		}
	}
	return out, nil
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func (r *RoadmapRepo) queryRoadmaps(ctx context.Context, query string, args ...any) ([]models.RoadmapWithStats, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]models.RoadmapWithStats, 0)
	for rows.Next() {
		item, err := scanRoadmapWithStats(rows)
		if err != nil {
			return nil, fmt.Errorf("scan roadmap: %w", err)
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// escapeLike 转义 LIKE 通配符，使查询词按字面匹配
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// FindByTag 标签包含 tag 的路线图（不区分大小写），按 roadmap_id 排序
func (r *RoadmapRepo) FindByTag(ctx context.Context, tag string) ([]models.RoadmapWithStats, error) {
	query := `SELECT` + roadmapColumns + `
		FROM roadmaps r
		LEFT JOIN roadmap_statistics s ON s.roadmap_id = r.roadmap_id
		WHERE LOWER(r.tags) LIKE LOWER(?)
		ORDER BY r.roadmap_id`
	return r.queryRoadmaps(ctx, query, "%"+escapeLike(tag)+"%")
}

// ListWithStatistics 所有带统计数据的路线图（数据集导出使用）
func (r *RoadmapRepo) ListWithStatistics(ctx context.Context) ([]models.RoadmapWithStats, error) {
	query := `SELECT` + roadmapColumns + `
		FROM roadmaps r
		JOIN roadmap_statistics s ON s.roadmap_id = r.roadmap_id
		ORDER BY r.roadmap_id`
	return r.queryRoadmaps(ctx, query)
}

// ListByIDs 按 ID 批量查询路线图及统计数据
func (r *RoadmapRepo) ListByIDs(ctx context.Context, ids []string) ([]models.RoadmapWithStats, error) {
	if len(ids) == 0 {
		return []models.RoadmapWithStats{}, nil
	}
	query := `SELECT` + roadmapColumns + `
		FROM roadmaps r
		LEFT JOIN roadmap_statistics s ON s.roadmap_id = r.roadmap_id
		WHERE r.roadmap_id IN (` + placeholders(len(ids)) + `)
		ORDER BY r.roadmap_id`
	return r.queryRoadmaps(ctx, query, stringArgs(ids)...)
}

// GetRoadmapWithStats 单个路线图；不存在时返回 sql.ErrNoRows
func (r *RoadmapRepo) GetRoadmapWithStats(ctx context.Context, id string) (*models.RoadmapWithStats, error) {
	query := `SELECT` + roadmapColumns + `
		FROM roadmaps r
		LEFT JOIN roadmap_statistics s ON s.roadmap_id = r.roadmap_id
		WHERE r.roadmap_id = ?
		LIMIT 1`
	item, err := scanRoadmapWithStats(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetRoadmapsByIDs 批量查询路线图，结果按 roadmap_id 索引；不存在的 ID 不出现在结果中
func (r *RoadmapRepo) GetRoadmapsByIDs(ctx context.Context, ids []string) (map[string]models.Roadmap, error) {
	result := make(map[string]models.Roadmap, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT roadmap_id, name, description, tags, cover_image, created_at
		FROM roadmaps WHERE roadmap_id IN (` + placeholders(len(ids)) + `)`
	rows, err := r.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rm          models.Roadmap
			description sql.NullString
			tags        sql.NullString
			cover       sql.NullString
			createdAt   sql.NullTime
		)
		if err := rows.Scan(&rm.RoadmapID, &rm.Name, &description, &tags, &cover, &createdAt); err != nil {
			return nil, fmt.Errorf("scan roadmap: %w", err)
		}
		rm.Description = nullStringPtr(description)
		rm.Tags = tags.String
		rm.CoverImage = nullStringPtr(cover)
		if createdAt.Valid {
			rm.CreatedAt = createdAt.Time
		}
		result[rm.RoadmapID] = rm
	}
	return result, rows.Err()
}

// AllTags 所有路线图的原始标签字段
func (r *RoadmapRepo) AllTags(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, r.db, `SELECT tags FROM roadmaps WHERE tags IS NOT NULL AND tags != ''`)
}

// Overview 全站统计汇总
func (r *RoadmapRepo) Overview(ctx context.Context) (models.AnalyticsOverview, error) {
	var out models.AnalyticsOverview
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roadmaps`).Scan(&out.TotalRoadmaps); err != nil {
		return out, err
	}

	var (
		completions sql.NullInt64
		dropouts    sql.NullInt64
		usefulness  sql.NullFloat64
		bookmarks   sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(completion_count), SUM(dropout_count), AVG(usefulness_score), SUM(bookmark_count)
		FROM roadmap_statistics`).Scan(&completions, &dropouts, &usefulness, &bookmarks)
	if err != nil {
		return out, err
	}
	out.TotalCompletions = int(completions.Int64)
	out.TotalDropouts = int(dropouts.Int64)
	out.AvgUsefulness = usefulness.Float64
	out.TotalBookmarks = int(bookmarks.Int64)
	return out, nil
}

// TopicStats 以第一个标签为主题分组的统计
func (r *RoadmapRepo) TopicStats(ctx context.Context) ([]models.TopicStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT TRIM(SUBSTRING_INDEX(r.tags, ',', 1)) AS topic,
		       COUNT(*), AVG(s.usefulness_score), AVG(s.completion_count), AVG(s.bookmark_count)
		FROM roadmaps r
		JOIN roadmap_statistics s ON s.roadmap_id = r.roadmap_id
		GROUP BY topic
		ORDER BY topic`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]models.TopicStat, 0)
	for rows.Next() {
		var (
			st    models.TopicStat
			topic sql.NullString
		)
		if err := rows.Scan(&topic, &st.Count, &st.AvgUsefulness, &st.AvgCompletions, &st.AvgBookmarks); err != nil {
			return nil, fmt.Errorf("scan topic stat: %w", err)
		}
		st.Topic = topic.String
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
