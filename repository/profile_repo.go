package repository

import (
	"context"
	"database/sql"
	"strings"
)

// =====================
// 通用工具函数
// =====================

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryStrings 执行查询并返回非空字符串结果列表
func queryStrings(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]string, 0)
	for rows.Next() {
		var val sql.NullString
		if err := rows.Scan(&val); err != nil {
			return nil, err
		}
		if s := strings.TrimSpace(val.String); val.Valid && s != "" {
			results = append(results, s)
		}
	}
	return results, rows.Err()
}

// =====================
// 用户学习画像
// =====================

// ProfileRepo 读取用户的点赞和节点完成记录
type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(conn *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: conn}
}

// LikedRoadmapIDs 用户点赞过的路线图 ID，按点赞时间排序
func (r *ProfileRepo) LikedRoadmapIDs(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return []string{}, nil
	}
	return queryStrings(ctx, r.db, `
		SELECT entity_id FROM reactions
		WHERE user_id = ? AND entity_type = 'roadmap' AND reaction_type = 'like'
		ORDER BY created_at, entity_id`, userID)
}

// CompletedNodeIDs 用户已完成的节点 ID
func (r *ProfileRepo) CompletedNodeIDs(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return []string{}, nil
	}
	return queryStrings(ctx, r.db, `
		SELECT node_id FROM node_progress
		WHERE user_id = ? AND completed = 1
		ORDER BY completed_at, node_id`, userID)
}
