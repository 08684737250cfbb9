package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"roadmap_tutor/logger"
	"roadmap_tutor/metrics"
	"roadmap_tutor/models"
	"roadmap_tutor/scoring"
)

// Columns 数据集的列顺序，推荐进程按列名读取
var Columns = []string{
	"roadmap_id", "name", "tags",
	"completion_count", "dropout_count", "avg_hours_spent", "avg_nodes_completed",
	"bookmark_count", "usefulness_score",
	"completion_rate", "dropout_rate", "efficiency_rate", "engagement_score",
	"created_at",
}

const createdAtLayout = "2006-01-02 15:04:05"

// StatisticsSource 提供所有带统计数据的路线图
type StatisticsSource interface {
	ListWithStatistics(ctx context.Context) ([]models.RoadmapWithStats, error)
}

// Exporter 生成一份新的数据集快照，返回快照及导出的行数
type Exporter interface {
	Export(ctx context.Context) (SnapshotRef, int, error)
}

// CSVExporter 将路线图统计导出为 CSV 快照
type CSVExporter struct {
	source StatisticsSource
	store  SnapshotStore
}

func NewCSVExporter(source StatisticsSource, store SnapshotStore) *CSVExporter {
	return &CSVExporter{source: source, store: store}
}

// Export 没有任何可导出的路线图时不写文件，返回 0 行
func (e *CSVExporter) Export(ctx context.Context) (SnapshotRef, int, error) {
	roadmaps, err := e.source.ListWithStatistics(ctx)
	if err != nil {
		return SnapshotRef{}, 0, fmt.Errorf("load roadmaps: %w", err)
	}

	rows := make([]models.RoadmapWithStats, 0, len(roadmaps))
	for _, r := range roadmaps {
		if r.Statistics != nil {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		logger.Warn("no roadmaps with statistics to export")
		return SnapshotRef{}, 0, nil
	}

	ref, err := e.store.Create(ctx, func(w io.Writer) error {
		return WriteCSV(w, rows)
	})
	if err != nil {
		return SnapshotRef{}, 0, fmt.Errorf("write dataset: %w", err)
	}

	metrics.DatasetRows.Set(float64(len(rows)))
	logger.Info("dataset exported", "file", ref.Name, "rows", len(rows))
	return ref, len(rows), nil
}

// WriteCSV 写出表头和数据行；没有统计数据的行会被跳过
func WriteCSV(w io.Writer, rows []models.RoadmapWithStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if r.Statistics == nil {
			continue
		}
		if err := cw.Write(csvRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRecord(r models.RoadmapWithStats) []string {
	s := *r.Statistics
	createdAt := ""
	if !r.CreatedAt.IsZero() {
		createdAt = r.CreatedAt.Format(createdAtLayout)
	}
	return []string{
		r.RoadmapID,
		r.Name,
		r.Tags,
		strconv.Itoa(s.CompletionCount),
		strconv.Itoa(s.DropoutCount),
		formatFloat(s.AvgHoursSpent),
		formatFloat(s.AvgNodesCompleted),
		strconv.Itoa(s.BookmarkCount),
		formatFloat(s.UsefulnessScore),
		formatFloat(scoring.Round(scoring.CompletionRate(s), 4)),
		formatFloat(scoring.Round(scoring.DropoutRate(s), 4)),
		formatFloat(scoring.Round(scoring.EfficiencyRate(s), 4)),
		formatFloat(scoring.Round(scoring.EngagementScore(s), 2)),
		createdAt,
	}
}

// formatFloat 最短表示，整数值不带小数点
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
