package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"roadmap_tutor/logger"
	"roadmap_tutor/metrics"
)

// ErrDatasetGeneration 刷新后没有生成任何快照
var ErrDatasetGeneration = errors.New("no roadmaps in the data store to export")

// Orchestrator 负责在调用推荐进程前准备数据集
type Orchestrator struct {
	store      SnapshotStore
	exporter   Exporter
	modelsDir  string
	modelFiles []string
}

func NewOrchestrator(store SnapshotStore, exporter Exporter, modelsDir string, modelFiles []string) *Orchestrator {
	return &Orchestrator{
		store:      store,
		exporter:   exporter,
		modelsDir:  modelsDir,
		modelFiles: modelFiles,
	}
}

// Refresh 删除所有旧快照和缓存的模型文件后重新导出，返回最新快照的路径。
// 每次调用都会重新导出，不做缓存。
func (o *Orchestrator) Refresh(ctx context.Context) (path string, err error) {
	start := time.Now()
	defer func() { metrics.RecordDatasetRefresh("refresh", time.Since(start), err) }()

	logger.Info("generating fresh dataset")

	if _, err := o.store.InvalidateAll(); err != nil {
		return "", fmt.Errorf("invalidate snapshots: %w", err)
	}
	if err := o.removeModelArtifacts(); err != nil {
		return "", err
	}
	return o.export(ctx)
}

// Ensure 已有快照时直接复用，否则导出一份；不会删除模型文件
func (o *Orchestrator) Ensure(ctx context.Context) (path string, err error) {
	start := time.Now()
	defer func() { metrics.RecordDatasetRefresh("ensure", time.Since(start), err) }()

	ref, err := o.store.Latest()
	if err == nil {
		return ref.Path, nil
	}
	if !errors.Is(err, ErrNoSnapshot) {
		return "", err
	}
	return o.export(ctx)
}

func (o *Orchestrator) export(ctx context.Context) (string, error) {
	if _, _, err := o.exporter.Export(ctx); err != nil {
		return "", fmt.Errorf("export dataset: %w", err)
	}

	ref, err := o.store.Latest()
	if errors.Is(err, ErrNoSnapshot) {
		return "", ErrDatasetGeneration
	}
	if err != nil {
		return "", err
	}

	logger.Info("fresh dataset generated", "file", ref.Name)
	return ref.Path, nil
}

// removeModelArtifacts 删除推荐进程缓存的模型，迫使其基于新数据集重新训练
func (o *Orchestrator) removeModelArtifacts() error {
	if o.modelsDir == "" {
		return nil
	}
	for _, name := range o.modelFiles {
		full := filepath.Join(o.modelsDir, name)
		err := os.Remove(full)
		switch {
		case err == nil:
			logger.Info("old model artifact removed", "file", name)
		case os.IsNotExist(err):
		default:
			return fmt.Errorf("remove model artifact %s: %w", name, err)
		}
	}
	return nil
}
