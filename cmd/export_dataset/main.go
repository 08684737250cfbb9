// export_dataset 手动导出一份训练数据集快照，不清理旧快照和模型文件
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"roadmap_tutor/config"
	"roadmap_tutor/dataset"
	"roadmap_tutor/db"
	"roadmap_tutor/logger"
	"roadmap_tutor/repository"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，为空时使用环境变量和 config.yaml")
	timeout := flag.Duration("timeout", 2*time.Minute, "导出超时")
	flag.Parse()

	var cfg *config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(*configPath)
		if err != nil {
			log.Fatalf("load config failed: %v", err)
		}
	} else {
		cfg = config.Load()
	}

	if err := logger.Init(cfg); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	if err := db.InitMySQLWithConfig(cfg); err != nil {
		logger.Error("init mysql failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store := dataset.NewFileSnapshotStore(cfg.Dataset.Dir)
	exporter := dataset.NewCSVExporter(repository.NewRoadmapRepo(db.DB), store)

	ref, rows, err := exporter.Export(ctx)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if rows == 0 {
		logger.Warn("no roadmaps to export", "dir", store.Dir())
		os.Exit(1)
	}

	fmt.Println(ref.Path)
	logger.Info("dataset exported", "path", ref.Path, "rows", rows)
}
