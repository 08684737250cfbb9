package recommender

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"roadmap_tutor/logger"
	"roadmap_tutor/models"
)

// EnvelopePrefix 请求信封临时文件名前缀
const EnvelopePrefix = "recommender_envelope_"

// WriteEnvelope 将用户画像写入唯一命名的临时文件，返回路径和删除函数。
// 并发请求各自使用独立文件。
func WriteEnvelope(dir string, profile models.PersonalizationProfile) (string, func(), error) {
	id := uuid.NewString()
	if profile.RequestID == "" {
		profile.RequestID = id
	}
	if profile.CompletedRoadmaps == nil {
		profile.CompletedRoadmaps = []string{}
	}
	if profile.CompletedNodes == nil {
		profile.CompletedNodes = []string{}
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return "", nil, fmt.Errorf("encode envelope: %w", err)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}
	path := filepath.Join(dir, EnvelopePrefix+id+".json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", nil, fmt.Errorf("write envelope: %w", err)
	}

	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove envelope", "path", path, "error", err)
		}
	}
	return path, cleanup, nil
}

// SweepEnvelopes 删除目录中超过 maxAge 的残留信封文件（进程崩溃时可能遗留）
func SweepEnvelopes(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), EnvelopePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
