// Package dataset 管理推荐进程读取的数据集快照：导出、失效和刷新。
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"roadmap_tutor/logger"
)

const (
	SnapshotPrefix = "ml_dataset_roadmaps_"
	SnapshotExt    = ".csv"

	// 文件名中的时间戳格式，字典序与时间顺序一致
	snapshotTimeLayout = "2006-01-02_150405"
)

// ErrNoSnapshot 目录中没有可用的快照
var ErrNoSnapshot = errors.New("dataset: no snapshot available")

// SnapshotRef 指向一个快照文件
type SnapshotRef struct {
	Name string
	Path string
}

// SnapshotStore 快照存储
type SnapshotStore interface {
	Latest() (SnapshotRef, error)
	Create(ctx context.Context, write func(io.Writer) error) (SnapshotRef, error)
	InvalidateAll() (int, error)
	List() ([]SnapshotRef, error)
}

// FileSnapshotStore 基于本地目录的快照存储
type FileSnapshotStore struct {
	dir string
	now func() time.Time
}

func NewFileSnapshotStore(dir string) *FileSnapshotStore {
	return &FileSnapshotStore{dir: dir, now: time.Now}
}

// Dir 快照目录
func (s *FileSnapshotStore) Dir() string {
	return s.dir
}

// IsSnapshotName 文件名是否为数据集快照
func IsSnapshotName(name string) bool {
	return strings.HasPrefix(name, SnapshotPrefix) && filepath.Ext(name) == SnapshotExt
}

// SnapshotName 按时间生成快照文件名
func SnapshotName(t time.Time) string {
	return SnapshotPrefix + t.Format(snapshotTimeLayout) + SnapshotExt
}

// List 按文件名升序返回所有快照，目录不存在时返回空列表
func (s *FileSnapshotStore) List() ([]SnapshotRef, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SnapshotRef{}, nil
		}
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	refs := make([]SnapshotRef, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsSnapshotName(e.Name()) {
			continue
		}
		refs = append(refs, SnapshotRef{Name: e.Name(), Path: filepath.Join(s.dir, e.Name())})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Latest 文件名最大的快照
func (s *FileSnapshotStore) Latest() (SnapshotRef, error) {
	refs, err := s.List()
	if err != nil {
		return SnapshotRef{}, err
	}
	if len(refs) == 0 {
		return SnapshotRef{}, ErrNoSnapshot
	}
	return refs[len(refs)-1], nil
}

// InvalidateAll 删除所有快照，返回删除的数量
func (s *FileSnapshotStore) InvalidateAll() (int, error) {
	refs, err := s.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, ref := range refs {
		if err := os.Remove(ref.Path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove snapshot %s: %w", ref.Name, err)
		}
		logger.Info("old dataset removed", "file", ref.Name)
		removed++
	}
	return removed, nil
}

// Create 写入新快照。内容先写入同目录的临时文件，完成后再重命名，
// 读者不会看到写了一半的快照。
func (s *FileSnapshotStore) Create(ctx context.Context, write func(io.Writer) error) (SnapshotRef, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return SnapshotRef{}, fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".snapshot-*.tmp")
	if err != nil {
		return SnapshotRef{}, fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		tmp.Close()
		return SnapshotRef{}, err
	}
	if err := tmp.Close(); err != nil {
		return SnapshotRef{}, fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return SnapshotRef{}, err
	}

	name := SnapshotName(s.now())
	final := filepath.Join(s.dir, name)
	if err := os.Rename(tmpPath, final); err != nil {
		return SnapshotRef{}, fmt.Errorf("commit snapshot: %w", err)
	}
	committed = true
	return SnapshotRef{Name: name, Path: final}, nil
}
