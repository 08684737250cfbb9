package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"roadmap_tutor/models"
)

type fakeSource struct {
	rows []models.RoadmapWithStats
	err  error
}

func (f *fakeSource) ListWithStatistics(context.Context) ([]models.RoadmapWithStats, error) {
	return f.rows, f.err
}

func sampleRows() []models.RoadmapWithStats {
	desc := "intro"
	return []models.RoadmapWithStats{
		{
			Roadmap: models.Roadmap{
				RoadmapID:   "r1",
				Name:        `JS "Basics", part 1`,
				Description: &desc,
				Tags:        "JavaScript,Web",
				CreatedAt:   time.Date(2025, 11, 15, 9, 30, 0, 0, time.UTC),
			},
			Statistics: &models.RoadmapStatistics{
				CompletionCount:   80,
				DropoutCount:      20,
				AvgHoursSpent:     10,
				AvgNodesCompleted: 8,
				BookmarkCount:     7,
				UsefulnessScore:   4.5,
			},
		},
		{Roadmap: models.Roadmap{RoadmapID: "r2", Name: "No stats", Tags: "go"}},
	}
}

func newStore(t *testing.T, dir string, at time.Time) *FileSnapshotStore {
	t.Helper()
	s := NewFileSnapshotStore(dir)
	s.now = func() time.Time { return at }
	return s
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSnapshotName(t *testing.T) {
	got := SnapshotName(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	if got != "ml_dataset_roadmaps_2025-01-02_030405.csv" {
		t.Errorf("SnapshotName = %s", got)
	}
	if !IsSnapshotName(got) {
		t.Error("generated name must be recognised as snapshot")
	}
	for _, name := range []string{"ml_dataset_roadmaps_x.txt", "other.csv", ".snapshot-123.tmp"} {
		if IsSnapshotName(name) {
			t.Errorf("%s must not be a snapshot", name)
		}
	}
}

func TestFileSnapshotStoreLatestAndInvalidate(t *testing.T) {
	dir := t.TempDir()
	store := NewFileSnapshotStore(dir)

	if _, err := store.Latest(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("empty dir: err = %v, want ErrNoSnapshot", err)
	}

	touch(t, filepath.Join(dir, "ml_dataset_roadmaps_2025-01-01_000000.csv"))
	touch(t, filepath.Join(dir, "ml_dataset_roadmaps_2025-03-01_000000.csv"))
	touch(t, filepath.Join(dir, "ml_dataset_roadmaps_2025-02-01_000000.csv"))
	touch(t, filepath.Join(dir, "unrelated.csv"))

	latest, err := store.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Name != "ml_dataset_roadmaps_2025-03-01_000000.csv" {
		t.Errorf("Latest = %s", latest.Name)
	}

	n, err := store.InvalidateAll()
	if err != nil || n != 3 {
		t.Fatalf("InvalidateAll = %d, %v", n, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "unrelated.csv")); err != nil {
		t.Error("unrelated files must survive invalidation")
	}
}

func TestFileSnapshotStoreCreateFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	store := NewFileSnapshotStore(dir)

	_, err := store.Create(context.Background(), func(w io.Writer) error {
		io.WriteString(w, "half")
		return errors.New("disk full")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected empty dir, found %d entries", len(entries))
	}
}

func TestWriteCSV(t *testing.T) {
	var buf strings.Builder
	if err := WriteCSV(&buf, sampleRows()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want header + 1 row", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(Columns, ",") {
		t.Errorf("header = %v", records[0])
	}

	want := []string{
		"r1", `JS "Basics", part 1`, "JavaScript,Web",
		"80", "20", "10", "8", "7", "4.5",
		"0.8", "0.2", "0.8", "31.5",
		"2025-11-15 09:30:00",
	}
	for i, v := range want {
		if records[1][i] != v {
			t.Errorf("column %s = %q, want %q", Columns[i], records[1][i], v)
		}
	}
}

func TestCSVExporterNoRows(t *testing.T) {
	dir := t.TempDir()
	exp := NewCSVExporter(&fakeSource{}, NewFileSnapshotStore(dir))
	ref, n, err := exp.Export(context.Background())
	if err != nil || n != 0 || ref.Path != "" {
		t.Fatalf("Export = %+v, %d, %v", ref, n, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Error("no file should be written when there is nothing to export")
	}
}

func TestRefreshLeavesExactlyOneSnapshotAndRemovesModels(t *testing.T) {
	dir := t.TempDir()
	modelsDir := t.TempDir()
	touch(t, filepath.Join(dir, "ml_dataset_roadmaps_2020-01-01_000000.csv"))
	touch(t, filepath.Join(dir, "ml_dataset_roadmaps_2021-01-01_000000.csv"))
	touch(t, filepath.Join(modelsDir, "roadmap_model.pkl"))
	touch(t, filepath.Join(modelsDir, "scaler.pkl"))
	touch(t, filepath.Join(modelsDir, "keep.txt"))

	store := newStore(t, dir, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	orch := NewOrchestrator(store, NewCSVExporter(&fakeSource{rows: sampleRows()}, store),
		modelsDir, []string{"roadmap_model.pkl", "scaler.pkl"})

	path, err := orch.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if filepath.Base(path) != "ml_dataset_roadmaps_2025-06-01_120000.csv" {
		t.Errorf("path = %s", path)
	}

	refs, _ := store.List()
	if len(refs) != 1 {
		t.Fatalf("snapshots after refresh = %d, want 1", len(refs))
	}
	for _, name := range []string{"roadmap_model.pkl", "scaler.pkl"} {
		if _, err := os.Stat(filepath.Join(modelsDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should be removed", name)
		}
	}
	if _, err := os.Stat(filepath.Join(modelsDir, "keep.txt")); err != nil {
		t.Error("unrelated model dir files must survive")
	}
}

func TestRefreshWithoutRoadmapsFails(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "ml_dataset_roadmaps_2020-01-01_000000.csv"))
	store := NewFileSnapshotStore(dir)
	orch := NewOrchestrator(store, NewCSVExporter(&fakeSource{}, store), "", nil)

	_, err := orch.Refresh(context.Background())
	if !errors.Is(err, ErrDatasetGeneration) {
		t.Fatalf("err = %v, want ErrDatasetGeneration", err)
	}
	if refs, _ := store.List(); len(refs) != 0 {
		t.Error("stale snapshot must not survive a failed refresh")
	}
}

func TestEnsureReusesExistingSnapshot(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "ml_dataset_roadmaps_2024-01-01_000000.csv")
	touch(t, existing)

	src := &fakeSource{err: errors.New("must not be called")}
	store := NewFileSnapshotStore(dir)
	orch := NewOrchestrator(store, NewCSVExporter(src, store), "", nil)

	path, err := orch.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if path != existing {
		t.Errorf("path = %s, want %s", path, existing)
	}
}

func TestEnsureExportsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	store := newStore(t, dir, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	orch := NewOrchestrator(store, NewCSVExporter(&fakeSource{rows: sampleRows()}, store), "", nil)

	path, err := orch.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}
}
