package db

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jspencer/fieldlink/internal/config"
	"github.com/jspencer/fieldlink/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	g, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := Migrate(g); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return g
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DBConfig
		want string
	}{
		{
			name: "defaults to root without password",
			cfg:  config.DBConfig{Host: "127.0.0.1", Port: 3306, Database: "fieldlink_m9"},
			want: "root@tcp(127.0.0.1:3306)/fieldlink_m9?parseTime=true",
		},
		{
			name: "user and password",
			cfg:  config.DBConfig{Host: "10.0.0.5", Port: 3307, User: "fl", Password: "s3cret", Database: "yard"},
			want: "fl:s3cret@tcp(10.0.0.5:3307)/yard?parseTime=true",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.DBConfig{Driver: "dolt"})
	if err == nil {
		t.Fatal("expected error for unsupported driver, got nil")
	}
}

func TestConnect_Sqlite(t *testing.T) {
	g, err := Connect(config.DBConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g == nil {
		t.Fatal("Connect returned nil db")
	}
}

func TestSaveSnapshot_RewritesSingleRow(t *testing.T) {
	store := NewStore(openTestDB(t))

	if err := store.SaveSnapshot(true, &models.Job{ID: 42, Status: models.StatusWorking}); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if err := store.SaveSnapshot(false, nil); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	snap, err := store.Snapshot()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snap == nil {
		t.Fatal("snapshot is nil")
	}
	if snap.Online {
		t.Error("Online = true, want false (latest write wins)")
	}
	if snap.ActiveJobID != nil {
		t.Errorf("ActiveJobID = %v, want nil", *snap.ActiveJobID)
	}

	var count int64
	store.g.Model(&models.SessionSnapshot{}).Count(&count)
	if count != 1 {
		t.Errorf("snapshot rows = %d, want 1", count)
	}
}

func TestSnapshot_EmptyDB(t *testing.T) {
	store := NewStore(openTestDB(t))
	snap, err := store.Snapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap != nil {
		t.Errorf("snapshot = %+v, want nil", snap)
	}
}

func TestRecordJob_AndFinishedJobsSince(t *testing.T) {
	store := NewStore(openTestDB(t))

	jobs := []models.Job{
		{ID: 1, Status: models.StatusCompleted, Price: 120},
		{ID: 2, Status: models.StatusCancelled},
		{ID: 3, Status: models.StatusWorking}, // not terminal, excluded
	}
	for i := range jobs {
		if err := store.RecordJob(&jobs[i]); err != nil {
			t.Fatalf("record job %d: %v", jobs[i].ID, err)
		}
	}

	// Re-record job 1 with a new price: upsert, not duplicate.
	jobs[0].Price = 150
	if err := store.RecordJob(&jobs[0]); err != nil {
		t.Fatalf("re-record job 1: %v", err)
	}

	got, err := store.FinishedJobsSince(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("finished jobs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(finished) = %d, want 2", len(got))
	}
	for _, j := range got {
		if j.ID == 1 && j.Price != 150 {
			t.Errorf("job 1 price = %v, want upserted 150", j.Price)
		}
		if j.ID == 3 {
			t.Error("job 3 (WORKING) should not appear in finished jobs")
		}
	}

	got, err = store.FinishedJobsSince(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("finished jobs (future cutoff): %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(finished since future) = %d, want 0", len(got))
	}
}
