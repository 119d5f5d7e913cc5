package catalog

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleRecord(id string) Record {
	started := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return Record{
		ID:            id,
		FileName:      "record.wav",
		Path:          "/recordings/record.wav",
		SampleRate:    16000,
		BitsPerSample: 16,
		Channels:      1,
		Bytes:         320000,
		Seconds:       10,
		Completed:     true,
		Strength:      "strong",
		AvgAmplitude:  1500.5,
		Peak:          9000,
		DominantHz:    440,
		StartedAt:     started,
		FinishedAt:    started.Add(10 * time.Second),
	}
}

func TestPutAndGet(t *testing.T) {
	c := openTestCatalog(t)

	want := sampleRecord(NewID(time.Now()))
	if err := c.Put(want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := c.Get(want.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FileName != want.FileName || got.Bytes != want.Bytes || got.Completed != want.Completed {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
	if !got.StartedAt.Equal(want.StartedAt) || !got.FinishedAt.Equal(want.FinishedAt) {
		t.Errorf("timestamps = %v/%v, want %v/%v", got.StartedAt, got.FinishedAt, want.StartedAt, want.FinishedAt)
	}
	if got.Strength != want.Strength || got.DominantHz != want.DominantHz {
		t.Errorf("analysis fields = %q/%v, want %q/%v", got.Strength, got.DominantHz, want.Strength, want.DominantHz)
	}
}

func TestPutRequiresID(t *testing.T) {
	c := openTestCatalog(t)
	if err := c.Put(Record{}); err == nil {
		t.Fatal("Put accepted a record without an id")
	}
}

func TestGetUnknownID(t *testing.T) {
	c := openTestCatalog(t)
	if _, err := c.Get(NewID(time.Now())); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get: got %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	c := openTestCatalog(t)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		id := NewID(base.Add(time.Duration(i) * time.Minute))
		ids = append(ids, id)
		if err := c.Put(sampleRecord(id)); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}

	records, err := c.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("List returned %d records, want 3", len(records))
	}
	for i, rec := range records {
		if want := ids[len(ids)-1-i]; rec.ID != want {
			t.Errorf("records[%d].ID = %s, want %s", i, rec.ID, want)
		}
	}

	limited, err := c.List(2)
	if err != nil {
		t.Fatalf("List(2): %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("List(2) returned %d records", len(limited))
	}
	if limited[0].ID != ids[2] || limited[1].ID != ids[1] {
		t.Errorf("List(2) = %s, %s, want %s, %s", limited[0].ID, limited[1].ID, ids[2], ids[1])
	}
}

func TestDelete(t *testing.T) {
	c := openTestCatalog(t)

	rec := sampleRecord(NewID(time.Now()))
	if err := c.Put(rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Delete(rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete: got %v, want ErrNotFound", err)
	}

	// Unknown ids delete cleanly.
	if err := c.Delete(NewID(time.Now())); err != nil {
		t.Errorf("Delete of unknown id: %v", err)
	}
}

func TestNewIDSortsByTime(t *testing.T) {
	earlier := NewID(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	later := NewID(time.Date(2024, 6, 1, 12, 0, 1, 0, time.UTC))
	if !(earlier < later) {
		t.Errorf("ids do not sort by time: %s >= %s", earlier, later)
	}
	if len(earlier) != len(later) {
		t.Errorf("ids have different lengths: %d vs %d", len(earlier), len(later))
	}
}
