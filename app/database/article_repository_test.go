package database

import (
	"testing"
	"time"
)

func TestArticleViewCountIncrements(t *testing.T) {
	repo := NewArticleRepository(newTestDB(t))

	article := Article{
		Slug:     "fall-guide",
		Title:    "Fall Guide to Thornton",
		Content:  "Leaf-peeping and pumpkin patches.",
		Category: "Guides",
		Tags:     []string{"fall", "guide"},
	}
	if err := repo.Create(article); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := repo.IncrementViewCount("fall-guide"); err != nil {
			t.Fatalf("IncrementViewCount failed: %v", err)
		}
	}

	stored, err := repo.GetBySlug("fall-guide")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if stored.ViewCount != 3 {
		t.Errorf("Expected view count 3, got %d", stored.ViewCount)
	}
	if len(stored.Tags) != 2 || stored.Tags[0] != "fall" {
		t.Errorf("Unexpected tags round-trip: %v", stored.Tags)
	}
}

func TestArticlePublishLifecycle(t *testing.T) {
	repo := NewArticleRepository(newTestDB(t))

	if err := repo.Create(Article{Slug: "draft-post", Title: "Draft"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	published, err := repo.ListPublished(10)
	if err != nil {
		t.Fatalf("ListPublished failed: %v", err)
	}
	if len(published) != 0 {
		t.Errorf("Expected no published articles, got %d", len(published))
	}

	publishedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Publish("draft-post", publishedAt); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	published, err = repo.ListPublished(10)
	if err != nil {
		t.Fatalf("ListPublished failed: %v", err)
	}
	if len(published) != 1 {
		t.Fatalf("Expected 1 published article, got %d", len(published))
	}
	if published[0].Status != "published" || published[0].PublishedAt == nil {
		t.Errorf("Unexpected published article: %+v", published[0])
	}

	if err := repo.Publish("missing", publishedAt); err == nil {
		t.Error("Expected error publishing a missing article")
	}
}

func TestSourceRegistryRecordRun(t *testing.T) {
	repo := NewSourceRepository(newTestDB(t))

	if err := repo.UpsertSource("city-thornton", "City of Thornton", "ai-scraped", "https://example.com/calendar", true); err != nil {
		t.Fatalf("UpsertSource failed: %v", err)
	}

	ranAt := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	nextRun := ranAt.Add(6 * time.Hour)
	if err := repo.RecordRun("city-thornton", "ok", "", 12, ranAt, &nextRun); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	source, err := repo.GetSource("city-thornton")
	if err != nil {
		t.Fatalf("GetSource failed: %v", err)
	}
	if source == nil {
		t.Fatal("Expected source to exist")
	}
	if source.LastStatus != "ok" || source.LastEventCount != 12 {
		t.Errorf("Unexpected run record: %+v", source)
	}
	if source.LastRunAt == nil || !source.LastRunAt.Equal(ranAt) {
		t.Errorf("Expected last_run_at %v, got %v", ranAt, source.LastRunAt)
	}

	// Config re-sync must not erase run history.
	if err := repo.UpsertSource("city-thornton", "City of Thornton", "ai-scraped", "https://example.com/calendar", true); err != nil {
		t.Fatalf("Re-sync failed: %v", err)
	}
	source, err = repo.GetSource("city-thornton")
	if err != nil {
		t.Fatalf("GetSource failed: %v", err)
	}
	if source.LastStatus != "ok" {
		t.Errorf("Expected run history to survive config re-sync, got %+v", source)
	}

	due, err := repo.ListDue(nextRun.Add(time.Minute))
	if err != nil {
		t.Fatalf("ListDue failed: %v", err)
	}
	if len(due) != 1 {
		t.Errorf("Expected 1 due source, got %d", len(due))
	}

	due, err = repo.ListDue(ranAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("ListDue failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("Expected no due sources before next_run_at, got %d", len(due))
	}
}
