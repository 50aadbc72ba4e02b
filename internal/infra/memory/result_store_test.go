package memory

import (
	"context"
	"testing"

	"care-companion/internal/domain"
)

func TestResultStoreBoundsAndOrders(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore(2)

	for i := 1; i <= 3; i++ {
		_ = store.Record(ctx, domain.ResultRecord{SubjectID: "senior-1", Summary: domain.Summary{Score: i * 10}})
	}
	_ = store.Record(ctx, domain.ResultRecord{SubjectID: "senior-2", Summary: domain.Summary{Score: 99}})

	records, err := store.Recent(ctx, "senior-1", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 || records[0].Summary.Score != 30 || records[1].Summary.Score != 20 {
		t.Fatalf("unexpected records %+v", records)
	}

	one, _ := store.Recent(ctx, "senior-1", 1)
	if len(one) != 1 || one[0].Summary.Score != 30 {
		t.Fatalf("expected newest only, got %+v", one)
	}
	if none, _ := store.Recent(ctx, "unknown", 5); len(none) != 0 {
		t.Fatalf("expected no records, got %+v", none)
	}
}
