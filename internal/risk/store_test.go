package risk

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := &Assessment{
		ID:            "risk_1",
		TransactionID: "txn_1",
		UserID:        "usr_1",
		RiskScore:     35,
		RiskLevel:     LevelMedium,
		Flags:         []string{"High-value transaction exceeds $10,000"},
		LargeAmount:   true,
		AnalysisDetails: map[string]float64{
			"recent_transaction_count": 0,
			"hour_of_day":              14,
		},
		EvaluatedAt: time.Now(),
	}
	if err := store.Record(ctx, a); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := store.GetByTransaction(ctx, "txn_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RiskScore != 35 || got.RiskLevel != LevelMedium {
		t.Errorf("got score=%d level=%s", got.RiskScore, got.RiskLevel)
	}

	// Mutating the returned copy must not affect the stored record.
	got.Flags[0] = "tampered"
	again, _ := store.GetByTransaction(ctx, "txn_1")
	if again.Flags[0] != "High-value transaction exceeds $10,000" {
		t.Error("store returned aliased flags slice")
	}

	if _, err := store.GetByTransaction(ctx, "txn_missing"); err != ErrAssessmentNotFound {
		t.Errorf("missing transaction: err = %v", err)
	}
}

func TestMemoryStoreListByUser(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = store.Record(ctx, &Assessment{
			ID:            "risk_" + string(rune('a'+i)),
			TransactionID: "txn_" + string(rune('a'+i)),
			UserID:        "usr_1",
			RiskScore:     i * 10,
			RiskLevel:     Classify(i * 10),
		})
	}

	list, err := store.ListByUser(ctx, "usr_1", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	// Most recent first.
	if list[0].TransactionID != "txn_e" || list[2].TransactionID != "txn_c" {
		t.Errorf("unexpected order: %s, %s", list[0].TransactionID, list[2].TransactionID)
	}

	empty, err := store.ListByUser(ctx, "usr_other", 10)
	if err != nil || empty != nil {
		t.Errorf("unknown user: %v, %v", empty, err)
	}
}
