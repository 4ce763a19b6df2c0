package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/studytime-tracker/studytime/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestChild(t *testing.T, db *DB) int64 {
	t.Helper()
	child, err := db.CreateUser(context.Background(), "Mio", domain.RoleChild, "")
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	return child.ID
}

// ─── Wallet Tests ───────────────────────────────────────────────────────────

func TestChildGetsWalletOnRegistration(t *testing.T) {
	db := newTestDB(t)
	childID := newTestChild(t, db)

	w, err := db.GetWallet(context.Background(), childID)
	if err != nil {
		t.Fatalf("GetWallet() error: %v", err)
	}
	if w.Balance != 0 {
		t.Errorf("new wallet balance = %d, want 0", w.Balance)
	}
	if w.DailyLimit != domain.DefaultDailyLimitMinutes {
		t.Errorf("daily limit = %d, want %d", w.DailyLimit, domain.DefaultDailyLimitMinutes)
	}
	if w.CarryOver {
		t.Error("carry_over should default to false")
	}
}

func TestGetWallet_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetWallet(context.Background(), 999)
	if !errors.Is(err, domain.ErrWalletNotFound) {
		t.Errorf("err = %v, want ErrWalletNotFound", err)
	}
}

func TestGetOrCreateWallet_ReturnsExisting(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	childID := newTestChild(t, db)
	if _, err := db.Adjust(ctx, childID, 45, "seed"); err != nil {
		t.Fatal(err)
	}

	w, err := db.GetOrCreateWallet(ctx, childID)
	if err != nil {
		t.Fatalf("GetOrCreateWallet() error: %v", err)
	}
	if w.Balance != 45 {
		t.Errorf("balance = %d, want existing 45", w.Balance)
	}
}

func TestUpdateWalletSettings(t *testing.T) {
	db := newTestDB(t)
	childID := newTestChild(t, db)

	carry := true
	w, err := db.UpdateWalletSettings(context.Background(), childID, 90, &carry)
	if err != nil {
		t.Fatalf("UpdateWalletSettings() error: %v", err)
	}
	if w.DailyLimit != 90 || !w.CarryOver {
		t.Errorf("wallet = %+v, want limit 90, carry_over true", w)
	}

	// Zero limit leaves the limit untouched.
	w, err = db.UpdateWalletSettings(context.Background(), childID, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if w.DailyLimit != 90 || !w.CarryOver {
		t.Errorf("partial update changed untouched fields: %+v", w)
	}
}

func TestResetNonCarryOverWallets(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	keeper := newTestChild(t, db)
	loser := newTestChild(t, db)

	carry := true
	if _, err := db.UpdateWalletSettings(ctx, keeper, 0, &carry); err != nil {
		t.Fatal(err)
	}
	for _, id := range []int64{keeper, loser} {
		if _, err := db.Adjust(ctx, id, 60, "test credit"); err != nil {
			t.Fatal(err)
		}
	}

	n, err := db.ResetNonCarryOverWallets(ctx)
	if err != nil {
		t.Fatalf("ResetNonCarryOverWallets() error: %v", err)
	}
	if n != 1 {
		t.Errorf("reset %d wallets, want 1", n)
	}

	kw, _ := db.GetWallet(ctx, keeper)
	lw, _ := db.GetWallet(ctx, loser)
	if kw.Balance != 60 {
		t.Errorf("carry-over wallet balance = %d, want 60", kw.Balance)
	}
	if lw.Balance != 0 {
		t.Errorf("non-carry-over wallet balance = %d, want 0", lw.Balance)
	}
}

// ─── Grant Ledger Tests ─────────────────────────────────────────────────────

func TestApplyGrant(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	childID := newTestChild(t, db)
	rule, err := db.CreateRule(ctx, domain.RewardRule{
		Kind: domain.TriggerHomeworkComplete, RewardMinutes: 30, Description: "hw", IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	g := domain.GrantRecord{ChildID: childID, RuleID: rule.ID, GrantedMinutes: 30, GrantedDate: "2025-06-15"}
	newBalance, err := db.ApplyGrant(ctx, g)
	if err != nil {
		t.Fatalf("ApplyGrant() error: %v", err)
	}
	if newBalance != 30 {
		t.Errorf("ApplyGrant() balance = %d, want 30", newBalance)
	}

	done, err := db.AlreadyGranted(ctx, childID, rule.ID, "2025-06-15")
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Error("AlreadyGranted() = false after grant")
	}

	w, err := db.GetWallet(ctx, childID)
	if err != nil {
		t.Fatal(err)
	}
	if w.Balance != 30 {
		t.Errorf("balance = %d, want 30", w.Balance)
	}
}

func TestApplyGrant_DuplicateRejectedWithoutMutation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	childID := newTestChild(t, db)
	rule, err := db.CreateRule(ctx, domain.RewardRule{
		Kind: domain.TriggerHomeworkComplete, RewardMinutes: 30, Description: "hw", IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	g := domain.GrantRecord{ChildID: childID, RuleID: rule.ID, GrantedMinutes: 30, GrantedDate: "2025-06-15"}
	if _, err := db.ApplyGrant(ctx, g); err != nil {
		t.Fatal(err)
	}

	_, err = db.ApplyGrant(ctx, g)
	if !errors.Is(err, domain.ErrDuplicateGrant) {
		t.Fatalf("second ApplyGrant err = %v, want ErrDuplicateGrant", err)
	}

	// The losing attempt must not have touched the wallet.
	w, _ := db.GetWallet(ctx, childID)
	if w.Balance != 30 {
		t.Errorf("balance = %d, want 30 (no double credit)", w.Balance)
	}

	grants, err := db.ListGrants(ctx, childID, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 1 {
		t.Errorf("grant records = %d, want 1", len(grants))
	}
}

func TestApplyGrant_DifferentRulesAccumulate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	childID := newTestChild(t, db)
	rule1, err := db.CreateRule(ctx, domain.RewardRule{
		Kind: domain.TriggerHomeworkComplete, RewardMinutes: 30, Description: "hw", IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	rule2, err := db.CreateRule(ctx, domain.RewardRule{
		Kind: domain.TriggerTaskComplete, RewardMinutes: 15, Description: "task", IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Both callers hold a pre-grant view of the wallet. The credit must be
	// computed against the stored balance, so neither grant can overwrite
	// the other's.
	if _, err := db.GetOrCreateWallet(ctx, childID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetOrCreateWallet(ctx, childID); err != nil {
		t.Fatal(err)
	}

	bal1, err := db.ApplyGrant(ctx, domain.GrantRecord{
		ChildID: childID, RuleID: rule1.ID, GrantedMinutes: 30, GrantedDate: "2025-06-15",
	})
	if err != nil {
		t.Fatal(err)
	}
	bal2, err := db.ApplyGrant(ctx, domain.GrantRecord{
		ChildID: childID, RuleID: rule2.ID, GrantedMinutes: 15, GrantedDate: "2025-06-15",
	})
	if err != nil {
		t.Fatal(err)
	}

	if bal1 != 30 || bal2 != 45 {
		t.Errorf("balances = %d, %d; want 30 then 45", bal1, bal2)
	}
	w, _ := db.GetWallet(ctx, childID)
	if w.Balance != 45 {
		t.Errorf("final balance = %d, want 45 (no lost update)", w.Balance)
	}
}

func TestApplyGrant_CapAppliesToStoredBalance(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	childID := newTestChild(t, db)
	rule1, err := db.CreateRule(ctx, domain.RewardRule{
		Kind: domain.TriggerHomeworkComplete, RewardMinutes: 100, Description: "hw", IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	rule2, err := db.CreateRule(ctx, domain.RewardRule{
		Kind: domain.TriggerTaskComplete, RewardMinutes: 100, Description: "task", IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := db.ApplyGrant(ctx, domain.GrantRecord{
		ChildID: childID, RuleID: rule1.ID, GrantedMinutes: 100, GrantedDate: "2025-06-15",
	}); err != nil {
		t.Fatal(err)
	}
	bal, err := db.ApplyGrant(ctx, domain.GrantRecord{
		ChildID: childID, RuleID: rule2.ID, GrantedMinutes: 100, GrantedDate: "2025-06-15",
	})
	if err != nil {
		t.Fatal(err)
	}
	if bal != domain.DefaultDailyLimitMinutes {
		t.Errorf("balance = %d, want capped %d", bal, domain.DefaultDailyLimitMinutes)
	}

	// Records keep the offered amounts even when the cap absorbed less.
	grants, err := db.ListGrants(ctx, childID, "2025-06-15")
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range grants {
		if g.GrantedMinutes != 100 {
			t.Errorf("recorded GrantedMinutes = %d, want offered 100", g.GrantedMinutes)
		}
	}
}

func TestApplyGrant_SameRuleDifferentDays(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	childID := newTestChild(t, db)
	rule, err := db.CreateRule(ctx, domain.RewardRule{
		Kind: domain.TriggerHomeworkComplete, RewardMinutes: 30, Description: "hw", IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, day := range []string{"2025-06-14", "2025-06-15"} {
		g := domain.GrantRecord{ChildID: childID, RuleID: rule.ID, GrantedMinutes: 30, GrantedDate: day}
		if _, err := db.ApplyGrant(ctx, g); err != nil {
			t.Fatalf("ApplyGrant(%s) error: %v", day, err)
		}
	}

	grants, err := db.ListGrants(ctx, childID, "2025-06-15")
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 1 {
		t.Errorf("date-filtered grants = %d, want 1", len(grants))
	}
}

// ─── Consumption Tests ──────────────────────────────────────────────────────

func TestConsume(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	childID := newTestChild(t, db)
	if _, err := db.Adjust(ctx, childID, 60, "seed"); err != nil {
		t.Fatal(err)
	}

	rec, err := db.Consume(ctx, childID, domain.ActivitySwitch, 30, "Mario Kart")
	if err != nil {
		t.Fatalf("Consume() error: %v", err)
	}
	if rec.ConsumedMinutes != 30 || rec.Kind != domain.ActivitySwitch || rec.Source != "consumption" {
		t.Errorf("unexpected record: %+v", rec)
	}

	w, _ := db.GetWallet(ctx, childID)
	if w.Balance != 30 {
		t.Errorf("balance = %d, want 30", w.Balance)
	}
}

func TestConsume_InsufficientBalanceLeavesWalletUnchanged(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	childID := newTestChild(t, db)
	if _, err := db.Adjust(ctx, childID, 20, "seed"); err != nil {
		t.Fatal(err)
	}

	_, err := db.Consume(ctx, childID, domain.ActivityTablet, 30, "YouTube")
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	w, _ := db.GetWallet(ctx, childID)
	if w.Balance != 20 {
		t.Errorf("balance = %d, want unchanged 20", w.Balance)
	}
	logs, _ := db.ListConsumptions(ctx, childID, 0)
	if len(logs) != 1 { // only the seed adjustment
		t.Errorf("consumption logs = %d, want 1", len(logs))
	}
}

func TestAdjust_AboveCapAllowed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	childID := newTestChild(t, db)

	// Manual adjustments intentionally ignore the daily cap.
	w, err := db.Adjust(ctx, childID, 200, "birthday bonus")
	if err != nil {
		t.Fatalf("Adjust() error: %v", err)
	}
	if w.Balance != 200 {
		t.Errorf("balance = %d, want 200 (above the 120 cap)", w.Balance)
	}

	logs, err := db.ListConsumptions(ctx, childID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].ConsumedMinutes != -200 || logs[0].Source != "manual" {
		t.Errorf("adjustment log = %+v, want -200 manual credit", logs)
	}
}

func TestAdjust_NegativeBeyondBalance(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	childID := newTestChild(t, db)
	if _, err := db.Adjust(ctx, childID, 30, "seed"); err != nil {
		t.Fatal(err)
	}

	_, err := db.Adjust(ctx, childID, -40, "oops")
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	w, _ := db.GetWallet(ctx, childID)
	if w.Balance != 30 {
		t.Errorf("balance = %d, want unchanged 30", w.Balance)
	}
}
