package models_test

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/models"
	"github.com/mmdatafocus/gem_ledger/valuation"
	"github.com/shopspring/decimal"
)

var actor = models.Actor{Id: "user-1", Email: "admin@gems.lk", Role: models.UserRoleAdmin}

func TestDiffActivity_CreateIsSingleEntry(t *testing.T) {
	snap := models.Snapshot{"gem_type": "Ruby", "weight_ct": decimal.NewFromInt(3)}
	for _, note := range []string{"", "Initial Stock Entry"} {
		entries := models.DiffActivity(actor, "gem-1", models.EntityTypeGem, nil, snap, note)
		if len(entries) != 1 {
			t.Fatalf("expected exactly one entry, got %d", len(entries))
		}
		e := entries[0]
		if e.ActionType != models.ActionTypeCreate || e.FieldChanged != "ALL" || e.OldValue != nil {
			t.Fatalf("unexpected create entry %+v", e)
		}
		if e.NewValue == nil || *e.NewValue != "Created new gem" {
			t.Fatalf("unexpected new value %v", e.NewValue)
		}
		want := note
		if want == "" {
			want = "Initial Entry"
		}
		if e.Note != want {
			t.Fatalf("expected note %q, got %q", want, e.Note)
		}
		if e.GemId == nil || *e.GemId != "gem-1" || e.CapitalId != nil {
			t.Fatalf("expected gem reference only, got gem=%v capital=%v", e.GemId, e.CapitalId)
		}
	}
}

func TestDiffActivity_CapitalReference(t *testing.T) {
	entries := models.DiffActivity(actor, "cap-1", models.EntityTypeCapital, nil, models.Snapshot{"amount": decimal.NewFromInt(5)}, "")
	if len(entries) != 1 || entries[0].CapitalId == nil || entries[0].GemId != nil {
		t.Fatalf("expected capital reference only, got %+v", entries)
	}
}

func TestDiffActivity_NoOpWithoutActorOrEntity(t *testing.T) {
	cases := []struct {
		name   string
		actor  models.Actor
		entity string
	}{
		{"missing id", models.Actor{Email: "a@b.c"}, "gem-1"},
		{"missing email", models.Actor{Id: "u"}, "gem-1"},
		{"missing entity", actor, ""},
	}
	for _, tc := range cases {
		if got := models.DiffActivity(tc.actor, tc.entity, models.EntityTypeGem, nil, models.Snapshot{}, ""); got != nil {
			t.Fatalf("%s: expected no entries, got %d", tc.name, len(got))
		}
	}
}

func TestDiffActivity_UpdateOnlyChangedFields(t *testing.T) {
	old := models.Snapshot{
		"gem_type":     "Blue Sapphire",
		"status":       "In Stock",
		"weight_ct":    decimal.RequireFromString("10.00"),
		"buying_price": "10",
		"shape":        nil,
	}
	updated := models.Snapshot{
		"gem_type":     " Blue Sapphire ",
		"status":       "Sold",
		"weight_ct":    decimal.NewFromInt(10),
		"buying_price": decimal.RequireFromString("10.0"),
		"shape":        "",
		"nickname":     nil,
	}
	entries := models.DiffActivity(actor, "gem-1", models.EntityTypeGem, old, updated, "Marked as Sold")
	if len(entries) != 1 {
		t.Fatalf("expected only status to change, got %d entries: %+v", len(entries), entries)
	}
	e := entries[0]
	if e.FieldChanged != "status" || *e.OldValue != "In Stock" || *e.NewValue != "Sold" || e.Note != "Marked as Sold" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.ActionType != models.ActionTypeUpdate {
		t.Fatalf("expected UPDATE, got %s", e.ActionType)
	}
}

func TestDiffActivity_ZeroChangesZeroRows(t *testing.T) {
	snap := models.Snapshot{"gem_type": "Ruby", "cost_cut": decimal.NewFromInt(100)}
	if got := models.DiffActivity(actor, "gem-1", models.EntityTypeGem, snap, snap, "note"); len(got) != 0 {
		t.Fatalf("expected no entries, got %d", len(got))
	}
}

func TestDiffActivity_SharedNoteAcrossBatch(t *testing.T) {
	old := models.Snapshot{"cost_cut": decimal.NewFromInt(1), "cost_polish": decimal.NewFromInt(2), "treatment": "Heated"}
	updated := models.Snapshot{"cost_cut": decimal.NewFromInt(5), "cost_polish": decimal.NewFromInt(6), "treatment": "Natural"}
	entries := models.DiffActivity(actor, "gem-1", models.EntityTypeGem, old, updated, "recut")
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Note != "recut" {
			t.Fatalf("expected shared note, got %q", e.Note)
		}
	}
}

func TestNormalizeValue(t *testing.T) {
	two := decimal.RequireFromString("2.50")
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"  text ", "text"},
		{"10", "10"},
		{" 10.00 ", "10"},
		{"L12", "L12"},
		{decimal.RequireFromString("10.00"), "10"},
		{10.0, "10"},
		{&two, "2.5"},
		{(*decimal.Decimal)(nil), ""},
		{decimal.NullDecimal{}, ""},
		{decimal.NewNullDecimal(decimal.RequireFromString("4.000")), "4"},
		{models.ExtraCostList{}, ""},
		{models.ExtraCostList{{Label: "Lab ", Amount: decimal.RequireFromString("25.00"), Type: "Other"}}, `[{"label":"Lab","amount":"25","type":"Other"}]`},
		{models.ParseGemType("ruby"), "Ruby"},
		{3, "3"},
	}
	for _, tc := range cases {
		if got := models.NormalizeValue(tc.in); got != tc.want {
			t.Fatalf("NormalizeValue(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDiffActivity_NumericStringMatchesDecimal(t *testing.T) {
	old := models.Snapshot{"weight_ct": "10.00", "treatment": "Heated"}
	new := models.Snapshot{"weight_ct": decimal.NewFromInt(10), "treatment": "Heated"}
	if entries := models.DiffActivity(actor, "gem-1", models.EntityTypeGem, old, new, "recount"); len(entries) != 0 {
		t.Fatalf("expected no entries for an equal weight, got %+v", entries)
	}
}

func TestNormalizeValue_ExtraCostsEqualAcrossRepresentations(t *testing.T) {
	a := models.ExtraCostList{{Label: "Cert", Amount: decimal.RequireFromString("25.0"), Type: "Other"}}
	b := []valuation.ExtraCost{{Label: "Cert", Amount: decimal.NewFromInt(25), Type: "Other"}}
	if models.NormalizeValue(a) != models.NormalizeValue(b) {
		t.Fatalf("expected equal normalization: %q vs %q", models.NormalizeValue(a), models.NormalizeValue(b))
	}
}

func TestListActivityLogs_JoinsAndFilters(t *testing.T) {
	setupTestDB(t)
	ctx, admin := signedIn(t, "admin@gems.lk", models.UserRoleAdmin)

	gem, err := models.CreateInventoryItem(ctx, gemForm("5", "", "1000", "2000"))
	if err != nil {
		t.Fatalf("create gem: %v", err)
	}
	if _, err := models.CreateCapitalInvestment(ctx, &models.NewCapitalInvestment{
		InvestorId: admin.ID,
		Amount:     decimal.NewFromInt(500000),
		Nickname:   "Dulip fund",
	}); err != nil {
		t.Fatalf("create capital: %v", err)
	}

	logs, err := models.ListActivityLogs(context.Background(), models.LogFilter{})
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	var sawGem, sawCapital bool
	for _, l := range logs {
		switch {
		case l.GemId != nil:
			sawGem = l.DisplayName == "Blue Sapphire" && l.LotNumber != nil && *l.LotNumber == gem.LotNumber
		case l.CapitalId != nil:
			sawCapital = l.DisplayName == "Dulip fund" && l.CapitalAmount.Valid && l.CapitalAmount.Decimal.Equal(decimal.NewFromInt(500000))
		}
	}
	if !sawGem || !sawCapital {
		t.Fatalf("joined fields missing: %+v", logs)
	}

	filtered, err := models.ListActivityLogs(context.Background(), models.LogFilter{Query: "dulip"})
	if err != nil {
		t.Fatalf("search logs: %v", err)
	}
	if len(filtered) != 1 || filtered[0].CapitalId == nil {
		t.Fatalf("expected the capital log only, got %+v", filtered)
	}

	byAction, err := models.ListActivityLogs(context.Background(), models.LogFilter{ActionType: models.ActionTypeUpdate})
	if err != nil {
		t.Fatalf("filter logs: %v", err)
	}
	if len(byAction) != 0 {
		t.Fatalf("expected no UPDATE logs, got %d", len(byAction))
	}
}

func TestUpdateInventoryItem_AuditFailureDoesNotRollBack(t *testing.T) {
	setupTestDB(t)
	ctx, _ := signedIn(t, "admin@gems.lk", models.UserRoleAdmin)

	item, err := models.CreateInventoryItem(ctx, gemForm("5", "", "", ""))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var logged bytes.Buffer
	logger := config.GetLogger()
	logger.SetOutput(&logged)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })

	if err := config.GetDB().Migrator().DropTable(&models.ActivityLog{}); err != nil {
		t.Fatalf("drop activity logs: %v", err)
	}

	input := gemForm("5", "", "", "")
	input.Status = models.GemStatusSold
	input.Note = "sold to walk-in buyer"
	if _, err := models.UpdateInventoryItem(ctx, item.ID, input); err != nil {
		t.Fatalf("update should not fail on a lost audit row: %v", err)
	}

	reloaded, err := models.GetInventoryItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.GemStatusSold {
		t.Fatalf("expected the update to persist, got status %s", reloaded.Status)
	}
	if !strings.Contains(logged.String(), "insert activity logs") {
		t.Fatalf("expected the audit failure to be logged, got %q", logged.String())
	}
}
