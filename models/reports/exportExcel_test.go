package reports_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/mmdatafocus/gem_ledger/models"
	"github.com/mmdatafocus/gem_ledger/models/reports"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestInventoryExportFilename(t *testing.T) {
	got := reports.InventoryExportFilename(time.Date(2024, 3, 7, 15, 4, 0, 0, time.UTC))
	if got != "Gem_Inventory_2024-03-07.xlsx" {
		t.Fatalf("unexpected filename %q", got)
	}
}

func TestBuildInventoryWorkbook(t *testing.T) {
	items := []*models.InventoryItem{
		{
			GemType:             "Ruby",
			Shape:               models.ShapeCushion,
			WeightCt:            decimal.RequireFromString("2.5"),
			Color:               "Pigeon Blood",
			Clarity:             "VVS",
			BuyingPrice:         decimal.NewFromInt(1000),
			PredictTotalCostLkr: decimal.NewFromInt(250),
			PredictValPerCtLkr:  decimal.NewFromInt(2000),
			Status:              models.GemStatusSold,
		},
		{
			GemType:  "Geuda",
			Shape:    models.ShapeOval,
			WeightCt: decimal.NewFromInt(1),
			Status:   models.GemStatusInStock,
		},
	}

	f, err := reports.BuildInventoryWorkbook(items)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = f.Close()

	read, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer read.Close()

	if sheets := read.GetSheetList(); len(sheets) != 1 || sheets[0] != reports.InventorySheet {
		t.Fatalf("expected a single %q sheet, got %v", reports.InventorySheet, sheets)
	}
	rows, err := read.GetRows(reports.InventorySheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	for i, h := range reports.InventoryHeaders {
		if rows[0][i] != h {
			t.Fatalf("header %d: expected %v, got %q", i, h, rows[0][i])
		}
	}
	want := []string{"Ruby", "Cushion", "2.5", "Pigeon Blood", "VVS", "1250", "5000", "Sold"}
	for i, w := range want {
		if rows[1][i] != w {
			t.Fatalf("row 1 column %d: expected %q, got %q", i, w, rows[1][i])
		}
	}
	if rows[2][0] != "Geuda" || rows[2][7] != "In Stock" {
		t.Fatalf("unexpected second row %v", rows[2])
	}
}
