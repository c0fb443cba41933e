package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mmdatafocus/gem_ledger/models"
	"github.com/xuri/excelize/v2"
)

const InventorySheet = "Inventory"

var InventoryHeaders = []interface{}{
	"Gem Type", "Shape", "Weight (ct)", "Color", "Clarity", "Cost (LKR)", "Total Value (LKR)", "Status",
}

func InventoryExportFilename(t time.Time) string {
	return "Gem_Inventory_" + t.Format("2006-01-02") + ".xlsx"
}

func inventoryRow(item *models.InventoryItem) []interface{} {
	return []interface{}{
		item.GemType,
		string(item.Shape),
		item.WeightCt.InexactFloat64(),
		item.Color,
		item.Clarity,
		item.TotalCost().InexactFloat64(),
		item.TotalValue().InexactFloat64(),
		string(item.Status),
	}
}

// BuildInventoryWorkbook writes one row per item under the header row.
func BuildInventoryWorkbook(items []*models.InventoryItem) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", InventorySheet); err != nil {
		return nil, err
	}

	// Add headers
	if err := f.SetSheetRow(InventorySheet, "A1", &InventoryHeaders); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(InventorySheet, "A1", "H1", bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(InventorySheet, "A", "H", 16); err != nil {
		return nil, err
	}

	// Add data
	for i, item := range items {
		row := inventoryRow(item)
		if err := f.SetSheetRow(InventorySheet, "A"+fmt.Sprint(i+2), &row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ExportInventory writes the same rows GET /api/inventory returns for filter,
// newest first, and returns the download filename.
func ExportInventory(ctx context.Context, w io.Writer, filter models.InventoryFilter, now time.Time) (string, error) {
	items, err := models.ListInventoryItems(ctx, filter)
	if err != nil {
		return "", err
	}
	f, err := BuildInventoryWorkbook(items)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return "", err
	}
	return InventoryExportFilename(now), nil
}
