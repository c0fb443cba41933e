package models

import (
	"context"
	_ "embed"
	"time"

	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const SeedNote = "Seed Data"

//go:embed seed_data.json
var seedJSON []byte

type SeedInventory struct {
	GemType        string          `json:"gem_type"`
	LotType        LotType         `json:"lot_type"`
	Treatment      Treatment       `json:"treatment"`
	CutGrade       string          `json:"cut_grade"`
	Clarity        string          `json:"clarity"`
	Color          string          `json:"color"`
	Shape          Shape           `json:"shape"`
	WeightCt       decimal.Decimal `json:"weight_ct"`
	CostPerCtLkr   decimal.Decimal `json:"cost_per_ct_lkr"`
	BudgetPerCtUsd decimal.Decimal `json:"budget_per_ct_usd"`
}

type SeedPayment struct {
	Person      string          `json:"person"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
}

type SeedData struct {
	Inventory []SeedInventory `json:"inventory"`
	Payments  []SeedPayment   `json:"payments"`
}

type SeedResult struct {
	Inventory int `json:"inventory"`
	Payments  int `json:"payments"`
}

func LoadSeedData() (*SeedData, error) {
	var data SeedData
	if err := utils.UnmarshalFromJSON(seedJSON, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (s SeedInventory) item(actor Actor) *InventoryItem {
	return &InventoryItem{
		GemType:        ParseGemType(s.GemType).Name,
		LotType:        s.LotType,
		Treatment:      s.Treatment,
		CutGrade:       s.CutGrade,
		Clarity:        s.Clarity,
		Color:          s.Color,
		Shape:          s.Shape,
		NumberOfPieces: 1,
		WeightCt:       s.WeightCt,
		BuyingPrice:    s.WeightCt.Mul(s.CostPerCtLkr),
		BudgetPerCtUsd: s.BudgetPerCtUsd,
		UsdRate:        DefaultRate(),
		Status:         GemStatusInStock,
		ImageUrls:      StringList{},
		ExtraCosts:     ExtraCostList{},
		UserId:         actor.Id,
		Email:          actor.Email,
	}
}

// SeedDatabase loads the starter inventory and payments. It is an operator
// action; actor may be empty, in which case no activity is logged.
func SeedDatabase(ctx context.Context, actor Actor) (*SeedResult, error) {
	data, err := LoadSeedData()
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var items []*InventoryItem
	err = utils.WithLock(ctx, lotNumberLock, "models", "SeedDatabase", func() error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, s := range data.Inventory {
				item := s.item(actor)
				lot, err := utils.GetSequence[InventoryItem](ctx, tx, "lot_number")
				if err != nil {
					return err
				}
				item.LotNumber = lot
				if err := tx.Create(item).Error; err != nil {
					return err
				}
				items = append(items, item)
			}
			for _, p := range data.Payments {
				t := Transaction{
					Person:      p.Person,
					Description: p.Description,
					Amount:      p.Amount,
					Type:        p.Type,
				}
				if t.Type == "" {
					t.Type = TransactionTypeExpense
				}
				t.Date = time.Now()
				if err := tx.Create(&t).Error; err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		// counter may have advanced past rows that were rolled back
		_ = config.RemoveRedisKey(utils.SequenceKey[InventoryItem]("lot_number"))
		return nil, err
	}

	var entries []ActivityLog
	for _, item := range items {
		entries = append(entries, DiffActivity(actor, item.ID, EntityTypeGem, nil, item.Snapshot(), SeedNote)...)
	}
	LogChanges(ctx, entries)
	return &SeedResult{Inventory: len(items), Payments: len(data.Payments)}, nil
}

// ResetDatabase deletes all inventory (with its logs) and all transactions.
// Profiles, capital and rates are kept.
func ResetDatabase(ctx context.Context) error {
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("gem_id IS NOT NULL").Delete(&ActivityLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&InventoryItem{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&Transaction{}).Error
	})
	if err != nil {
		return err
	}
	return config.RemoveRedisKey(utils.SequenceKey[InventoryItem]("lot_number"))
}
