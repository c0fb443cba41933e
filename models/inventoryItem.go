package models

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/utils"
	"github.com/mmdatafocus/gem_ledger/valuation"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const (
	StockEntryNote = "Initial Stock Entry"
	SoldNote       = "Marked as Sold"

	lotNumberLock = "Lock:inventory_lot_number"
)

// defaults of the add form
const (
	DefaultGemType  = "Blue Sapphire"
	DefaultCutGrade = "Calibrated"
	DefaultClarity  = "VVS"
)

type InventoryItem struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	LotNumber      int64     `gorm:"uniqueIndex;not null" json:"lot_number"`
	GemType        string    `gorm:"size:100;not null;index" json:"gem_type"`
	LotType        LotType   `gorm:"size:10;not null;default:Lot" json:"lot_type"`
	Treatment      Treatment `gorm:"size:10;not null;default:Heated" json:"treatment"`
	Shape          Shape     `gorm:"size:20;not null;default:Oval" json:"shape"`
	CutGrade       string    `gorm:"size:50" json:"cut_grade"`
	Clarity        string    `gorm:"size:50" json:"clarity"`
	Color          string    `gorm:"size:50" json:"color"`
	NumberOfPieces int       `gorm:"not null;default:1" json:"number_of_pieces"`

	WeightCt      decimal.Decimal     `gorm:"type:decimal(12,4);not null" json:"weight_ct"`
	WeightPostCut decimal.NullDecimal `gorm:"type:decimal(12,4)" json:"weight_post_cut"`

	// all costs are LKR
	CostCut     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_cut"`
	CostPolish  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_polish"`
	CostBurn    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_burn"`
	ExtraCosts  ExtraCostList   `gorm:"type:text" json:"extra_costs"`
	BuyingPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"buying_price"`

	// per rough carat, see valuation.StoredValuePerCt. Scale 12 keeps the
	// edit form's reload exact.
	PredictValPerCtLkr  decimal.Decimal `gorm:"type:decimal(32,12);default:0" json:"predict_val_per_ct_lkr"`
	PredictTotalCostLkr decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"predict_total_cost_lkr"`
	BudgetPerCtUsd      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"budget_per_ct_usd"`
	UsdRate             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"usd_rate"`

	Status    GemStatus  `gorm:"size:20;not null;default:'In Stock';index" json:"status"`
	ImageUrls StringList `gorm:"type:text" json:"image_urls"`
	UserId    string     `gorm:"size:36;index" json:"user_id"`
	Email     string     `gorm:"size:100" json:"email"`
	Revision  int        `gorm:"not null;default:1" json:"revision"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (InventoryItem) TableName() string {
	return "inventory"
}

func (item *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = GemStatusInStock
	}
	if item.NumberOfPieces <= 0 {
		item.NumberOfPieces = 1
	}
	if item.Revision <= 0 {
		item.Revision = 1
	}
	return nil
}

func (item InventoryItem) IsSold() bool {
	return item.Status == GemStatusSold
}

// TotalCost is acquisition plus processing, in LKR.
func (item InventoryItem) TotalCost() decimal.Decimal {
	return item.BuyingPrice.Add(item.PredictTotalCostLkr)
}

// TotalValue uses the stored per-rough-carat value.
func (item InventoryItem) TotalValue() decimal.Decimal {
	return item.WeightCt.Mul(item.PredictValPerCtLkr)
}

func (item InventoryItem) LotLabel() string {
	return "L" + strconv.FormatInt(item.LotNumber, 10)
}

// Matches is the inventory search: gem type, lot number or "L<lot>".
func (item InventoryItem) Matches(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	lot := strconv.FormatInt(item.LotNumber, 10)
	return strings.Contains(strings.ToLower(item.GemType), q) ||
		strings.Contains(lot, q) ||
		strings.Contains(strings.ToLower(item.LotLabel()), q)
}

func (item InventoryItem) Snapshot() Snapshot {
	return Snapshot{
		"gem_type":               item.GemType,
		"weight_ct":              item.WeightCt,
		"status":                 string(item.Status),
		"predict_val_per_ct_lkr": item.PredictValPerCtLkr,
		"predict_total_cost_lkr": item.PredictTotalCostLkr,
		"buying_price":           item.BuyingPrice,
		"budget_per_ct_usd":      item.BudgetPerCtUsd,
		"lot_type":               string(item.LotType),
		"treatment":              string(item.Treatment),
		"shape":                  string(item.Shape),
		"weight_post_cut":        item.WeightPostCut,
		"cost_cut":               item.CostCut,
		"cost_polish":            item.CostPolish,
		"cost_burn":              item.CostBurn,
		"extra_costs":            item.ExtraCosts,
	}
}

// ValuationInput rebuilds the calculator input from the stored row, with the
// per-carat value converted back to what the user entered.
func (item InventoryItem) ValuationInput() valuation.Input {
	return valuation.Input{
		WeightCt:        item.WeightCt,
		WeightPostCut:   item.WeightPostCut.Decimal,
		PredictValPerCt: item.DisplayValPerCtLkr(),
		ValueCurrency:   valuation.LKR,
		BuyingPrice:     item.BuyingPrice,
		CostCut:         item.CostCut,
		CostPolish:      item.CostPolish,
		CostBurn:        item.CostBurn,
		ExtraCosts:      item.ExtraCosts,
		CostCurrency:    valuation.LKR,
		UsdRate:         item.UsdRate,
	}
}

func (item InventoryItem) DisplayValPerCtLkr() decimal.Decimal {
	return valuation.DisplayValuePerCt(item.PredictValPerCtLkr, item.WeightCt, item.WeightPostCut.Decimal)
}

func (item *InventoryItem) updateValues() map[string]interface{} {
	return map[string]interface{}{
		"gem_type":               item.GemType,
		"lot_type":               item.LotType,
		"treatment":              item.Treatment,
		"shape":                  item.Shape,
		"cut_grade":              item.CutGrade,
		"clarity":                item.Clarity,
		"color":                  item.Color,
		"number_of_pieces":       item.NumberOfPieces,
		"weight_ct":              item.WeightCt,
		"weight_post_cut":        item.WeightPostCut,
		"cost_cut":               item.CostCut,
		"cost_polish":            item.CostPolish,
		"cost_burn":              item.CostBurn,
		"extra_costs":            item.ExtraCosts,
		"buying_price":           item.BuyingPrice,
		"predict_val_per_ct_lkr": item.PredictValPerCtLkr,
		"predict_total_cost_lkr": item.PredictTotalCostLkr,
		"budget_per_ct_usd":      item.BudgetPerCtUsd,
		"usd_rate":               item.UsdRate,
		"status":                 item.Status,
		"image_urls":             item.ImageUrls,
	}
}

// NewInventoryItem is the add/edit form. Valuation fields arrive as text and
// are parsed leniently; only weight_ct is required.
type NewInventoryItem struct {
	GemType        GemType   `json:"gem_type"`
	LotType        LotType   `json:"lot_type"`
	Treatment      Treatment `json:"treatment"`
	Shape          Shape     `json:"shape"`
	CutGrade       string    `json:"cut_grade" validate:"max=50"`
	Clarity        string    `json:"clarity" validate:"max=50"`
	Color          string    `json:"color" validate:"max=50"`
	NumberOfPieces int       `json:"number_of_pieces" validate:"gte=0"`
	Status         GemStatus `json:"status"`
	ImageUrls      []string  `json:"image_urls" validate:"max=20,dive,required,max=500"`
	Note           string    `json:"note" validate:"max=1000"`
	Revision       *int      `json:"revision"`
	valuation.Form
}

func (input *NewInventoryItem) validate() error {
	if err := utils.Validate(input); err != nil {
		return err
	}
	fields := map[string]string{}
	if strings.TrimSpace(input.WeightCt) == "" {
		fields["weight_ct"] = "required"
	} else if !valuation.ParseWeight(input.WeightCt).IsPositive() {
		fields["weight_ct"] = "gt=0"
	}
	if valuation.ParseWeight(input.WeightPostCut).IsNegative() {
		fields["weight_post_cut"] = "gt=0"
	}
	if utils.DecimalOrZero(input.BuyingPrice).IsNegative() {
		fields["buying_price"] = "gte=0"
	}
	if len(input.GemType.Name) > 100 {
		fields["gem_type"] = "max=100"
	}
	if len(fields) > 0 {
		return &utils.ValidationError{Fields: fields}
	}
	return nil
}

// build runs the calculator and returns the row to store. Empty descriptive
// fields keep the old row's values, or the add-form defaults when creating.
func (input *NewInventoryItem) build(old *InventoryItem) *InventoryItem {
	calc := valuation.ParseForm(input.Form).InLKR()
	res, stored := valuation.Encode(calc)

	item := &InventoryItem{
		GemType:             input.GemType.Name,
		LotType:             input.LotType,
		Treatment:           input.Treatment,
		Shape:               input.Shape,
		CutGrade:            strings.TrimSpace(input.CutGrade),
		Clarity:             strings.TrimSpace(input.Clarity),
		Color:               strings.TrimSpace(input.Color),
		NumberOfPieces:      input.NumberOfPieces,
		Status:              input.Status,
		WeightCt:            calc.WeightCt,
		CostCut:             calc.CostCut,
		CostPolish:          calc.CostPolish,
		CostBurn:            calc.CostBurn,
		ExtraCosts:          ExtraCostList(calc.ExtraCosts),
		BuyingPrice:         calc.BuyingPrice,
		PredictValPerCtLkr:  stored,
		PredictTotalCostLkr: res.ExpensesLkr,
		BudgetPerCtUsd:      res.ExpensesUsd,
		UsdRate:             res.UsdRate,
	}
	if calc.WeightPostCut.IsPositive() {
		item.WeightPostCut = decimal.NewNullDecimal(calc.WeightPostCut)
	}
	if input.ImageUrls != nil {
		item.ImageUrls = StringList(input.ImageUrls)
	}

	fallback := InventoryItem{
		GemType:        DefaultGemType,
		LotType:        LotTypeLot,
		Treatment:      TreatmentHeated,
		Shape:          ShapeOval,
		CutGrade:       DefaultCutGrade,
		Clarity:        DefaultClarity,
		NumberOfPieces: 1,
		Status:         GemStatusInStock,
		ImageUrls:      StringList{},
	}
	if old != nil {
		fallback = *old
	}
	if item.GemType == "" {
		item.GemType = fallback.GemType
	}
	if item.LotType == "" {
		item.LotType = fallback.LotType
	}
	if item.Treatment == "" {
		item.Treatment = fallback.Treatment
	}
	if item.Shape == "" {
		item.Shape = fallback.Shape
	}
	if item.CutGrade == "" {
		item.CutGrade = fallback.CutGrade
	}
	if item.Clarity == "" {
		item.Clarity = fallback.Clarity
	}
	if item.Color == "" {
		item.Color = fallback.Color
	}
	if item.NumberOfPieces == 0 {
		item.NumberOfPieces = fallback.NumberOfPieces
	}
	if item.Status == "" {
		item.Status = fallback.Status
	}
	if item.ImageUrls == nil {
		item.ImageUrls = fallback.ImageUrls
	}
	return item
}

func CreateInventoryItem(ctx context.Context, input *NewInventoryItem) (*InventoryItem, error) {
	ctx, span := startSpan(ctx, "models.CreateInventoryItem")
	var err error
	defer func() { endSpan(span, err) }()

	var actor Actor
	if actor, err = requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err = input.validate(); err != nil {
		return nil, err
	}

	item := input.build(nil)
	item.UserId = actor.Id
	item.Email = actor.Email

	db := config.GetDB()
	err = utils.WithLock(ctx, lotNumberLock, "models", "CreateInventoryItem", func() error {
		lot, err := utils.GetSequence[InventoryItem](ctx, db, "lot_number")
		if err != nil {
			return err
		}
		item.LotNumber = lot
		return db.WithContext(ctx).Create(item).Error
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("gem.id", item.ID), attribute.Int64("gem.lot_number", item.LotNumber))

	LogChanges(ctx, DiffActivity(actor, item.ID, EntityTypeGem, nil, item.Snapshot(), utils.FirstNonEmpty(input.Note, StockEntryNote)))
	return item, nil
}

// UpdateInventoryItem replaces the item with the recomputed form. A note is
// required; each changed tracked field is logged under it.
func UpdateInventoryItem(ctx context.Context, id string, input *NewInventoryItem) (*InventoryItem, error) {
	ctx, span := startSpan(ctx, "models.UpdateInventoryItem", attribute.String("gem.id", id))
	var err error
	defer func() { endSpan(span, err) }()

	var actor Actor
	if actor, err = requireAdmin(ctx); err != nil {
		return nil, err
	}
	note := strings.TrimSpace(input.Note)
	if note == "" {
		err = utils.NewValidationError("note", "required")
		return nil, err
	}
	if err = input.validate(); err != nil {
		return nil, err
	}

	var old *InventoryItem
	if old, err = utils.FetchModel[InventoryItem](ctx, id); err != nil {
		return nil, err
	}
	item := input.build(old)
	if err = saveInventoryItem(ctx, id, item.updateValues(), input.Revision); err != nil {
		return nil, err
	}

	var updated *InventoryItem
	if updated, err = utils.FetchModel[InventoryItem](ctx, id); err != nil {
		return nil, err
	}
	LogChanges(ctx, DiffActivity(actor, id, EntityTypeGem, old.Snapshot(), updated.Snapshot(), note))
	return updated, nil
}

// MarkInventoryItemSold is the one-click status change.
func MarkInventoryItemSold(ctx context.Context, id string, revision *int) (*InventoryItem, error) {
	ctx, span := startSpan(ctx, "models.MarkInventoryItemSold", attribute.String("gem.id", id))
	var err error
	defer func() { endSpan(span, err) }()

	var actor Actor
	if actor, err = requireAdmin(ctx); err != nil {
		return nil, err
	}
	var old *InventoryItem
	if old, err = utils.FetchModel[InventoryItem](ctx, id); err != nil {
		return nil, err
	}
	if err = saveInventoryItem(ctx, id, map[string]interface{}{"status": GemStatusSold}, revision); err != nil {
		return nil, err
	}
	var updated *InventoryItem
	if updated, err = utils.FetchModel[InventoryItem](ctx, id); err != nil {
		return nil, err
	}
	LogChanges(ctx, DiffActivity(actor, id, EntityTypeGem, old.Snapshot(), updated.Snapshot(), SoldNote))
	return updated, nil
}

// saveInventoryItem bumps the revision. With a revision given the write only
// applies when nobody saved in between.
func saveInventoryItem(ctx context.Context, id string, values map[string]interface{}, revision *int) error {
	values["revision"] = gorm.Expr("revision + 1")
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&InventoryItem{}).Where("id = ?", id)
		if revision != nil {
			q = q.Where("revision = ?", *revision)
		}
		res := q.Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if revision != nil {
				return utils.ErrConflict
			}
			return utils.ErrorRecordNotFound
		}
		return nil
	})
}

// DeleteInventoryItem removes the item and its activity logs together.
func DeleteInventoryItem(ctx context.Context, id string) (*InventoryItem, error) {
	ctx, span := startSpan(ctx, "models.DeleteInventoryItem", attribute.String("gem.id", id))
	var err error
	defer func() { endSpan(span, err) }()

	if _, err = requireAdmin(ctx); err != nil {
		return nil, err
	}
	var item *InventoryItem
	if item, err = utils.FetchModel[InventoryItem](ctx, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("gem_id = ?", id).Delete(&ActivityLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func GetInventoryItem(ctx context.Context, id string) (*InventoryItem, error) {
	return utils.FetchModel[InventoryItem](ctx, id)
}

// InventoryEditView is what the edit form loads.
type InventoryEditView struct {
	*InventoryItem
	DisplayValPerCtLkr decimal.Decimal  `json:"display_val_per_ct_lkr"`
	Valuation          valuation.Result `json:"valuation"`
}

func GetInventoryItemForEdit(ctx context.Context, id string) (*InventoryEditView, error) {
	item, err := utils.FetchModel[InventoryItem](ctx, id)
	if err != nil {
		return nil, err
	}
	return &InventoryEditView{
		InventoryItem:      item,
		DisplayValPerCtLkr: item.DisplayValPerCtLkr(),
		Valuation:          valuation.Calculate(item.ValuationInput()),
	}, nil
}

type InventoryFilter struct {
	Query  string    `form:"q"`
	Status GemStatus `form:"status"`
}

// ListInventoryItems returns newest first. The search runs in memory so the
// lot-number match behaves the same on every driver.
func ListInventoryItems(ctx context.Context, filter InventoryFilter) ([]*InventoryItem, error) {
	ctx, span := startSpan(ctx, "models.ListInventoryItems")
	var err error
	defer func() { endSpan(span, err) }()

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	var items []*InventoryItem
	if err = dbCtx.Order("created_at DESC").Order("lot_number DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	if strings.TrimSpace(filter.Query) == "" {
		return items, nil
	}
	results := make([]*InventoryItem, 0, len(items))
	for _, item := range items {
		if item.Matches(filter.Query) {
			results = append(results, item)
		}
	}
	return results, nil
}
