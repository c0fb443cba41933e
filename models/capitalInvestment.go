package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const CapitalEntryNote = "Capital Injection"

type CapitalInvestment struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	InvestorId     string          `gorm:"size:36;index;not null" json:"investor_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Nickname       string          `gorm:"size:100" json:"nickname"`
	Note           string          `gorm:"type:text" json:"note"`
	InvestmentDate time.Time       `gorm:"index;not null" json:"investment_date"`
	CreatedBy      string          `gorm:"size:36" json:"created_by"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewCapitalInvestment struct {
	InvestorId     string          `json:"investor_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Nickname       string          `json:"nickname" validate:"max=100"`
	Note           string          `json:"note" validate:"max=1000"`
	InvestmentDate *time.Time      `json:"investment_date"`
}

func (c *CapitalInvestment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (c CapitalInvestment) Snapshot() Snapshot {
	return Snapshot{
		"amount":   c.Amount,
		"nickname": c.Nickname,
	}
}

// DisplayName prefers the nickname over the investor's name.
func (c CapitalInvestment) DisplayName(investor *Profile) string {
	if strings.TrimSpace(c.Nickname) != "" {
		return strings.TrimSpace(c.Nickname)
	}
	if investor != nil {
		return investor.DisplayName()
	}
	return ""
}

func (input *NewCapitalInvestment) validate(ctx context.Context) error {
	if err := utils.Validate(input); err != nil {
		return err
	}
	if !input.Amount.IsPositive() {
		return utils.NewValidationError("amount", "gt=0")
	}
	if err := utils.ValidateResourceId[Profile](ctx, input.InvestorId); err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return utils.NewValidationError("investor_id", "not found")
		}
		return err
	}
	return nil
}

func CreateCapitalInvestment(ctx context.Context, input *NewCapitalInvestment) (*CapitalInvestment, error) {
	ctx, span := startSpan(ctx, "models.CreateCapitalInvestment")
	var err error
	defer func() { endSpan(span, err) }()

	var actor Actor
	if actor, err = requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err = input.validate(ctx); err != nil {
		return nil, err
	}

	investment := CapitalInvestment{
		InvestorId:     input.InvestorId,
		Amount:         input.Amount,
		Nickname:       strings.TrimSpace(input.Nickname),
		Note:           strings.TrimSpace(input.Note),
		InvestmentDate: utils.DereferencePtr(input.InvestmentDate, time.Now()),
		CreatedBy:      actor.Id,
	}

	db := config.GetDB()
	if err = db.WithContext(ctx).Create(&investment).Error; err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("capital.id", investment.ID))

	LogChanges(ctx, DiffActivity(actor, investment.ID, EntityTypeCapital, nil, investment.Snapshot(),
		utils.FirstNonEmpty(investment.Note, CapitalEntryNote)))
	return &investment, nil
}

// ListCapitalInvestments returns the newest investment date first.
func ListCapitalInvestments(ctx context.Context) ([]*CapitalInvestment, error) {
	return utils.FetchAllModels[CapitalInvestment](ctx, "investment_date DESC", "created_at DESC")
}

func GetCapitalInvestment(ctx context.Context, id string) (*CapitalInvestment, error) {
	return utils.FetchModel[CapitalInvestment](ctx, id)
}

// TotalCapital sums every investment.
func TotalCapital(ctx context.Context) (decimal.Decimal, error) {
	db := config.GetDB()
	var row struct {
		Total decimal.NullDecimal
	}
	if err := db.WithContext(ctx).Model(&CapitalInvestment{}).
		Select("SUM(amount) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Decimal, nil
}
