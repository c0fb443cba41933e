package models

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Transaction struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	Person      string          `gorm:"size:100;not null" json:"person"`
	Description string          `gorm:"type:text" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Type        TransactionType `gorm:"size:20;not null;index" json:"type"`
	Date        time.Time       `gorm:"index;not null" json:"date"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewTransaction struct {
	Person      string          `json:"person" validate:"max=100"`
	Description string          `json:"description" validate:"max=1000"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Date        *time.Time      `json:"date"`
}

type TransactionTotals struct {
	Expense    decimal.Decimal `json:"expense"`
	Income     decimal.Decimal `json:"income"`
	Investment decimal.Decimal `json:"investment"`
}

type TransactionList struct {
	Transactions []*Transaction   `json:"transactions"`
	Totals       TransactionTotals `json:"totals"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (input *NewTransaction) validate() error {
	if err := utils.Validate(input); err != nil {
		return err
	}
	if !input.Amount.IsPositive() {
		return utils.NewValidationError("amount", "gt=0")
	}
	if input.Type == "" {
		input.Type = TransactionTypeExpense
	}
	return nil
}

// CreateTransaction records a payment; the person defaults to the actor's email.
func CreateTransaction(ctx context.Context, input *NewTransaction) (*Transaction, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	transaction := Transaction{
		Person:      utils.FirstNonEmpty(input.Person, actor.Email, "Unknown"),
		Description: strings.TrimSpace(input.Description),
		Amount:      input.Amount,
		Type:        input.Type,
		Date:        utils.DereferencePtr(input.Date, time.Now()),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&transaction).Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}

func DeleteTransaction(ctx context.Context, id string) (*Transaction, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	result, err := utils.FetchModel[Transaction](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// ListTransactions returns newest first along with totals per type.
func ListTransactions(ctx context.Context) (*TransactionList, error) {
	results, err := utils.FetchAllModels[Transaction](ctx, "date DESC", "created_at DESC")
	if err != nil {
		return nil, err
	}
	return &TransactionList{
		Transactions: results,
		Totals:       SumTransactions(results),
	}, nil
}

func SumTransactions(transactions []*Transaction) TransactionTotals {
	totals := TransactionTotals{
		Expense:    decimal.Zero,
		Income:     decimal.Zero,
		Investment: decimal.Zero,
	}
	for _, t := range transactions {
		switch t.Type {
		case TransactionTypeExpense:
			totals.Expense = totals.Expense.Add(t.Amount)
		case TransactionTypeIncome:
			totals.Income = totals.Income.Add(t.Amount)
		case TransactionTypeInvestment:
			totals.Investment = totals.Investment.Add(t.Amount)
		}
	}
	return totals
}
