package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// unmarshalEnum decodes a JSON string into an enum, rejecting unknown values.
// An empty string decodes to the zero value so callers can apply defaults.
func unmarshalEnum[T ~string](b []byte, dst *T, valid func(T) bool, name string) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New(name + " must be string")
	}
	v := T(strings.TrimSpace(str))
	if v != "" && !valid(v) {
		return errors.New("invalid " + name)
	}
	*dst = v
	return nil
}

type GemStatus string

const (
	GemStatusInStock GemStatus = "In Stock"
	GemStatusSold    GemStatus = "Sold"
	GemStatusMemo    GemStatus = "Memo"
	GemStatusCutting GemStatus = "Cutting"
)

func (s GemStatus) IsValid() bool {
	switch s {
	case GemStatusInStock, GemStatusSold, GemStatusMemo, GemStatusCutting:
		return true
	}
	return false
}

func (s *GemStatus) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, s, GemStatus.IsValid, "status")
}

type LotType string

const (
	LotTypeLot    LotType = "Lot"
	LotTypeSingle LotType = "Single"
)

func (t LotType) IsValid() bool {
	return t == LotTypeLot || t == LotTypeSingle
}

func (t *LotType) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, t, LotType.IsValid, "lot type")
}

type Treatment string

const (
	TreatmentHeated  Treatment = "Heated"
	TreatmentNatural Treatment = "Natural"
)

func (t Treatment) IsValid() bool {
	return t == TreatmentHeated || t == TreatmentNatural
}

func (t *Treatment) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, t, Treatment.IsValid, "treatment")
}

type Shape string

const (
	ShapeOval    Shape = "Oval"
	ShapeRound   Shape = "Round"
	ShapeCushion Shape = "Cushion"
	ShapeMix     Shape = "Mix"
	ShapeEmerald Shape = "Emerald"
	ShapePear    Shape = "Pear"
)

func (s Shape) IsValid() bool {
	switch s {
	case ShapeOval, ShapeRound, ShapeCushion, ShapeMix, ShapeEmerald, ShapePear:
		return true
	}
	return false
}

func (s *Shape) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, s, Shape.IsValid, "shape")
}

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleViewer UserRole = "viewer"
)

func (r UserRole) IsValid() bool {
	return r == UserRoleAdmin || r == UserRoleViewer
}

func (r *UserRole) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, r, UserRole.IsValid, "role")
}

type TransactionType string

const (
	TransactionTypeExpense    TransactionType = "Expense"
	TransactionTypeIncome     TransactionType = "Income"
	TransactionTypeInvestment TransactionType = "Investment"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeExpense, TransactionTypeIncome, TransactionTypeInvestment:
		return true
	}
	return false
}

func (t *TransactionType) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, t, TransactionType.IsValid, "transaction type")
}

type ActionType string

const (
	ActionTypeCreate ActionType = "CREATE"
	ActionTypeUpdate ActionType = "UPDATE"
)

func (t ActionType) IsValid() bool {
	return t == ActionTypeCreate || t == ActionTypeUpdate
}

func (t *ActionType) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, t, ActionType.IsValid, "action type")
}

type EntityType string

const (
	EntityTypeGem     EntityType = "GEM"
	EntityTypeCapital EntityType = "CAPITAL"
)

// GemType is either one of the suggested gem types or free text.
type GemType struct {
	Name       string
	Predefined bool
}

var PredefinedGemTypes = []string{
	"Blue Sapphire",
	"Yellow Sapphire",
	"White Sapphire",
	"Ruby",
	"Pink Sapphire",
	"Geuda",
}

// ParseGemType trims s and matches it case-insensitively against the
// suggested set; anything else is kept as a custom type.
func ParseGemType(s string) GemType {
	name := strings.TrimSpace(s)
	for _, p := range PredefinedGemTypes {
		if strings.EqualFold(p, name) {
			return GemType{Name: p, Predefined: true}
		}
	}
	return GemType{Name: name}
}

func (g GemType) String() string {
	return g.Name
}

func (g GemType) IsZero() bool {
	return g.Name == ""
}

func (g GemType) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Name)
}

func (g *GemType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("gem type must be string")
	}
	*g = ParseGemType(str)
	return nil
}
