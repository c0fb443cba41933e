package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/utils"
	"github.com/mmdatafocus/gem_ledger/valuation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	FieldChangedAll   = "ALL"
	CreatedValue      = "Created new gem"
	DefaultCreateNote = "Initial Entry"
	DefaultLogsLimit  = 200
	MaxLogsLimit      = 500
)

// TrackedFields is the fixed allow-list compared by DiffActivity.
var TrackedFields = []string{
	"gem_type", "weight_ct", "status",
	"predict_val_per_ct_lkr", "predict_total_cost_lkr", "buying_price",
	"budget_per_ct_usd", "lot_type", "treatment", "shape",
	"weight_post_cut", "cost_cut", "cost_polish", "cost_burn", "extra_costs",
	"amount", "nickname",
}

// ActivityLog is append-only; rows go away only with their gem.
type ActivityLog struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	UserId       string     `gorm:"size:36;index;not null" json:"user_id"`
	Email        string     `gorm:"size:100" json:"email"`
	GemId        *string    `gorm:"size:36;index" json:"gem_id"`
	CapitalId    *string    `gorm:"size:36;index" json:"capital_id"`
	ActionType   ActionType `gorm:"size:10;not null" json:"action_type"`
	FieldChanged string     `gorm:"size:50;not null" json:"field_changed"`
	OldValue     *string    `gorm:"type:text" json:"old_value"`
	NewValue     *string    `gorm:"type:text" json:"new_value"`
	Note         string     `gorm:"type:text" json:"note"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`

	Gem *InventoryItem `gorm:"foreignKey:GemId;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (l *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

func (l ActivityLog) EntityType() EntityType {
	if l.CapitalId != nil {
		return EntityTypeCapital
	}
	return EntityTypeGem
}

func (l ActivityLog) EntityId() string {
	if l.CapitalId != nil {
		return *l.CapitalId
	}
	return utils.DereferencePtr(l.GemId)
}

// Snapshot is the tracked-field view of an entity. Missing keys compare as empty.
type Snapshot map[string]any

// DiffActivity compares the tracked fields of two snapshots. A nil old
// snapshot is a creation and yields exactly one CREATE entry.
func DiffActivity(actor Actor, entityId string, entityType EntityType, old, new Snapshot, note string) []ActivityLog {
	if actor.Id == "" || actor.Email == "" || entityId == "" {
		return nil
	}

	base := ActivityLog{
		UserId: actor.Id,
		Email:  actor.Email,
	}
	id := entityId
	if entityType == EntityTypeCapital {
		base.CapitalId = &id
	} else {
		base.GemId = &id
	}

	if old == nil {
		entry := base
		entry.ActionType = ActionTypeCreate
		entry.FieldChanged = FieldChangedAll
		entry.NewValue = utils.NilIfEmpty(CreatedValue)
		entry.Note = utils.FirstNonEmpty(note, DefaultCreateNote)
		return []ActivityLog{entry}
	}

	var entries []ActivityLog
	for _, field := range TrackedFields {
		oldVal := NormalizeValue(old[field])
		newVal := NormalizeValue(new[field])
		if oldVal == newVal {
			continue
		}
		entry := base
		entry.ActionType = ActionTypeUpdate
		entry.FieldChanged = field
		entry.OldValue = &oldVal
		entry.NewValue = &newVal
		entry.Note = note
		entries = append(entries, entry)
	}
	return entries
}

// NormalizeValue renders a tracked value for comparison: nil is "", decimals
// and numeric strings lose trailing zeros, extra cost lists become canonical
// JSON.
func NormalizeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return normalizeString(val)
	case *string:
		return normalizeString(utils.DereferencePtr(val))
	case decimal.Decimal:
		return val.String()
	case *decimal.Decimal:
		if val == nil {
			return ""
		}
		return val.String()
	case decimal.NullDecimal:
		if !val.Valid {
			return ""
		}
		return val.Decimal.String()
	case float64:
		return decimal.NewFromFloat(val).String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case ExtraCostList:
		return canonicalExtraCosts(val)
	case []valuation.ExtraCost:
		return canonicalExtraCosts(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func normalizeString(s string) string {
	s = strings.TrimSpace(s)
	if d, err := decimal.NewFromString(s); err == nil {
		return d.String()
	}
	return s
}

func canonicalExtraCosts(list []valuation.ExtraCost) string {
	if len(list) == 0 {
		return ""
	}
	type entry struct {
		Label  string `json:"label"`
		Amount string `json:"amount"`
		Type   string `json:"type"`
	}
	out := make([]entry, len(list))
	for i, ec := range list {
		out[i] = entry{
			Label:  strings.TrimSpace(ec.Label),
			Amount: ec.Amount.String(),
			Type:   strings.TrimSpace(ec.Type),
		}
	}
	b, err := utils.MarshalToJSON(out)
	if err != nil {
		return fmt.Sprint(list)
	}
	return b
}

// LogChanges stores the entries after the entity write has committed. Failures
// are logged and never reach the caller.
func LogChanges(ctx context.Context, entries []ActivityLog) {
	if len(entries) == 0 {
		return
	}
	ctx, span := startSpan(ctx, "models.LogChanges")
	var err error
	defer func() { endSpan(span, err) }()

	db := config.GetDB()
	if err = db.WithContext(ctx).Create(&entries).Error; err != nil {
		config.LogError(config.GetLogger(), "models", "LogChanges", "insert activity logs", entries, err)
		return
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	events := make([]config.ActivityEvent, 0, len(entries))
	for _, e := range entries {
		events = append(events, config.ActivityEvent{
			LogId:         e.ID,
			EntityType:    string(e.EntityType()),
			EntityId:      e.EntityId(),
			ActionType:    string(e.ActionType),
			FieldChanged:  e.FieldChanged,
			OldValue:      e.OldValue,
			NewValue:      e.NewValue,
			Note:          e.Note,
			UserId:        e.UserId,
			Email:         e.Email,
			CreatedAt:     e.CreatedAt,
			CorrelationId: correlationId,
		})
	}
	if config.ActivityTopic() == "" {
		return
	}
	go func(ctx context.Context) {
		if err := config.PublishActivityEvents(ctx, events); err != nil {
			config.LogError(config.GetLogger(), "models", "LogChanges", "publish activity events", len(events), err)
		}
	}(context.WithoutCancel(ctx))
}

type LogFilter struct {
	Query      string     `form:"q"`
	ActionType ActionType `form:"action_type"`
	Limit      int        `form:"limit"`
}

// ActivityLogView is a log row joined with what it points at.
type ActivityLogView struct {
	ID            string              `json:"id"`
	UserId        string              `json:"user_id"`
	Email         string              `json:"email"`
	GemId         *string             `json:"gem_id"`
	CapitalId     *string             `json:"capital_id"`
	ActionType    ActionType          `json:"action_type"`
	FieldChanged  string              `json:"field_changed"`
	OldValue      *string             `json:"old_value"`
	NewValue      *string             `json:"new_value"`
	Note          string              `json:"note"`
	CreatedAt     time.Time           `json:"created_at"`
	GemType       *string             `json:"gem_type"`
	LotNumber     *int64              `json:"lot_number"`
	CapitalAmount decimal.NullDecimal `json:"capital_amount"`
	Nickname      *string             `json:"nickname"`
	InvestorName  *string             `json:"investor_name"`
	DisplayName   string              `gorm:"-" json:"display_name"`
}

// ListActivityLogs returns the newest entries first.
func ListActivityLogs(ctx context.Context, filter LogFilter) ([]*ActivityLogView, error) {
	ctx, span := startSpan(ctx, "models.ListActivityLogs")
	var err error
	defer func() { endSpan(span, err) }()

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLogsLimit
	}
	if limit > MaxLogsLimit {
		limit = MaxLogsLimit
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Table("activity_logs").
		Select(`activity_logs.*,
			inventory.gem_type AS gem_type,
			inventory.lot_number AS lot_number,
			capital_investments.amount AS capital_amount,
			capital_investments.nickname AS nickname,
			profiles.full_name AS investor_name`).
		Joins("LEFT JOIN inventory ON inventory.id = activity_logs.gem_id").
		Joins("LEFT JOIN capital_investments ON capital_investments.id = activity_logs.capital_id").
		Joins("LEFT JOIN profiles ON profiles.id = capital_investments.investor_id")

	if filter.ActionType != "" {
		dbCtx = dbCtx.Where("activity_logs.action_type = ?", filter.ActionType)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		dbCtx = dbCtx.Where(`LOWER(inventory.gem_type) LIKE ?
			OR LOWER(capital_investments.nickname) LIKE ?
			OR LOWER(activity_logs.note) LIKE ?
			OR LOWER(activity_logs.email) LIKE ?`, like, like, like, like)
	}

	var results []*ActivityLogView
	if err = dbCtx.Order("activity_logs.created_at DESC").Limit(limit).Scan(&results).Error; err != nil {
		return nil, err
	}
	for _, r := range results {
		r.DisplayName = r.subject()
	}
	return results, nil
}

func (v ActivityLogView) subject() string {
	if v.GemId != nil {
		if v.GemType != nil {
			return *v.GemType
		}
		return "Unknown Item"
	}
	if v.CapitalId != nil {
		return utils.FirstNonEmpty(utils.DereferencePtr(v.Nickname), utils.DereferencePtr(v.InvestorName), "Capital Investment")
	}
	return "Unknown Item"
}

// GetEntityActivity lists one entity's history, newest first.
func GetEntityActivity(ctx context.Context, entityType EntityType, entityId string) ([]*ActivityLog, error) {
	column := "gem_id"
	if entityType == EntityTypeCapital {
		column = "capital_id"
	}
	db := config.GetDB()
	var results []*ActivityLog
	if err := db.WithContext(ctx).Where(column+" = ?", entityId).
		Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
