package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/mmdatafocus/gem_ledger/valuation"
)

// ExtraCostList is stored as a JSON text column and keeps entry order.
type ExtraCostList []valuation.ExtraCost

func (l ExtraCostList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]valuation.ExtraCost(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *ExtraCostList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// StringList is a JSON text column of strings (image urls).
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

func scanJSON(value interface{}, dest interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
