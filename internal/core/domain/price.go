package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Price is a nullable, non-negative amount in the smallest display unit.
type Price struct {
	Amount int64
	Valid  bool
}

func NewPrice(amount int64) Price {
	return Price{Amount: amount, Valid: true}
}

// Unit returns the amount used for totals; a missing price counts as 0.
func (p Price) Unit() int64 {
	if !p.Valid {
		return 0
	}
	return p.Amount
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(p.Amount, 10)), nil
}

// UnmarshalJSON accepts null, numbers and numeric strings. Anything that does
// not parse leaves the price unset instead of failing the whole record.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = Price{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = parsePriceString(s)
		return nil
	}
	*p = parsePriceString(string(data))
	return nil
}

func (p *Price) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = Price{}
	case int64:
		*p = NewPrice(v)
	case float64:
		*p = NewPrice(int64(v))
	case []byte:
		*p = parsePriceString(string(v))
	case string:
		*p = parsePriceString(v)
	default:
		return fmt.Errorf("unsupported price type %T", src)
	}
	return nil
}

func (p Price) Value() (driver.Value, error) {
	if !p.Valid {
		return nil, nil
	}
	return p.Amount, nil
}

func parsePriceString(s string) Price {
	s = strings.TrimSpace(s)
	if s == "" {
		return Price{}
	}
	n, ok := parseAmount(s)
	if !ok {
		return Price{}
	}
	return NewPrice(n)
}

// parseAmount extracts a number from a loosely formatted price such as
// "150000", "150000.00" or "150000 VND".
func parseAmount(s string) (int64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}
