package service

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FieldValue is a JSON scalar captured as text so admin writes can tell an
// absent key from null or an empty string, and accept numbers as strings.
type FieldValue struct {
	Set  bool
	Null bool
	Text string
}

func Value(s string) FieldValue {
	return FieldValue{Set: true, Text: s}
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	v.Set = true
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		v.Null = true
		v.Text = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &v.Text)
	}
	v.Text = string(data)
	return nil
}

// Blank reports a missing, null or whitespace-only value.
func (v FieldValue) Blank() bool {
	return !v.Set || v.Null || strings.TrimSpace(v.Text) == ""
}

func (v FieldValue) Trimmed() string {
	return strings.TrimSpace(v.Text)
}

func (v FieldValue) uint() (int64, bool) {
	s := v.Trimmed()
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

type ProductInput struct {
	Barcode    FieldValue `json:"barcode"`
	Name       FieldValue `json:"name"`
	Price      FieldValue `json:"price"`
	Image      FieldValue `json:"image"`
	CategoryID FieldValue `json:"category_id"`
}

// CategoryInput accepts the category type under either "type" or "name".
type CategoryInput struct {
	Type FieldValue `json:"type"`
	Name FieldValue `json:"name"`
}

func (in CategoryInput) Value() string {
	if !in.Type.Blank() {
		return in.Type.Trimmed()
	}
	return in.Name.Trimmed()
}
