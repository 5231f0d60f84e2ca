package domain

import (
	"encoding/json"
	"testing"
)

func TestParsePriceString(t *testing.T) {
	tests := []struct {
		in    string
		want  int64
		valid bool
	}{
		{"150000", 150000, true},
		{"150000.00", 150000, true},
		{"150000 VND", 150000, true},
		{"150.000", 150, true},
		{"free", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got := parsePriceString(tt.in)
		if got.Valid != tt.valid || got.Unit() != tt.want {
			t.Errorf("parsePriceString(%q) = %+v, want %d (valid=%v)", tt.in, got, tt.want, tt.valid)
		}
	}
}

func TestPrice_UnmarshalJSON(t *testing.T) {
	var p struct {
		A Price `json:"a"`
		B Price `json:"b"`
		C Price `json:"c"`
		D Price `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"a": 25000, "b": "30000", "c": null, "d": "n/a"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.A.Unit() != 25000 || p.B.Unit() != 30000 {
		t.Errorf("unexpected amounts: %+v %+v", p.A, p.B)
	}
	if p.C.Valid || p.D.Valid {
		t.Error("null and non-numeric prices should be unset")
	}
	if p.D.Unit() != 0 {
		t.Errorf("unset price should count as 0, got %d", p.D.Unit())
	}

	out, err := json.Marshal(p.C)
	if err != nil || string(out) != "null" {
		t.Errorf("expected null, got %s (%v)", out, err)
	}
}
