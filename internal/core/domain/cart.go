package domain

type CartEntry struct {
	Product Product `json:"product"`
	Qty     int     `json:"qty"`
}

// CartLine is a rendered cart entry with its computed amounts.
type CartLine struct {
	Barcode   string  `json:"barcode"`
	Product   Product `json:"product"`
	Qty       int     `json:"qty"`
	UnitPrice int64   `json:"unit_price"`
	LineTotal int64   `json:"line_total"`
}
