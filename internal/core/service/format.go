package service

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PriceFormatter renders amounts with locale thousand separators and a
// currency suffix, e.g. "150.000 ₫" for vi-VN.
type PriceFormatter struct {
	printer *message.Printer
	suffix  string
}

func NewPriceFormatter(locale, suffix string) *PriceFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Vietnamese
	}
	return &PriceFormatter{
		printer: message.NewPrinter(tag),
		suffix:  suffix,
	}
}

func (f *PriceFormatter) Format(amount int64) string {
	s := f.printer.Sprintf("%d", amount)
	if f.suffix == "" {
		return s
	}
	return s + " " + f.suffix
}

// FormatPrice renders a nullable price; an unset price renders as 0.
func (f *PriceFormatter) FormatPrice(p interface{ Unit() int64 }) string {
	return f.Format(p.Unit())
}
