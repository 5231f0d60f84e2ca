package service

import (
	"errors"
	"strings"
)

var (
	ErrUnknownProduct     = errors.New("unknown product")
	ErrCatalogLoadFailed  = errors.New("catalog load failed")
	ErrNotInCart          = errors.New("product not in cart")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrEmptyCode          = errors.New("barcode is empty")
	ErrInvalidMode        = errors.New("invalid mode")
	ErrInvalidPriceBucket = errors.New("invalid price bucket")
	ErrInvalidIntent      = errors.New("invalid intent")
	ErrSessionNotFound    = errors.New("session not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrBarcodeExists      = errors.New("barcode already exists")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCategoryExists     = errors.New("category already exists")
)

type FieldError struct {
	Msg   string `json:"msg"`
	Param string `json:"param"`
}

// ValidationError collects every invalid field of an admin write.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Param + ": " + fe.Msg
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(param, msg string) {
	e.Errors = append(e.Errors, FieldError{Msg: msg, Param: param})
}

func (e *ValidationError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// IsNotice reports whether err is a user-facing, non-fatal outcome of a
// dispatch that is shown as a notice rather than failing the request.
func IsNotice(err error) bool {
	return errors.Is(err, ErrUnknownProduct) ||
		errors.Is(err, ErrCatalogLoadFailed) ||
		errors.Is(err, ErrNotInCart) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrEmptyCode)
}
