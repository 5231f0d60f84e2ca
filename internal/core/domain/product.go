package domain

import "time"

type Product struct {
	ID           int64     `json:"id" db:"id"`
	Barcode      string    `json:"barcode" db:"barcode"`
	Name         string    `json:"name" db:"name"`
	Price        Price     `json:"price" db:"price"`
	Image        *string   `json:"image" db:"image"`
	CategoryID   *int64    `json:"category_id" db:"category_id"`
	CategoryType *string   `json:"category_type" db:"category_type"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CategoryName returns the joined category type or "" when uncategorised.
func (p Product) CategoryName() string {
	if p.CategoryType == nil {
		return ""
	}
	return *p.CategoryType
}

// ImageURL returns the image reference, falling back to def when unset.
func (p Product) ImageURL(def string) string {
	if p.Image == nil || *p.Image == "" {
		return def
	}
	return *p.Image
}

type Category struct {
	ID        int64     `json:"id" db:"id"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProductUpdate carries the columns of a partial product update. A nil field
// is left untouched; the Set* flags allow clearing nullable columns.
type ProductUpdate struct {
	Barcode       *string
	Name          *string
	SetPrice      bool
	Price         Price
	SetImage      bool
	Image         *string
	SetCategoryID bool
	CategoryID    *int64
}

func (u ProductUpdate) Empty() bool {
	return u.Barcode == nil && u.Name == nil && !u.SetPrice && !u.SetImage && !u.SetCategoryID
}
