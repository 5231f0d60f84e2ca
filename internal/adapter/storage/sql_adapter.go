package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

var ErrNotFound = errors.New("record not found")

const productColumns = `
	p.id, p.barcode, p.name, p.price, p.image, p.category_id,
	c.type AS category_type, p.created_at, p.updated_at
	FROM products p
	LEFT JOIN categories c ON p.category_id = c.id`

// SQLAdapter stores products and categories in MySQL or SQLite.
type SQLAdapter struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLAdapter(db *sqlx.DB) *SQLAdapter {
	return &SQLAdapter{
		db:  db,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

func (a *SQLAdapter) ListProducts(ctx context.Context, categoryID *int64) ([]domain.Product, error) {
	products := []domain.Product{}
	var err error
	if categoryID != nil {
		err = a.db.SelectContext(ctx, &products,
			`SELECT `+productColumns+` WHERE p.category_id = ? ORDER BY p.id`, *categoryID)
	} else {
		err = a.db.SelectContext(ctx, &products, `SELECT `+productColumns+` ORDER BY p.id`)
	}
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return products, nil
}

func (a *SQLAdapter) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	return a.getProduct(ctx, `SELECT `+productColumns+` WHERE p.id = ?`, id)
}

func (a *SQLAdapter) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	return a.getProduct(ctx, `SELECT `+productColumns+` WHERE p.barcode = ?`, barcode)
}

func (a *SQLAdapter) getProduct(ctx context.Context, query string, arg interface{}) (*domain.Product, error) {
	var p domain.Product
	err := a.db.GetContext(ctx, &p, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (a *SQLAdapter) CreateProduct(ctx context.Context, p domain.Product) (int64, error) {
	now := a.now()
	p.CreatedAt, p.UpdatedAt = now, now

	result, err := a.db.NamedExecContext(ctx, `
		INSERT INTO products (barcode, name, price, image, category_id, created_at, updated_at)
		VALUES (:barcode, :name, :price, :image, :category_id, :created_at, :updated_at)`, p)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return result.LastInsertId()
}

func (a *SQLAdapter) UpdateProduct(ctx context.Context, id int64, u domain.ProductUpdate) error {
	var (
		sets []string
		args []interface{}
	)
	if u.Barcode != nil {
		sets = append(sets, "barcode = ?")
		args = append(args, *u.Barcode)
	}
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.SetPrice {
		sets = append(sets, "price = ?")
		args = append(args, u.Price)
	}
	if u.SetImage {
		sets = append(sets, "image = ?")
		args = append(args, u.Image)
	}
	if u.SetCategoryID {
		sets = append(sets, "category_id = ?")
		args = append(args, u.CategoryID)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, a.now(), id)

	_, err := a.db.ExecContext(ctx,
		`UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (a *SQLAdapter) DeleteProduct(ctx context.Context, id int64) error {
	return a.deleteByID(ctx, "products", id)
}

func (a *SQLAdapter) BarcodeExists(ctx context.Context, barcode string, excludeID int64) (bool, error) {
	var n int
	err := a.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM products WHERE barcode = ? AND id <> ?`, barcode, excludeID)
	if err != nil {
		return false, fmt.Errorf("query barcode: %w", err)
	}
	return n > 0, nil
}

func (a *SQLAdapter) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories := []domain.Category{}
	err := a.db.SelectContext(ctx, &categories,
		`SELECT id, type, created_at, updated_at FROM categories ORDER BY type`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	return categories, nil
}

func (a *SQLAdapter) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return a.getCategory(ctx, `SELECT id, type, created_at, updated_at FROM categories WHERE id = ?`, id)
}

func (a *SQLAdapter) GetCategoryByType(ctx context.Context, typ string) (*domain.Category, error) {
	return a.getCategory(ctx, `SELECT id, type, created_at, updated_at FROM categories WHERE type = ?`, typ)
}

func (a *SQLAdapter) getCategory(ctx context.Context, query string, arg interface{}) (*domain.Category, error) {
	var c domain.Category
	err := a.db.GetContext(ctx, &c, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query category: %w", err)
	}
	return &c, nil
}

func (a *SQLAdapter) CreateCategory(ctx context.Context, typ string) (int64, error) {
	now := a.now()
	result, err := a.db.ExecContext(ctx,
		`INSERT INTO categories (type, created_at, updated_at) VALUES (?, ?, ?)`, typ, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	return result.LastInsertId()
}

func (a *SQLAdapter) UpdateCategory(ctx context.Context, id int64, typ string) error {
	_, err := a.db.ExecContext(ctx,
		`UPDATE categories SET type = ?, updated_at = ? WHERE id = ?`, typ, a.now(), id)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// DeleteCategory detaches the category's products and removes it in one
// transaction.
func (a *SQLAdapter) DeleteCategory(ctx context.Context, id int64) error {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE products SET category_id = NULL, updated_at = ?
		WHERE category_id = ?`, a.now(), id)
	if err != nil {
		return fmt.Errorf("detach products: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

func (a *SQLAdapter) deleteByID(ctx context.Context, table string, id int64) error {
	result, err := a.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
