package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/betminds/linx-orders/internal/domain/order"
	"github.com/betminds/linx-orders/internal/infrastructure/persistence/models"
)

// insertBatchSize bounds the rows sent per INSERT statement.
const insertBatchSize = 100

// GormOrderRepository implements order.Repository using GORM. Every method
// targets the configured table explicitly.
type GormOrderRepository struct {
	db    *gorm.DB
	table string
}

// NewGormOrderRepository creates a repository for table. An empty table
// name selects models.DefaultOrderTable.
func NewGormOrderRepository(db *gorm.DB, table string) *GormOrderRepository {
	if table == "" {
		table = models.DefaultOrderTable
	}
	return &GormOrderRepository{db: db, table: table}
}

var _ order.Repository = (*GormOrderRepository)(nil)

// Table returns the sink table name.
func (r *GormOrderRepository) Table() string {
	return r.table
}

// EnsureTable creates the table when the migrator reports it missing.
func (r *GormOrderRepository) EnsureTable(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if db.Migrator().HasTable(r.table) {
		return nil
	}
	if err := db.Table(r.table).Migrator().CreateTable(&models.OrderModel{}); err != nil {
		return order.NewSinkError("EnsureTable", err)
	}
	return nil
}

// MaxCreatedDate returns the newest created_date. It selects the column
// itself rather than MAX() so drivers keep the declared column type.
func (r *GormOrderRepository) MaxCreatedDate(ctx context.Context) (*time.Time, error) {
	var latest sql.NullTime
	err := r.db.WithContext(ctx).
		Table(r.table).
		Select("created_date").
		Where("created_date IS NOT NULL").
		Order("created_date DESC").
		Limit(1).
		Row().
		Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, order.NewSinkError("MaxCreatedDate", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	t := latest.Time
	return &t, nil
}

// CountByOrderID counts rows with order_id.
func (r *GormOrderRepository) CountByOrderID(ctx context.Context, orderID string) (int64, error) {
	return r.countBy(ctx, "CountByOrderID", "order_id", orderID)
}

// CountByOrderNumber counts rows with order_number.
func (r *GormOrderRepository) CountByOrderNumber(ctx context.Context, orderNumber string) (int64, error) {
	return r.countBy(ctx, "CountByOrderNumber", "order_number", orderNumber)
}

func (r *GormOrderRepository) countBy(ctx context.Context, op, column, value string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Table(r.table).
		Where(column+" = ?", value).
		Count(&count).Error; err != nil {
		return 0, order.NewSinkError(op, err)
	}
	return count, nil
}

// Insert appends rows in batches.
func (r *GormOrderRepository) Insert(ctx context.Context, orders []*order.NormalizedOrder) error {
	if len(orders) == 0 {
		return nil
	}

	rows := make([]*models.OrderModel, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		m := &models.OrderModel{}
		m.FromDomain(o)
		rows = append(rows, m)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Table(r.table).CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return order.NewSinkError("Insert", err)
	}
	return nil
}

// CountDuplicates returns the number of rows RemoveDuplicates would delete.
func (r *GormOrderRepository) CountDuplicates(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf(`SELECT COALESCE(SUM(cnt - 1), 0) FROM (
		SELECT COUNT(*) AS cnt FROM %s
		WHERE order_id IS NOT NULL AND order_id <> ''
		GROUP BY order_id HAVING COUNT(*) > 1
	) dup`, r.quotedTable())

	if err := r.db.WithContext(ctx).Raw(query).Row().Scan(&count); err != nil {
		return 0, order.NewSinkError("CountDuplicates", err)
	}
	return count, nil
}

// RemoveDuplicates keeps one row per order_id and deletes the rest. The
// survivor has the newest created_date; ties go to the highest id, which is
// the last inserted row. Rows with an empty order_id are never grouped.
func (r *GormOrderRepository) RemoveDuplicates(ctx context.Context) (int64, error) {
	table := r.quotedTable()
	query := fmt.Sprintf(`DELETE FROM %s WHERE id IN (
		SELECT id FROM (
			SELECT id, ROW_NUMBER() OVER (
				PARTITION BY order_id
				ORDER BY created_date DESC NULLS LAST, id DESC
			) AS rn
			FROM %s
			WHERE order_id IS NOT NULL AND order_id <> ''
		) ranked
		WHERE ranked.rn > 1
	)`, table, table)

	result := r.db.WithContext(ctx).Exec(query)
	if result.Error != nil {
		return 0, order.NewSinkError("RemoveDuplicates", result.Error)
	}
	return result.RowsAffected, nil
}

// Ping checks the sink connection.
func (r *GormOrderRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return order.NewSinkError("Ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return order.NewSinkError("Ping", err)
	}
	return nil
}

func (r *GormOrderRepository) quotedTable() string {
	return r.db.Statement.Quote(r.table)
}
