package order

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/harvest-finance/harvest/internal/database"
	"github.com/harvest-finance/harvest/internal/entity"
)

var repoTracer = otel.Tracer("github.com/harvest-finance/harvest/repository/order")

// SQLStore persists orders through Bun, writing to the primary and
// reading from the replica when one is configured.
type SQLStore struct {
	writer *bun.DB
	reader *bun.DB
}

// NewSQLStore wires a store backed by the configured database connections.
func NewSQLStore(conns *database.Connections) *SQLStore {
	return &SQLStore{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order using the write connection.
func (s *SQLStore) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	now := time.Now().UTC()
	order.ID = uuid.NewString()
	order.Status = entity.StatusPending
	order.EscrowReference = ""
	order.CreatedAt = now
	order.UpdatedAt = now

	ctx, span := repoTracer.Start(ctx, "OrderStore.Create", trace.WithAttributes(attribute.String("order.id", order.ID)))
	defer span.End()

	_, err := s.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order by primary key using the read replica when available.
func (s *SQLStore) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderStore.GetByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	return s.get(ctx, s.reader, id)
}

func (s *SQLStore) get(ctx context.Context, db *bun.DB, id string) (*entity.Order, error) {
	order := new(entity.Order)
	err := db.NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Save upserts by id, refreshing updated_at. Inserts when the id is unknown.
func (s *SQLStore) Save(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderStore.Save", trace.WithAttributes(attribute.String("order.id", order.ID)))
	defer span.End()

	order.UpdatedAt = time.Now().UTC()

	res, err := s.writer.NewUpdate().
		Model(order).
		WherePK().
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	_, err = s.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// TransitionStatus updates status only when the stored status still equals
// from, which keeps concurrent accepts from both passing the check.
func (s *SQLStore) TransitionStatus(ctx context.Context, id string, from, to entity.OrderStatus) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderStore.TransitionStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status.from", string(from)),
		attribute.String("order.status.to", string(to)),
	))
	defer span.End()

	res, err := s.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "conditional update failed")
		return nil, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		if _, getErr := s.get(ctx, s.writer, id); getErr != nil {
			span.SetStatus(codes.Error, "not found")
			return nil, getErr
		}
		span.SetStatus(codes.Error, "status conflict")
		return nil, ErrStatusConflict
	}

	return s.get(ctx, s.writer, id)
}

// List applies the filter, counts the full match set and returns one page
// sorted by created_at descending.
func (s *SQLStore) List(ctx context.Context, f Filter) ([]entity.Order, int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderStore.List")
	defer span.End()

	offset, limit := f.Bounds()

	var orders []entity.Order
	q := s.reader.NewSelect().Model(&orders)

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CropType != "" {
		q = q.Where("crop_type = ?", f.CropType)
	}
	if f.Search != "" {
		needle := "%" + strings.ToLower(f.Search) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("lower(crop_type) LIKE ?", needle).
				WhereOr("lower(buyer_name) LIKE ?", needle)
		})
	}
	if !f.StartDate.IsZero() {
		q = q.Where("created_at >= ?", f.StartDate)
	}
	if !f.EndDate.IsZero() {
		q = q.Where("created_at <= ?", f.EndDate)
	}
	if f.Role == entity.RoleFarmer {
		q = q.Where("status = ?", entity.StatusPending)
	}
	if f.Role == entity.RoleBuyer && f.UserID != "" {
		q = q.Where("buyer_id = ?", f.UserID)
	}

	total, err := q.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, 0, err
	}

	return orders, total, nil
}
