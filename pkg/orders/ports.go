package orders

import (
	"context"
	"time"

	"github.com/example/ordershop/pkg/models"
)

// Repository persists order documents. Every method touches at most one
// document for writes; the store's per-document atomicity is the only
// concurrency guarantee.
type Repository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByIDForUser(ctx context.Context, id, userID string) (*models.Order, error)
	FindAllForUser(ctx context.Context, userID string) ([]*models.Order, error)
	FindAll(ctx context.Context) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id, userID string, status models.OrderStatus, at time.Time) (*models.Order, error)
	CountAll(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status models.OrderStatus) (int64, error)
	SumAmountWhereStatusIn(ctx context.Context, statuses []models.OrderStatus) (float64, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type CartStore interface {
	DeleteCartForUser(ctx context.Context, userID string) error
}

// AuditRecorder accepts audit entries without blocking the caller.
type AuditRecorder interface {
	Record(entry *models.AuditLog)
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.OrderEvent) error
}

type noopAudit struct{}

func (noopAudit) Record(*models.AuditLog) {}

type noopEvents struct{}

func (noopEvents) Publish(context.Context, models.OrderEvent) error { return nil }
