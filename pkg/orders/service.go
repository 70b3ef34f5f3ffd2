package orders

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/example/ordershop/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	serviceName = "order-service"

	// maxNumberAttempts bounds regeneration of the order number when the
	// unique index reports a collision.
	maxNumberAttempts = 3

	testUserID = "test-user-id"
)

type Service struct {
	repo    Repository
	users   UserDirectory
	carts   CartStore
	audit   AuditRecorder
	events  EventPublisher
	numbers *NumberGenerator
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithAudit(a AuditRecorder) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

func WithEvents(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

func WithNumberGenerator(g *NumberGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.numbers = g
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo Repository, users UserDirectory, carts CartStore, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		users:   users,
		carts:   carts,
		audit:   noopAudit{},
		events:  noopEvents{},
		numbers: NewNumberGenerator(),
		logger:  logger.Named("orders"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder validates the request, snapshots the caller's profile into a
// new pending order, stores it and then clears the caller's cart. Cart
// clearing, auditing and event publishing never fail the placement.
// There is no idempotency key: a retried request creates a second order.
func (s *Service) PlaceOrder(ctx context.Context, identity models.Identity, req *PlaceOrderRequest) (*models.Order, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, identity.ID)
	if err != nil {
		return nil, classify(err, "lookup user", "User not found")
	}

	order := s.buildOrder(identity.ID, user, req)
	if diff := math.Abs(order.ItemsTotal() - order.TotalAmount); diff > 0.005 {
		s.logger.Warn("Order total differs from item prices, keeping submitted total",
			zap.String("user_id", identity.ID),
			zap.Float64("total_amount", order.TotalAmount),
			zap.Float64("items_total", order.ItemsTotal()))
	}

	if err := s.insert(ctx, order, s.numbers.Next); err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", identity.ID),
		zap.Int("item_count", len(order.Items)),
		zap.Float64("total_amount", order.TotalAmount))

	s.clearCart(ctx, identity.ID)
	s.afterWrite(ctx, "create_order", models.EventOrderPlaced, order)

	return order, nil
}

// PlaceTestOrder stores a fixed order with a TEST- number for the
// diagnostic endpoint.
func (s *Service) PlaceTestOrder(ctx context.Context) (*models.Order, error) {
	now := s.timestamp()
	order := &models.Order{
		UserID: testUserID,
		UserName: models.UserName{
			FirstName: "Test",
			LastName:  "User",
			Email:     "test@example.com",
		},
		Items: []models.OrderItem{{
			ProductID:   "test-product",
			Name:        "Test Product",
			Description: "Test Description",
			Price:       10.00,
			Image:       "test-image.jpg",
			Quantity:    1,
		}},
		TotalAmount:   10.00,
		PaymentMethod: defaultPaymentMethod,
		DeliveryAddress: models.DeliveryAddress{
			FullName: "Test User",
			Address:  "Test Address",
			City:     "Test City",
			State:    "Test State",
			ZipCode:  "12345",
			Phone:    "1234567890",
		},
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.insert(ctx, order, s.numbers.NextTest); err != nil {
		return nil, err
	}
	s.logger.Info("Test order created", zap.String("order_number", order.OrderNumber))
	return order, nil
}

func (s *Service) buildOrder(userID string, user *models.User, req *PlaceOrderRequest) *models.Order {
	now := s.timestamp()
	return &models.Order{
		UserID:          userID,
		UserName:        NormalizeUserName(user),
		Items:           NormalizeItems(req.Items),
		TotalAmount:     req.TotalAmount.Value,
		PaymentMethod:   NormalizePaymentMethod(string(req.PaymentMethod)),
		DeliveryAddress: NormalizeAddress(req.DeliveryAddress),
		Status:          models.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *Service) insert(ctx context.Context, order *models.Order, next func() string) error {
	for attempt := 1; ; attempt++ {
		order.OrderNumber = next()

		err := s.repo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrDuplicateOrderNumber) && attempt < maxNumberAttempts {
			s.logger.Warn("Order number collision, regenerating",
				zap.String("order_number", order.OrderNumber),
				zap.Int("attempt", attempt))
			continue
		}
		s.logger.Error("Failed to create order", zap.Error(err))
		return classify(err, "create order", "")
	}
}

func (s *Service) clearCart(ctx context.Context, userID string) {
	if err := s.carts.DeleteCartForUser(ctx, userID); err != nil {
		s.logger.Warn("Cart clearing failed (non-critical)", zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.logger.Debug("Cart cleared", zap.String("user_id", userID))
}

func (s *Service) afterWrite(ctx context.Context, action, eventType string, order *models.Order) {
	s.audit.Record(&models.AuditLog{
		Service:  serviceName,
		Action:   action,
		EntityID: order.ID.Hex(),
		UserID:   order.UserID,
		Data: bson.M{
			"order_number": order.OrderNumber,
			"status":       string(order.Status),
			"total_amount": order.TotalAmount,
		},
	})

	if err := s.events.Publish(ctx, models.NewOrderEvent(eventType, order, s.timestamp())); err != nil {
		s.logger.Warn("Order event publish failed (non-critical)",
			zap.String("event", eventType),
			zap.String("order_id", order.ID.Hex()),
			zap.Error(err))
	}
}

// ListForUser returns the caller's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, identity models.Identity) ([]*models.Order, error) {
	list, err := s.repo.FindAllForUser(ctx, identity.ID)
	if err != nil {
		return nil, classify(err, "list orders", "")
	}
	return list, nil
}

// GetForUser returns the order only when the caller owns it. Orders of
// other users are reported as not found.
func (s *Service) GetForUser(ctx context.Context, identity models.Identity, id string) (*models.Order, error) {
	order, err := s.repo.FindByIDForUser(ctx, id, identity.ID)
	if err != nil {
		return nil, classify(err, "get order", "Order not found")
	}
	return order, nil
}

// ListAll returns every order. Callers must have checked the admin role.
func (s *Service) ListAll(ctx context.Context) ([]*models.Order, error) {
	list, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, classify(err, "list all orders", "")
	}
	return list, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.CountAll(ctx)
	if err != nil {
		return 0, classify(err, "count orders", "")
	}
	return n, nil
}

// Stats counts orders per status and sums revenue over confirmed,
// processing, shipped and delivered orders.
func (s *Service) Stats(ctx context.Context) (*models.OrderStats, error) {
	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return nil, classify(err, "count orders", "")
	}

	counts := make(map[models.OrderStatus]int64, len(models.OrderStatuses))
	for _, status := range models.OrderStatuses {
		n, err := s.repo.CountByStatus(ctx, status)
		if err != nil {
			return nil, classify(err, "count orders by status", "")
		}
		counts[status] = n
	}

	revenue, err := s.repo.SumAmountWhereStatusIn(ctx, models.RevenueStatuses)
	if err != nil {
		return nil, classify(err, "sum revenue", "")
	}

	return &models.OrderStats{
		TotalOrders:      total,
		PendingOrders:    counts[models.StatusPending],
		ConfirmedOrders:  counts[models.StatusConfirmed],
		ProcessingOrders: counts[models.StatusProcessing],
		ShippedOrders:    counts[models.StatusShipped],
		DeliveredOrders:  counts[models.StatusDelivered],
		CancelledOrders:  counts[models.StatusCancelled],
		TotalRevenue:     revenue,
	}, nil
}

// UpdateStatus replaces the status of an order owned by the caller. Any
// valid status may follow any other; concurrent updates are last write wins.
func (s *Service) UpdateStatus(ctx context.Context, identity models.Identity, id, status string) (*models.Order, error) {
	next := models.OrderStatus(status)
	if !next.Valid() {
		return nil, InvalidInput("Invalid status")
	}

	order, err := s.repo.UpdateStatus(ctx, id, identity.ID, next, s.timestamp())
	if err != nil {
		return nil, classify(err, "update order status", "Order not found")
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", order.ID.Hex()),
		zap.String("status", string(order.Status)))
	s.afterWrite(ctx, "update_order_status", models.EventOrderStatusChanged, order)

	return order, nil
}

// timestamp truncates to milliseconds, the resolution Mongo stores.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}
