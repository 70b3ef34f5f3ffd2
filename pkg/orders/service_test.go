package orders

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/example/ordershop/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memRepo struct {
	mu        sync.Mutex
	orders    map[primitive.ObjectID]*models.Order
	numbers   map[string]bool
	createErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:  make(map[primitive.ObjectID]*models.Order),
		numbers: make(map[string]bool),
	}
}

func (r *memRepo) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if r.numbers[order.OrderNumber] {
		return Persistence("insert order", ErrDuplicateOrderNumber)
	}
	order.ID = primitive.NewObjectID()
	cp := *order
	r.orders[order.ID] = &cp
	r.numbers[order.OrderNumber] = true
	return nil
}

func (r *memRepo) find(id string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, NotFound("Order not found", err)
	}
	o, ok := r.orders[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, err := r.find(id)
	if err != nil {
		return nil, err
	}
	cp := *o
	return &cp, nil
}

func (r *memRepo) FindByIDForUser(_ context.Context, id, userID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, err := r.find(id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memRepo) list(keep func(*models.Order) bool) []*models.Order {
	var out []*models.Order
	for _, o := range r.orders {
		if keep(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memRepo) FindAllForUser(_ context.Context, userID string) ([]*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(o *models.Order) bool { return o.UserID == userID }), nil
}

func (r *memRepo) FindAll(_ context.Context) ([]*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(*models.Order) bool { return true }), nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id, userID string, status models.OrderStatus, at time.Time) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, err := r.find(id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	cp := *o
	return &cp, nil
}

func (r *memRepo) CountAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.orders)), nil
}

func (r *memRepo) CountByStatus(_ context.Context, status models.OrderStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) SumAmountWhereStatusIn(_ context.Context, statuses []models.OrderStatus) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, o := range r.orders {
		for _, s := range statuses {
			if o.Status == s {
				sum += o.TotalAmount
			}
		}
	}
	return sum, nil
}

type fakeUsers map[string]*models.User

func (f fakeUsers) GetUser(_ context.Context, id string) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

type fakeCarts struct {
	mu      sync.Mutex
	cleared []string
	err     error
}

func (f *fakeCarts) DeleteCartForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, userID)
	return f.err
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (a *recordingAudit) Record(entry *models.AuditLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

type recordingEvents struct {
	events []models.OrderEvent
	err    error
}

func (e *recordingEvents) Publish(_ context.Context, ev models.OrderEvent) error {
	e.events = append(e.events, ev)
	return e.err
}

type fixture struct {
	svc    *Service
	repo   *memRepo
	carts  *fakeCarts
	audit  *recordingAudit
	events *recordingEvents
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		repo:   newMemRepo(),
		carts:  &fakeCarts{},
		audit:  &recordingAudit{},
		events: &recordingEvents{},
	}
	users := fakeUsers{
		"u1": {ID: "u1", FirstName: "Ann", LastName: "Lee", Email: "ann@example.com"},
		"u2": {ID: "u2", FirstName: "Bob", LastName: "Ray", Email: "bob@example.com"},
		"u3": {ID: "u3"},
	}
	opts = append([]Option{WithAudit(f.audit), WithEvents(f.events)}, opts...)
	f.svc = NewService(f.repo, users, f.carts, zap.NewNop(), opts...)
	return f
}

var (
	ann = models.Identity{ID: "u1"}
	bob = models.Identity{ID: "u2"}
)

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, ann, validRequest())
	require.NoError(t, err)

	assert.False(t, order.ID.IsZero())
	assert.Equal(t, models.StatusPending, order.Status)
	assert.True(t, IsOrderNumber(order.OrderNumber))
	assert.Regexp(t, `^ORD-`, order.OrderNumber)
	assert.Equal(t, 50.0, order.TotalAmount)
	assert.Equal(t, "u1", order.UserID)
	assert.Equal(t, models.UserName{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com"}, order.UserName)
	assert.Equal(t, "cod", order.PaymentMethod)
	assert.Equal(t, order.CreatedAt, order.UpdatedAt)
	assert.Equal(t, order.CreatedAt, order.CreatedAt.Truncate(time.Millisecond))

	stored, err := f.repo.FindByID(ctx, order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, stored.OrderNumber)

	assert.Equal(t, []string{"u1"}, f.carts.cleared)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "create_order", f.audit.entries[0].Action)
	assert.Equal(t, order.ID.Hex(), f.audit.entries[0].EntityID)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventOrderPlaced, f.events.events[0].Type)
}

func TestPlaceOrder_KeepsSubmittedTotal(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.TotalAmount = NewNumber(1.23)

	order, err := f.svc.PlaceOrder(context.Background(), ann, req)
	require.NoError(t, err)
	assert.Equal(t, 1.23, order.TotalAmount)
	assert.Equal(t, 50.0, order.ItemsTotal())
}

func TestPlaceOrder_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *PlaceOrderRequest)
		wantMsg string
	}{
		{"empty items", func(r *PlaceOrderRequest) { r.Items = nil }, "No items in order"},
		{"zero total", func(r *PlaceOrderRequest) { r.TotalAmount = NewNumber(0) }, "Invalid total amount"},
		{"no address", func(r *PlaceOrderRequest) { r.DeliveryAddress = nil }, "Delivery address required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validRequest()
			tt.mutate(req)

			_, err := f.svc.PlaceOrder(context.Background(), ann, req)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, tt.wantMsg, PublicMessage(err))

			n, _ := f.repo.CountAll(context.Background())
			assert.Zero(t, n)
			assert.Empty(t, f.carts.cleared)
		})
	}
}

func TestPlaceOrder_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), models.Identity{ID: "ghost"}, validRequest())
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "User not found", PublicMessage(err))
}

func TestPlaceOrder_DefaultsForEmptyProfile(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.PaymentMethod = ""

	order, err := f.svc.PlaceOrder(context.Background(), models.Identity{ID: "u3"}, req)
	require.NoError(t, err)
	assert.Equal(t, models.UserName{FirstName: "Unknown", LastName: "User", Email: "unknown@example.com"}, order.UserName)
	assert.Equal(t, "cod", order.PaymentMethod)
}

func TestPlaceOrder_CartFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.carts.err = errors.New("redis down")

	order, err := f.svc.PlaceOrder(context.Background(), ann, validRequest())
	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, []string{"u1"}, f.carts.cleared)
}

func TestPlaceOrder_EventFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker unavailable")

	_, err := f.svc.PlaceOrder(context.Background(), ann, validRequest())
	assert.NoError(t, err)
}

func TestPlaceOrder_DuplicateRequestsCreateDistinctOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.PlaceOrder(ctx, ann, validRequest())
	require.NoError(t, err)
	second, err := f.svc.PlaceOrder(ctx, ann, validRequest())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.OrderNumber, second.OrderNumber)

	list, err := f.svc.ListForUser(ctx, ann)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPlaceOrder_RegeneratesNumberOnCollision(t *testing.T) {
	f := newFixture(t, WithNumberGenerator(fixedGenerator(1700000000000, 1, 1, 2)))
	ctx := context.Background()

	first, err := f.svc.PlaceOrder(ctx, ann, validRequest())
	require.NoError(t, err)
	second, err := f.svc.PlaceOrder(ctx, ann, validRequest())
	require.NoError(t, err)

	assert.Equal(t, "ORD-1700000000000-001", first.OrderNumber)
	assert.Equal(t, "ORD-1700000000000-002", second.OrderNumber)
}

func TestPlaceOrder_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t, WithNumberGenerator(fixedGenerator(1700000000000, 5)))
	ctx := context.Background()

	_, err := f.svc.PlaceOrder(ctx, ann, validRequest())
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(ctx, ann, validRequest())
	require.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, ErrDuplicateOrderNumber)
	assert.Equal(t, "Internal server error", PublicMessage(err))
}

func TestPlaceOrder_PersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("connection refused")

	_, err := f.svc.PlaceOrder(context.Background(), ann, validRequest())
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, "Internal server error", PublicMessage(err))
	assert.NotContains(t, PublicMessage(err), "connection refused")
	assert.Empty(t, f.carts.cleared)
}

func TestPlaceTestOrder(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.PlaceTestOrder(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, `^TEST-\d+-\d{3}$`, order.OrderNumber)
	assert.Equal(t, "test-user-id", order.UserID)
	assert.Equal(t, 10.0, order.TotalAmount)
	assert.Empty(t, f.carts.cleared)
}

func TestOwnershipIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, ann, validRequest())
	require.NoError(t, err)

	_, err = f.svc.GetForUser(ctx, bob, order.ID.Hex())
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Order not found", PublicMessage(err))

	list, err := f.svc.ListForUser(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.UpdateStatus(ctx, bob, order.ID.Hex(), "shipped")
	require.ErrorIs(t, err, ErrNotFound)

	got, err := f.svc.GetForUser(ctx, ann, order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestGetForUser_MalformedID(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetForUser(context.Background(), ann, "not-an-id")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Order not found", PublicMessage(err))
}

func TestListForUser_NewestFirst(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, WithClock(func() time.Time {
		now = now.Add(time.Minute)
		return now
	}))
	ctx := context.Background()

	first, err := f.svc.PlaceOrder(ctx, ann, validRequest())
	require.NoError(t, err)
	second, err := f.svc.PlaceOrder(ctx, ann, validRequest())
	require.NoError(t, err)

	list, err := f.svc.ListForUser(ctx, ann)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestUpdateStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, ann, validRequest())
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, ann, order.ID.Hex(), "shipped")
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, updated.Status)
	assert.True(t, updated.UpdatedAt.After(order.UpdatedAt))
	assert.Equal(t, order.CreatedAt, updated.CreatedAt)

	require.Len(t, f.audit.entries, 2)
	assert.Equal(t, "update_order_status", f.audit.entries[1].Action)
	require.Len(t, f.events.events, 2)
	assert.Equal(t, models.EventOrderStatusChanged, f.events.events[1].Type)
	assert.Equal(t, models.StatusShipped, f.events.events[1].Status)
}

func TestUpdateStatus_AnyTransitionAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, ann, validRequest())
	require.NoError(t, err)

	for _, s := range []string{"delivered", "pending", "cancelled", "confirmed"} {
		updated, err := f.svc.UpdateStatus(ctx, ann, order.ID.Hex(), s)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatus(s), updated.Status)
	}
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, ann, validRequest())
	require.NoError(t, err)

	for _, s := range []string{"", "SHIPPED", "lost"} {
		_, err := f.svc.UpdateStatus(ctx, ann, order.ID.Hex(), s)
		require.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, "Invalid status", PublicMessage(err))
	}

	got, err := f.svc.GetForUser(ctx, ann, order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, order.UpdatedAt, got.UpdatedAt)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	place := func(total float64, status string) {
		req := validRequest()
		req.TotalAmount = NewNumber(total)
		o, err := f.svc.PlaceOrder(ctx, ann, req)
		require.NoError(t, err)
		if status != "pending" {
			_, err = f.svc.UpdateStatus(ctx, ann, o.ID.Hex(), status)
			require.NoError(t, err)
		}
	}
	place(10, "pending")
	place(20, "confirmed")
	place(30, "shipped")
	place(40, "delivered")
	place(50, "cancelled")
	place(60, "processing")

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.OrderStats{
		TotalOrders:      6,
		PendingOrders:    1,
		ConfirmedOrders:  1,
		ProcessingOrders: 1,
		ShippedOrders:    1,
		DeliveredOrders:  1,
		CancelledOrders:  1,
		TotalRevenue:     150,
	}, stats)

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	count, err := f.svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

func TestStats_Empty(t *testing.T) {
	f := newFixture(t)

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.OrderStats{}, stats)
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("mongo: no reachable servers")))
	assert.Equal(t, "Order not found", PublicMessage(NotFound("Order not found", nil)))
	assert.Equal(t, "Internal server error", PublicMessage(Persistence("insert", errors.New("boom"))))
}
