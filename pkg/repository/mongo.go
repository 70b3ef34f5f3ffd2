package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/ordershop/pkg/config"
	"github.com/example/ordershop/pkg/models"
	"github.com/example/ordershop/pkg/orders"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository owns the client connection and hands out the collection
// backed repositories.
type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
}

func NewMongoRepository(ctx context.Context, cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	return &MongoRepository{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoRepository) Orders() *OrderRepository {
	return NewOrderRepository(m.database.Collection(m.config.Collection))
}

func (m *MongoRepository) AuditLogs() *AuditLogRepository {
	return NewAuditLogRepository(m.database.Collection(m.config.AuditCollection))
}

// OrderRepository stores orders in a single collection. Writes touch one
// document each.
type OrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(collection *mongo.Collection) *OrderRepository {
	return &OrderRepository{collection: collection}
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

// EnsureIndexes creates the unique order number index and the per-user
// listing index. It is idempotent.
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("orderNumber_unique"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("userId_createdAt"),
		},
	})
	if err != nil {
		return orders.Persistence("create order indexes", err)
	}
	return nil
}

func (r *OrderRepository) Ping(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, nil)
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.OrderNumber == "" {
		return orders.InvalidInput("order number is required")
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		order.ID = primitive.NilObjectID
		if mongo.IsDuplicateKeyError(err) {
			return orders.Persistence("insert order", fmt.Errorf("%w: %s", orders.ErrDuplicateOrderNumber, order.OrderNumber))
		}
		return orders.Persistence("insert order", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, orders.NotFound("Order not found", err)
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *OrderRepository) FindByIDForUser(ctx context.Context, id, userID string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, orders.NotFound("Order not found", err)
	}
	return r.findOne(ctx, bson.M{"_id": oid, "userId": userID})
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	if err := r.collection.FindOne(ctx, filter).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, orders.NotFound("Order not found", err)
		}
		return nil, orders.Persistence("find order", err)
	}
	return &order, nil
}

func (r *OrderRepository) FindAllForUser(ctx context.Context, userID string) ([]*models.Order, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *OrderRepository) FindAll(ctx context.Context) ([]*models.Order, error) {
	return r.find(ctx, bson.M{})
}

func (r *OrderRepository) find(ctx context.Context, filter bson.M) ([]*models.Order, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, orders.Persistence("find orders", err)
	}
	defer cursor.Close(ctx)

	list := make([]*models.Order, 0)
	if err = cursor.All(ctx, &list); err != nil {
		return nil, orders.Persistence("decode orders", err)
	}
	return list, nil
}

// UpdateStatus sets status and updatedAt on the order owned by userID and
// returns the document as stored after the update.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, userID string, status models.OrderStatus, at time.Time) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, orders.NotFound("Order not found", err)
	}

	filter := bson.M{"_id": oid, "userId": userID}
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, orders.NotFound("Order not found", err)
		}
		return nil, orders.Persistence("update order status", err)
	}
	return &order, nil
}

func (r *OrderRepository) CountAll(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, orders.Persistence("count orders", err)
	}
	return n, nil
}

func (r *OrderRepository) CountByStatus(ctx context.Context, status models.OrderStatus) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		return 0, orders.Persistence("count orders by status", err)
	}
	return n, nil
}

func (r *OrderRepository) SumAmountWhereStatusIn(ctx context.Context, statuses []models.OrderStatus) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": bson.M{"$in": statuses}}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$totalAmount"}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, orders.Persistence("sum revenue", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total float64 `bson:"total"`
	}
	if err = cursor.All(ctx, &result); err != nil {
		return 0, orders.Persistence("decode revenue", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

// AuditLogRepository appends audit entries. Entries are never updated.
type AuditLogRepository struct {
	collection *mongo.Collection
}

func NewAuditLogRepository(collection *mongo.Collection) *AuditLogRepository {
	return &AuditLogRepository{collection: collection}
}

func (a *AuditLogRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	_, err := a.collection.InsertOne(ctx, log)
	return err
}

func (a *AuditLogRepository) GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*models.AuditLog, error) {
	filter := bson.M{"entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := a.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*models.AuditLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}
