package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every valid status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// RevenueStatuses are the statuses whose totals count towards revenue.
var RevenueStatuses = []OrderStatus{
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Order is the persisted order document. Only Status and UpdatedAt change
// after creation.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	OrderNumber     string             `bson:"orderNumber" json:"orderNumber"`
	UserID          string             `bson:"userId" json:"userId"`
	UserName        UserName           `bson:"userName" json:"userName"`
	Items           []OrderItem        `bson:"items" json:"items"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	DeliveryAddress DeliveryAddress    `bson:"deliveryAddress" json:"deliveryAddress"`
	Status          OrderStatus        `bson:"status" json:"status"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserName is a snapshot of the customer taken when the order was placed.
type UserName struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Email     string `bson:"email" json:"email"`
}

type OrderItem struct {
	ProductID   string  `bson:"productId" json:"productId"`
	Name        string  `bson:"name" json:"name"`
	Description string  `bson:"description" json:"description"`
	Price       float64 `bson:"price" json:"price"`
	Image       string  `bson:"image" json:"image"`
	Quantity    int     `bson:"quantity" json:"quantity"`
}

type DeliveryAddress struct {
	FullName string `bson:"fullName" json:"fullName"`
	Address  string `bson:"address" json:"address"`
	City     string `bson:"city" json:"city"`
	State    string `bson:"state" json:"state"`
	ZipCode  string `bson:"zipCode" json:"zipCode"`
	Phone    string `bson:"phone" json:"phone"`
}

// ItemsTotal is the sum of price*quantity over the items. It is informational
// only; TotalAmount is what the customer submitted.
func (o *Order) ItemsTotal() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// OrderSummary is the view returned after placing an order.
type OrderSummary struct {
	ID            string      `json:"id"`
	OrderNumber   string      `json:"orderNumber"`
	TotalAmount   float64     `json:"totalAmount"`
	Status        OrderStatus `json:"status"`
	PaymentMethod string      `json:"paymentMethod"`
	CreatedAt     time.Time   `json:"createdAt"`
}

func (o *Order) Summary() OrderSummary {
	return OrderSummary{
		ID:            o.ID.Hex(),
		OrderNumber:   o.OrderNumber,
		TotalAmount:   o.TotalAmount,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		CreatedAt:     o.CreatedAt,
	}
}

// OrderStats is the admin dashboard aggregate.
type OrderStats struct {
	TotalOrders      int64   `json:"totalOrders"`
	PendingOrders    int64   `json:"pendingOrders"`
	ConfirmedOrders  int64   `json:"confirmedOrders"`
	ProcessingOrders int64   `json:"processingOrders"`
	ShippedOrders    int64   `json:"shippedOrders"`
	DeliveredOrders  int64   `json:"deliveredOrders"`
	CancelledOrders  int64   `json:"cancelledOrders"`
	TotalRevenue     float64 `json:"totalRevenue"`
}
