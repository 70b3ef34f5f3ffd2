package gateway

import (
	"errors"
	"io"
	"net/http"

	"github.com/example/ordershop/pkg/models"
	"github.com/example/ordershop/pkg/orders"
	"github.com/gin-gonic/gin"
)

const auditTrailLimit = 50

type statusRequest struct {
	Status string `json:"status"`
}

type placeOrderResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Order   models.OrderSummary `json:"order"`
}

type orderResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Order   *models.Order `json:"order"`
}

type ordersResponse struct {
	Success bool            `json:"success"`
	Orders  []*models.Order `json:"orders"`
}

type statsResponse struct {
	Success bool               `json:"success"`
	Stats   *models.OrderStats `json:"stats"`
}

type auditResponse struct {
	Success bool               `json:"success"`
	Logs    []*models.AuditLog `json:"logs"`
}

// bindJSON treats an empty body as an empty object so validation reports
// what is missing.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return &orders.Error{Kind: orders.ErrInvalidInput, Message: "Invalid request body", Err: err}
	}
	return nil
}

// createOrder godoc
// @Summary  Place an order
// @Tags     orders
// @Accept   json
// @Produce  json
// @Param    order body     orders.PlaceOrderRequest true "Order"
// @Success  200   {object} placeOrderResponse
// @Failure  400   {object} errorResponse
// @Failure  401   {object} errorResponse
// @Failure  404   {object} errorResponse
// @Router   /orders [post]
func (g *Gateway) createOrder(c *gin.Context) {
	identity, _ := identityFrom(c)

	var req orders.PlaceOrderRequest
	if err := bindJSON(c, &req); err != nil {
		g.respondError(c, err)
		return
	}

	order, err := g.orders.PlaceOrder(c.Request.Context(), identity, &req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if g.metrics != nil {
		g.metrics.OrdersPlaced.Inc()
	}

	c.JSON(http.StatusOK, placeOrderResponse{
		Success: true,
		Message: "Order placed successfully!",
		Order:   order.Summary(),
	})
}

// listOrders godoc
// @Summary  List the caller's orders, newest first
// @Tags     orders
// @Produce  json
// @Success  200 {object} ordersResponse
// @Failure  401 {object} errorResponse
// @Router   /orders [get]
func (g *Gateway) listOrders(c *gin.Context) {
	identity, _ := identityFrom(c)

	list, err := g.orders.ListForUser(c.Request.Context(), identity)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordersResponse{Success: true, Orders: list})
}

// getOrder godoc
// @Summary  Get one of the caller's orders
// @Tags     orders
// @Produce  json
// @Param    id  path     string true "Order ID"
// @Success  200 {object} orderResponse
// @Failure  404 {object} errorResponse
// @Router   /orders/{id} [get]
func (g *Gateway) getOrder(c *gin.Context) {
	identity, _ := identityFrom(c)

	order, err := g.orders.GetForUser(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse{Success: true, Order: order})
}

// updateOrderStatus godoc
// @Summary  Update the status of one of the caller's orders
// @Tags     orders
// @Accept   json
// @Produce  json
// @Param    id     path     string        true "Order ID"
// @Param    status body     statusRequest true "New status"
// @Success  200    {object} orderResponse
// @Failure  400    {object} errorResponse
// @Failure  404    {object} errorResponse
// @Router   /orders/{id}/status [patch]
func (g *Gateway) updateOrderStatus(c *gin.Context) {
	identity, _ := identityFrom(c)

	var req statusRequest
	if err := bindJSON(c, &req); err != nil {
		g.respondError(c, err)
		return
	}

	order, err := g.orders.UpdateStatus(c.Request.Context(), identity, c.Param("id"), req.Status)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if g.metrics != nil {
		g.metrics.StatusChanges.WithLabelValues(string(order.Status)).Inc()
	}

	c.JSON(http.StatusOK, orderResponse{
		Success: true,
		Message: "Order status updated successfully",
		Order:   order,
	})
}

// listAllOrders godoc
// @Summary  List every order
// @Tags     admin
// @Produce  json
// @Success  200 {object} ordersResponse
// @Failure  403 {object} errorResponse
// @Router   /orders/admin/all [get]
func (g *Gateway) listAllOrders(c *gin.Context) {
	list, err := g.orders.ListAll(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordersResponse{Success: true, Orders: list})
}

// orderStats godoc
// @Summary  Order counts per status and revenue
// @Tags     admin
// @Produce  json
// @Success  200 {object} statsResponse
// @Failure  403 {object} errorResponse
// @Router   /orders/admin/stats [get]
func (g *Gateway) orderStats(c *gin.Context) {
	stats, err := g.orders.Stats(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statsResponse{Success: true, Stats: stats})
}

// orderAudit godoc
// @Summary  Audit trail of an order
// @Tags     admin
// @Produce  json
// @Param    id  path     string true "Order ID"
// @Success  200 {object} auditResponse
// @Failure  403 {object} errorResponse
// @Router   /orders/admin/{id}/audit [get]
func (g *Gateway) orderAudit(c *gin.Context) {
	logs, err := g.audit.Trail(c.Request.Context(), c.Param("id"), auditTrailLimit)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	c.JSON(http.StatusOK, auditResponse{Success: true, Logs: logs})
}
