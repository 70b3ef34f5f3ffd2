package gateway

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (g *Gateway) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Server is running!"})
}

func (g *Gateway) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Orders route is working",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (g *Gateway) createTestOrder(c *gin.Context) {
	order, err := g.orders.PlaceTestOrder(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Test order created successfully",
		"orderId":     order.ID.Hex(),
		"orderNumber": order.OrderNumber,
	})
}

func (g *Gateway) testDB(c *gin.Context) {
	n, err := g.orders.Count(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Database connection working",
		"database":   g.config.MongoDB.Database,
		"orderCount": n,
	})
}
