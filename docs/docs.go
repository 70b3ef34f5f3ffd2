// Package docs holds the OpenAPI document served under /swagger. Keep it in
// step with the @-annotations on the gateway handlers (swag init -g
// gateway/gateway.go regenerates it).
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/orders": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "List the caller's orders, newest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.ordersResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Place an order",
                "parameters": [
                    {"description": "Order", "name": "order", "in": "body", "required": true, "schema": {"$ref": "#/definitions/orders.PlaceOrderRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.placeOrderResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/gateway.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/gateway.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/orders/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Get one of the caller's orders",
                "parameters": [{"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.orderResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/orders/{id}/status": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Update the status of one of the caller's orders",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true},
                    {"description": "New status", "name": "status", "in": "body", "required": true, "schema": {"$ref": "#/definitions/gateway.statusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.orderResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/gateway.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/orders/admin/all": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List every order",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.ordersResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/orders/admin/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Order counts per status and revenue",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.statsResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/orders/admin/{id}/audit": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Audit trail of an order",
                "parameters": [{"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.auditResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Liveness",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "gateway.errorResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "message": {"type": "string"}}
        },
        "gateway.statusRequest": {
            "type": "object",
            "properties": {"status": {"type": "string", "enum": ["pending", "confirmed", "processing", "shipped", "delivered", "cancelled"]}}
        },
        "gateway.placeOrderResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "message": {"type": "string"}, "order": {"$ref": "#/definitions/models.OrderSummary"}}
        },
        "gateway.orderResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "message": {"type": "string"}, "order": {"$ref": "#/definitions/models.Order"}}
        },
        "gateway.ordersResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "orders": {"type": "array", "items": {"$ref": "#/definitions/models.Order"}}}
        },
        "gateway.statsResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "stats": {"$ref": "#/definitions/models.OrderStats"}}
        },
        "gateway.auditResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "logs": {"type": "array", "items": {"type": "object"}}}
        },
        "orders.PlaceOrderRequest": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/orders.ItemInput"}},
                "totalAmount": {"type": "number"},
                "paymentMethod": {"type": "string"},
                "deliveryAddress": {"$ref": "#/definitions/models.DeliveryAddress"}
            }
        },
        "orders.ItemInput": {
            "type": "object",
            "properties": {
                "productId": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "price": {"type": "number"},
                "image": {"type": "string"},
                "quantity": {"type": "integer"}
            }
        },
        "models.DeliveryAddress": {
            "type": "object",
            "properties": {
                "fullName": {"type": "string"},
                "address": {"type": "string"},
                "city": {"type": "string"},
                "state": {"type": "string"},
                "zipCode": {"type": "string"},
                "phone": {"type": "string"}
            }
        },
        "models.OrderSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "orderNumber": {"type": "string"},
                "totalAmount": {"type": "number"},
                "status": {"type": "string"},
                "paymentMethod": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "models.Order": {
            "type": "object",
            "properties": {
                "_id": {"type": "string"},
                "orderNumber": {"type": "string"},
                "userId": {"type": "string"},
                "userName": {"type": "object"},
                "items": {"type": "array", "items": {"type": "object"}},
                "totalAmount": {"type": "number"},
                "paymentMethod": {"type": "string"},
                "deliveryAddress": {"$ref": "#/definitions/models.DeliveryAddress"},
                "status": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "models.OrderStats": {
            "type": "object",
            "properties": {
                "totalOrders": {"type": "integer"},
                "pendingOrders": {"type": "integer"},
                "confirmedOrders": {"type": "integer"},
                "processingOrders": {"type": "integer"},
                "shippedOrders": {"type": "integer"},
                "deliveredOrders": {"type": "integer"},
                "cancelledOrders": {"type": "integer"},
                "totalRevenue": {"type": "number"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "ordershop order service",
	Description:      "Session authenticated order placement, tracking and admin reporting.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
