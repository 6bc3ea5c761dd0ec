package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-order-edits/internal/aws"
	"github.com/imrishuroy/go-order-edits/internal/edits"
	"github.com/imrishuroy/go-order-edits/internal/inventory"
	"github.com/imrishuroy/go-order-edits/internal/lineitems"
	"github.com/imrishuroy/go-order-edits/internal/orders"
	"github.com/imrishuroy/go-order-edits/internal/outbox"
	"github.com/imrishuroy/go-order-edits/internal/pricing"
	"github.com/imrishuroy/go-order-edits/internal/validation"
)

// HandlerConfig groups dependencies for the order edits handler.
type HandlerConfig struct {
	DynamoDBClient   aws.DynamoDBAPI
	OrderEditsTable  string
	ItemChangesTable string
	OrdersTable      string
	LineItemsTable   string
	VariantsTable    string
	InventoryTable   string
	OutboxTable      string
}

// NewService wires the order edit core from a HandlerConfig.
func NewService(cfg HandlerConfig) *edits.Service {
	return edits.NewService(edits.ServiceConfig{
		DynamoDB:    cfg.DynamoDBClient,
		Store:       edits.NewStore(cfg.DynamoDBClient, cfg.OrderEditsTable, cfg.ItemChangesTable),
		Orders:      orders.NewStore(cfg.DynamoDBClient, cfg.OrdersTable),
		LineItems:   lineitems.NewStore(cfg.DynamoDBClient, cfg.LineItemsTable, cfg.VariantsTable),
		Inventory:   inventory.NewStore(cfg.DynamoDBClient, cfg.InventoryTable),
		Adjustments: pricing.NewAdjustmentProvider(),
		Taxes:       pricing.NewTaxProvider(),
		Events:      outbox.NewStore(cfg.DynamoDBClient, cfg.OutboxTable),
	})
}

// RegisterOrderEditRoutes registers routes for the order edit admin API.
// Every route maps 1:1 to a core operation and returns either the decorated
// edit (change log, materialized items, totals) or a typed error body.
func RegisterOrderEditRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	svc := NewService(cfg)

	r.POST("/order-edits", func(c *gin.Context) {
		var req validation.CreateOrderEditRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		edit, err := svc.Create(c.Request.Context(), edits.CreateInput{
			OrderID:      req.OrderID,
			CreatedBy:    req.CreatedBy,
			InternalNote: req.InternalNote,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, editBody(edit))
	})

	r.GET("/order-edits/:id", func(c *gin.Context) {
		edit, err := svc.DecorateLineItemsAndTotals(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, editBody(edit))
	})

	r.POST("/order-edits/:id", func(c *gin.Context) {
		var req validation.UpdateOrderEditRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		edit, err := svc.Update(c.Request.Context(), c.Param("id"), edits.UpdateInput{
			InternalNote: req.InternalNote,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, editBody(edit))
	})

	r.DELETE("/order-edits/:id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "object": "order_edit", "deleted": true})
	})

	r.POST("/order-edits/:id/request", func(c *gin.Context) {
		var req validation.RequestConfirmationRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		edit, err := svc.RequestConfirmation(c.Request.Context(), c.Param("id"), req.RequestedBy)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, editBody(edit))
	})

	r.POST("/order-edits/:id/decline", func(c *gin.Context) {
		var req validation.DeclineOrderEditRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		edit, err := svc.Decline(c.Request.Context(), c.Param("id"), edits.DeclineInput{
			DeclinedBy: req.DeclinedBy,
			Reason:     req.Reason,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, editBody(edit))
	})

	r.POST("/order-edits/:id/confirm", func(c *gin.Context) {
		var req validation.ConfirmOrderEditRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		edit, err := svc.Confirm(c.Request.Context(), c.Param("id"), req.ConfirmedBy)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, editBody(edit))
	})

	r.POST("/order-edits/:id/cancel", func(c *gin.Context) {
		var req validation.CancelOrderEditRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		edit, err := svc.Cancel(c.Request.Context(), c.Param("id"), req.CanceledBy)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, editBody(edit))
	})

	r.POST("/order-edits/:id/items", func(c *gin.Context) {
		var req validation.AddLineItemRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		edit, err := svc.AddLineItem(c.Request.Context(), c.Param("id"), edits.AddLineItemInput{
			VariantID: req.VariantID,
			Quantity:  req.Quantity,
			Metadata:  req.Metadata,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, editBody(edit))
	})

	r.POST("/order-edits/:id/items/:item_id", func(c *gin.Context) {
		var req validation.UpdateLineItemRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		edit, err := svc.UpdateLineItem(c.Request.Context(), c.Param("id"), c.Param("item_id"), edits.UpdateLineItemInput{
			Quantity: req.Quantity,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, editBody(edit))
	})

	r.DELETE("/order-edits/:id/items/:item_id", func(c *gin.Context) {
		edit, err := svc.RemoveLineItem(c.Request.Context(), c.Param("id"), c.Param("item_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, editBody(edit))
	})

	r.DELETE("/order-edits/:id/changes/:change_id", func(c *gin.Context) {
		if err := svc.DeleteItemChange(c.Request.Context(), c.Param("id"), c.Param("change_id")); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("change_id"), "object": "item_change", "deleted": true})
	})
}

// editBody builds the response body, adding the derived status next to the
// persisted fields.
func editBody(edit *edits.OrderEdit) gin.H {
	return gin.H{
		"order_edit": edit,
		"status":     edit.Status(),
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var insufficient *inventory.InsufficientStockError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient_inventory", "msg": err.Error()})
		return
	}

	var de *edits.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case edits.KindNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "msg": de.Error()})
		case edits.KindNotAllowed:
			c.JSON(http.StatusBadRequest, gin.H{"error": "not_allowed", "msg": de.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_data", "msg": de.Error()})
		}
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "msg": err.Error()})
}
