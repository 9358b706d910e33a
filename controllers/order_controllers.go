package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/cheongsim/delivery-app/board"
	"github.com/cheongsim/delivery-app/services"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/gin-gonic/gin"
)

type OrderController struct {
	Service *services.OrderService
	Hub     *board.Hub
}

func NewOrderController(service *services.OrderService, hub *board.Hub) *OrderController {
	return &OrderController{Service: service, Hub: hub}
}

// CreateOrder -> POST /api/orders
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var in services.PlaceOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidBody)
		return
	}

	order, err := oc.Service.PlaceOrder(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	oc.Hub.OrderCreated(order)
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetAllOrders -> GET /api/orders
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	orders, err := oc.Service.ListOrders(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// GetOrderByID -> GET /api/orders/:id
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	order, err := oc.Service.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// UpdateOrder -> PUT /api/orders/:id (merge field skalar, kompatibel dengan client lama)
func (oc *OrderController) UpdateOrder(c *gin.Context) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(c.Request.Body).Decode(&fields); err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidBody)
		return
	}

	order, err := oc.Service.UpdateOrder(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	oc.Hub.OrderUpdated(order)
	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

// SetCompletion -> PATCH /api/orders/:id/completion
func (oc *OrderController) SetCompletion(c *gin.Context) {
	var body struct {
		IsDone *bool `json:"isDone"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.IsDone == nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidBody)
		return
	}

	order, err := oc.Service.SetCompletion(c.Request.Context(), c.Param("id"), *body.IsDone)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	oc.Hub.OrderUpdated(order)
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// DeleteOrder -> DELETE /api/orders/:id
func (oc *OrderController) DeleteOrder(c *gin.Context) {
	id := c.Param("id")
	if err := oc.Service.DeleteOrder(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	oc.Hub.OrderDeleted(id)
	utils.RespondJSON(c, http.StatusOK, "Order deleted", nil)
}

// GetOrdersByCustomer -> GET /api/orders/by-customer/:number
func (oc *OrderController) GetOrdersByCustomer(c *gin.Context) {
	orders, err := oc.Service.OrdersByCustomerNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Orders of customer", orders)
}

// GetWaitingPosition -> GET /api/orders/waiting-position/:number
func (oc *OrderController) GetWaitingPosition(c *gin.Context) {
	position, err := oc.Service.WaitingPosition(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waiting position", position)
}
