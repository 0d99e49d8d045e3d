package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/snapcart_rt/internal/api/http/converter"
	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
	"github.com/immxrtalbeast/snapcart_rt/internal/repository"
	"github.com/immxrtalbeast/snapcart_rt/internal/service"
	"github.com/immxrtalbeast/snapcart_rt/lib/logger/sl"
)

// Identity headers installed by the upstream auth proxy. Authentication
// itself is an external collaborator; this tier only trusts the result.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

type DeliveryController struct {
	assignments service.AssignmentInteractor
	dispatch    service.DispatchInteractor
	log         *slog.Logger
}

func NewDeliveryController(assignments service.AssignmentInteractor, dispatch service.DispatchInteractor, log *slog.Logger) *DeliveryController {
	if log == nil {
		log = slog.Default()
	}
	return &DeliveryController{assignments: assignments, dispatch: dispatch, log: log}
}

// AcceptAssignment lets an authenticated courier claim a brodcasted
// assignment. Exactly one caller wins; everyone else gets 400.
func (c *DeliveryController) AcceptAssignment(ctx *gin.Context) {
	courierID, ok := courierIdentity(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	assignmentID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "invalid assignment id"})
		return
	}

	assignment, err := c.assignments.Accept(ctx.Request.Context(), assignmentID, courierID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAssignmentNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Assignment not found"})
		case errors.Is(err, repository.ErrOrderNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		case errors.Is(err, repository.ErrUserNotFound):
			ctx.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		case errors.Is(err, repository.ErrAssignmentTaken):
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Assignment expired or already taken"})
		default:
			c.log.Error("accept assignment failed", sl.Err(err))
			ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Order accepted successfully",
		"assignment": converter.AssignmentToApi(assignment),
	})
}

func (c *DeliveryController) SendOTP(ctx *gin.Context) {
	type request struct {
		OrderID string `json:"orderId" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "OrderId not found"})
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "invalid order id"})
		return
	}

	if err := c.assignments.SendOTP(ctx.Request.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		case errors.Is(err, service.ErrCustomerEmailMissing):
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Customer email not found"})
		default:
			c.log.Error("otp send failed", sl.Err(err))
			ctx.JSON(http.StatusInternalServerError, gin.H{"message": "OTP send failed"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully"})
}

func (c *DeliveryController) VerifyOTP(ctx *gin.Context) {
	type request struct {
		OrderID string `json:"orderId" binding:"required"`
		OTP     string `json:"otp" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "OrderId or OTP not found"})
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "invalid order id"})
		return
	}

	order, err := c.assignments.VerifyOTP(ctx.Request.Context(), orderID, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "order not found"})
		case errors.Is(err, service.ErrIncorrectOTP):
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Incorrect OTP"})
		case errors.Is(err, service.ErrAlreadyDelivered):
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "order already delivered"})
		default:
			c.log.Error("otp verification failed", sl.Err(err))
			ctx.JSON(http.StatusInternalServerError, gin.H{"message": "delivery otp verification failed"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Delivery successfully completed",
		"order":   order,
	})
}

// MarkPaid is the payment collaborator's post-verification hook; it flips the
// paid flag and broadcasts new-order.
func (c *DeliveryController) MarkPaid(ctx *gin.Context) {
	orderID, err := uuid.Parse(ctx.Param("orderID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "invalid order id"})
		return
	}

	order, err := c.assignments.MarkPaid(ctx.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		c.log.Error("mark paid failed", sl.Err(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// BroadcastAssignment opens the courier race for a paid order.
func (c *DeliveryController) BroadcastAssignment(ctx *gin.Context) {
	orderID, err := uuid.Parse(ctx.Param("orderID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "invalid order id"})
		return
	}

	assignment, err := c.assignments.Broadcast(ctx.Request.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		case errors.Is(err, service.ErrOrderNotPaid),
			errors.Is(err, service.ErrOrderAlreadyAssigned),
			errors.Is(err, service.ErrNoCouriersAvailable):
			ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		default:
			c.log.Error("broadcast assignment failed", sl.Err(err))
			ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"assignment": converter.AssignmentToApi(assignment)})
}

// RoomHistory returns the persisted chat for an order room, used by the chat
// UIs on reload.
func (c *DeliveryController) RoomHistory(ctx *gin.Context) {
	roomID := ctx.Param("roomID")
	if roomID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "room id is required"})
		return
	}

	messages, err := c.dispatch.RoomHistory(ctx.Request.Context(), roomID)
	if err != nil {
		c.log.Error("room history failed", sl.Err(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"messages": messages})
}

func courierIdentity(ctx *gin.Context) (uuid.UUID, bool) {
	if domain.UserRole(ctx.GetHeader(headerUserRole)) != domain.RoleCourier {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(ctx.GetHeader(headerUserID))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
