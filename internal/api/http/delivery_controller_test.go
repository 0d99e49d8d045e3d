package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	api "github.com/immxrtalbeast/snapcart_rt/internal/api/http"
	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
	"github.com/immxrtalbeast/snapcart_rt/internal/repository"
	"github.com/immxrtalbeast/snapcart_rt/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssignments struct {
	acceptErr   error
	verifyErr   error
	gotAccept   []uuid.UUID
	gotCourier  uuid.UUID
	verifyOrder *domain.Order
}

func (f *fakeAssignments) MarkPaid(context.Context, uuid.UUID) (*domain.Order, error) {
	return &domain.Order{}, nil
}

func (f *fakeAssignments) Broadcast(context.Context, uuid.UUID) (*domain.DeliveryAssignment, error) {
	return domain.NewDeliveryAssignment(uuid.New(), nil), nil
}

func (f *fakeAssignments) Accept(_ context.Context, assignmentID, courierID uuid.UUID) (*domain.DeliveryAssignment, error) {
	f.gotAccept = append(f.gotAccept, assignmentID)
	f.gotCourier = courierID
	if f.acceptErr != nil {
		return nil, f.acceptErr
	}
	assignment := domain.NewDeliveryAssignment(uuid.New(), []uuid.UUID{courierID})
	assignment.Status = domain.AssignmentStatusAssigned
	assignment.AssignedTo = &courierID
	return assignment, nil
}

func (f *fakeAssignments) SendOTP(context.Context, uuid.UUID) error { return nil }

func (f *fakeAssignments) VerifyOTP(context.Context, uuid.UUID, string) (*domain.Order, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyOrder, nil
}

func deliveryRouter(assignments service.AssignmentInteractor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	controller := api.NewDeliveryController(assignments, nil, newTestLogger())
	router.GET("/api/assignment/:id/accept-assignment", controller.AcceptAssignment)
	router.POST("/api/otp/verify", controller.VerifyOTP)
	return router
}

func acceptRequest(assignmentID string, asCourier bool) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/assignment/"+assignmentID+"/accept-assignment", nil)
	if asCourier {
		req.Header.Set("X-User-ID", uuid.NewString())
		req.Header.Set("X-User-Role", "deliveryBoy")
	}
	return req
}

func TestAcceptAssignmentRequiresCourierIdentity(t *testing.T) {
	fake := &fakeAssignments{}
	router := deliveryRouter(fake)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, acceptRequest(uuid.NewString(), false))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, fake.gotAccept)
}

func TestAcceptAssignmentRejectsCustomerRole(t *testing.T) {
	fake := &fakeAssignments{}
	router := deliveryRouter(fake)

	req := acceptRequest(uuid.NewString(), false)
	req.Header.Set("X-User-ID", uuid.NewString())
	req.Header.Set("X-User-Role", "customer")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAcceptAssignmentSuccess(t *testing.T) {
	fake := &fakeAssignments{}
	router := deliveryRouter(fake)

	assignmentID := uuid.New()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, acceptRequest(assignmentID.String(), true))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Order accepted successfully")
	require.Len(t, fake.gotAccept, 1)
	assert.Equal(t, assignmentID, fake.gotAccept[0])
}

func TestAcceptAssignmentErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"already taken", repository.ErrAssignmentTaken, http.StatusBadRequest, "Assignment expired or already taken"},
		{"assignment missing", repository.ErrAssignmentNotFound, http.StatusNotFound, "Assignment not found"},
		{"courier missing", repository.ErrUserNotFound, http.StatusUnauthorized, "Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := deliveryRouter(&fakeAssignments{acceptErr: tt.err})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, acceptRequest(uuid.NewString(), true))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestAcceptAssignmentInvalidID(t *testing.T) {
	router := deliveryRouter(&fakeAssignments{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, acceptRequest("not-a-uuid", true))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyOTPErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantBody string
	}{
		{"incorrect otp", service.ErrIncorrectOTP, "Incorrect OTP"},
		{"already delivered", service.ErrAlreadyDelivered, "order already delivered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := deliveryRouter(&fakeAssignments{verifyErr: tt.err})

			body := `{"orderId":"` + uuid.NewString() + `","otp":"1234"}`
			req := httptest.NewRequest(http.MethodPost, "/api/otp/verify", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestVerifyOTPSuccess(t *testing.T) {
	order := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusDelivered, OTPVerified: true}
	router := deliveryRouter(&fakeAssignments{verifyOrder: order})

	body := `{"orderId":"` + order.ID.String() + `","otp":"1234"}`
	req := httptest.NewRequest(http.MethodPost, "/api/otp/verify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Delivery successfully completed")
}
