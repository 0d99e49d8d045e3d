package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
	"github.com/immxrtalbeast/snapcart_rt/internal/repository"
	"github.com/immxrtalbeast/snapcart_rt/lib/logger/sl"
)

var (
	ErrOrderNotPaid         = errors.New("order is not paid yet")
	ErrOrderAlreadyAssigned = errors.New("order already has an assignment")
	ErrNoCouriersAvailable  = errors.New("no couriers available")
	ErrIncorrectOTP         = errors.New("incorrect OTP")
	ErrAlreadyDelivered     = errors.New("order already delivered")
	ErrCustomerEmailMissing = errors.New("customer email not found")
)

// AssignmentService drives the brodcasted -> assigned -> completed state
// machine and the surrounding order events. It reports durable-state
// transitions into the realtime channel through the Notifier; notify failures
// are logged, never fatal — the caller decides on retries.
type AssignmentService struct {
	orders      repository.OrderRepository
	assignments repository.AssignmentRepository
	users       repository.UserRepository
	notifier    Notifier
	mailer      Mailer
	log         *slog.Logger
}

func NewAssignmentService(
	orders repository.OrderRepository,
	assignments repository.AssignmentRepository,
	users repository.UserRepository,
	notifier Notifier,
	mailer Mailer,
	log *slog.Logger,
) *AssignmentService {
	if log == nil {
		log = slog.Default()
	}
	return &AssignmentService{
		orders:      orders,
		assignments: assignments,
		users:       users,
		notifier:    notifier,
		mailer:      mailer,
		log:         log,
	}
}

// MarkPaid is the post-payment hook: the payment collaborator has already
// verified the charge, this flips the flag and announces the order to every
// connected client.
func (s *AssignmentService) MarkPaid(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	const op = "service.assignment.markPaid"
	log := s.log.With(slog.String("op", op), slog.String("order_id", orderID.String()))

	order, err := s.orders.MarkPaid(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.Emit(ctx, domain.EventNewOrder, order); err != nil {
		log.Error("new-order notify failed", sl.Err(err))
	}

	log.Info("order marked paid")
	return order, nil
}

// Broadcast opens an assignment for the order: every active courier lands in
// the candidate pool and gets the new-assignment event.
func (s *AssignmentService) Broadcast(ctx context.Context, orderID uuid.UUID) (*domain.DeliveryAssignment, error) {
	const op = "service.assignment.broadcast"
	log := s.log.With(slog.String("op", op), slog.String("order_id", orderID.String()))

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsPaid {
		return nil, ErrOrderNotPaid
	}
	if order.AssignmentID != nil {
		return nil, ErrOrderAlreadyAssigned
	}

	couriers, err := s.users.ListCouriers(ctx)
	if err != nil {
		return nil, err
	}
	if len(couriers) == 0 {
		return nil, ErrNoCouriersAvailable
	}

	candidates := make([]uuid.UUID, 0, len(couriers))
	for _, courier := range couriers {
		candidates = append(candidates, courier.ID)
	}

	assignment := domain.NewDeliveryAssignment(orderID, candidates)
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, err
	}
	if err := s.orders.SetAssignment(ctx, orderID, assignment.ID); err != nil {
		return nil, err
	}

	if err := s.notifier.Emit(ctx, domain.EventNewAssignment, assignment); err != nil {
		log.Error("new-assignment notify failed", sl.Err(err))
	}

	log.Info("assignment broadcasted",
		slog.String("assignment_id", assignment.ID.String()),
		slog.Int("candidates", len(candidates)),
	)
	return assignment, nil
}

// Accept resolves the acceptance race. The guarded transition lives in the
// repository (conditional update); whoever gets RowsAffected=1 wins, everyone
// else gets ErrAssignmentTaken. On success the winner is attached to the
// order, pruned from other open pools, and announced with the full courier
// profile so the UI needs no second round-trip.
func (s *AssignmentService) Accept(ctx context.Context, assignmentID, courierID uuid.UUID) (*domain.DeliveryAssignment, error) {
	const op = "service.assignment.accept"
	log := s.log.With(
		slog.String("op", op),
		slog.String("assignment_id", assignmentID.String()),
		slog.String("courier_id", courierID.String()),
	)

	courier, err := s.users.GetByID(ctx, courierID)
	if err != nil {
		return nil, err
	}

	assignment, err := s.assignments.Claim(ctx, assignmentID, courierID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrAssignmentTaken) {
			log.Info("assignment already taken")
		}
		return nil, err
	}

	if err := s.orders.AssignCourier(ctx, assignment.OrderID, courierID); err != nil {
		return nil, err
	}

	if err := s.notifier.Emit(ctx, domain.EventOrderAssigned, map[string]any{
		"orderId":             assignment.OrderID,
		"assignedDeliveryBoy": courier,
	}); err != nil {
		log.Error("order-assigned notify failed", sl.Err(err))
	}

	// Cleanup: a courier who just won should not linger in other open pools.
	if err := s.assignments.PruneCandidate(ctx, courierID, assignmentID); err != nil {
		log.Error("candidate pruning failed", sl.Err(err))
	}

	log.Info("assignment accepted")
	return assignment, nil
}

// SendOTP generates a 4-digit code, stores it on the order and mails it to
// the customer.
func (s *AssignmentService) SendOTP(ctx context.Context, orderID uuid.UUID) error {
	const op = "service.assignment.sendOTP"
	log := s.log.With(slog.String("op", op), slog.String("order_id", orderID.String()))

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	customer, err := s.users.GetByID(ctx, order.UserID)
	if err != nil {
		return err
	}
	if customer.Email == "" {
		return ErrCustomerEmailMissing
	}

	otp := fmt.Sprintf("%04d", 1000+rand.IntN(9000))
	if err := s.orders.SetDeliveryOTP(ctx, orderID, otp); err != nil {
		return err
	}

	html := fmt.Sprintf(
		`<h2>Your Delivery OTP is <strong>%s</strong></h2>
<p>Please share this OTP with the delivery person to confirm delivery.</p>
<p>This OTP is valid for 10 minutes.</p>`, otp)

	if err := s.mailer.Send(customer.Email, "Your Delivery OTP", html); err != nil {
		log.Error("otp mail failed", sl.Err(err))
		return err
	}

	log.Info("otp sent")
	return nil
}

// VerifyOTP completes the delivery on an exact match. A wrong code changes
// nothing and may be retried; verifying an already delivered order is
// rejected explicitly rather than treated as a no-op.
func (s *AssignmentService) VerifyOTP(ctx context.Context, orderID uuid.UUID, otp string) (*domain.Order, error) {
	const op = "service.assignment.verifyOTP"
	log := s.log.With(slog.String("op", op), slog.String("order_id", orderID.String()))

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusDelivered {
		return nil, ErrAlreadyDelivered
	}
	if order.DeliveryOTP == "" || order.DeliveryOTP != otp {
		return nil, ErrIncorrectOTP
	}

	now := time.Now().UTC()
	if err := s.orders.MarkDelivered(ctx, orderID, now); err != nil {
		return nil, err
	}

	if err := s.notifier.Emit(ctx, domain.EventOrderStatusUpdate, map[string]any{
		"orderId": orderID,
		"status":  domain.OrderStatusDelivered,
	}); err != nil {
		log.Error("order-status-update notify failed", sl.Err(err))
	}

	if err := s.assignments.Complete(ctx, orderID); err != nil {
		log.Error("failed to complete assignment", sl.Err(err))
	}

	log.Info("delivery completed")
	return s.orders.GetByID(ctx, orderID)
}
