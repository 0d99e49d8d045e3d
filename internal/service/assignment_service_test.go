package service_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
	"github.com/immxrtalbeast/snapcart_rt/internal/repository"
	"github.com/immxrtalbeast/snapcart_rt/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notified struct {
	event  string
	data   any
	target string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notified
}

func (n *fakeNotifier) Emit(_ context.Context, event string, data any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notified{event: event, data: data})
	return nil
}

func (n *fakeNotifier) EmitTo(_ context.Context, target, event string, data any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notified{event: event, data: data, target: target})
	return nil
}

func (n *fakeNotifier) byEvent(event string) []notified {
	n.mu.Lock()
	defer n.mu.Unlock()
	var matched []notified
	for _, e := range n.events {
		if e.event == event {
			matched = append(matched, e)
		}
	}
	return matched
}

type sentMail struct {
	to      string
	subject string
	html    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) Send(to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

type failingMailer struct{}

func (failingMailer) Send(string, string, string) error { return errors.New("smtp down") }

type assignmentFixture struct {
	svc         *service.AssignmentService
	orders      *repository.InMemoryOrderRepository
	assignments *repository.InMemoryAssignmentRepository
	users       *repository.InMemoryUserRepository
	notifier    *fakeNotifier
	mailer      *fakeMailer
}

func newAssignmentFixture() *assignmentFixture {
	orders := repository.NewInMemoryOrderRepository()
	assignments := repository.NewInMemoryAssignmentRepository()
	users := repository.NewInMemoryUserRepository()
	notifier := &fakeNotifier{}
	mail := &fakeMailer{}
	svc := service.NewAssignmentService(orders, assignments, users, notifier, mail, newTestLogger())
	return &assignmentFixture{
		svc:         svc,
		orders:      orders,
		assignments: assignments,
		users:       users,
		notifier:    notifier,
		mailer:      mail,
	}
}

func (f *assignmentFixture) seedCourier(t *testing.T, name string) *domain.User {
	t.Helper()
	courier := domain.NewUser(name, name+"@couriers.test", "", domain.RoleCourier)
	require.NoError(t, f.users.Create(context.Background(), courier))
	return courier
}

func (f *assignmentFixture) seedOrder(t *testing.T, customer *domain.User, paid bool) *domain.Order {
	t.Helper()
	order := &domain.Order{
		ID:        uuid.New(),
		UserID:    customer.ID,
		IsPaid:    paid,
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.orders.Create(context.Background(), order))
	return order
}

func (f *assignmentFixture) seedCustomer(t *testing.T, email string) *domain.User {
	t.Helper()
	customer := domain.NewUser("Customer", email, "", domain.RoleCustomer)
	require.NoError(t, f.users.Create(context.Background(), customer))
	return customer
}

func TestMarkPaidBroadcastsNewOrder(t *testing.T) {
	f := newAssignmentFixture()
	customer := f.seedCustomer(t, "c@test")
	order := f.seedOrder(t, customer, false)

	paid, err := f.svc.MarkPaid(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)

	events := f.notifier.byEvent(domain.EventNewOrder)
	require.Len(t, events, 1)
	assert.Empty(t, events[0].target)
}

func TestBroadcastAssignment(t *testing.T) {
	f := newAssignmentFixture()
	customer := f.seedCustomer(t, "c@test")
	courierA := f.seedCourier(t, "a")
	courierB := f.seedCourier(t, "b")
	order := f.seedOrder(t, customer, true)

	assignment, err := f.svc.Broadcast(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.AssignmentStatusBroadcasted, assignment.Status)
	assert.ElementsMatch(t, []uuid.UUID{courierA.ID, courierB.ID}, assignment.BroadcastedTo)

	stored, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignmentID)
	assert.Equal(t, assignment.ID, *stored.AssignmentID)

	require.Len(t, f.notifier.byEvent(domain.EventNewAssignment), 1)
}

func TestBroadcastRequiresPaidOrder(t *testing.T) {
	f := newAssignmentFixture()
	customer := f.seedCustomer(t, "c@test")
	f.seedCourier(t, "a")
	order := f.seedOrder(t, customer, false)

	_, err := f.svc.Broadcast(context.Background(), order.ID)
	assert.ErrorIs(t, err, service.ErrOrderNotPaid)
}

func TestBroadcastRejectsSecondAssignment(t *testing.T) {
	f := newAssignmentFixture()
	customer := f.seedCustomer(t, "c@test")
	f.seedCourier(t, "a")
	order := f.seedOrder(t, customer, true)

	_, err := f.svc.Broadcast(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = f.svc.Broadcast(context.Background(), order.ID)
	assert.ErrorIs(t, err, service.ErrOrderAlreadyAssigned)
}

func TestBroadcastWithoutCouriers(t *testing.T) {
	f := newAssignmentFixture()
	customer := f.seedCustomer(t, "c@test")
	order := f.seedOrder(t, customer, true)

	_, err := f.svc.Broadcast(context.Background(), order.ID)
	assert.ErrorIs(t, err, service.ErrNoCouriersAvailable)
}

func TestAcceptAssignsWinnerAndNotifies(t *testing.T) {
	f := newAssignmentFixture()
	customer := f.seedCustomer(t, "c@test")
	courier := f.seedCourier(t, "winner")
	order := f.seedOrder(t, customer, true)

	assignment, err := f.svc.Broadcast(context.Background(), order.ID)
	require.NoError(t, err)

	accepted, err := f.svc.Accept(context.Background(), assignment.ID, courier.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.AssignmentStatusAssigned, accepted.Status)
	require.NotNil(t, accepted.AssignedTo)
	assert.Equal(t, courier.ID, *accepted.AssignedTo)
	assert.NotNil(t, accepted.AcceptedAt)

	stored, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedDeliveryBoy)
	assert.Equal(t, courier.ID, *stored.AssignedDeliveryBoy)
	assert.Equal(t, domain.OrderStatusOutForDelivery, stored.Status)

	events := f.notifier.byEvent(domain.EventOrderAssigned)
	require.Len(t, events, 1)
	payload, ok := events[0].data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, order.ID, payload["orderId"])
	profile, ok := payload["assignedDeliveryBoy"].(*domain.User)
	require.True(t, ok)
	assert.Equal(t, "winner", profile.Name)
}

func TestAcceptPrunesWinnerFromOtherPools(t *testing.T) {
	f := newAssignmentFixture()
	customer := f.seedCustomer(t, "c@test")
	courier := f.seedCourier(t, "winner")
	rival := f.seedCourier(t, "rival")

	orderOne := f.seedOrder(t, customer, true)
	orderTwo := f.seedOrder(t, customer, true)

	first, err := f.svc.Broadcast(context.Background(), orderOne.ID)
	require.NoError(t, err)
	second, err := f.svc.Broadcast(context.Background(), orderTwo.ID)
	require.NoError(t, err)

	_, err = f.svc.Accept(context.Background(), first.ID, courier.ID)
	require.NoError(t, err)

	remaining, err := f.assignments.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{rival.ID}, remaining.BroadcastedTo)
}

func TestAcceptAlreadyTaken(t *testing.T) {
	f := newAssignmentFixture()
	customer := f.seedCustomer(t, "c@test")
	winner := f.seedCourier(t, "winner")
	loser := f.seedCourier(t, "loser")
	order := f.seedOrder(t, customer, true)

	assignment, err := f.svc.Broadcast(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = f.svc.Accept(context.Background(), assignment.ID, winner.ID)
	require.NoError(t, err)

	_, err = f.svc.Accept(context.Background(), assignment.ID, loser.ID)
	assert.ErrorIs(t, err, repository.ErrAssignmentTaken)

	// The loser must not have overwritten the winner.
	stored, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, *stored.AssignedDeliveryBoy)
}

func TestAcceptRaceHasExactlyOneWinner(t *testing.T) {
	const contenders = 8

	f := newAssignmentFixture()
	customer := f.seedCustomer(t, "c@test")
	couriers := make([]*domain.User, 0, contenders)
	for i := 0; i < contenders; i++ {
		couriers = append(couriers, f.seedCourier(t, "courier-"+string(rune('a'+i))))
	}
	order := f.seedOrder(t, customer, true)

	assignment, err := f.svc.Broadcast(context.Background(), order.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i, courier := range couriers {
		wg.Add(1)
		go func(i int, courierID uuid.UUID) {
			defer wg.Done()
			_, results[i] = f.svc.Accept(context.Background(), assignment.ID, courierID)
		}(i, courier.ID)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, repository.ErrAssignmentTaken):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, losses)
}

func TestAcceptUnknownAssignment(t *testing.T) {
	f := newAssignmentFixture()
	courier := f.seedCourier(t, "a")

	_, err := f.svc.Accept(context.Background(), uuid.New(), courier.ID)
	assert.ErrorIs(t, err, repository.ErrAssignmentNotFound)
}

func TestSendOTPStoresAndMailsCode(t *testing.T) {
	f := newAssignmentFixture()
	customer := f.seedCustomer(t, "customer@test")
	order := f.seedOrder(t, customer, true)

	require.NoError(t, f.svc.SendOTP(context.Background(), order.ID))

	stored, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}$`), stored.DeliveryOTP)

	require.Len(t, f.mailer.sent, 1)
	mail := f.mailer.sent[0]
	assert.Equal(t, "customer@test", mail.to)
	assert.True(t, strings.Contains(mail.html, stored.DeliveryOTP))
}

func TestSendOTPWithoutCustomerEmail(t *testing.T) {
	f := newAssignmentFixture()
	customer := f.seedCustomer(t, "")
	order := f.seedOrder(t, customer, true)

	err := f.svc.SendOTP(context.Background(), order.ID)
	assert.ErrorIs(t, err, service.ErrCustomerEmailMissing)
}

func TestSendOTPMailFailure(t *testing.T) {
	orders := repository.NewInMemoryOrderRepository()
	users := repository.NewInMemoryUserRepository()
	svc := service.NewAssignmentService(orders, repository.NewInMemoryAssignmentRepository(),
		users, &fakeNotifier{}, failingMailer{}, newTestLogger())

	customer := domain.NewUser("Customer", "c@test", "", domain.RoleCustomer)
	require.NoError(t, users.Create(context.Background(), customer))
	order := &domain.Order{ID: uuid.New(), UserID: customer.ID, IsPaid: true, Status: domain.OrderStatusPending}
	require.NoError(t, orders.Create(context.Background(), order))

	assert.Error(t, svc.SendOTP(context.Background(), order.ID))
}

func TestVerifyOTPLifecycle(t *testing.T) {
	f := newAssignmentFixture()
	customer := f.seedCustomer(t, "customer@test")
	courier := f.seedCourier(t, "winner")
	order := f.seedOrder(t, customer, true)

	assignment, err := f.svc.Broadcast(context.Background(), order.ID)
	require.NoError(t, err)
	_, err = f.svc.Accept(context.Background(), assignment.ID, courier.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.SendOTP(context.Background(), order.ID))

	stored, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	otp := stored.DeliveryOTP

	// Wrong codes never transition state, no matter how often.
	for i := 0; i < 3; i++ {
		_, err = f.svc.VerifyOTP(context.Background(), order.ID, "0000")
		assert.ErrorIs(t, err, service.ErrIncorrectOTP)
	}
	stored, err = f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusOutForDelivery, stored.Status)

	delivered, err := f.svc.VerifyOTP(context.Background(), order.ID, otp)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, delivered.Status)
	assert.True(t, delivered.OTPVerified)
	assert.NotNil(t, delivered.DeliveredAt)
	assert.Empty(t, delivered.DeliveryOTP)

	completed, err := f.assignments.GetByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusCompleted, completed.Status)
	assert.Nil(t, completed.AssignedTo)

	require.Len(t, f.notifier.byEvent(domain.EventOrderStatusUpdate), 1)

	// Verifying again is rejected, not replayed.
	_, err = f.svc.VerifyOTP(context.Background(), order.ID, otp)
	assert.ErrorIs(t, err, service.ErrAlreadyDelivered)
	require.Len(t, f.notifier.byEvent(domain.EventOrderStatusUpdate), 1)
}

func TestVerifyOTPUnknownOrder(t *testing.T) {
	f := newAssignmentFixture()

	_, err := f.svc.VerifyOTP(context.Background(), uuid.New(), "1234")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}
