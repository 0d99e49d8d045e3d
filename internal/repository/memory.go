package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
)

type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{users: make(map[uuid.UUID]*domain.User)}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cloned := *user
	r.users[user.ID] = &cloned
	return nil
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cloned := *user
	return &cloned, nil
}

func (r *InMemoryUserRepository) ListCouriers(ctx context.Context) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	couriers := make([]*domain.User, 0)
	for _, user := range r.users {
		if user.IsCourier() && user.Active {
			cloned := *user
			couriers = append(couriers, &cloned)
		}
	}
	return couriers, nil
}

type InMemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*domain.Order
}

func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{orders: make(map[uuid.UUID]*domain.Order)}
}

func (r *InMemoryOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cloned := *order
	r.orders[order.ID] = &cloned
	return nil
}

func (r *InMemoryOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cloned := *order
	return &cloned, nil
}

func (r *InMemoryOrderRepository) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	order.IsPaid = true
	cloned := *order
	return &cloned, nil
}

func (r *InMemoryOrderRepository) SetAssignment(ctx context.Context, orderID, assignmentID uuid.UUID) error {
	return r.update(ctx, orderID, func(o *domain.Order) {
		id := assignmentID
		o.AssignmentID = &id
	})
}

func (r *InMemoryOrderRepository) AssignCourier(ctx context.Context, orderID, courierID uuid.UUID) error {
	return r.update(ctx, orderID, func(o *domain.Order) {
		id := courierID
		o.AssignedDeliveryBoy = &id
		o.Status = domain.OrderStatusOutForDelivery
	})
}

func (r *InMemoryOrderRepository) SetDeliveryOTP(ctx context.Context, orderID uuid.UUID, otp string) error {
	return r.update(ctx, orderID, func(o *domain.Order) {
		o.DeliveryOTP = otp
	})
}

func (r *InMemoryOrderRepository) MarkDelivered(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.update(ctx, orderID, func(o *domain.Order) {
		o.Status = domain.OrderStatusDelivered
		o.OTPVerified = true
		o.DeliveryOTP = ""
		t := at
		o.DeliveredAt = &t
	})
}

func (r *InMemoryOrderRepository) update(ctx context.Context, orderID uuid.UUID, fn func(*domain.Order)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	fn(order)
	return nil
}

type InMemoryAssignmentRepository struct {
	mu          sync.Mutex
	assignments map[uuid.UUID]*domain.DeliveryAssignment
	byOrder     map[uuid.UUID]uuid.UUID
}

func NewInMemoryAssignmentRepository() *InMemoryAssignmentRepository {
	return &InMemoryAssignmentRepository{
		assignments: make(map[uuid.UUID]*domain.DeliveryAssignment),
		byOrder:     make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *InMemoryAssignmentRepository) Create(ctx context.Context, assignment *domain.DeliveryAssignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cloned := cloneAssignment(assignment)
	r.assignments[assignment.ID] = cloned
	r.byOrder[assignment.OrderID] = assignment.ID
	return nil
}

func (r *InMemoryAssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	assignment, ok := r.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	return cloneAssignment(assignment), nil
}

func (r *InMemoryAssignmentRepository) GetByOrder(ctx context.Context, orderID uuid.UUID) (*domain.DeliveryAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	return cloneAssignment(r.assignments[id]), nil
}

// Claim mirrors the conditional-update semantics of the Postgres
// implementation: the status check and the mutation happen under one lock
// acquisition, so concurrent claims see exactly one winner.
func (r *InMemoryAssignmentRepository) Claim(ctx context.Context, id, courierID uuid.UUID, at time.Time) (*domain.DeliveryAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	assignment, ok := r.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	if assignment.Status != domain.AssignmentStatusBroadcasted {
		return nil, ErrAssignmentTaken
	}

	winner := courierID
	acceptedAt := at
	assignment.Status = domain.AssignmentStatusAssigned
	assignment.AssignedTo = &winner
	assignment.AcceptedAt = &acceptedAt
	return cloneAssignment(assignment), nil
}

func (r *InMemoryAssignmentRepository) Complete(ctx context.Context, orderID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byOrder[orderID]
	if !ok {
		return ErrAssignmentNotFound
	}
	assignment := r.assignments[id]
	assignment.Status = domain.AssignmentStatusCompleted
	assignment.AssignedTo = nil
	return nil
}

func (r *InMemoryAssignmentRepository) PruneCandidate(ctx context.Context, courierID, exceptAssignmentID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, assignment := range r.assignments {
		if assignment.ID == exceptAssignmentID || assignment.Status != domain.AssignmentStatusBroadcasted {
			continue
		}
		kept := assignment.BroadcastedTo[:0]
		for _, candidate := range assignment.BroadcastedTo {
			if candidate != courierID {
				kept = append(kept, candidate)
			}
		}
		assignment.BroadcastedTo = kept
	}
	return nil
}

type InMemoryChatRepository struct {
	mu       sync.RWMutex
	messages map[string][]*domain.ChatMessage
}

func NewInMemoryChatRepository() *InMemoryChatRepository {
	return &InMemoryChatRepository{messages: make(map[string][]*domain.ChatMessage)}
}

func (r *InMemoryChatRepository) Save(ctx context.Context, msg *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cloned := *msg
	r.messages[msg.RoomID] = append(r.messages[msg.RoomID], &cloned)
	return nil
}

func (r *InMemoryChatRepository) ListByRoom(ctx context.Context, roomID string) ([]*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.messages[roomID]
	result := make([]*domain.ChatMessage, 0, len(stored))
	for _, msg := range stored {
		cloned := *msg
		result = append(result, &cloned)
	}
	return result, nil
}

type InMemoryIdentityRepository struct {
	mu    sync.RWMutex
	links map[string]*domain.IdentityLink
}

func NewInMemoryIdentityRepository() *InMemoryIdentityRepository {
	return &InMemoryIdentityRepository{links: make(map[string]*domain.IdentityLink)}
}

func (r *InMemoryIdentityRepository) Upsert(ctx context.Context, userID, connectionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[userID] = &domain.IdentityLink{
		UserID:       userID,
		ConnectionID: connectionID,
		Active:       true,
		LastSeen:     time.Now().UTC(),
	}
	return nil
}

func (r *InMemoryIdentityRepository) Deactivate(ctx context.Context, connectionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, link := range r.links {
		if link.ConnectionID == connectionID {
			link.Active = false
			link.LastSeen = time.Now().UTC()
		}
	}
	return nil
}

func (r *InMemoryIdentityRepository) Get(userID string) (*domain.IdentityLink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	link, ok := r.links[userID]
	if !ok {
		return nil, false
	}
	cloned := *link
	return &cloned, true
}

type InMemoryLocationRepository struct {
	mu        sync.RWMutex
	locations map[string]*domain.CourierLocation
}

func NewInMemoryLocationRepository() *InMemoryLocationRepository {
	return &InMemoryLocationRepository{locations: make(map[string]*domain.CourierLocation)}
}

func (r *InMemoryLocationRepository) UpsertLast(ctx context.Context, loc *domain.CourierLocation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cloned := *loc
	r.locations[loc.UserID] = &cloned
	return nil
}

func (r *InMemoryLocationRepository) GetByUser(ctx context.Context, userID string) (*domain.CourierLocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.locations[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cloned := *loc
	return &cloned, nil
}

func cloneAssignment(a *domain.DeliveryAssignment) *domain.DeliveryAssignment {
	cloned := *a
	cloned.BroadcastedTo = append([]uuid.UUID(nil), a.BroadcastedTo...)
	if a.AssignedTo != nil {
		v := *a.AssignedTo
		cloned.AssignedTo = &v
	}
	if a.AcceptedAt != nil {
		v := *a.AcceptedAt
		cloned.AcceptedAt = &v
	}
	return &cloned
}
