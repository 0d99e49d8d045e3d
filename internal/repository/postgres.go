package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
	"github.com/immxrtalbeast/snapcart_rt/internal/repository/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresUserRepository struct {
	db *gorm.DB
}

func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user is nil")
	}

	return r.db.WithContext(ctx).Create(toModelUser(user)).Error
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return toDomainUser(&user), nil
}

func (r *PostgresUserRepository) ListCouriers(ctx context.Context) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var users []model.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND active", string(domain.RoleCourier)).
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	result := make([]*domain.User, 0, len(users))
	for i := range users {
		result = append(result, toDomainUser(&users[i]))
	}
	return result, nil
}

type PostgresOrderRepository struct {
	db *gorm.DB
}

func NewPostgresOrderRepository(db *gorm.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if order == nil {
		return errors.New("order is nil")
	}

	return r.db.WithContext(ctx).Create(toModelOrder(order)).Error
}

func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var order model.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return toDomainOrder(&order), nil
}

func (r *PostgresOrderRepository) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Update("is_paid", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrOrderNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *PostgresOrderRepository) SetAssignment(ctx context.Context, orderID, assignmentID uuid.UUID) error {
	return r.updateOrder(ctx, orderID, map[string]any{"assignment_id": assignmentID})
}

func (r *PostgresOrderRepository) AssignCourier(ctx context.Context, orderID, courierID uuid.UUID) error {
	return r.updateOrder(ctx, orderID, map[string]any{
		"assigned_delivery_boy": courierID,
		"status":                string(domain.OrderStatusOutForDelivery),
	})
}

func (r *PostgresOrderRepository) SetDeliveryOTP(ctx context.Context, orderID uuid.UUID, otp string) error {
	return r.updateOrder(ctx, orderID, map[string]any{"delivery_otp": otp})
}

func (r *PostgresOrderRepository) MarkDelivered(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.updateOrder(ctx, orderID, map[string]any{
		"status":       string(domain.OrderStatusDelivered),
		"otp_verified": true,
		"delivery_otp": gorm.Expr("NULL"),
		"delivered_at": at,
	})
}

func (r *PostgresOrderRepository) updateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

type PostgresAssignmentRepository struct {
	db *gorm.DB
}

func NewPostgresAssignmentRepository(db *gorm.DB) *PostgresAssignmentRepository {
	return &PostgresAssignmentRepository{db: db}
}

func (r *PostgresAssignmentRepository) Create(ctx context.Context, assignment *domain.DeliveryAssignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if assignment == nil {
		return errors.New("assignment is nil")
	}

	return r.db.WithContext(ctx).Create(toModelAssignment(assignment)).Error
}

func (r *PostgresAssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var assignment model.DeliveryAssignment
	err := r.db.WithContext(ctx).Preload("Candidates").First(&assignment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}

	return toDomainAssignment(&assignment), nil
}

func (r *PostgresAssignmentRepository) GetByOrder(ctx context.Context, orderID uuid.UUID) (*domain.DeliveryAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var assignment model.DeliveryAssignment
	err := r.db.WithContext(ctx).Preload("Candidates").First(&assignment, "order_id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}

	return toDomainAssignment(&assignment), nil
}

// Claim closes the acceptance race with a single conditional UPDATE: the
// status check and the mutation happen in one statement, so two couriers
// racing can never both see brodcasted.
func (r *PostgresAssignmentRepository) Claim(ctx context.Context, id, courierID uuid.UUID, at time.Time) (*domain.DeliveryAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := r.db.WithContext(ctx).Model(&model.DeliveryAssignment{}).
		Where("id = ? AND status = ?", id, string(domain.AssignmentStatusBroadcasted)).
		Updates(map[string]any{
			"status":      string(domain.AssignmentStatusAssigned),
			"assigned_to": courierID,
			"accepted_at": at,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the record is gone or someone else won; look once to tell
		// the two apart.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrAssignmentTaken
	}

	return r.GetByID(ctx, id)
}

func (r *PostgresAssignmentRepository) Complete(ctx context.Context, orderID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&model.DeliveryAssignment{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"status":      string(domain.AssignmentStatusCompleted),
			"assigned_to": gorm.Expr("NULL"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func (r *PostgresAssignmentRepository) PruneCandidate(ctx context.Context, courierID, exceptAssignmentID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	open := r.db.Model(&model.DeliveryAssignment{}).
		Select("id").
		Where("status = ?", string(domain.AssignmentStatusBroadcasted))

	return r.db.WithContext(ctx).
		Where("courier_id = ? AND assignment_id <> ? AND assignment_id IN (?)",
			courierID, exceptAssignmentID, open).
		Delete(&model.AssignmentCandidate{}).Error
}

type PostgresChatRepository struct {
	db *gorm.DB
}

func NewPostgresChatRepository(db *gorm.DB) *PostgresChatRepository {
	return &PostgresChatRepository{db: db}
}

func (r *PostgresChatRepository) Save(ctx context.Context, msg *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil {
		return errors.New("message is nil")
	}

	return r.db.WithContext(ctx).Create(&model.ChatMessage{
		ID:       msg.ID,
		RoomID:   msg.RoomID,
		SenderID: msg.SenderID,
		Text:     msg.Text,
		Time:     msg.Time,
	}).Error
}

func (r *PostgresChatRepository) ListByRoom(ctx context.Context, roomID string) ([]*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var messages []model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("time asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	result := make([]*domain.ChatMessage, 0, len(messages))
	for i := range messages {
		m := messages[i]
		result = append(result, &domain.ChatMessage{
			ID:       m.ID,
			RoomID:   m.RoomID,
			SenderID: m.SenderID,
			Text:     m.Text,
			Time:     m.Time,
		})
	}
	return result, nil
}

type PostgresIdentityRepository struct {
	db *gorm.DB
}

func NewPostgresIdentityRepository(db *gorm.DB) *PostgresIdentityRepository {
	return &PostgresIdentityRepository{db: db}
}

func (r *PostgresIdentityRepository) Upsert(ctx context.Context, userID, connectionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	link := model.IdentityLink{
		UserID:       userID,
		ConnectionID: connectionID,
		Active:       true,
		LastSeen:     time.Now().UTC(),
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"connection_id", "active", "last_seen"}),
	}).Create(&link).Error
}

func (r *PostgresIdentityRepository) Deactivate(ctx context.Context, connectionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Model(&model.IdentityLink{}).
		Where("connection_id = ?", connectionID).
		Updates(map[string]any{
			"active":    false,
			"last_seen": time.Now().UTC(),
		}).Error
}

type PostgresLocationRepository struct {
	db *gorm.DB
}

func NewPostgresLocationRepository(db *gorm.DB) *PostgresLocationRepository {
	return &PostgresLocationRepository{db: db}
}

func (r *PostgresLocationRepository) UpsertLast(ctx context.Context, loc *domain.CourierLocation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if loc == nil {
		return errors.New("location is nil")
	}

	row := model.CourierLocation{
		UserID:    loc.UserID,
		Latitude:  loc.Location.Coordinates[0],
		Longitude: loc.Location.Coordinates[1],
		UpdatedAt: loc.UpdatedAt,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "updated_at"}),
	}).Create(&row).Error
}

func (r *PostgresLocationRepository) GetByUser(ctx context.Context, userID string) (*domain.CourierLocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var row model.CourierLocation
	err := r.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &domain.CourierLocation{
		UserID:    row.UserID,
		Location:  domain.NewGeoPoint(row.Latitude, row.Longitude),
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func toModelUser(u *domain.User) *model.User {
	return &model.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Mobile:    u.Mobile,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toDomainUser(u *model.User) *domain.User {
	return &domain.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Mobile:    u.Mobile,
		Role:      domain.UserRole(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toModelOrder(o *domain.Order) *model.Order {
	var otp *string
	if o.DeliveryOTP != "" {
		v := o.DeliveryOTP
		otp = &v
	}
	return &model.Order{
		ID:                  o.ID,
		UserID:              o.UserID,
		IsPaid:              o.IsPaid,
		TotalAmount:         o.TotalAmount,
		AddrFullName:        o.Address.FullName,
		AddrMobile:          o.Address.Mobile,
		AddrCity:            o.Address.City,
		AddrState:           o.Address.State,
		AddrPincode:         o.Address.Pincode,
		AddrFullAddress:     o.Address.FullAddress,
		AddrLatitude:        o.Address.Latitude,
		AddrLongitude:       o.Address.Longitude,
		AssignmentID:        o.AssignmentID,
		AssignedDeliveryBoy: o.AssignedDeliveryBoy,
		Status:              string(o.Status),
		DeliveryOTP:         otp,
		OTPVerified:         o.OTPVerified,
		DeliveredAt:         o.DeliveredAt,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func toDomainOrder(o *model.Order) *domain.Order {
	otp := ""
	if o.DeliveryOTP != nil {
		otp = *o.DeliveryOTP
	}
	return &domain.Order{
		ID:          o.ID,
		UserID:      o.UserID,
		IsPaid:      o.IsPaid,
		TotalAmount: o.TotalAmount,
		Address: domain.Address{
			FullName:    o.AddrFullName,
			Mobile:      o.AddrMobile,
			City:        o.AddrCity,
			State:       o.AddrState,
			Pincode:     o.AddrPincode,
			FullAddress: o.AddrFullAddress,
			Latitude:    o.AddrLatitude,
			Longitude:   o.AddrLongitude,
		},
		AssignmentID:        o.AssignmentID,
		AssignedDeliveryBoy: o.AssignedDeliveryBoy,
		Status:              domain.OrderStatus(o.Status),
		DeliveryOTP:         otp,
		OTPVerified:         o.OTPVerified,
		DeliveredAt:         o.DeliveredAt,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func toModelAssignment(a *domain.DeliveryAssignment) *model.DeliveryAssignment {
	candidates := make([]model.AssignmentCandidate, 0, len(a.BroadcastedTo))
	for _, courierID := range a.BroadcastedTo {
		candidates = append(candidates, model.AssignmentCandidate{
			AssignmentID: a.ID,
			CourierID:    courierID,
		})
	}
	return &model.DeliveryAssignment{
		ID:         a.ID,
		OrderID:    a.OrderID,
		Status:     string(a.Status),
		AssignedTo: a.AssignedTo,
		AcceptedAt: a.AcceptedAt,
		CreatedAt:  a.CreatedAt,
		Candidates: candidates,
	}
}

func toDomainAssignment(a *model.DeliveryAssignment) *domain.DeliveryAssignment {
	candidates := make([]uuid.UUID, 0, len(a.Candidates))
	for _, c := range a.Candidates {
		candidates = append(candidates, c.CourierID)
	}
	return &domain.DeliveryAssignment{
		ID:            a.ID,
		OrderID:       a.OrderID,
		Status:        domain.AssignmentStatus(a.Status),
		BroadcastedTo: candidates,
		AssignedTo:    a.AssignedTo,
		AcceptedAt:    a.AcceptedAt,
		CreatedAt:     a.CreatedAt,
	}
}
