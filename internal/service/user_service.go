package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
	"github.com/immxrtalbeast/snapcart_rt/internal/repository"
)

type UserService struct {
	users repository.UserRepository
	log   *slog.Logger
}

func NewUserService(users repository.UserRepository, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{users: users, log: log}
}

func (s *UserService) CreateUser(ctx context.Context, name, email, mobile string, role domain.UserRole) (*domain.User, error) {
	if name == "" {
		return nil, errors.New("user name is required")
	}
	switch role {
	case domain.RoleCustomer, domain.RoleCourier, domain.RoleAdmin:
	case "":
		role = domain.RoleCustomer
	default:
		return nil, errors.New("unknown role: " + string(role))
	}

	user := domain.NewUser(name, email, mobile, role)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user created",
		slog.String("user_id", user.ID.String()),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}
