package main

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/immxrtalbeast/snapcart_rt/internal/api/http"
	"github.com/immxrtalbeast/snapcart_rt/internal/config"
	"github.com/immxrtalbeast/snapcart_rt/internal/mailer"
	"github.com/immxrtalbeast/snapcart_rt/internal/notify"
	"github.com/immxrtalbeast/snapcart_rt/internal/relay"
	"github.com/immxrtalbeast/snapcart_rt/internal/repository"
	"github.com/immxrtalbeast/snapcart_rt/internal/repository/model"
	"github.com/immxrtalbeast/snapcart_rt/internal/service"
	"github.com/immxrtalbeast/snapcart_rt/lib/logger/slogpretty"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	db, err := connectDatabase(cfg.Database)
	if err != nil {
		log.Error("failed to connect database", slog.Any("error", err))
		os.Exit(1)
	}

	userRepo := repository.NewPostgresUserRepository(db)
	orderRepo := repository.NewPostgresOrderRepository(db)
	assignmentRepo := repository.NewPostgresAssignmentRepository(db)
	chatRepo := repository.NewPostgresChatRepository(db)
	identityRepo := repository.NewPostgresIdentityRepository(db)
	locationRepo := repository.NewPostgresLocationRepository(db)

	hub := relay.NewHub(log)
	dispatchService := service.NewDispatchService(hub, identityRepo, locationRepo, chatRepo, log)

	notifier := notify.NewClient(cfg.Relay.BaseURL)
	otpMailer := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	assignmentService := service.NewAssignmentService(orderRepo, assignmentRepo, userRepo, notifier, otpMailer, log)
	userService := service.NewUserService(userRepo, log)

	socketController := http.NewSocketController(dispatchService, log)
	notifyController := http.NewNotifyController(hub, log)
	deliveryController := http.NewDeliveryController(assignmentService, dispatchService, log)
	userController := http.NewUserController(userService)

	router := http.SetupRouter(
		cfg.HTTP.AllowedOrigins,
		socketController,
		notifyController,
		deliveryController,
		userController,
	)

	log.Info("starting application", slog.String("addr", cfg.HTTP.Address))
	if err := router.Run(cfg.HTTP.Address); err != nil {
		log.Error("http server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

func connectDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.AutoMigrate(
		&model.User{},
		&model.Order{},
		&model.DeliveryAssignment{},
		&model.AssignmentCandidate{},
		&model.ChatMessage{},
		&model.IdentityLink{},
		&model.CourierLocation{},
	)

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}
