package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"campusmart/internal/config"
	"campusmart/internal/handler"
	"campusmart/internal/infra/db"
	"campusmart/internal/infra/event"
	"campusmart/internal/infra/mail"
	"campusmart/internal/infra/metrics"
	infraRepo "campusmart/internal/infra/repository"
	"campusmart/internal/infra/tracing"
	"campusmart/internal/job"
	"campusmart/internal/server"
	"campusmart/internal/usecase"
	auth "campusmart/internal/usecase/auth_usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger

	//設定
	config.LoadDotEnv(".env", "../.env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	traceProvider, err := tracing.InitTracing(ctx, cfg.OTelCollectorHost, "campusmart")
	if err != nil {
		log.Error().Err(err).Msg("tracing disabled")
	}
	if traceProvider != nil {
		defer func() {
			if err := traceProvider.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown tracer")
			}
		}()
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect db")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate")
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get sql.DB")
	}
	defer sqlDB.Close()

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB, cfg.DBTimeout)
	numbers := infraRepo.NewOrderNumberSequence(gormDB)

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()
	issuer, err := auth.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create jwt issuer")
	}
	clock := auth.SystemClock()

	//Usecase生成
	registerUC := auth.NewRegisterUserUsecase(userRepo, hasher, issuer, clock)
	loginUC := auth.NewLoginUsecase(userRepo, verifier, issuer, clock)
	accountUC := auth.NewAccountUsecase(txm, clock)

	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)
	orderUC := usecase.NewOrderUsecase(txm, numbers, orderMetrics)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, orderUC)
	productUC := usecase.NewProductUsecase(txm)
	cartUC := usecase.NewCartUsecase(txm)

	//Handler生成
	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(sqlDB),
		Auth:       handler.NewAuthHandler(registerUC, loginUC, accountUC),
		Product:    handler.NewProductHandler(productUC),
		Cart:       handler.NewCartHandler(cartUC),
		Order:      handler.NewOrderHandler(orderUC),
		AdminOrder: handler.NewAdminOrderHandler(adminOrderUC),
	}

	e := server.New(cfg)
	server.RegisterRoutes(e, cfg, userRepo, handlers)

	//outboxリレー
	publisher := newPublisher(cfg)
	defer publisher.Close()
	relay := job.NewOutboxRelay(txm, publisher, newMailer(cfg))
	scheduler, err := relay.Schedule(ctx, cfg.OutboxInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start outbox relay")
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Error().Err(err).Msg("failed to stop scheduler")
		}
	}()

	//Server起動
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, e, fmt.Sprintf(":%s", cfg.Port), "api")
	})
	g.Go(func() error {
		return server.Run(gctx, server.NewMetrics(), fmt.Sprintf(":%s", cfg.MetricsPort), "metrics")
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}
}

type closablePublisher interface {
	job.Publisher
	Close() error
}

func newPublisher(cfg config.Config) closablePublisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Warn().Msg("KAFKA_BROKERS is empty, events are only logged")
		return event.NewLogPublisher()
	}
	kp, err := event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka publisher")
	}
	return event.NewBreakerPublisher(kp, event.NewCircuitBreaker("outbox-kafka"))
}

func newMailer(cfg config.Config) job.OrderMailer {
	if cfg.SMTPHost == "" {
		return nil
	}
	m, err := mail.NewOrderMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create mailer")
	}
	return m
}
