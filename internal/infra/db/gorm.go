package db

import (
	"fmt"
	"time"

	"campusmart/internal/config"
	"campusmart/internal/domain/model"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 注文番号用のシーケンス
const OrderNumberSequence = "order_number_seq"

// Connect はDBに接続して *gorm.DB を返す。
// database/sql層をotelsqlで包み、その上にgormを載せる
func Connect(cfg config.Config) (*gorm.DB, error) {
	sqlDB, err := otelsql.Open("pgx", cfg.DSN(),
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithSpanOptions(otelsql.SpanOptions{DisableQuery: true}),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	level := logger.Warn
	if !cfg.IsProd() {
		level = logger.Info
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         NewGormLogger(level, defaultSlowQuery),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Info().Str("component", "db.Connect").Msg("connected to postgres")
	return gormDB, nil
}

// スキーマ作成と注文番号シーケンス
func Migrate(gormDB *gorm.DB) error {
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.ProductReview{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
		&model.OutboxEvent{},
		&model.ReconciliationEntry{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	//旧スキーマのキー単独の一意インデックスは購入者をまたいで衝突するので外す
	if err := gormDB.Exec("DROP INDEX IF EXISTS idx_orders_idempotency_key").Error; err != nil {
		return fmt.Errorf("drop legacy idempotency index: %w", err)
	}

	if err := gormDB.Exec("CREATE SEQUENCE IF NOT EXISTS " + OrderNumberSequence).Error; err != nil {
		return fmt.Errorf("create sequence: %w", err)
	}
	return nil
}
