package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DefaultRecentTips is how many tips the analytics view returns.
const DefaultRecentTips = 10

// ErrUserNotFound is returned when an identity has no profile row.
var ErrUserNotFound = errors.New("user not found")

// Database wraps the gorm connection for users and tips.
type Database struct {
	logger *zap.Logger
	conn   *gorm.DB
}

// New creates an unconnected Database.
func New(logger *zap.Logger) *Database {
	return &Database{logger: logger}
}

// Init connects to Postgres and migrates the schema. The first connection
// attempt is retried once after a short delay to ride out container startup.
func (d *Database) Init(dsn string) (err error) {
	d.conn, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		d.logger.Warn("failed to connect to database, retrying in 5s", zap.Error(err))
		time.Sleep(5 * time.Second)
		d.conn, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("could not connect to database: %w", err)
		}
	}

	d.logger.Info("database connected")

	return d.conn.AutoMigrate(&User{}, &Tip{})
}

// CreateTip records a tip and rolls up the recipient's aggregates in one
// transaction: the recipient is created if absent, the tip row is written,
// and TotalTips/TotalEarnings are incremented atomically. The call carries
// no idempotency key; retrying it records a second tip.
func (d *Database) CreateTip(ctx context.Context, tip *Tip) (*User, error) {
	if tip.ToUser == "" {
		return nil, fmt.Errorf("tip recipient is required")
	}
	if tip.AmountUSD.Sign() <= 0 {
		return nil, fmt.Errorf("tip amount must be positive")
	}
	if tip.ID == "" {
		tip.ID = uuid.NewString()
	}

	var user User
	err := d.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(User{Identity: tip.ToUser}).FirstOrCreate(&user).Error; err != nil {
			return fmt.Errorf("upserting recipient: %w", err)
		}

		if err := tx.Create(tip).Error; err != nil {
			return fmt.Errorf("recording tip: %w", err)
		}

		updates := map[string]interface{}{
			"total_tips":     gorm.Expr("total_tips + 1"),
			"total_earnings": gorm.Expr("total_earnings + ?", tip.AmountUSD),
		}
		if err := tx.Model(&User{}).Where("identity = ?", tip.ToUser).Updates(updates).Error; err != nil {
			return fmt.Errorf("updating aggregates: %w", err)
		}

		return tx.Where("identity = ?", tip.ToUser).First(&user).Error
	})
	if err != nil {
		return nil, err
	}

	d.logger.Info("tip recorded",
		zap.String("to", tip.ToUser),
		zap.String("amount_usd", tip.AmountUSD.String()),
		zap.String("tx_hash", tip.TxHash))

	return &user, nil
}

// CountView increments the profile's view counter, creating the profile row
// on first view.
func (d *Database) CountView(ctx context.Context, identity string) (*User, error) {
	if identity == "" {
		return nil, fmt.Errorf("identity is required")
	}

	var user User
	err := d.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(User{Identity: identity}).FirstOrCreate(&user).Error; err != nil {
			return err
		}
		if err := tx.Model(&User{}).Where("identity = ?", identity).
			Update("total_view", gorm.Expr("total_view + 1")).Error; err != nil {
			return err
		}
		return tx.Where("identity = ?", identity).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser returns the profile row for an identity.
func (d *Database) GetUser(ctx context.Context, identity string) (*User, error) {
	var user User
	err := d.conn.WithContext(ctx).Where("identity = ?", identity).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FetchAnalytics returns the owner's aggregates and most recent tips.
func (d *Database) FetchAnalytics(ctx context.Context, identity string, limit int) (*Analytics, error) {
	if limit <= 0 {
		limit = DefaultRecentTips
	}

	user, err := d.GetUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	var tips []Tip
	err = d.conn.WithContext(ctx).
		Where("to_user = ?", identity).
		Order("created_at desc").
		Limit(limit).
		Find(&tips).Error
	if err != nil {
		return nil, err
	}

	return &Analytics{User: user, Tips: tips}, nil
}
