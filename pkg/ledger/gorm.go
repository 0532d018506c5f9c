package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/shubham-shewale/signal-pairing/pkg/models"
	"github.com/shubham-shewale/signal-pairing/pkg/symbol"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// Option describes a PostgreSQL connection. ConnString wins when set.
type Option struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	ConnString string
	Config     *gorm.Config
}

var _ Ledger = (*GormLedger)(nil)

type GormLedger struct {
	db *gorm.DB
}

// OpenPostgres connects, migrates the holdings table and returns the ledger.
func OpenPostgres(opt Option) (*GormLedger, error) {
	cfg := opt.Config
	if cfg == nil {
		cfg = &gorm.Config{}
	}

	db, err := gorm.Open(postgres.Open(opt.DSN()), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrPersistence, err)
	}

	l := NewGormLedger(db)
	if err := l.Migrate(); err != nil {
		return nil, err
	}
	return l, nil
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (g *GormLedger) Migrate() error {
	if err := g.db.AutoMigrate(&Holding{}); err != nil {
		return fmt.Errorf("%w: migrate: %v", ErrPersistence, err)
	}
	return nil
}

func (g *GormLedger) FindOpenHolding(ctx context.Context, sym string) (*Holding, error) {
	var h Holding
	err := g.db.WithContext(ctx).
		Where("symbol = ? AND status = ?", sym, StatusHolding).
		Order("created_at DESC, id DESC").
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find open %s: %v", ErrPersistence, sym, err)
	}
	return &h, nil
}

func (g *GormLedger) CreateHolding(ctx context.Context, sig models.TradeSignal, t symbol.OptionType) (*Holding, error) {
	h := newHolding(sig, t)
	if err := g.db.WithContext(ctx).Create(&h).Error; err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrPersistence, sig.Symbol, err)
	}
	return &h, nil
}

// CloseHolding only touches rows still in Holding, so a racing second close
// updates nothing and succeeds.
func (g *GormLedger) CloseHolding(ctx context.Context, id uint) error {
	err := g.db.WithContext(ctx).
		Model(&Holding{}).
		Where("id = ? AND status = ?", id, StatusHolding).
		Update("status", StatusSent).Error
	if err != nil {
		return fmt.Errorf("%w: close %d: %v", ErrPersistence, id, err)
	}
	return nil
}

func (g *GormLedger) ListOpen(ctx context.Context) ([]Holding, error) {
	var out []Holding
	if err := g.db.WithContext(ctx).Where("status = ?", StatusHolding).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: list open: %v", ErrPersistence, err)
	}
	return out, nil
}

func (g *GormLedger) ListHistory(ctx context.Context) ([]Holding, error) {
	var out []Holding
	if err := g.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: list history: %v", ErrPersistence, err)
	}
	return out, nil
}

func (g *GormLedger) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (opt Option) DSN() string {
	if opt.ConnString != "" {
		return opt.ConnString
	}

	host := opt.Host
	if host == "" {
		host = defaultPostgresHost
	}
	port := opt.Port
	if port == 0 {
		port = defaultPostgresPort
	}
	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	u.RawQuery = query.Encode()
	return u.String()
}
