// Package seed populates the source collections with demo data and
// bootstraps the admin account.
package seed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hotelops/internal/clock"
	reportdomain "github.com/smallbiznis/hotelops/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultAdminEmail    = "admin@gmail.com"
	DefaultAdminName     = "admin"
	DefaultAdminPassword = "admin123"

	passwordHashCost = 12
)

var (
	ErrAlreadySeeded   = errors.New("demo data already present")
	ErrInvalidAdmin    = errors.New("admin email and password are required")
	ErrAdminNotFound   = errors.New("admin user not found")
	errDatabaseMissing = errors.New("seed database handle is required")
)

var Module = fx.Module("seed",
	fx.Provide(NewSeeder),
)

type Seeder struct {
	db    *gorm.DB
	repo  reportdomain.Repository
	node  *snowflake.Node
	clock clock.Clock
	log   *zap.Logger
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Repo  reportdomain.Repository
	Clock clock.Clock
	Log   *zap.Logger
}

func NewSeeder(p Params) (*Seeder, error) {
	if p.DB == nil {
		return nil, errDatabaseMissing
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	return &Seeder{
		db:    p.DB,
		repo:  p.Repo,
		node:  node,
		clock: p.Clock,
		log:   p.Log.Named("seed"),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func wrapSeedErr(step string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("seed %s: %w", step, err)
}
