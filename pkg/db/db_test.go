package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smallbiznis/hotelops/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDialectByType(t *testing.T) {
	for _, dbType := range []string{"postgres", "mysql", "sqlite"} {
		dialect, err := Dialect(config.Config{DBType: dbType, DBName: "hotelops"})
		require.NoError(t, err, dbType)
		assert.NotNil(t, dialect, dbType)
	}

	_, err := Dialect(config.Config{DBType: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}

func TestDSNs(t *testing.T) {
	cfg := config.Config{
		DBHost:     "db",
		DBPort:     "5432",
		DBUser:     "report",
		DBPassword: "it's secret",
		DBName:     "hotelops",
	}
	assert.Equal(t,
		`host=db port=5432 user=report dbname=hotelops sslmode=disable TimeZone=UTC password='it\'s secret'`,
		postgresDSN(cfg),
	)

	cfg.DBPort = "3306"
	cfg.DBPassword = "pw"
	dsn := mysqlDSN(cfg)
	assert.Contains(t, dsn, "report:pw@tcp(db:3306)/hotelops?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestSQLitePath(t *testing.T) {
	assert.Equal(t, "hotelops.db", sqlitePath(""))
	assert.Equal(t, "reports.db", sqlitePath("reports"))
	assert.Equal(t, "file::memory:", sqlitePath("file::memory:"))
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, IsDuplicateKeyErr(&mysqldriver.MySQLError{Number: 1062}))
	assert.False(t, IsDuplicateKeyErr(&mysqldriver.MySQLError{Number: 1045}))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
}

func TestSQLState(t *testing.T) {
	assert.Equal(t, "57014", SQLState(fmt.Errorf("list: %w", &pgconn.PgError{Code: "57014"})))
	assert.Equal(t, "", SQLState(errors.New("plain")))
}

func TestIsConnectionErr(t *testing.T) {
	assert.True(t, IsConnectionErr(&pgconn.PgError{Code: "08001"}))
	assert.True(t, IsConnectionErr(fmt.Errorf("list: %w", &pgconn.PgError{Code: "57P03"})))
	assert.True(t, IsConnectionErr(&pgconn.PgError{Code: "53300"}))
	assert.False(t, IsConnectionErr(&pgconn.PgError{Code: "57014"}))
	assert.False(t, IsConnectionErr(errors.New("dial tcp: refused")))
}

func TestApplyPoolSkipsZeroValues(t *testing.T) {
	var idle, open int
	var lifetime, idleTime time.Duration
	applyPool(config.Config{DBMaxIdleConn: 5, DBConnMaxLifetime: 300},
		func(v int) { idle = v },
		func(v int) { open = v },
		func(v time.Duration) { lifetime = v },
		func(v time.Duration) { idleTime = v },
	)

	assert.Equal(t, 5, idle)
	assert.Equal(t, 0, open)
	assert.Equal(t, 5*time.Minute, lifetime)
	assert.Equal(t, time.Duration(0), idleTime)
}
