package postgres

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGormLogger_ParamsFilterDropsValues(t *testing.T) {
	l := &gormLogger{log: zerolog.Nop(), level: logger.Info}

	sql, params := l.ParamsFilter(context.Background(), `INSERT INTO "users" ("password_hash") VALUES ($1)`, "$2a$10$secret")

	assert.Equal(t, `INSERT INTO "users" ("password_hash") VALUES ($1)`, sql)
	assert.Empty(t, params)
}

func TestGormLogger_InsertDoesNotLogBoundValues(t *testing.T) {
	var buf bytes.Buffer
	db, err := gorm.Open(gormpostgres.Open("postgres://u:p@127.0.0.1:1/auth"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               newGormLogger(zerolog.New(&buf)).LogMode(logger.Info),
	})
	require.NoError(t, err)

	m := &userModel{Name: "Alice", Email: "alice@example.com", PasswordHash: "$2a$10$supersecrethash", Role: "customer"}
	require.NoError(t, db.Create(m).Error)

	out := buf.String()
	assert.Contains(t, out, "users")
	assert.NotContains(t, out, "supersecrethash")
	assert.NotContains(t, out, "alice@example.com")
}

func TestGormLogger_FailedQueryOmitsValues(t *testing.T) {
	var buf bytes.Buffer
	l := newGormLogger(zerolog.New(&buf))

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `INSERT INTO "users" ("password_hash") VALUES ($1)`, 0
	}, errors.New("connection reset"))

	assert.Contains(t, buf.String(), "query failed")
	assert.Contains(t, buf.String(), "$1")
}

func TestGormLogger_DomainOutcomesNotLogged(t *testing.T) {
	var buf bytes.Buffer
	l := newGormLogger(zerolog.New(&buf))

	for _, err := range []error{gorm.ErrRecordNotFound, gorm.ErrDuplicatedKey} {
		l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, err)
	}

	assert.Zero(t, buf.Len(), buf.String())
}
