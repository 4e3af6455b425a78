// Package db opens the relational store behind a storage location.
package db

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const retryInterval = 3 * time.Second

// Opener opens a gorm connection for a location. Tests substitute it.
type Opener func(location string) (*gorm.DB, error)

// IsPostgres reports whether location is a postgres DSN rather than a sqlite file path.
func IsPostgres(location string) bool {
	l := strings.ToLower(strings.TrimSpace(location))
	return strings.HasPrefix(l, "postgres://") || strings.HasPrefix(l, "postgresql://")
}

// Dialector picks the gorm driver for location.
func Dialector(location string) gorm.Dialector {
	if IsPostgres(location) {
		return postgres.Open(location)
	}
	return sqlite.Open(location)
}

// OpenGorm opens location with a quiet gorm logger. sqlite connections are limited
// to one so that ":memory:" locations see a single database.
func OpenGorm(location string) (*gorm.DB, error) {
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("empty storage location")
	}
	db, err := gorm.Open(Dialector(location), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if !IsPostgres(location) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// ConnectWithRetry keeps calling opener until it succeeds or timeout elapses.
// A zero timeout makes exactly one attempt.
func ConnectWithRetry(location string, timeout time.Duration, opener Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(location)
		if err == nil {
			return db, nil
		}
		if !time.Now().Add(retryInterval).Before(deadline) {
			return nil, fmt.Errorf("connect %s: %w", redact(location), err)
		}
		slog.Warn("DB connect failed, retrying", "location", redact(location), "error", err)
		time.Sleep(retryInterval)
	}
}

// Open connects to location. Postgres DSNs are retried for up to retryFor;
// sqlite files are local and opened once.
func Open(location string, retryFor time.Duration) (*gorm.DB, error) {
	if !IsPostgres(location) {
		retryFor = 0
	}
	return ConnectWithRetry(location, retryFor, OpenGorm)
}

// redact hides the password of a postgres DSN in logs and errors.
func redact(location string) string {
	if !IsPostgres(location) {
		return location
	}
	at := strings.LastIndex(location, "@")
	scheme := strings.Index(location, "://")
	if at < 0 || scheme < 0 {
		return location
	}
	userinfo := location[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		userinfo = userinfo[:colon] + ":***"
	}
	return location[:scheme+3] + userinfo + location[at:]
}
