package db

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/roguebt/config"
	dbmysql "github.com/kasuganosora/roguebt/db/mysql"
	dbsqlite "github.com/kasuganosora/roguebt/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeNone   = "none"
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// ErrDisabled is returned by Open when the database mode is "none".
var ErrDisabled = errors.New("db: database disabled")

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeNone, "":
		return nil, ErrDisabled
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, cfg.MySQLMaxOpen, cfg.MySQLMaxIdle, cfg.MySQLMaxLife)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
