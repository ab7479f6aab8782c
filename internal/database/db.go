// Package database opens the MySQL connection pool used by every
// repository.  Times are stored and compared in UTC throughout, so the
// DSN forces parseTime and a UTC location; a driver session in any other
// location would silently skew hold-expiry comparisons.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Options carries the connection and pool parameters.  Pool limits come
// from configuration like every other knob; zero values fall back to
// defaults suited to a single API instance.
type Options struct {
	User         string
	Pass         string
	Host         string
	Port         string
	Name         string
	MaxOpen      int
	MaxIdle      int
	ConnLifetime time.Duration
}

// Open connects to MySQL, applies the pool limits and verifies the
// connection with a bounded ping.
func Open(o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn(o))
	if err != nil {
		return nil, err
	}

	if o.MaxOpen <= 0 {
		o.MaxOpen = 25
	}
	if o.MaxIdle <= 0 {
		o.MaxIdle = o.MaxOpen
	}
	if o.ConnLifetime <= 0 {
		o.ConnLifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(o.MaxOpen)
	db.SetMaxIdleConns(o.MaxIdle)
	db.SetConnMaxLifetime(o.ConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// dsn renders the driver connection string.  An empty password drops the
// colon separator so local root-without-password setups keep working.
func dsn(o Options) string {
	auth := o.User
	if o.Pass != "" {
		auth = fmt.Sprintf("%s:%s", o.User, o.Pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, o.Host, o.Port, o.Name)
}
