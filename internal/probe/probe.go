// Package probe implements database readiness probes. A probe is a single
// liveness check; Waiter turns a probe into a bounded polling loop.
package probe

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver for PingProber
)

// Prober performs one readiness check against a database endpoint.
type Prober interface {
	// Probe attempts the check once. A nil return means the endpoint is
	// ready; the caller decides whether and when to try again.
	Probe(ctx context.Context) error
	// Target returns a human-readable endpoint description for diagnostics.
	Target() string
}

// ProberFunc adapts a function to the Prober interface. Used mostly in tests.
type ProberFunc struct {
	Fn   func(ctx context.Context) error
	Desc string
}

func (p ProberFunc) Probe(ctx context.Context) error { return p.Fn(ctx) }
func (p ProberFunc) Target() string                  { return p.Desc }

// TCPProber checks readiness with a bare TCP connection attempt. No protocol
// handshake is performed; the connection is closed as soon as it is accepted.
type TCPProber struct {
	Host string
	Port int
	// Timeout bounds a single dial so a black-holed SYN cannot consume the
	// whole attempt budget. Zero means 1 second.
	Timeout time.Duration
}

func (p *TCPProber) Probe(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.Target())
	if err != nil {
		return fmt.Errorf("tcp probe failed: %w", err)
	}
	return conn.Close()
}

func (p *TCPProber) Target() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// PingProber checks readiness at the application level by opening a
// database/sql handle with the pgx driver and pinging it. Unlike TCPProber
// this requires the server to be accepting connections AND authenticating,
// which matters when Postgres is up but still replaying WAL.
type PingProber struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// Timeout bounds a single ping. Zero means 1 second.
	Timeout time.Duration
}

func (p *PingProber) Probe(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := sql.Open("pgx", p.dsn())
	if err != nil {
		return fmt.Errorf("ping probe failed to open handle: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping probe failed: %w", err)
	}
	return nil
}

func (p *PingProber) Target() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// dsn builds a keyword/value connection string understood by pgx. Empty
// optional fields are omitted so libpq-style defaults and PG* environment
// variables still apply.
func (p *PingProber) dsn() string {
	dsn := fmt.Sprintf("host=%s port=%d", p.Host, p.Port)
	if p.User != "" {
		dsn += " user=" + p.User
	}
	if p.Password != "" {
		dsn += " password=" + p.Password
	}
	if p.Database != "" {
		dsn += " dbname=" + p.Database
	}
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn += " sslmode=" + sslMode
	return dsn
}
