package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// WithDBName swaps the database in a postgres URL DSN. A DSN without a
// scheme is treated as postgres://.
func WithDBName(dsn, name string) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", errors.New("empty DSN")
	}
	if !strings.Contains(dsn, "://") {
		dsn = "postgres://" + dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("unsupported DSN scheme %q", u.Scheme)
	}
	u.Path = "/" + strings.TrimPrefix(name, "/")
	return u.String(), nil
}

// LatestImport returns the newest database recorded in
// public.latest_successful_imports whose name contains city. meta must be
// connected to the cluster's maintenance database.
func LatestImport(ctx context.Context, meta *sql.DB, city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", errors.New("city is required")
	}
	const q = `SELECT db_name FROM public.latest_successful_imports
WHERE db_name ILIKE '%' || $1 || '%' AND db_name <> ''
ORDER BY imported_at DESC LIMIT 1`
	var name string
	err := meta.QueryRowContext(ctx, q, city).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("no imported database for city %q", city)
	}
	if err != nil {
		return "", fmt.Errorf("resolve import for %q: %w", city, err)
	}
	return name, nil
}

// OpenForCity connects to the latest import for city, or to dsn itself when
// city is empty. It returns the open pool and the database name in use.
func OpenForCity(ctx context.Context, dsn, city string) (*sql.DB, string, error) {
	if city == "" {
		conn, err := Open(dsn)
		if err != nil {
			return nil, "", err
		}
		if err := Ping(ctx, conn); err != nil {
			conn.Close()
			return nil, "", err
		}
		return conn, "", nil
	}

	metaDSN, err := WithDBName(dsn, "postgres")
	if err != nil {
		return nil, "", err
	}
	meta, err := Open(metaDSN)
	if err != nil {
		return nil, "", err
	}
	defer meta.Close()
	if err := Ping(ctx, meta); err != nil {
		return nil, "", fmt.Errorf("ping maintenance db: %w", err)
	}
	name, err := LatestImport(ctx, meta, city)
	if err != nil {
		return nil, "", err
	}
	cityDSN, err := WithDBName(dsn, name)
	if err != nil {
		return nil, "", err
	}
	conn, err := Open(cityDSN)
	if err != nil {
		return nil, "", err
	}
	if err := Ping(ctx, conn); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("ping %s: %w", name, err)
	}
	return conn, name, nil
}
