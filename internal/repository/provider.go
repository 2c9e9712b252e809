package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"multiagent-manager/backend/internal/config"
	"multiagent-manager/backend/internal/logging"
)

// SQLProvider opens a database/sql connection for one dialect.
type SQLProvider interface {
	// Connect opens and verifies the connection, applying provider-specific
	// pool settings and pragmas.
	Connect(ctx context.Context) (*sql.DB, error)
	// DriverName is the registered database/sql driver.
	DriverName() string
	// Dialect selects the migration directory.
	Dialect() string
}

// Open builds the Store selected by store.provider and applies migrations.
func Open(ctx context.Context, cfg *config.Config, logger *logging.Logger) (Store, error) {
	switch cfg.Store.Provider {
	case config.StoreMemory, "":
		logger.Info("Using in-memory entity store")
		return NewInMemoryStore(), nil
	case config.StorePostgres:
		store, err := OpenPostgres(ctx, cfg.PostgresConnString())
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to PostgreSQL", "host", cfg.DB.Host, "database", cfg.DB.Name)
		return store, nil
	case config.StoreMySQL:
		return OpenSQL(ctx, NewMySQLProvider(cfg.MySQL, logger))
	case config.StoreSQLite:
		return OpenSQL(ctx, NewSQLiteProvider(cfg.SQLite.Path, logger))
	default:
		return nil, fmt.Errorf("unsupported store provider: %s", cfg.Store.Provider)
	}
}

// OpenSQL connects through provider and migrates the schema.
func OpenSQL(ctx context.Context, provider SQLProvider) (*SQLStore, error) {
	db, err := provider.Connect(ctx)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, provider.Dialect()); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLStore(db, provider.DriverName()), nil
}

// SQLiteProvider opens a file-backed SQLite database.
type SQLiteProvider struct {
	path   string
	logger *logging.Logger
}

// NewSQLiteProvider creates a new SQLite provider.
func NewSQLiteProvider(path string, logger *logging.Logger) *SQLiteProvider {
	return &SQLiteProvider{path: path, logger: logger}
}

// Connect opens the database, creating its directory if needed.
func (p *SQLiteProvider) Connect(ctx context.Context) (*sql.DB, error) {
	if p.path == "" {
		return nil, fmt.Errorf("sqlite path is not set")
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open(p.DriverName(), "file:"+p.path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			p.logger.Error("Failed to set pragma", "pragma", pragma, "error", err)
		}
	}

	p.logger.Info("Opened SQLite database", "path", p.path)
	return db, nil
}

// DriverName returns the ncruces driver name.
func (p *SQLiteProvider) DriverName() string { return "sqlite3" }

// Dialect returns the goose dialect.
func (p *SQLiteProvider) Dialect() string { return DialectSQLite }

// MySQLProvider opens a pooled MySQL connection.
type MySQLProvider struct {
	config config.MySQLConfig
	logger *logging.Logger
}

// NewMySQLProvider creates a new MySQL provider.
func NewMySQLProvider(cfg config.MySQLConfig, logger *logging.Logger) *MySQLProvider {
	return &MySQLProvider{config: cfg, logger: logger}
}

// Connect opens the pool and verifies it within the configured timeout.
func (p *MySQLProvider) Connect(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(p.DriverName(), p.buildDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	db.SetMaxOpenConns(p.config.MaxConnections)
	db.SetMaxIdleConns(p.config.MaxIdleConnections)
	db.SetConnMaxLifetime(5 * time.Minute)

	timeout := time.Duration(p.config.ConnectionTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	p.logger.Info("Connected to MySQL database",
		"host", p.config.Host,
		"database", p.config.Database,
		"max_connections", p.config.MaxConnections)
	return db, nil
}

// buildDSN prefers an explicit DSN over the individual fields.
func (p *MySQLProvider) buildDSN() string {
	if p.config.DSN != "" {
		return p.config.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		p.config.Username,
		p.config.Password,
		p.config.Host,
		p.config.Port,
		p.config.Database,
	)
}

// DriverName returns the go-sql-driver name.
func (p *MySQLProvider) DriverName() string { return "mysql" }

// Dialect returns the goose dialect.
func (p *MySQLProvider) Dialect() string { return DialectMySQL }
