package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	sqliteDialector "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrUnsupportedDialect indicates that no GORM dialector is available for the scheme.
	ErrUnsupportedDialect = errors.New("store.unsupported_dialect")
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("store.not_found")
	// ErrDuplicate indicates that a unique constraint rejected the write.
	ErrDuplicate = errors.New("store.duplicate")

	errEmptyDatabaseURL    = errors.New("store.empty_database_url")
	errSQLiteEmptyPath     = errors.New("store.sqlite.empty_path")
	errSQLiteInvalidURL    = errors.New("store.sqlite.invalid_url")
	errUnsupportedNoScheme = errors.New("store.unsupported_no_scheme")
)

// Database persists users, courses, and enrollments using GORM.
type Database struct {
	db          *gorm.DB
	driverLabel string
}

// Driver exposes the selected database driver label.
func (database *Database) Driver() string {
	return database.driverLabel
}

// Open resolves the dialect from databaseURL, connects, and migrates the schema.
func Open(ctx context.Context, databaseURL string) (*Database, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("store.open: %w", errEmptyDatabaseURL)
	}
	dialector, driverLabel, err := resolveDialector(databaseURL)
	if err != nil {
		return nil, err
	}
	return OpenDialector(ctx, dialector, driverLabel)
}

// OpenDialector connects through an explicit dialector and migrates the schema.
func OpenDialector(ctx context.Context, dialector gorm.Dialector, driverLabel string) (*Database, error) {
	gormDB, openErr := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if openErr != nil {
		return nil, fmt.Errorf("store.open.%s: %w", driverLabel, openErr)
	}
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(&User{}, &Course{}, &Enrollment{}); migrateErr != nil {
		return nil, fmt.Errorf("store.migrate.%s: %w", driverLabel, migrateErr)
	}
	return &Database{
		db:          gormDB,
		driverLabel: driverLabel,
	}, nil
}

// Ping checks that the underlying connection pool is reachable.
func (database *Database) Ping(ctx context.Context) error {
	sqlDB, err := database.db.DB()
	if err != nil {
		return fmt.Errorf("store.ping.%s: %w", database.driverLabel, err)
	}
	if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		return fmt.Errorf("store.ping.%s: %w", database.driverLabel, pingErr)
	}
	return nil
}

// Close releases the connection pool.
func (database *Database) Close() error {
	sqlDB, err := database.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (database *Database) wrap(operation string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("store.%s.%s: %w", operation, database.driverLabel, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("store.%s.%s: %w", operation, database.driverLabel, ErrDuplicate)
	default:
		return fmt.Errorf("store.%s.%s: %w", operation, database.driverLabel, err)
	}
}

func resolveDialector(databaseURL string) (gorm.Dialector, string, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("store.parse_url: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, "", fmt.Errorf("store.dialect: %w", errUnsupportedNoScheme)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		return postgres.Open(databaseURL), "postgres", nil
	case "sqlite", "sqlite3":
		dsn, dsnErr := buildSQLiteDSN(parsed)
		if dsnErr != nil {
			return nil, "", fmt.Errorf("store.sqlite: %w", dsnErr)
		}
		return sqliteDialector.Open(dsn), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("store.dialect.%s: %w", strings.ToLower(parsed.Scheme), ErrUnsupportedDialect)
	}
}

func buildSQLiteDSN(parsed *url.URL) (string, error) {
	if parsed == nil {
		return "", errSQLiteInvalidURL
	}
	var builder strings.Builder
	switch {
	case parsed.Opaque != "":
		builder.WriteString(parsed.Opaque)
	case parsed.Host != "":
		builder.WriteString(parsed.Host)
		if parsed.Path != "" {
			if !strings.HasPrefix(parsed.Path, "/") {
				builder.WriteString("/")
			}
			builder.WriteString(parsed.Path)
		}
	default:
		builder.WriteString(parsed.Path)
	}
	if builder.Len() == 0 {
		return "", errSQLiteEmptyPath
	}
	if parsed.RawQuery != "" {
		builder.WriteString("?")
		builder.WriteString(parsed.RawQuery)
	}
	return builder.String(), nil
}
