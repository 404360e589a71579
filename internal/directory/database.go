package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"silverlink/internal/config"
	"silverlink/internal/models"
	"silverlink/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// CustomGormLogger integrates GORM with slog
type CustomGormLogger struct {
	logger *slog.Logger
	Config logger.Config
}

// NewGormLogger returns a GORM logger writing through the global slog logger.
func NewGormLogger(level logger.LogLevel) *CustomGormLogger {
	return &CustomGormLogger{
		logger: observability.GlobalLogger.Logger,
		Config: logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	}
}

// LogMode sets the logging level and returns a new interface instance.
func (l *CustomGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newlogger := *l
	newlogger.Config.LogLevel = level
	return &newlogger
}

// Info logs an informational message with context.
func (l *CustomGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Warn logs a warning message with context.
func (l *CustomGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *CustomGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace logs SQL statements with their execution time.
func (l *CustomGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Config.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && l.Config.LogLevel >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		l.logger.ErrorContext(ctx, "GORM query error",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
	case elapsed > l.Config.SlowThreshold && l.Config.SlowThreshold != 0 && l.Config.LogLevel >= logger.Warn:
		l.logger.WarnContext(ctx, "GORM slow query",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	case l.Config.LogLevel >= logger.Info:
		l.logger.InfoContext(ctx, "GORM query",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	}
}

// Connect opens the directory database selected by cfg.DBDriver and migrates
// the schema outside production.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DirectorySQLite:
		dialector = sqlite.Open(cfg.DBDSN)
	case config.DirectoryPostgres:
		dialector = postgres.Open(cfg.PostgresDSN())
	default:
		return nil, fmt.Errorf("directory driver %q has no database", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	observability.GlobalLogger.Info("Database connected successfully", slog.String("driver", cfg.DBDriver))

	isProduction := cfg.Env == "production" || cfg.Env == "prod"
	if !isProduction {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		observability.GlobalLogger.Info("Database migration completed")
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	return db, nil
}

// Migrate creates or updates the member and activity tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.UserProfile{}, &models.Activity{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Database serves the directory from SQL tables.
type Database struct {
	db     *gorm.DB
	system string
	traces *observability.TraceLayer
}

// NewDatabase returns a directory over db.
func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db, system: db.Dialector.Name(), traces: observability.GetTraceLayer()}
}

// Members returns every member ordered by id.
func (d *Database) Members(ctx context.Context) ([]models.UserProfile, error) {
	ctx, span := d.traces.TraceDirectoryQuery(ctx, "Members", "members", d.system)
	defer span.End()
	defer observability.TrackQuery("select", "members")()

	var members []models.UserProfile
	if err := d.db.WithContext(ctx).Order("id").Find(&members).Error; err != nil {
		observability.RecordErrorInContext(ctx, err)
		return nil, models.NewInternalError(err)
	}
	return members, nil
}

// Activities returns every activity ordered by date, then id.
func (d *Database) Activities(ctx context.Context) ([]models.Activity, error) {
	ctx, span := d.traces.TraceDirectoryQuery(ctx, "Activities", "activities", d.system)
	defer span.End()
	defer observability.TrackQuery("select", "activities")()

	var activities []models.Activity
	if err := d.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).Find(&activities).Error; err != nil {
		observability.RecordErrorInContext(ctx, err)
		return nil, models.NewInternalError(err)
	}
	for i := range activities {
		if activities[i].Participants == nil {
			activities[i].Participants = []string{}
		}
	}
	return activities, nil
}

// Member looks up one member by id.
func (d *Database) Member(ctx context.Context, id string) (*models.UserProfile, error) {
	defer observability.TrackQuery("first", "members")()

	var member models.UserProfile
	if err := d.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Member", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &member, nil
}

// UpsertMembers inserts members, replacing rows with the same id.
func (d *Database) UpsertMembers(ctx context.Context, members []models.UserProfile) error {
	if len(members) == 0 {
		return nil
	}
	defer observability.TrackQuery("upsert", "members")()
	if err := d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&members).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// UpsertActivities inserts activities, replacing rows with the same id.
func (d *Database) UpsertActivities(ctx context.Context, activities []models.Activity) error {
	if len(activities) == 0 {
		return nil
	}
	defer observability.TrackQuery("upsert", "activities")()
	if err := d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&activities).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
