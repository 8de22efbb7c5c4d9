package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing
type DBTracingConfig struct {
	LogFullSQL      bool          // include query variables in spans, development only
	SlowQueryThresh time.Duration // queries slower than this are flagged on their span
	DBName          string
}

// DBTracingPlugin is a gorm plugin that registers otelgorm and marks slow
// queries and errors on the query span. Register it on every country handle.
type DBTracingPlugin struct {
	config DBTracingConfig
}

// NewDBTracingPlugin creates the plugin
func NewDBTracingPlugin(cfg DBTracingConfig) *DBTracingPlugin {
	if cfg.SlowQueryThresh == 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBName == "" {
		cfg.DBName = "ventas"
	}
	return &DBTracingPlugin{config: cfg}
}

// Name implements gorm.Plugin
func (p *DBTracingPlugin) Name() string {
	return "ventas:db_tracing"
}

// Initialize implements gorm.Plugin
func (p *DBTracingPlugin) Initialize(db *gorm.DB) error {
	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := otelgorm.NewPlugin(opts...).Initialize(db); err != nil {
		return err
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("ventas_timing:before_create", p.before),
		cb.Query().Before("gorm:query").Register("ventas_timing:before_query", p.before),
		cb.Update().Before("gorm:update").Register("ventas_timing:before_update", p.before),
		cb.Delete().Before("gorm:delete").Register("ventas_timing:before_delete", p.before),
		cb.Row().Before("gorm:row").Register("ventas_timing:before_row", p.before),
		cb.Raw().Before("gorm:raw").Register("ventas_timing:before_raw", p.before),

		cb.Create().After("gorm:create").Register("ventas_timing:after_create", p.after),
		cb.Query().After("gorm:query").Register("ventas_timing:after_query", p.after),
		cb.Update().After("gorm:update").Register("ventas_timing:after_update", p.after),
		cb.Delete().After("gorm:delete").Register("ventas_timing:after_delete", p.after),
		cb.Row().After("gorm:row").Register("ventas_timing:after_row", p.after),
		cb.Raw().After("gorm:raw").Register("ventas_timing:after_raw", p.after),
	)
}

type queryStartKey struct{}

func (p *DBTracingPlugin) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}

var _ gorm.Plugin = (*DBTracingPlugin)(nil)
