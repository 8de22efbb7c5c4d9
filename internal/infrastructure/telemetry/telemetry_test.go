package telemetry_test

import (
	"context"
	"errors"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/salescrm/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{ServiceName: "ventas"}, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{}, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{}, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.False(t, lp.ZapCore(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel), "disabled bridge is a nop core")
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestBusinessMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	_, err := telemetry.NewBusinessMetrics(nil)
	require.Error(t, err)

	bm, err := telemetry.NewBusinessMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordRecalculation(ctx, "co", "http", telemetry.OutcomeSuccess, 120*time.Millisecond, 3)
	bm.RecordRecalculation(ctx, "co", "pubsub", telemetry.OutcomeUpstream, time.Second, 0)
	bm.RecordPush(ctx, "recalcular_plan_ventas", "acked")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["plan_recalculations_total"])
	assert.Equal(t, int64(3), sums["plan_orders_counted_total"])
	assert.Equal(t, int64(1), sums["pubsub_messages_total"])
}

func TestStartSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := telemetry.StartSpan(context.Background(), "plan.recalculate", attribute.String("plan_id", "p-1"))
	assert.NotEmpty(t, telemetry.TraceID(ctx))
	telemetry.RecordError(span, errors.New("gateway down"))
	telemetry.RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "plan.recalculate", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Empty(t, telemetry.TraceID(context.Background()))
}

func TestDBTracingPlugin(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{SlowQueryThresh: time.Nanosecond})
	require.NoError(t, db.Use(plugin))

	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	var n int
	require.NoError(t, db.WithContext(ctx).Raw("SELECT 1").Scan(&n).Error)
	span.End()

	var sqlSpans int
	for _, s := range recorder.Ended() {
		if s.Name() != "parent" {
			sqlSpans++
		}
	}
	assert.Positive(t, sqlSpans, "otelgorm spans are recorded")
	assert.Equal(t, "ventas:db_tracing", plugin.Name())
}

func TestRegisterPoolMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)

	reg, err := telemetry.RegisterPoolMetrics(provider.Meter("test"), sqlDB)
	require.NoError(t, err)
	defer reg.Unregister()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var maxConns int64 = -1
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if g, ok := m.Data.(metricdata.Gauge[int64]); ok && m.Name == "db_pool_connections_max" {
				maxConns = g.DataPoints[0].Value
			}
		}
	}
	assert.Equal(t, int64(4), maxConns)
}

func TestProfiler_Disabled(t *testing.T) {
	cfg := telemetry.ProfilerConfig{ServerAddress: "http://localhost:4040", ApplicationName: "ventas"}

	p, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.Equal(t, "ventas", p.GetConfig().ApplicationName)
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop(), "stop is idempotent")
}

func TestProfiler_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     telemetry.ProfilerConfig
		wantErr string
	}{
		{
			name:    "missing server address",
			cfg:     telemetry.ProfilerConfig{Enabled: true, ApplicationName: "ventas"},
			wantErr: "server address is required",
		},
		{
			name:    "missing application name",
			cfg:     telemetry.ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"},
			wantErr: "application name is required",
		},
		{
			name: "unknown profile type",
			cfg: telemetry.ProfilerConfig{
				Enabled: true, ServerAddress: "http://localhost:4040", ApplicationName: "ventas",
				ProfileTypes: []string{"cpu", "heap"},
			},
			wantErr: `unknown profile type "heap"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := telemetry.NewProfiler(tt.cfg, zaptest.NewLogger(t))
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTracerProvider_SpanProfilesNeedTracing(t *testing.T) {
	prev := otel.GetTracerProvider()
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{ServiceName: "ventas"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	tp.EnableSpanProfiles()

	assert.False(t, tp.IsSpanProfilesEnabled())
	assert.Same(t, prev, otel.GetTracerProvider(), "disabled tracing keeps the global provider")
}

func TestWithProfilingLabels(t *testing.T) {
	labels := telemetry.OperationLabels("recalculate_plan", map[string]string{
		telemetry.ProfilingLabelCountry: "co",
		"plan_id":                       "p-1",
		"Batch-Size":                    "20",
	})

	called := false
	telemetry.WithProfilingLabels(context.Background(), labels, func(ctx context.Context) {
		called = true
		op, _ := pprof.Label(ctx, telemetry.ProfilingLabelOperation)
		assert.Equal(t, "recalculate_plan", op)
		country, _ := pprof.Label(ctx, telemetry.ProfilingLabelCountry)
		assert.Equal(t, "co", country)
		size, _ := pprof.Label(ctx, "batch_size")
		assert.Equal(t, "20", size)
		_, ok := pprof.Label(ctx, "plan_id")
		assert.False(t, ok, "high-cardinality labels are dropped")
	})
	assert.True(t, called)

	t.Run("no labels still runs fn", func(t *testing.T) {
		ran := false
		telemetry.WithProfilingLabels(context.Background(), nil, func(context.Context) { ran = true })
		assert.True(t, ran)
	})
}
