package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CountryProvider lists the countries whose plans are recalculated
type CountryProvider interface {
	Countries() []string
}

// CronTriggerConfig holds the daily run time, in UTC
type CronTriggerConfig struct {
	RunHour   int
	RunMinute int
	// CheckInterval is how often the clock is checked
	CheckInterval time.Duration
}

// CronTrigger submits one job per country every day at the configured time
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	countries CountryProvider
	logger    *zap.Logger
	now       func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewCronTrigger creates a trigger
func NewCronTrigger(config CronTriggerConfig, scheduler *Scheduler, countries CountryProvider, logger *zap.Logger) *CronTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	return &CronTrigger{
		config:    config,
		scheduler: scheduler,
		countries: countries,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start starts checking the clock
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return nil
	}
	c.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Int("run_hour", c.config.RunHour),
		zap.Int("run_minute", c.config.RunMinute),
	)
	return nil
}

// Stop stops the trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.cancel()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger()
		}
	}
}

// checkAndTrigger fires at most once per day, on the first check at or
// after the run time
func (c *CronTrigger) checkAndTrigger() bool {
	now := c.now()
	today := now.Format(time.DateOnly)
	runAt := time.Date(now.Year(), now.Month(), now.Day(), c.config.RunHour, c.config.RunMinute, 0, 0, time.UTC)

	c.mu.Lock()
	if c.lastRunDate == today || now.Before(runAt) {
		c.mu.Unlock()
		return false
	}
	c.lastRunDate = today
	c.mu.Unlock()

	c.TriggerNow(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
	return true
}

// TriggerNow submits one job per country for date
func (c *CronTrigger) TriggerNow(date time.Time) {
	countries := c.countries.Countries()
	c.logger.Info("Scheduling plan recalculation",
		zap.String("date", date.Format(time.DateOnly)),
		zap.Strings("countries", countries),
	)
	for _, country := range countries {
		job := NewJob(country, date, c.scheduler.config.RetryAttempts)
		if err := c.scheduler.SubmitJob(job); err != nil {
			c.logger.Error("Failed to schedule recalculation",
				zap.String("country", country),
				zap.Error(err),
			)
		}
	}
}
