package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/salescrm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EventRecalculatePlan asks for the recalculation of one plan
const EventRecalculatePlan = "recalcular_plan_ventas"

// ErrPlanIDRequired is returned for a recalculation event without plan_id
var ErrPlanIDRequired = errors.New("sales: event has no plan_id")

// Recalculator is the part of PlanService used by event handlers
type Recalculator interface {
	Recalculate(ctx context.Context, country, planID string, date time.Time) (*ProgressResponse, error)
}

type recalculatePlanPayload struct {
	PlanID string `json:"plan_id"`
	Date   string `json:"fecha"`
}

// PlanRecalculationHandler handles recalcular_plan_ventas events
type PlanRecalculationHandler struct {
	service Recalculator
	logger  *zap.Logger
	today   func() time.Time
}

// NewPlanRecalculationHandler creates the handler
func NewPlanRecalculationHandler(service Recalculator, logger *zap.Logger) *PlanRecalculationHandler {
	return &PlanRecalculationHandler{
		service: service,
		logger:  logger,
		today:   shared.Today,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *PlanRecalculationHandler) EventTypes() []string {
	return []string{EventRecalculatePlan}
}

// Handle recalculates the plan named by the event for its fecha, or today
func (h *PlanRecalculationHandler) Handle(ctx context.Context, ev *shared.Event) error {
	var payload recalculatePlanPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return shared.InvalidInput(fmt.Errorf("decode %s payload: %w", ev.Name, err))
	}
	payload.PlanID = strings.TrimSpace(payload.PlanID)
	if payload.PlanID == "" {
		return shared.InvalidInput(ErrPlanIDRequired)
	}

	date, err := shared.ParseDate(payload.Date, h.today())
	if err != nil {
		return err
	}

	h.logger.Debug("Processing plan recalculation event",
		zap.String("message_id", ev.MessageID),
		zap.String("plan_id", payload.PlanID),
		zap.String("country", ev.Country),
		zap.String("trace_id", ev.TraceID),
		zap.String("date", date.Format(shared.DateLayout)),
	)

	_, err = h.service.Recalculate(WithTrigger(ctx, TriggerPubSub), ev.Country, payload.PlanID, date)
	return err
}

var _ shared.EventHandler = (*PlanRecalculationHandler)(nil)
