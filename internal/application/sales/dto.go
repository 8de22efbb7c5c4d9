package sales

import (
	"time"

	"github.com/salescrm/backend/internal/domain/sales"
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CreatePlanRequest is the body of POST /v1/ventas/planes
type CreatePlanRequest struct {
	SalespersonID  string           `json:"id_vendedor" binding:"required,max=64"`
	Period         string           `json:"periodo" binding:"omitempty,oneof=mensual trimestral anual"`
	Territory      string           `json:"territorio" binding:"max=120"`
	GoalAmount     *decimal.Decimal `json:"meta_monto"`
	GoalUnits      *int64           `json:"meta_unidades" binding:"omitempty,min=0"`
	GoalClients    *int64           `json:"meta_clientes" binding:"omitempty,min=0"`
	StartDate      string           `json:"fecha_inicio" binding:"required,isodate"`
	EndDate        string           `json:"fecha_fin" binding:"required,isodate"`
	ProductIDs     []string         `json:"ids_productos" binding:"omitempty,dive,max=64"`
	TargetClientID string           `json:"id_cliente_objetivo" binding:"required,max=64"`
}

// PlanResponse is a sales plan on the wire
type PlanResponse struct {
	ID             string           `json:"id"`
	SalespersonID  string           `json:"id_vendedor"`
	Period         string           `json:"periodo"`
	Territory      string           `json:"territorio,omitempty"`
	GoalAmount     *decimal.Decimal `json:"meta_monto"`
	GoalUnits      *int64           `json:"meta_unidades"`
	GoalClients    *int64           `json:"meta_clientes"`
	StartDate      string           `json:"fecha_inicio"`
	EndDate        string           `json:"fecha_fin"`
	Active         bool             `json:"activo"`
	ProductIDs     []string         `json:"ids_productos"`
	TargetClientID string           `json:"id_cliente_objetivo"`
}

// ProgressResponse is a progress snapshot on the wire
type ProgressResponse struct {
	Date            string          `json:"fecha"`
	Amount          decimal.Decimal `json:"monto_actual"`
	Units           int64           `json:"unidades_actuales"`
	DistinctClients int             `json:"clientes_actuales"`
	OrderCount      int             `json:"pedidos_contados"`
}

// PlanFailure names a plan whose recalculation failed in a batch
type PlanFailure struct {
	PlanID string
	Err    error
}

// BatchResult summarizes a RecalculateActive run
type BatchResult struct {
	Country   string
	Date      time.Time
	Total     int
	Succeeded int
	Failures  []PlanFailure
}

// ToPlanResponse converts a plan to its wire form
func ToPlanResponse(p *sales.SalesPlan) *PlanResponse {
	resp := &PlanResponse{
		ID:             p.ID,
		SalespersonID:  p.SalespersonID,
		Period:         p.Period,
		Territory:      p.Territory,
		GoalUnits:      p.GoalUnits,
		GoalClients:    p.GoalClients,
		StartDate:      p.StartDate.Format(shared.DateLayout),
		EndDate:        p.EndDate.Format(shared.DateLayout),
		Active:         p.Active,
		ProductIDs:     p.ProductIDs,
		TargetClientID: p.TargetClientID,
	}
	if resp.ProductIDs == nil {
		resp.ProductIDs = []string{}
	}
	if p.GoalAmount.Valid {
		amount := p.GoalAmount.Decimal
		resp.GoalAmount = &amount
	}
	return resp
}

// ToProgressResponse converts a snapshot to its wire form
func ToProgressResponse(s *sales.ProgressSnapshot) *ProgressResponse {
	return &ProgressResponse{
		Date:            s.Date.Format(shared.DateLayout),
		Amount:          s.Amount,
		Units:           s.Units,
		DistinctClients: s.DistinctClients,
		OrderCount:      s.OrderCount,
	}
}
