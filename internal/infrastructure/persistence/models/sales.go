package models

import (
	"time"

	"github.com/salescrm/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/schema"
)

// SalesPlanModel is the persistence model for sales.SalesPlan
type SalesPlanModel struct {
	ID             string              `gorm:"type:varchar(36);primaryKey"`
	SalespersonID  string              `gorm:"type:varchar(64);not null;index;uniqueIndex:uq_sales_plan_scope,priority:1"`
	TargetClientID string              `gorm:"type:varchar(64);not null;index;uniqueIndex:uq_sales_plan_scope,priority:2"`
	Period         string              `gorm:"type:varchar(16);not null;uniqueIndex:uq_sales_plan_scope,priority:3"`
	Territory      string              `gorm:"type:varchar(80)"`
	GoalAmount     decimal.NullDecimal `gorm:"type:decimal(14,2)"`
	GoalUnits      *int64
	GoalClients    *int64
	StartDate      time.Time               `gorm:"type:date;not null;uniqueIndex:uq_sales_plan_scope,priority:4"`
	EndDate        time.Time               `gorm:"type:date;not null;uniqueIndex:uq_sales_plan_scope,priority:5"`
	Active         bool                    `gorm:"not null;index"`
	Products       []SalesPlanProductModel `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time               `gorm:"not null"`
	UpdatedAt      time.Time               `gorm:"not null"`
}

// TableName resolves through the namer so the country prefix applies
func (SalesPlanModel) TableName(n schema.Namer) string {
	return n.TableName("sales_plans")
}

// SalesPlanProductModel links a plan to one of its products
type SalesPlanProductModel struct {
	PlanID    string `gorm:"type:varchar(36);primaryKey"`
	ProductID string `gorm:"type:varchar(64);primaryKey;index"`
}

func (SalesPlanProductModel) TableName(n schema.Namer) string {
	return n.TableName("sales_plan_products")
}

// PlanProgressModel holds one snapshot per plan and day
type PlanProgressModel struct {
	PlanID          string          `gorm:"type:varchar(36);primaryKey"`
	SnapshotDate    time.Time       `gorm:"type:date;primaryKey"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Units           int64           `gorm:"not null"`
	DistinctClients int             `gorm:"not null"`
	OrderCount      int             `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

func (PlanProgressModel) TableName(n schema.Namer) string {
	return n.TableName("plan_progress")
}

// ToDomain converts the model to a domain plan
func (m *SalesPlanModel) ToDomain() *sales.SalesPlan {
	products := make([]string, len(m.Products))
	for i, p := range m.Products {
		products[i] = p.ProductID
	}
	return &sales.SalesPlan{
		ID:             m.ID,
		SalespersonID:  m.SalespersonID,
		TargetClientID: m.TargetClientID,
		ProductIDs:     products,
		Period:         m.Period,
		Territory:      m.Territory,
		GoalAmount:     m.GoalAmount,
		GoalUnits:      m.GoalUnits,
		GoalClients:    m.GoalClients,
		StartDate:      sales.NormalizeDate(m.StartDate),
		EndDate:        sales.NormalizeDate(m.EndDate),
		Active:         m.Active,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// SalesPlanModelFromDomain converts a domain plan to its model
func SalesPlanModelFromDomain(p *sales.SalesPlan) *SalesPlanModel {
	products := make([]SalesPlanProductModel, len(p.ProductIDs))
	for i, id := range p.ProductIDs {
		products[i] = SalesPlanProductModel{PlanID: p.ID, ProductID: id}
	}
	return &SalesPlanModel{
		ID:             p.ID,
		SalespersonID:  p.SalespersonID,
		TargetClientID: p.TargetClientID,
		Period:         p.Period,
		Territory:      p.Territory,
		GoalAmount:     p.GoalAmount,
		GoalUnits:      p.GoalUnits,
		GoalClients:    p.GoalClients,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		Active:         p.Active,
		Products:       products,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToDomain converts the model to a snapshot
func (m *PlanProgressModel) ToDomain() *sales.ProgressSnapshot {
	return &sales.ProgressSnapshot{
		PlanID:          m.PlanID,
		Date:            sales.NormalizeDate(m.SnapshotDate),
		Amount:          m.Amount,
		Units:           m.Units,
		DistinctClients: m.DistinctClients,
		OrderCount:      m.OrderCount,
		UpdatedAt:       m.UpdatedAt,
	}
}

// PlanProgressModelFromDomain converts a snapshot to its model
func PlanProgressModelFromDomain(s *sales.ProgressSnapshot) *PlanProgressModel {
	return &PlanProgressModel{
		PlanID:          s.PlanID,
		SnapshotDate:    s.Date,
		Amount:          s.Amount,
		Units:           s.Units,
		DistinctClients: s.DistinctClients,
		OrderCount:      s.OrderCount,
		UpdatedAt:       s.UpdatedAt,
	}
}
