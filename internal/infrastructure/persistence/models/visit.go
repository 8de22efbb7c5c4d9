package models

import (
	"time"

	"github.com/salescrm/backend/internal/domain/visit"
	"gorm.io/gorm/schema"
)

// VisitModel is the persistence model for visit.Visit
type VisitModel struct {
	ID            string    `gorm:"type:varchar(36);primaryKey"`
	SalespersonID string    `gorm:"type:varchar(64);not null;index;uniqueIndex:uq_visit_client_salesperson_date,priority:2"`
	ClientID      string    `gorm:"type:varchar(64);not null;index;uniqueIndex:uq_visit_client_salesperson_date,priority:1"`
	Address       string    `gorm:"type:varchar(200);not null"`
	City          string    `gorm:"type:varchar(100);not null"`
	Contact       string    `gorm:"type:varchar(100);not null"`
	Date          time.Time `gorm:"column:visit_date;type:date;not null;index;uniqueIndex:uq_visit_client_salesperson_date,priority:3"`
	Status        string    `gorm:"type:varchar(16);not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (VisitModel) TableName(n schema.Namer) string {
	return n.TableName("visits")
}

// VisitDetailModel is the persistence model for visit.Detail
type VisitDetailModel struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement"`
	VisitID            string    `gorm:"type:varchar(36);not null;uniqueIndex"`
	ClientID           string    `gorm:"type:varchar(64);not null;index"`
	AttendedBy         string    `gorm:"type:varchar(120)"`
	Findings           string    `gorm:"type:text"`
	ProductSuggestions string    `gorm:"type:text"`
	PhotoKey           string    `gorm:"type:varchar(512)"`
	CreatedAt          time.Time `gorm:"not null"`
}

func (VisitDetailModel) TableName(n schema.Namer) string {
	return n.TableName("visit_details")
}

func (m *VisitModel) ToDomain() *visit.Visit {
	return &visit.Visit{
		ID:            m.ID,
		SalespersonID: m.SalespersonID,
		ClientID:      m.ClientID,
		Address:       m.Address,
		City:          m.City,
		Contact:       m.Contact,
		Date:          time.Date(m.Date.Year(), m.Date.Month(), m.Date.Day(), 0, 0, 0, 0, time.UTC),
		Status:        m.Status,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func VisitModelFromDomain(v *visit.Visit) *VisitModel {
	return &VisitModel{
		ID:            v.ID,
		SalespersonID: v.SalespersonID,
		ClientID:      v.ClientID,
		Address:       v.Address,
		City:          v.City,
		Contact:       v.Contact,
		Date:          v.Date,
		Status:        v.Status,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}

func (m *VisitDetailModel) ToDomain() *visit.Detail {
	return &visit.Detail{
		ID:                 m.ID,
		VisitID:            m.VisitID,
		ClientID:           m.ClientID,
		AttendedBy:         m.AttendedBy,
		Findings:           m.Findings,
		ProductSuggestions: m.ProductSuggestions,
		PhotoKey:           m.PhotoKey,
		CreatedAt:          m.CreatedAt,
	}
}

func VisitDetailModelFromDomain(d *visit.Detail) *VisitDetailModel {
	return &VisitDetailModel{
		ID:                 d.ID,
		VisitID:            d.VisitID,
		ClientID:           d.ClientID,
		AttendedBy:         d.AttendedBy,
		Findings:           d.Findings,
		ProductSuggestions: d.ProductSuggestions,
		PhotoKey:           d.PhotoKey,
		CreatedAt:          d.CreatedAt,
	}
}
