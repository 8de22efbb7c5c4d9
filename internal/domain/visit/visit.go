package visit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Visit statuses
const (
	StatusPending  = "pendiente"
	StatusFinished = "finalizada"
)

// DefaultPhotoName and DefaultPhotoContentType apply when an upload omits them
const (
	DefaultPhotoName        = "foto.jpg"
	DefaultPhotoContentType = "image/jpeg"
)

var (
	ErrSalespersonRequired = errors.New("visit: salesperson id is required")
	ErrClientRequired      = errors.New("visit: client id is required")
	ErrAddressRequired     = errors.New("visit: address, city and contact are required")
	ErrDateRequired        = errors.New("visit: date is required")
)

// Visit is a planned visit of a salesperson to a client on a given day.
// At most one visit exists per (client, salesperson, date).
type Visit struct {
	ID            string
	SalespersonID string
	ClientID      string
	Address       string
	City          string
	Contact       string
	Date          time.Time
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewVisitInput carries the fields needed to schedule a visit
type NewVisitInput struct {
	SalespersonID string
	ClientID      string
	Address       string
	City          string
	Contact       string
	Date          time.Time
}

// NewVisit validates the input and creates a pending visit
func NewVisit(in NewVisitInput) (*Visit, error) {
	if strings.TrimSpace(in.SalespersonID) == "" {
		return nil, ErrSalespersonRequired
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return nil, ErrClientRequired
	}
	if strings.TrimSpace(in.Address) == "" || strings.TrimSpace(in.City) == "" || strings.TrimSpace(in.Contact) == "" {
		return nil, ErrAddressRequired
	}
	if in.Date.IsZero() {
		return nil, ErrDateRequired
	}

	now := time.Now().UTC()
	return &Visit{
		ID:            uuid.New().String(),
		SalespersonID: strings.TrimSpace(in.SalespersonID),
		ClientID:      strings.TrimSpace(in.ClientID),
		Address:       strings.TrimSpace(in.Address),
		City:          strings.TrimSpace(in.City),
		Contact:       strings.TrimSpace(in.Contact),
		Date:          time.Date(in.Date.Year(), in.Date.Month(), in.Date.Day(), 0, 0, 0, 0, time.UTC),
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Finish marks the visit as finished
func (v *Visit) Finish() {
	v.Status = StatusFinished
	v.UpdatedAt = time.Now().UTC()
}

// Detail records what happened during a visit. A visit has at most one.
type Detail struct {
	ID                 int64
	VisitID            string
	ClientID           string
	AttendedBy         string
	Findings           string
	ProductSuggestions string
	// PhotoKey is the object key of the photo in the country bucket
	PhotoKey  string
	CreatedAt time.Time
}

// DetailInput carries the editable fields of a detail
type DetailInput struct {
	ClientID           string
	AttendedBy         string
	Findings           string
	ProductSuggestions string
}

// Apply overwrites the editable fields of d
func (d *Detail) Apply(in DetailInput) error {
	if strings.TrimSpace(in.ClientID) == "" {
		return ErrClientRequired
	}
	d.ClientID = strings.TrimSpace(in.ClientID)
	d.AttendedBy = in.AttendedBy
	d.Findings = in.Findings
	d.ProductSuggestions = in.ProductSuggestions
	return nil
}

// PhotoObjectKey returns a unique object key for a visit photo:
// visitas/{visitID}/{uuidhex}-{filename}
func PhotoObjectKey(visitID, filename string) string {
	if strings.TrimSpace(filename) == "" {
		filename = DefaultPhotoName
	}
	return fmt.Sprintf("visitas/%s/%s-%s", visitID, strings.ReplaceAll(uuid.New().String(), "-", ""), filename)
}
