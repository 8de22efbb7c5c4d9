package visit

import (
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/domain/visit"
)

// CreateVisitRequest is the body of POST /v1/visitas
type CreateVisitRequest struct {
	SalespersonID string `json:"id_vendedor" binding:"required,max=64"`
	ClientID      string `json:"id_cliente" binding:"required,max=64"`
	Address       string `json:"direccion" binding:"required,max=255"`
	City          string `json:"ciudad" binding:"required,max=120"`
	Contact       string `json:"contacto" binding:"required,max=120"`
	Date          string `json:"fecha" binding:"required,isodate"`
}

// ListVisitsQuery holds the listing filters of GET /v1/visitas
type ListVisitsQuery struct {
	SalespersonID string `form:"id_vendedor"`
	Date          string `form:"d" binding:"omitempty,isodate"`
}

// SaveDetailRequest holds the form fields of POST /v1/visitas/{id}/detalle
type SaveDetailRequest struct {
	ClientID           string `form:"id_cliente" binding:"required,max=64"`
	AttendedBy         string `form:"atendido_por"`
	Findings           string `form:"hallazgos"`
	ProductSuggestions string `form:"sugerencias_producto"`
}

// Photo is an uploaded visit photo
type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

// VisitResponse is a visit on the wire
type VisitResponse struct {
	ID            string `json:"id"`
	SalespersonID string `json:"id_vendedor"`
	ClientID      string `json:"id_cliente"`
	Address       string `json:"direccion"`
	City          string `json:"ciudad"`
	Contact       string `json:"contacto"`
	Date          string `json:"fecha"`
	Status        string `json:"estado"`
}

// DetailResponse is a visit detail on the wire. PhotoKey is the object key
// in the country bucket, not a URL.
type DetailResponse struct {
	ID                 int64   `json:"id"`
	VisitID            string  `json:"id_visita"`
	ClientID           string  `json:"id_cliente"`
	AttendedBy         *string `json:"atendido_por"`
	Findings           *string `json:"hallazgos"`
	ProductSuggestions *string `json:"sugerencias_producto"`
	PhotoKey           *string `json:"url_foto"`
}

// VisitWithDetailResponse is a visit with its detail and inline photo
type VisitWithDetailResponse struct {
	VisitResponse
	Detail *DetailResponse `json:"detalle"`
	// PhotoDataURI is data:{type};base64,{data}
	PhotoDataURI *string `json:"foto_ios"`
}

// ToVisitResponse converts a visit to its wire form
func ToVisitResponse(v *visit.Visit) *VisitResponse {
	return &VisitResponse{
		ID:            v.ID,
		SalespersonID: v.SalespersonID,
		ClientID:      v.ClientID,
		Address:       v.Address,
		City:          v.City,
		Contact:       v.Contact,
		Date:          v.Date.Format(shared.DateLayout),
		Status:        v.Status,
	}
}

// ToDetailResponse converts a detail to its wire form. Empty optional
// fields are sent as null.
func ToDetailResponse(d *visit.Detail) *DetailResponse {
	return &DetailResponse{
		ID:                 d.ID,
		VisitID:            d.VisitID,
		ClientID:           d.ClientID,
		AttendedBy:         optional(d.AttendedBy),
		Findings:           optional(d.Findings),
		ProductSuggestions: optional(d.ProductSuggestions),
		PhotoKey:           optional(d.PhotoKey),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
