package visit

import (
	"context"
	"time"
)

// Filter narrows visit listings. Zero fields do not filter.
type Filter struct {
	SalespersonID string
	Date          *time.Time
}

// Repository persists visits and their details in the schema of the country carried by ctx
type Repository interface {
	Create(ctx context.Context, v *Visit) error
	Update(ctx context.Context, v *Visit) error
	FindByID(ctx context.Context, id string) (*Visit, error)
	FindAll(ctx context.Context, filter Filter) ([]Visit, error)
	// Exists reports whether a visit for the same client, salesperson and date exists
	Exists(ctx context.Context, clientID, salespersonID string, date time.Time) (bool, error)

	FindDetail(ctx context.Context, visitID string) (*Detail, error)
	// SaveDetailAndFinish stores the detail and the finished visit in one transaction
	SaveDetailAndFinish(ctx context.Context, v *Visit, d *Detail) error
}
