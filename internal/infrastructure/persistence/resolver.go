package persistence

import (
	"context"
	"errors"

	"github.com/salescrm/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// Resolver returns the gorm handle for the country carried by ctx.
// CountryRouter is the production implementation.
type Resolver interface {
	ForContext(ctx context.Context) (*gorm.DB, error)
}

// translateError maps gorm errors onto domain errors
func translateError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.NotFound(what + " not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.AlreadyExists(what + " already exists")
	default:
		return err
	}
}
