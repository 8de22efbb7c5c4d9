package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/salescrm/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ErrUnknownCountry is returned for a country that has no configured schema
var ErrUnknownCountry = errors.New("unknown country")

// Opener opens a gorm handle whose tables carry the given prefix
type Opener func(tablePrefix string) (*gorm.DB, error)

// CountryRouter resolves the gorm handle of the country carried by a
// context. Each country owns a schema named after its lower-case code.
type CountryRouter struct {
	handles  map[string]*gorm.DB
	fallback string
}

// NewCountryRouter opens one handle per country code. Requests without a
// country use defaultCountry.
func NewCountryRouter(open Opener, countries []string, defaultCountry string) (*CountryRouter, error) {
	r := &CountryRouter{
		handles:  make(map[string]*gorm.DB, len(countries)),
		fallback: shared.NormalizeCountry(defaultCountry),
	}
	for _, c := range countries {
		schemaName := shared.NormalizeCountry(c)
		if schemaName == "" {
			continue
		}
		db, err := open(schemaName + ".")
		if err != nil {
			return nil, fmt.Errorf("open schema %s: %w", schemaName, err)
		}
		r.handles[schemaName] = db
	}
	if _, ok := r.handles[r.fallback]; !ok {
		return nil, fmt.Errorf("%w: default %q", ErrUnknownCountry, defaultCountry)
	}
	return r, nil
}

// ForContext returns the handle for the country in ctx, bound to ctx
func (r *CountryRouter) ForContext(ctx context.Context) (*gorm.DB, error) {
	country := shared.CountryFromContext(ctx)
	if country == "" {
		country = r.fallback
	}
	db, ok := r.handles[country]
	if !ok {
		return nil, shared.InvalidInput(fmt.Errorf("%w: %s", ErrUnknownCountry, strings.ToUpper(country)))
	}
	return db.WithContext(ctx), nil
}

// Countries returns the configured codes in upper case, sorted
func (r *CountryRouter) Countries() []string {
	out := make([]string, 0, len(r.handles))
	for c := range r.handles {
		out = append(out, strings.ToUpper(c))
	}
	sort.Strings(out)
	return out
}

// EnsureSchemas creates the schema of every country if missing
func (r *CountryRouter) EnsureSchemas(ctx context.Context) error {
	for c, db := range r.handles {
		stmt := "CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(c)
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("create schema %s: %w", c, err)
		}
	}
	return nil
}

// Check runs a trivial query per country and reports which succeeded,
// keyed by upper-case code.
func (r *CountryRouter) Check(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(r.handles))
	for c, db := range r.handles {
		out[strings.ToUpper(c)] = db.WithContext(ctx).Exec("SELECT 1").Error == nil
	}
	return out
}
