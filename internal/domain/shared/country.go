package shared

import (
	"context"
	"strings"
)

type countryKey struct{}

// NormalizeCountry returns the schema form of a country code ("CO" -> "co")
func NormalizeCountry(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// WithCountry returns a context scoped to a country. Repositories, the orders
// client and the photo store read it to pick schema, header and bucket.
func WithCountry(ctx context.Context, country string) context.Context {
	return context.WithValue(ctx, countryKey{}, NormalizeCountry(country))
}

// CountryFromContext returns the country set by WithCountry, or ""
func CountryFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if c, ok := ctx.Value(countryKey{}).(string); ok {
		return c
	}
	return ""
}
