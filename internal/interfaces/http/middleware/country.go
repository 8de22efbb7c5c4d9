package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/interfaces/http/dto"
)

// CountryKey holds the upper-case country code of the request
const CountryKey = "country"

// CountryConfig configures country selection
type CountryConfig struct {
	Header    string
	Default   string
	Supported []string
}

// Country resolves the country of a request from its header, falling back
// to the default, and stores it in the request context. A country outside
// Supported is rejected with 400.
func Country(cfg CountryConfig) gin.HandlerFunc {
	header := cfg.Header
	if header == "" {
		header = "X-Country"
	}
	supported := make(map[string]struct{}, len(cfg.Supported))
	for _, code := range cfg.Supported {
		supported[shared.NormalizeCountry(code)] = struct{}{}
	}
	fallback := shared.NormalizeCountry(cfg.Default)

	return func(c *gin.Context) {
		country := shared.NormalizeCountry(c.GetHeader(header))
		if country == "" {
			country = fallback
		}
		if _, ok := supported[country]; !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnknownCountry,
				"Unsupported country: "+strings.ToUpper(country),
				getRequestID(c),
			))
			return
		}

		c.Set(CountryKey, strings.ToUpper(country))
		c.Request = c.Request.WithContext(shared.WithCountry(c.Request.Context(), country))
		c.Next()
	}
}

// GetCountry returns the upper-case country of the request, or ""
func GetCountry(c *gin.Context) string {
	return c.GetString(CountryKey)
}
