package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/salescrm/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// order is the wire shape of an order returned by the orders service
type order struct {
	SalespersonID flexString  `json:"vendedor_id"`
	ClientID      flexString  `json:"cliente_id"`
	Items         []orderItem `json:"items"`
}

type orderItem struct {
	ProductID   flexString      `json:"producto_id"`
	Quantity    flexInt         `json:"cantidad"`
	UnitPrice   decimal.Decimal `json:"precio_unitario"`
	DiscountPct decimal.Decimal `json:"descuento_pct"`
	TaxPct      decimal.Decimal `json:"impuesto_pct"`
}

func (o order) toDomain() sales.OrderRecord {
	items := make([]sales.OrderItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = sales.OrderItem{
			ProductID:   string(it.ProductID),
			Quantity:    int64(it.Quantity),
			UnitPrice:   it.UnitPrice,
			DiscountPct: it.DiscountPct,
			TaxPct:      it.TaxPct,
		}
	}
	return sales.OrderRecord{
		SalespersonID: string(o.SalespersonID),
		ClientID:      string(o.ClientID),
		Items:         items,
	}
}

// flexString accepts a JSON string or number. null decodes to "".
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number id, got %s", b)
		}
		*s = flexString(n.String())
	}
	return nil
}

// flexInt accepts a JSON integer, an integral float or a numeric string
type flexInt int64

func (n *flexInt) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if raw == "" || raw == "null" {
		*n = 0
		return nil
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*n = flexInt(v)
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) {
		return fmt.Errorf("expected integer quantity, got %s", b)
	}
	*n = flexInt(f)
	return nil
}
