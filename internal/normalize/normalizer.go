// Package normalize converts raw tradeCreated payloads into TradeRecords.
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"pump-trade-feed/internal/domain"
)

// lamportsExp scales lamports to SOL.
const lamportsExp = -9

// ErrInvalidTrade is returned when a required field is absent or of the wrong type.
var ErrInvalidTrade = errors.New("invalid trade payload")

// Trade is a decoded tradeCreated payload.
type Trade struct {
	User         string
	Lamports     int64
	Name         string
	IsBuy        bool
	Timestamp    int64 // unix seconds
	Mint         *string
	USDMarketCap *float64
}

// Direction returns the trade direction.
func (t Trade) Direction() domain.Direction {
	return domain.DirectionFromIsBuy(t.IsBuy)
}

// Decode parses a tradeCreated payload object.
// Required: user, sol_amount, name, is_buy, timestamp.
// Optional mint and usd_market_cap are kept only when well-typed.
func Decode(payload []byte) (Trade, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Trade{}, fmt.Errorf("%w: %v", ErrInvalidTrade, err)
	}
	if fields == nil {
		return Trade{}, fmt.Errorf("%w: payload is not an object", ErrInvalidTrade)
	}

	var t Trade
	if err := required(fields, "user", &t.User); err != nil {
		return Trade{}, err
	}
	if err := required(fields, "sol_amount", &t.Lamports); err != nil {
		return Trade{}, err
	}
	if err := required(fields, "name", &t.Name); err != nil {
		return Trade{}, err
	}
	if err := required(fields, "is_buy", &t.IsBuy); err != nil {
		return Trade{}, err
	}
	if err := required(fields, "timestamp", &t.Timestamp); err != nil {
		return Trade{}, err
	}

	var mint string
	if optional(fields, "mint", &mint) {
		t.Mint = &mint
	}
	var mcap float64
	if optional(fields, "usd_market_cap", &mcap) {
		t.USDMarketCap = &mcap
	}

	return t, nil
}

func required(fields map[string]json.RawMessage, key string, dst any) error {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return fmt.Errorf("%w: missing %s", ErrInvalidTrade, key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: field %s: %v", ErrInvalidTrade, key, err)
	}
	return nil
}

func optional(fields map[string]json.RawMessage, key string, dst any) bool {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Normalizer builds TradeRecords from decoded trades.
type Normalizer struct {
	location        *time.Location
	includeOptional bool
}

// NewNormalizer creates a normalizer. A nil location uses time.Local.
// When includeOptional is false, mint and usd_market_cap are never set.
func NewNormalizer(location *time.Location, includeOptional bool) *Normalizer {
	if location == nil {
		location = time.Local
	}
	return &Normalizer{location: location, includeOptional: includeOptional}
}

// Record converts t into a TradeRecord labelled with label.
func (n *Normalizer) Record(t Trade, label string) domain.TradeRecord {
	r := domain.TradeRecord{
		User:      label,
		SolAmount: FormatSOL(t.Lamports),
		Name:      t.Name,
		Timestamp: time.Unix(t.Timestamp, 0).In(n.location).Format(domain.TimestampLayout),
	}
	if n.includeOptional {
		r.Mint = t.Mint
		r.USDMarketCap = t.USDMarketCap
	}
	return r
}

// IncludeOptional reports whether optional fields are carried into records.
func (n *Normalizer) IncludeOptional() bool {
	return n.includeOptional
}

// FormatSOL renders lamports as SOL with exactly four fraction digits.
func FormatSOL(lamports int64) string {
	return decimal.New(lamports, lamportsExp).StringFixed(4)
}
