package domain

import "time"

// TimestampLayout is the second-precision layout of TradeRecord.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// TradeRecord is a normalized trade as served by the query API.
// Values are never mutated after construction.
type TradeRecord struct {
	User         string   // resolved label (or raw address under permissive policy)
	SolAmount    string   // decimal SOL, 4 fraction digits
	Name         string   // asset display name
	Timestamp    string   // TimestampLayout in the configured location
	Mint         *string  // optional
	USDMarketCap *float64 // optional
}

// TradeEvent is an accepted trade together with its raw feed fields.
// It is handed to archive sinks and never read back into the event store.
type TradeEvent struct {
	ID         string // UUID assigned on acceptance; sinks use it to dedupe retries
	Direction  Direction
	Address    string // raw user address
	Lamports   int64
	UnixTime   int64
	Record     TradeRecord
	SessionID  string // feed session that delivered the event
	ReceivedAt time.Time
}
