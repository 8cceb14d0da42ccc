// Package publish broadcasts accepted trades to message brokers.
package publish

import (
	"time"

	"github.com/goccy/go-json"

	"pump-trade-feed/internal/domain"
)

// Message is the JSON document published for every accepted trade.
type Message struct {
	ID           string   `json:"id"`
	Direction    string   `json:"direction"`
	Address      string   `json:"address"`
	User         string   `json:"user"`
	SolAmount    string   `json:"sol_amount"`
	Lamports     int64    `json:"lamports"`
	Name         string   `json:"name"`
	Timestamp    string   `json:"timestamp"`
	UnixTime     int64    `json:"unix_time"`
	Mint         *string  `json:"mint,omitempty"`
	USDMarketCap *float64 `json:"usd_market_cap,omitempty"`
	SessionID    string   `json:"session_id"`
	ReceivedAt   string   `json:"received_at"`
}

// NewMessage builds the published form of ev.
func NewMessage(ev *domain.TradeEvent) Message {
	return Message{
		ID:           ev.ID,
		Direction:    ev.Direction.String(),
		Address:      ev.Address,
		User:         ev.Record.User,
		SolAmount:    ev.Record.SolAmount,
		Lamports:     ev.Lamports,
		Name:         ev.Record.Name,
		Timestamp:    ev.Record.Timestamp,
		UnixTime:     ev.UnixTime,
		Mint:         ev.Record.Mint,
		USDMarketCap: ev.Record.USDMarketCap,
		SessionID:    ev.SessionID,
		ReceivedAt:   ev.ReceivedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Encode marshals the message for ev.
func Encode(ev *domain.TradeEvent) ([]byte, error) {
	return json.Marshal(NewMessage(ev))
}
