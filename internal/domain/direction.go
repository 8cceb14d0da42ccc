package domain

// Direction classifies a trade as a buy or a sell.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// DirectionFromIsBuy maps the feed's is_buy flag to a Direction.
func DirectionFromIsBuy(isBuy bool) Direction {
	if isBuy {
		return DirectionBuy
	}
	return DirectionSell
}

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is a valid value.
func (d Direction) IsValid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Verb returns the past-tense verb used in trade log lines.
func (d Direction) Verb() string {
	if d == DirectionBuy {
		return "bought"
	}
	return "sold"
}
