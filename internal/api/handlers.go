package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pump-trade-feed/internal/domain"
	"pump-trade-feed/internal/feed"
	"pump-trade-feed/internal/query"
	"pump-trade-feed/internal/storage"
)

// Trade is the full wire shape of a record. Absent optional fields are null.
type Trade struct {
	User         string   `json:"user"`
	SolAmount    string   `json:"sol_amount"`
	Name         string   `json:"name"`
	Timestamp    string   `json:"timestamp"`
	Mint         *string  `json:"mint"`
	USDMarketCap *float64 `json:"usd_market_cap"`
}

// LeanTrade is the wire shape when optional fields are disabled.
type LeanTrade struct {
	User      string `json:"user"`
	SolAmount string `json:"sol_amount"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
}

// TradesResponse is the body of GET /api/trades.
type TradesResponse struct {
	Buys  any `json:"buys"`
	Sells any `json:"sells"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status                string   `json:"status"`
	State                 string   `json:"state"`
	SecondsSinceLastFrame *float64 `json:"seconds_since_last_frame"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	State         string     `json:"state"`
	SessionID     string     `json:"session_id"`
	Reconnects    int64      `json:"reconnects"`
	LastFrameAt   *time.Time `json:"last_frame_at"`
	Uptime        string     `json:"uptime"`
	LabelPolicy   string     `json:"label_policy"`
	StoreCapacity int        `json:"store_capacity"`
	Buys          int        `json:"buys"`
	Sells         int        `json:"sells"`
}

type handler struct {
	query           *query.Service
	store           storage.EventStore
	feed            StatusSource
	includeOptional bool
	labelPolicy     string
	maxFrameAge     time.Duration
	logger          *logrus.Entry
	now             func() time.Time
	started         time.Time
}

func newHandler(opts Options) *handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxAge := opts.MaxFrameAge
	if maxAge <= 0 {
		maxAge = 2 * time.Minute
	}
	return &handler{
		query:           opts.Query,
		store:           opts.Store,
		feed:            opts.Feed,
		includeOptional: opts.IncludeOptional,
		labelPolicy:     opts.LabelPolicy,
		maxFrameAge:     maxAge,
		logger:          logger,
		now:             now,
		started:         now(),
	}
}

// Trades serves the most recent buys and sells.
func (h *handler) Trades(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "invalid limit parameter, must be a positive integer",
			})
			return
		}
		limit = l
	}

	res, err := h.query.Trades(limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load trades"})
		return
	}

	c.JSON(http.StatusOK, TradesResponse{
		Buys:  h.shape(res.Buys),
		Sells: h.shape(res.Sells),
	})
}

func (h *handler) shape(records []domain.TradeRecord) any {
	if !h.includeOptional {
		out := make([]LeanTrade, len(records))
		for i, r := range records {
			out[i] = LeanTrade{User: r.User, SolAmount: r.SolAmount, Name: r.Name, Timestamp: r.Timestamp}
		}
		return out
	}

	out := make([]Trade, len(records))
	for i, r := range records {
		out[i] = Trade{
			User:         r.User,
			SolAmount:    r.SolAmount,
			Name:         r.Name,
			Timestamp:    r.Timestamp,
			Mint:         r.Mint,
			USDMarketCap: r.USDMarketCap,
		}
	}
	return out
}

// Health reports 200 while frames keep arriving and 503 once the feed has
// been silent longer than the configured age.
func (h *handler) Health(c *gin.Context) {
	st := h.feed.Status()
	resp := HealthResponse{Status: "ok", State: st.State.String()}

	healthy := !st.LastFrameAt.IsZero()
	if healthy {
		age := h.now().Sub(st.LastFrameAt)
		secs := math.Round(age.Seconds()*1000) / 1000
		resp.SecondsSinceLastFrame = &secs
		healthy = age <= h.maxFrameAge
	}

	if !healthy {
		resp.Status = "stale"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Status reports connection and store details.
func (h *handler) Status(c *gin.Context) {
	st := h.feed.Status()
	resp := StatusResponse{
		State:         st.State.String(),
		SessionID:     st.SessionID,
		Reconnects:    st.Reconnects,
		Uptime:        h.now().Sub(h.started).Truncate(time.Second).String(),
		LabelPolicy:   h.labelPolicy,
		StoreCapacity: h.store.Capacity(),
		Buys:          h.store.Len(domain.DirectionBuy),
		Sells:         h.store.Len(domain.DirectionSell),
	}
	if !st.LastFrameAt.IsZero() {
		t := st.LastFrameAt
		resp.LastFrameAt = &t
	}
	c.JSON(http.StatusOK, resp)
}

var _ StatusSource = (*feed.Client)(nil)
