package models

type SubmitOrderRequest struct {
	ID       int64   `json:"id"`
	Side     string  `json:"side"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

type SubmitOrderResponse struct {
	OrderID           int64      `json:"order_id"`
	Status            string     `json:"status"`
	Message           string     `json:"message,omitempty"`
	FilledQuantity    int64      `json:"filled_quantity"`
	RemainingQuantity int64      `json:"remaining_quantity"`
	Fills             []FillInfo `json:"fills"`
}

type FillInfo struct {
	Price          float64 `json:"price"`
	Quantity       int64   `json:"quantity"`
	RestingOrderID int64   `json:"resting_order_id"`
}

type AmendOrderRequest struct {
	Quantity int64 `json:"quantity"`
}

type AmendOrderResponse struct {
	OrderID  int64 `json:"order_id"`
	Quantity int64 `json:"quantity"`
	Position int   `json:"position"`
}

type CancelOrderResponse struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type OrderStatusResponse struct {
	OrderID        int64   `json:"order_id"`
	Side           string  `json:"side"`
	Price          float64 `json:"price"`
	Quantity       int64   `json:"quantity"`
	FilledQuantity int64   `json:"filled_quantity"`
	Leaves         int64   `json:"leaves"`
	Status         string  `json:"status"`
	Position       int     `json:"position"` // -1 once the order left the book
}

type LevelResponse struct {
	Side  string  `json:"side"`
	Level int     `json:"level"`
	Price float64 `json:"price"`
	Size  int64   `json:"size"`
}

type OrderBookResponse struct {
	Timestamp int64            `json:"timestamp"` // unix timestamp in milliseconds
	TickSize  float64          `json:"tick_size"`
	Bids      []PriceLevelInfo `json:"bids"` // sorted descending (highest first)
	Asks      []PriceLevelInfo `json:"asks"` // sorted ascending (lowest first)
}

type PriceLevelInfo struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"` // aggregated leaves at this price
	Orders   int     `json:"orders"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	OpenOrders    int64  `json:"open_orders"`
}

type MetricsResponse struct {
	OrdersReceived         int64   `json:"orders_received"`
	OrdersMatched          int64   `json:"orders_matched"`
	OrdersAmended          int64   `json:"orders_amended"`
	OrdersCancelled        int64   `json:"orders_cancelled"`
	OrdersRejected         int64   `json:"orders_rejected"`
	OrdersInBook           int64   `json:"orders_in_book"`
	FillsExecuted          int64   `json:"fills_executed"`
	LatencyP50Ms           float64 `json:"latency_p50_ms"`
	LatencyP99Ms           float64 `json:"latency_p99_ms"`
	LatencyP999Ms          float64 `json:"latency_p999_ms"`
	ThroughputOrdersPerSec float64 `json:"throughput_orders_per_sec"`
}
