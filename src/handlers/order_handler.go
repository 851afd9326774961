package handlers

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"limit-book/src/engine"
	"limit-book/src/metrics"
	"limit-book/src/models"
)

type Config struct {
	DefaultDepth int
	MaxDepth     int
	MaxLatencies int
}

type OrderHandler struct {
	Matcher         *engine.Matcher
	StartTime       time.Time
	OrdersReceived  int64
	OrdersMatched   int64
	OrdersAmended   int64
	OrdersCancelled int64
	OrdersRejected  int64
	FillsExecuted   int64

	defaultDepth int
	maxDepth     int
	latencies    []time.Duration
	latenciesMu  sync.RWMutex
	maxLatencies int
}

func NewOrderHandler(matcher *engine.Matcher, cfg Config) *OrderHandler {
	if cfg.MaxLatencies <= 0 {
		cfg.MaxLatencies = 10000
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 1000
	}
	if cfg.DefaultDepth <= 0 || cfg.DefaultDepth > cfg.MaxDepth {
		cfg.DefaultDepth = min(10, cfg.MaxDepth)
	}

	return &OrderHandler{
		Matcher:      matcher,
		StartTime:    time.Now(),
		defaultDepth: cfg.DefaultDepth,
		maxDepth:     cfg.MaxDepth,
		latencies:    make([]time.Duration, 0, cfg.MaxLatencies),
		maxLatencies: cfg.MaxLatencies,
	}
}

func (h *OrderHandler) SubmitOrder(c *fiber.Ctx) error {
	var req models.SubmitOrderRequest

	if err := c.BodyParser(&req); err != nil {
		log.Warn().
			Err(err).
			Str("ip", c.IP()).
			Str("path", c.Path()).
			Msg("Invalid request: malformed JSON")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request: malformed JSON",
		})
	}

	side, err := engine.ParseSide(strings.ToLower(req.Side))
	if err != nil {
		return h.reject(c, "add", err)
	}

	atomic.AddInt64(&h.OrdersReceived, 1)
	metrics.RecordOrderReceived(side.String())

	startTime := time.Now()
	fills, err := h.Matcher.Add(engine.Order{
		ID:       req.ID,
		Side:     side,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	latency := time.Since(startTime)
	h.recordLatency(latency)
	metrics.RecordAddLatency(latency.Seconds())

	if err != nil {
		return h.reject(c, "add", err)
	}

	infos := make([]models.FillInfo, 0, len(fills))
	var filledQty int64
	for _, f := range fills {
		filledQty += f.Quantity
		infos = append(infos, models.FillInfo{
			Price:          f.Price,
			Quantity:       f.Quantity,
			RestingOrderID: f.RestingID,
		})
	}

	if len(fills) > 0 {
		atomic.AddInt64(&h.OrdersMatched, 1)
	}
	atomic.AddInt64(&h.FillsExecuted, int64(len(fills)))
	metrics.RecordFills(len(fills), filledQty)
	metrics.SetOpenOrders(h.Matcher.OpenOrders())

	response := models.SubmitOrderResponse{
		OrderID:           req.ID,
		FilledQuantity:    filledQty,
		RemainingQuantity: req.Quantity - filledQty,
		Fills:             infos,
	}

	log.Info().
		Int64("order_id", req.ID).
		Str("side", side.String()).
		Float64("price", req.Price).
		Int64("quantity", req.Quantity).
		Int64("filled_quantity", filledQty).
		Int("fills_count", len(fills)).
		Msg("Order processed")

	switch {
	case filledQty == 0:
		response.Status = string(engine.StatusOpen)
		response.Message = "Order added to book"
		return c.Status(fiber.StatusCreated).JSON(response)
	case filledQty < req.Quantity:
		response.Status = string(engine.StatusPartial)
		return c.Status(fiber.StatusAccepted).JSON(response)
	default:
		response.Status = string(engine.StatusFilled)
		return c.Status(fiber.StatusOK).JSON(response)
	}
}

func (h *OrderHandler) AmendOrder(c *fiber.Ctx) error {
	id, err := orderIDParam(c)
	if err != nil {
		return err
	}

	var req models.AmendOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request: malformed JSON",
		})
	}

	if err := h.Matcher.Amend(id, req.Quantity); err != nil {
		return h.reject(c, "amend", err)
	}
	atomic.AddInt64(&h.OrdersAmended, 1)
	metrics.AmendsTotal.Inc()

	res, err := h.Matcher.Query(id)
	if err != nil {
		return h.reject(c, "amend", err)
	}

	log.Info().
		Int64("order_id", id).
		Int64("quantity", req.Quantity).
		Int("position", res.Position).
		Msg("Order amended")

	return c.Status(fiber.StatusOK).JSON(models.AmendOrderResponse{
		OrderID:  id,
		Quantity: res.Order.Quantity,
		Position: res.Position,
	})
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	id, err := orderIDParam(c)
	if err != nil {
		return err
	}

	if err := h.Matcher.Cancel(id); err != nil {
		return h.reject(c, "cancel", err)
	}

	atomic.AddInt64(&h.OrdersCancelled, 1)
	metrics.CancelsTotal.Inc()
	metrics.SetOpenOrders(h.Matcher.OpenOrders())

	log.Info().
		Int64("order_id", id).
		Str("ip", c.IP()).
		Msg("Order cancelled")

	return c.Status(fiber.StatusOK).JSON(models.CancelOrderResponse{
		OrderID: id,
		Status:  string(engine.StatusCancelled),
	})
}

func (h *OrderHandler) GetOrderStatus(c *fiber.Ctx) error {
	id, err := orderIDParam(c)
	if err != nil {
		return err
	}

	res, err := h.Matcher.Query(id)
	if err != nil {
		return h.reject(c, "query", err)
	}

	o := res.Order
	return c.Status(fiber.StatusOK).JSON(models.OrderStatusResponse{
		OrderID:        o.ID,
		Side:           o.Side.String(),
		Price:          o.Price,
		Quantity:       o.Quantity,
		FilledQuantity: o.FilledQty,
		Leaves:         o.Leaves(),
		Status:         string(o.Status()),
		Position:       res.Position,
	})
}

func (h *OrderHandler) GetLevel(c *fiber.Ctx) error {
	sideParam := strings.ToLower(c.Params("side"))
	side, err := engine.ParseSide(sideParam)
	if err != nil {
		return h.reject(c, "level", err)
	}

	level, err := strconv.Atoi(c.Params("level"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request: level must be an integer",
		})
	}

	price, size, err := h.Matcher.Level(side, level)
	if err != nil {
		return h.reject(c, "level", err)
	}

	return c.Status(fiber.StatusOK).JSON(models.LevelResponse{
		Side:  sideParam,
		Level: level,
		Price: price,
		Size:  size,
	})
}

func (h *OrderHandler) GetOrderBook(c *fiber.Ctx) error {
	depth, err := strconv.Atoi(c.Query("depth", strconv.Itoa(h.defaultDepth)))
	if err != nil || depth <= 0 {
		depth = h.defaultDepth
	}

	// edge case: enforce maximum depth limit
	if depth > h.maxDepth {
		depth = h.maxDepth
	}

	bidLevels, askLevels := h.Matcher.GetOrderBookSnapshot(depth)

	return c.Status(fiber.StatusOK).JSON(models.OrderBookResponse{
		Timestamp: time.Now().UnixMilli(),
		TickSize:  h.Matcher.TickSize(),
		Bids:      toLevelInfos(bidLevels),
		Asks:      toLevelInfos(askLevels),
	})
}

func toLevelInfos(levels []engine.LevelInfo) []models.PriceLevelInfo {
	infos := make([]models.PriceLevelInfo, 0, len(levels))
	for _, l := range levels {
		infos = append(infos, models.PriceLevelInfo{
			Price:    l.Price,
			Quantity: l.Size,
			Orders:   l.Orders,
		})
	}
	return infos
}

// reject maps a domain error to an HTTP status and logs it.
func (h *OrderHandler) reject(c *fiber.Ctx, operation string, err error) error {
	atomic.AddInt64(&h.OrdersRejected, 1)

	var terr *engine.TradingError
	if !errors.As(err, &terr) {
		log.Error().
			Err(err).
			Str("operation", operation).
			Msg("Unexpected error")
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: "Internal server error",
		})
	}

	metrics.RecordRejected(operation, string(terr.Kind))
	log.Warn().
		Str("operation", operation).
		Str("kind", string(terr.Kind)).
		Str("ip", c.IP()).
		Msg(terr.Message)

	return c.Status(statusFor(terr.Kind)).JSON(models.ErrorResponse{
		Error: terr.Message,
		Kind:  string(terr.Kind),
	})
}

func statusFor(kind engine.ErrorKind) int {
	switch kind {
	case engine.ErrOrderNotFound, engine.ErrLevelNotFound:
		return fiber.StatusNotFound
	case engine.ErrDuplicateOrder, engine.ErrOrderArchived, engine.ErrOrderNotResting:
		return fiber.StatusConflict
	default:
		return fiber.StatusBadRequest
	}
}

func orderIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid request: order id must be an integer")
	}
	return id, nil
}
