package api

import (
	"time"

	models "Conflux/internal/domain/models"
	"Conflux/internal/health"
	"Conflux/internal/usecase"
	xhttp "Conflux/pkg/http"
	xlogger "Conflux/pkg/logger"
	xutil "Conflux/pkg/util"

	"github.com/labstack/echo/v4"
)

// decisionLister is satisfied by the confluence engine.
type decisionLister interface {
	History() []models.ConfluenceDecision
	Last() (models.ConfluenceDecision, bool)
}

// tradeLister is satisfied by the simulator.
type tradeLister interface {
	Trades() []models.Trade
}

// StatusHandler serves the session status, decision history and trade ledger.
type StatusHandler struct {
	logger    *xlogger.Logger
	pipeline  *usecase.Pipeline
	monitor   *health.Monitor
	decisions decisionLister
	trades    tradeLister
	timeframe string
}

func NewStatusHandler(
	logger *xlogger.Logger,
	pipeline *usecase.Pipeline,
	monitor *health.Monitor,
	decisions decisionLister,
	trades tradeLister,
	timeframe string,
) *StatusHandler {
	return &StatusHandler{
		logger:    logger,
		pipeline:  pipeline,
		monitor:   monitor,
		decisions: decisions,
		trades:    trades,
		timeframe: timeframe,
	}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/decisions", h.Decisions)
	g.GET("/trades", h.Trades)
}

// Status reports session stats, the degradation snapshot and the latest
// decision. Consumers poll this instead of inferring health from silence.
func (h *StatusHandler) Status(c echo.Context) error {
	payload := map[string]interface{}{
		"session": h.pipeline.Session(),
		"health":  h.monitor.Status(),
	}
	if last, ok := h.decisions.Last(); ok {
		payload["last_decision"] = last
	}
	return xhttp.SuccessResponse(c, payload)
}

func (h *StatusHandler) Decisions(c echo.Context) error {
	req := &models.DecisionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to := h.timeRange(req.From, req.To)

	all := h.decisions.History()
	out := make([]models.ConfluenceDecision, 0, len(all))
	for _, d := range all {
		if d.Timestamp.Before(from) || d.Timestamp.After(to) {
			continue
		}
		out = append(out, d)
	}
	if len(out) > req.Limit {
		out = out[len(out)-req.Limit:]
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

func (h *StatusHandler) Trades(c echo.Context) error {
	req := &models.TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to := h.timeRange(req.From, req.To)

	all := h.trades.Trades()
	out := make([]models.Trade, 0, len(all))
	for _, t := range all {
		if t.ClosedAt.Before(from) || t.ClosedAt.After(to) {
			continue
		}
		out = append(out, t)
	}
	if len(out) > req.Limit {
		out = out[len(out)-req.Limit:]
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

// timeRange resolves optional query bounds, aligned down to candle
// boundaries; absent values leave the range open on that side.
func (h *StatusHandler) timeRange(fromStr, toStr string) (from, to time.Time) {
	from = xutil.ParseTimeDefault(fromStr, time.Time{})
	to = xutil.ParseTimeDefault(toStr, time.Unix(1<<40, 0))
	if !from.IsZero() || toStr != "" {
		from, to = xutil.AlignFromTo(from, to, h.timeframe)
	}
	return
}
