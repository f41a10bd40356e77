package chart

import (
	"fmt"
	"math"
	"time"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

// DrillDownContext carries the active task and account selection alongside
// a drill-down request.
type DrillDownContext struct {
	TaskID      string
	AccountID   string
	StockSymbol string
}

// DrillDownFunc receives the original (non-bucketed) bar timestamp of a
// clicked point. The consumer is external; typically it opens a detail
// panel scoped to that moment.
type DrillDownFunc func(timestamp time.Time, ctx DrillDownContext)

// Controller owns the aligned rows and the zoom state for one chart
// session. All methods run synchronously on the caller's goroutine; the
// rows are rebuilt wholesale on refresh, never patched, so alignment and
// range math always observe a consistent table.
type Controller struct {
	granularity  models.TimeGranularity
	context      DrillDownContext
	onDrillDown  DrillDownFunc
	rows         []AlignedRow
	window       ViewportWindow
	windowSet    bool
	timeByBucket map[string]time.Time
}

func NewController(granularity models.TimeGranularity, ctx DrillDownContext, onDrillDown DrillDownFunc) *Controller {
	return &Controller{
		granularity:  granularity,
		context:      ctx,
		onDrillDown:  onDrillDown,
		timeByBucket: map[string]time.Time{},
	}
}

// OnDataRefresh re-aligns all series from fresh API responses. The
// viewport window is carried over by raw index and only clamped to the new
// row count; when the count changes the window may cover a different time
// range than before the refresh. Re-anchoring by timestamp is a pending
// product decision.
func (c *Controller) OnDataRefresh(bars []Bar, equityPoints []EquityPoint, trades []TradeEvent, trendLabels []TrendLabel) {
	c.rows = Align(bars, equityPoints, trades, trendLabels, c.granularity)

	c.timeByBucket = make(map[string]time.Time, len(c.rows))
	for _, row := range c.rows {
		c.timeByBucket[row.BucketKey] = row.Bar.Timestamp
	}

	if len(c.rows) == 0 {
		c.window = ViewportWindow{}
		c.windowSet = false
		return
	}

	if !c.windowSet {
		c.window = ViewportWindow{StartIndex: 0, EndIndex: len(c.rows) - 1}
		return
	}

	if c.window.EndIndex > len(c.rows)-1 {
		c.window.EndIndex = len(c.rows) - 1
	}

	if c.window.StartIndex > c.window.EndIndex {
		c.window.StartIndex = c.window.EndIndex
	}
}

// OnZoom converts the rendering surface's [0,100] percentage range into
// row indices and updates the viewport.
func (c *Controller) OnZoom(startPercent, endPercent float64) {
	n := len(c.rows)
	if n == 0 {
		c.window = ViewportWindow{}
		return
	}

	start := int(math.Floor(startPercent * float64(n-1) / 100))
	end := int(math.Ceil(endPercent * float64(n-1) / 100))

	if start < 0 {
		start = 0
	}

	if end > n-1 {
		end = n - 1
	}

	if start > end {
		start = end
	}

	c.window = ViewportWindow{StartIndex: start, EndIndex: end}
	c.windowSet = true
}

// OnPointClick resolves a clicked bucket back to the true bar timestamp
// and emits a drill-down request. The axis shows formatted bucket keys, so
// the reverse map is required to recover the exact moment.
func (c *Controller) OnPointClick(seriesKind string, bucketKey string) error {
	timestamp, ok := c.timeByBucket[bucketKey]
	if !ok {
		return fmt.Errorf("OnPointClick: unknown bucket %q for series %s", bucketKey, seriesKind)
	}

	if c.onDrillDown != nil {
		c.onDrillDown(timestamp, c.context)
	}

	return nil
}

// AlignedRows returns the current aligned table. Callers treat it as a
// read-only snapshot.
func (c *Controller) AlignedRows() []AlignedRow {
	return c.rows
}

// Window returns the current viewport.
func (c *Controller) Window() ViewportWindow {
	return c.window
}

// AxisRange computes the padded value-axis range for the visible window
// over the given overlaid series.
func (c *Controller) AxisRange(selectors ...SeriesSelector) AxisRange {
	return ComputeRange(c.rows, c.window, selectors)
}
