package router

import (
	"io"
	"net/http"
	"strings"

	"github.com/ruixin88/backtest-console/src/console-api/models"
	"github.com/ruixin88/backtest-console/src/console-api/services"
	"github.com/ruixin88/backtest-console/src/utils"
)

type KlineQueryRequest struct {
	Symbol      string `schema:"symbol"`
	Granularity string `schema:"time_granularity"`
	StartDate   string `schema:"start_date"`
	EndDate     string `schema:"end_date"`
	Page        int    `schema:"page"`
	PageSize    int    `schema:"page_size"`
}

func granularityFrom(raw string) (models.TimeGranularity, error) {
	if raw == "" {
		return models.TimeGranularityDaily, nil
	}

	g := models.TimeGranularity(raw)
	if err := g.Validate(); err != nil {
		return "", models.NewWebError(400, err.Error(), err)
	}

	return g, nil
}

func (s *Server) handleKlineGet(w http.ResponseWriter, r *http.Request) {
	var req KlineQueryRequest
	if err := decodeQuery(r, &req); err != nil {
		setErrorResponse("handleKlineGet", err, w)
		return
	}

	if req.Symbol == "" {
		setErrorResponse("handleKlineGet", models.NewWebError(400, "symbol is required", nil), w)
		return
	}

	granularity, err := granularityFrom(req.Granularity)
	if err != nil {
		setErrorResponse("handleKlineGet", err, w)
		return
	}

	from, to, err := utils.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		setErrorResponse("handleKlineGet", models.NewWebError(400, err.Error(), err), w)
		return
	}

	bars, err := s.klines.Query(req.Symbol, granularity, from, to)
	if err != nil {
		setErrorResponse("handleKlineGet", err, w)
		return
	}

	if err := setResponse(s.klines.Paginate(bars, req.Page, req.PageSize), w); err != nil {
		setErrorResponse("handleKlineGet", err, w)
	}
}

// csvBody returns the uploaded CSV stream, accepting either a multipart
// form field named "file" or a raw request body.
func csvBody(r *http.Request) (io.ReadCloser, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, models.NewWebError(400, "missing file field", err)
		}

		return file, nil
	}

	return r.Body, nil
}

func (s *Server) handleKlineImport(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		setErrorResponse("handleKlineImport", models.NewWebError(400, "symbol is required", nil), w)
		return
	}

	granularity, err := granularityFrom(r.URL.Query().Get("time_granularity"))
	if err != nil {
		setErrorResponse("handleKlineImport", err, w)
		return
	}

	body, err := csvBody(r)
	if err != nil {
		setErrorResponse("handleKlineImport", err, w)
		return
	}
	defer body.Close()

	count, err := s.klines.ImportCSV(body, symbol, granularity)
	if err != nil {
		setErrorResponse("handleKlineImport", models.NewWebError(400, err.Error(), err), w)
		return
	}

	if err := setResponse(map[string]interface{}{"symbol": symbol, "imported": count}, w); err != nil {
		setErrorResponse("handleKlineImport", err, w)
	}
}

func (s *Server) handleKlineDelete(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		setErrorResponse("handleKlineDelete", models.NewWebError(400, "symbol is required", nil), w)
		return
	}

	granularity, err := granularityFrom(r.URL.Query().Get("time_granularity"))
	if err != nil {
		setErrorResponse("handleKlineDelete", err, w)
		return
	}

	removed, err := s.klines.Delete(symbol, granularity)
	if err != nil {
		setErrorResponse("handleKlineDelete", err, w)
		return
	}

	if !removed {
		setErrorResponse("handleKlineDelete", models.NewWebError(404, "no data for symbol", nil), w)
		return
	}

	if err := setResponse(map[string]string{"symbol": symbol}, w); err != nil {
		setErrorResponse("handleKlineDelete", err, w)
	}
}

type PolygonImportRequest struct {
	Symbol      string `json:"symbol"`
	Granularity string `json:"time_granularity"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

func (s *Server) handlePolygonImport(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		setErrorResponse("handlePolygonImport", models.NewWebError(503, "polygon import is not configured", nil), w)
		return
	}

	var req PolygonImportRequest
	if err := decodeBody(r, &req); err != nil {
		setErrorResponse("handlePolygonImport", err, w)
		return
	}

	if req.Symbol == "" {
		setErrorResponse("handlePolygonImport", models.NewWebError(400, "symbol is required", nil), w)
		return
	}

	granularity, err := granularityFrom(req.Granularity)
	if err != nil {
		setErrorResponse("handlePolygonImport", err, w)
		return
	}

	from, err := models.ParseFlexibleTime(req.StartDate)
	if err != nil {
		setErrorResponse("handlePolygonImport", models.NewWebError(400, "invalid start_date", err), w)
		return
	}

	to, err := models.ParseFlexibleTime(req.EndDate)
	if err != nil {
		setErrorResponse("handlePolygonImport", models.NewWebError(400, "invalid end_date", err), w)
		return
	}

	count, err := s.importer.Import(r.Context(), req.Symbol, granularity, from, to)
	if err != nil {
		setErrorResponse("handlePolygonImport", models.NewWebError(502, err.Error(), err), w)
		return
	}

	if err := setResponse(map[string]interface{}{"symbol": req.Symbol, "imported": count}, w); err != nil {
		setErrorResponse("handlePolygonImport", err, w)
	}
}

// handleSymbolsDataCount summarizes every stored dataset per symbol and
// granularity for the data management screen.
func (s *Server) handleSymbolsDataCount(w http.ResponseWriter, r *http.Request) {
	granularities := []models.TimeGranularity{
		models.TimeGranularityDaily,
		models.TimeGranularityHourly,
		models.TimeGranularityMinute,
	}

	result := map[string]map[string]*services.DateRangeSummary{}
	for _, granularity := range granularities {
		symbols, err := s.klines.Symbols(granularity)
		if err != nil {
			setErrorResponse("handleSymbolsDataCount", err, w)
			return
		}

		for _, symbol := range symbols {
			summary, err := s.klines.DateRange(symbol, granularity)
			if err != nil {
				setErrorResponse("handleSymbolsDataCount", err, w)
				return
			}

			if _, ok := result[symbol]; !ok {
				result[symbol] = map[string]*services.DateRangeSummary{}
			}

			result[symbol][string(granularity)] = summary
		}
	}

	if err := setResponse(result, w); err != nil {
		setErrorResponse("handleSymbolsDataCount", err, w)
	}
}

func (s *Server) handleTrendGet(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		setErrorResponse("handleTrendGet", models.NewWebError(400, "symbol is required", nil), w)
		return
	}

	labels, err := s.trends.Read(symbol)
	if err != nil {
		setErrorResponse("handleTrendGet", err, w)
		return
	}

	dtos := make([]*models.TrendLabelDTO, 0, len(labels))
	for _, label := range labels {
		dtos = append(dtos, label.ToDTO())
	}

	if err := setResponse(dtos, w); err != nil {
		setErrorResponse("handleTrendGet", err, w)
	}
}

func (s *Server) handleTrendImport(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		setErrorResponse("handleTrendImport", models.NewWebError(400, "symbol is required", nil), w)
		return
	}

	body, err := csvBody(r)
	if err != nil {
		setErrorResponse("handleTrendImport", err, w)
		return
	}
	defer body.Close()

	count, err := s.trends.ImportCSV(body, symbol)
	if err != nil {
		setErrorResponse("handleTrendImport", models.NewWebError(400, err.Error(), err), w)
		return
	}

	if err := setResponse(map[string]interface{}{"symbol": symbol, "imported": count}, w); err != nil {
		setErrorResponse("handleTrendImport", err, w)
	}
}
