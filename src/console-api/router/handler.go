package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ruixin88/backtest-console/src/console-api/models"
	"github.com/ruixin88/backtest-console/src/console-api/services"
	"github.com/ruixin88/backtest-console/src/eventpubsub"
)

// queryDecoder decodes list-endpoint query strings into typed request
// structs. It is safe for concurrent use.
var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// Server carries the shared dependencies of every console endpoint.
type Server struct {
	db       *gorm.DB
	klines   *services.KlineStore
	trends   *services.TrendStore
	runner   *services.TaskRunner
	pubsub   *eventpubsub.PubSub
	importer *services.PolygonImporter
}

func NewServer(db *gorm.DB, klines *services.KlineStore, trends *services.TrendStore, runner *services.TaskRunner, pubsub *eventpubsub.PubSub, importer *services.PolygonImporter) *Server {
	return &Server{
		db:       db,
		klines:   klines,
		trends:   trends,
		runner:   runner,
		pubsub:   pubsub,
		importer: importer,
	}
}

func setResponse(data interface{}, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)

	resp := models.ApiResponse{Code: 200, Msg: "success", Data: data}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		return fmt.Errorf("setResponse: encode: %w", err)
	}

	return nil
}

// setErrorResponse maps a WebError to its status code and anything else
// to a 500, always inside the shared envelope.
func setErrorResponse(prefix string, err error, w http.ResponseWriter) {
	statusCode := 500
	msg := err.Error()

	var webErr *models.WebError
	if errors.As(err, &webErr) {
		statusCode = webErr.StatusCode
		msg = webErr.Message
	}

	if statusCode >= 500 {
		log.Errorf("%s: %v", prefix, err)
	} else {
		log.Warnf("%s: %v", prefix, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := models.ApiResponse{Code: statusCode, Msg: msg}
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		log.Errorf("%s: failed to encode error response: %v", prefix, encodeErr)
	}
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.NewWebError(400, "invalid request body", err)
	}

	return nil
}

func decodeQuery(r *http.Request, dst interface{}) error {
	if err := r.ParseForm(); err != nil {
		return models.NewWebError(400, "invalid query string", err)
	}

	if err := queryDecoder.Decode(dst, r.Form); err != nil {
		return models.NewWebError(400, "invalid query parameters", err)
	}

	return nil
}

// SetupHandler registers every console route on the router.
func SetupHandler(router *mux.Router, s *Server) {
	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	router.HandleFunc("/task/create", s.handleTaskCreate).Methods("POST")
	router.HandleFunc("/task/list", s.handleTaskList).Methods("GET")
	router.HandleFunc("/task/monitor", s.handleTaskMonitor).Methods("GET")
	router.HandleFunc("/task/progress/{id}", s.handleTaskProgress).Methods("GET")
	router.HandleFunc("/task/{id}", s.handleTaskGet).Methods("GET")
	router.HandleFunc("/task/{id}/start", s.handleTaskStart).Methods("POST")
	router.HandleFunc("/task/{id}/stop", s.handleTaskStop).Methods("POST")
	router.HandleFunc("/task/{id}/pause", s.handleTaskPause).Methods("POST")
	router.HandleFunc("/task/{id}/resume", s.handleTaskResume).Methods("POST")
	router.HandleFunc("/task/{id}", s.handleTaskDelete).Methods("DELETE")

	router.HandleFunc("/ws/monitor", s.handleMonitorSocket)

	router.HandleFunc("/account/list", s.handleAccountList).Methods("GET")
	router.HandleFunc("/account/{id}", s.handleAccountGet).Methods("GET")
	router.HandleFunc("/account/{id}/snapshots", s.handleAccountSnapshots).Methods("GET")

	router.HandleFunc("/trade/list", s.handleTradeList).Methods("GET")

	router.HandleFunc("/decision/list", s.handleDecisionList).Methods("GET")
	router.HandleFunc("/decision/{id}", s.handleDecisionGet).Methods("GET")

	router.HandleFunc("/market/kline", s.handleKlineGet).Methods("GET")
	router.HandleFunc("/market/kline/import", s.handleKlineImport).Methods("POST")
	router.HandleFunc("/market/kline", s.handleKlineDelete).Methods("DELETE")
	router.HandleFunc("/market/kline/polygon", s.handlePolygonImport).Methods("POST")
	router.HandleFunc("/market/symbols-data-count", s.handleSymbolsDataCount).Methods("GET")
	router.HandleFunc("/market/trend", s.handleTrendGet).Methods("GET")
	router.HandleFunc("/market/trend/import", s.handleTrendImport).Methods("POST")

	router.HandleFunc("/prompt/list", s.handlePromptList).Methods("GET")
	router.HandleFunc("/prompt/create", s.handlePromptCreate).Methods("POST")
	router.HandleFunc("/prompt/{id}", s.handlePromptGet).Methods("GET")
	router.HandleFunc("/prompt/{id}", s.handlePromptUpdate).Methods("PUT")
	router.HandleFunc("/prompt/{id}", s.handlePromptDelete).Methods("DELETE")

	router.HandleFunc("/ai-config/list", s.handleAIConfigList).Methods("GET")
	router.HandleFunc("/ai-config/create", s.handleAIConfigCreate).Methods("POST")
	router.HandleFunc("/ai-config/{id}", s.handleAIConfigGet).Methods("GET")
	router.HandleFunc("/ai-config/{id}", s.handleAIConfigUpdate).Methods("PUT")
	router.HandleFunc("/ai-config/{id}", s.handleAIConfigDelete).Methods("DELETE")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := setResponse(map[string]string{"status": "ok"}, w); err != nil {
		setErrorResponse("handleHealth", err, w)
	}
}

// pathID pulls the {id} route variable.
func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}
