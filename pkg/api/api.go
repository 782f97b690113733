package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"teamsbridge/pkg/bot"
	"teamsbridge/pkg/inspector"
)

type API struct {
	ServiceName string

	r  *mux.Router
	d  *bot.Dispatcher
	kw *kafka.Writer
}

// New builds the API. The dispatcher and the Kafka writer are both
// optional: without a dispatcher inbound activities are logged only, without
// a writer no request summaries are shipped.
func New(name string, dispatcher *bot.Dispatcher, kafkaWriter *kafka.Writer) *API {
	api := API{
		ServiceName: name,
		r:           mux.NewRouter(),
		d:           dispatcher,
		kw:          kafkaWriter,
	}
	api.endpoints()

	return &api
}

func (api *API) Router() *mux.Router {
	return api.r
}

func (api *API) endpoints() {
	api.r.Use(api.requestIDMiddleware)
	api.r.Use(api.headerMiddleware)

	if api.kw != nil {
		api.r.Use(api.loggingMiddleware(api.kw))
	}

	api.r.HandleFunc(inspector.Route, api.inspectHandler).Methods(
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodHead, http.MethodOptions)
	api.r.HandleFunc("/health", api.healthHandler).Methods(http.MethodGet)
}

// inspectHandler dumps every inbound request to the log and always
// acknowledges with 200. Decode and parse problems show up in the log only,
// never in the response; a dispatch failure is absorbed the same way.
func (api *API) inspectHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	rec := inspector.Capture(r)
	for _, line := range rec.Lines() {
		log.Info(line)
	}

	if api.d != nil && rec.HasJSON() {
		api.dispatch(r.Context(), rec, sID)
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(rec.Ack()); err != nil {
		log.Errorf("[inspectHandler][%s] error encoding response: %v", sID, err)
	}
}

func (api *API) dispatch(ctx context.Context, rec *inspector.Record, sID string) {
	var activity bot.Activity
	if err := json.Unmarshal([]byte(rec.BodyRaw), &activity); err != nil {
		log.Debugf("[inspectHandler][%s] body is not an activity: %v", sID, err)
		return
	}
	if !activity.IsMessage() {
		log.Debugf("[inspectHandler][%s] JSON body is not a message activity", sID)
		return
	}

	if err := api.d.Dispatch(ctx, &activity); err != nil {
		log.Errorf("[inspectHandler][%s] dispatch failed: %v", sID, err)
	}
}

func (api *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Errorf("[healthHandler] error encoding response: %v", err)
	}
}

// GetRequestID extracts the request ID from the context.
// It returns the request ID as a string if present, otherwise returns an empty string.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// shorten truncates a string to 6 characters if it is longer than 6, appends '...' at the end,
// otherwise it returns the string unchanged.
func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
