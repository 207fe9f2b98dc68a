package routes

import (
	"context"
	"encoding/json"
	"net/http"

	"vidcompress/airtable"
	"vidcompress/journal"
	"vidcompress/logger"
	"vidcompress/metalogger"
	"vidcompress/models"
	"vidcompress/utils"
)

// EventHandler handles raw completion events.
type EventHandler interface {
	Handle(ctx context.Context, raw json.RawMessage) models.Response
}

// MetadataService is the metadata logger plus its record administration.
type MetadataService interface {
	Handle(ctx context.Context, env models.Envelope) models.Response
	FindRecordByJobID(ctx context.Context, jobID string) metalogger.Lookup
	UpdateRecord(ctx context.Context, recordID string, fields airtable.Fields) (*airtable.Record, error)
	DeleteRecord(ctx context.Context, recordID string) metalogger.Outcome
}

// Server holds the dependencies of every HTTP route. Completion, Metadata and
// Journal may be nil; their routes then answer 503.
type Server struct {
	Completion EventHandler
	Metadata   MetadataService
	Journal    *journal.Journal

	// Token is required on /metadata when set.
	Token *utils.VerifyConfig
}

// Routes returns a mux with every endpoint registered.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/events/completion", s.CompletionHandler)
	mux.HandleFunc("/metadata", s.MetadataHandler)
	mux.HandleFunc("/records", s.RecordsHandler)
	mux.HandleFunc("/history", s.HistoryHandler)
	mux.HandleFunc("/health", s.HealthHandler)
	mux.HandleFunc("/version", VersionHandler)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

// writeResponse relays a handler Response as the HTTP status and body.
func writeResponse(w http.ResponseWriter, resp models.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	w.Write([]byte(resp.Body))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
