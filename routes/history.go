package routes

import (
	"net/http"

	"vidcompress/journal"
	"vidcompress/logger"
)

// HistoryHandler lists journaled invocations, optionally for one job_id.
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal not configured")
		return
	}

	var (
		entries []journal.Entry
		err     error
	)
	if jobID := r.URL.Query().Get("job_id"); jobID != "" {
		entries, err = s.Journal.ListByJob(jobID)
	} else {
		entries, err = s.Journal.List()
	}
	if err != nil {
		logger.Errorf("Failed to list journal: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
