package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"vidcompress/airtable"
	"vidcompress/logger"
	"vidcompress/metalogger"
)

// RecordsHandler administers record store rows.
//
//	GET    /records?job_id=...  find the record logged for a job
//	PATCH  /records?id=...      update fields, body {"fields": {...}}
//	DELETE /records?id=...      delete a record
func (s *Server) RecordsHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Records request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if s.Metadata == nil {
		writeError(w, http.StatusServiceUnavailable, "metadata logger not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.findRecord(w, r)
	case http.MethodPatch:
		s.updateRecord(w, r)
	case http.MethodDelete:
		s.deleteRecord(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) findRecord(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		http.Error(w, "Missing job_id parameter", http.StatusBadRequest)
		return
	}

	lookup := s.Metadata.FindRecordByJobID(r.Context(), jobID)
	switch lookup.Status {
	case metalogger.Found:
		writeJSON(w, http.StatusOK, map[string]interface{}{"jobId": jobID, "recordId": lookup.RecordID})
	case metalogger.NotFound:
		writeError(w, http.StatusNotFound, "no record for job "+jobID)
	default:
		writeError(w, http.StatusBadGateway, lookup.Err.Error())
	}
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	var body struct {
		Fields airtable.Fields `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Fields) == 0 {
		http.Error(w, "Body must be {\"fields\": {...}}", http.StatusBadRequest)
		return
	}

	rec, err := s.Metadata.UpdateRecord(r.Context(), id, body.Fields)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, airtable.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	out := s.Metadata.DeleteRecord(r.Context(), id)
	switch out.Status {
	case metalogger.Deleted:
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "deleted": true})
	case metalogger.DeleteNotFound:
		writeError(w, http.StatusNotFound, "record "+id+" not found")
	default:
		writeError(w, http.StatusBadGateway, out.Err.Error())
	}
}
