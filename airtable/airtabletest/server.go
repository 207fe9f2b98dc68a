// Package airtabletest provides an in-memory Airtable table served over
// httptest for use in tests.
package airtabletest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Record mirrors one stored row.
type Record struct {
	ID     string                 `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

// Server is a fake table. Only equality formulas of the form {Field}='value' are understood.
type Server struct {
	*httptest.Server

	APIKey string

	mu       sync.Mutex
	records  []Record
	nextID   int
	requests []string
	failNext int // status code to return on the next request, 0 for none
}

var equalsFormula = regexp.MustCompile(`^\{([^}]+)\}='((?:[^'\\]|\\.)*)'$`)

// NewServer starts a fake table expecting bearer token apiKey.
func NewServer(apiKey string) *Server {
	s := &Server{APIKey: apiKey}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Records returns a copy of the stored rows in insertion order.
func (s *Server) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Requests returns "METHOD path" for every request received.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

// FailNext makes the next request answer with status.
func (s *Server) FailNext(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = status
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, r.Method+" "+r.URL.Path)

	if s.failNext != 0 {
		status := s.failNext
		s.failNext = 0
		writeError(w, status, "SERVER_ERROR", "injected failure")
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+s.APIKey {
		writeError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "Authentication required")
		return
	}

	// /v0/{base}/{table}; writes are batch requests against the table itself.
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "v0" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown path")
		return
	}

	switch r.Method {
	case http.MethodPost:
		body, ok := decodeBatch(w, r)
		if !ok {
			return
		}
		created := []Record{}
		for _, in := range body.Records {
			s.nextID++
			rec := Record{ID: fmt.Sprintf("rec%014d", s.nextID), Fields: in.Fields}
			if rec.Fields == nil {
				rec.Fields = map[string]interface{}{}
			}
			s.records = append(s.records, rec)
			created = append(created, rec)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"records": created})

	case http.MethodGet:
		matches := []Record{}
		q := r.URL.Query()
		formula := q.Get("filterByFormula")
		limit, _ := strconv.Atoi(q.Get("maxRecords"))
		for _, rec := range s.records {
			if limit > 0 && len(matches) == limit {
				break
			}
			if formula == "" || matchFormula(formula, rec) {
				matches = append(matches, rec)
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"records": matches})

	case http.MethodPatch:
		body, ok := decodeBatch(w, r)
		if !ok {
			return
		}
		for _, in := range body.Records {
			if s.indexOf(in.ID) < 0 {
				writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find record "+in.ID)
				return
			}
		}
		updated := []Record{}
		for _, in := range body.Records {
			idx := s.indexOf(in.ID)
			for k, v := range in.Fields {
				s.records[idx].Fields[k] = v
			}
			updated = append(updated, s.records[idx])
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"records": updated})

	case http.MethodDelete:
		ids := r.URL.Query()["records[]"]
		for _, id := range ids {
			if s.indexOf(id) < 0 {
				writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find record "+id)
				return
			}
		}
		deleted := []map[string]interface{}{}
		for _, id := range ids {
			idx := s.indexOf(id)
			s.records = append(s.records[:idx], s.records[idx+1:]...)
			deleted = append(deleted, map[string]interface{}{"id": id, "deleted": true})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"records": deleted})

	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method)
	}
}

type batch struct {
	Records []Record `json:"records"`
}

func decodeBatch(w http.ResponseWriter, r *http.Request) (batch, bool) {
	var body batch
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", err.Error())
		return body, false
	}
	return body, true
}

func (s *Server) indexOf(id string) int {
	for i, rec := range s.records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func matchFormula(formula string, rec Record) bool {
	m := equalsFormula.FindStringSubmatch(formula)
	if m == nil {
		return false
	}
	want := strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(m[2])
	got, ok := rec.Fields[m[1]].(string)
	return ok && got == want
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, typ, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"type": typ, "message": message},
	})
}
