package routes

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"vidcompress/logger"
	"vidcompress/models"
	"vidcompress/utils"
)

const maxEventBytes = 1 << 20

// CompletionHandler accepts a MediaConvert job state change event.
func (s *Server) CompletionHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Completion event request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Completion == nil {
		writeError(w, http.StatusServiceUnavailable, "completion handler not configured")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	writeResponse(w, s.Completion.Handle(r.Context(), raw))
}

// MetadataHandler accepts an envelope for the metadata logger.
func (s *Server) MetadataHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Metadata request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Metadata == nil {
		writeError(w, http.StatusServiceUnavailable, "metadata logger not configured")
		return
	}

	var claims *models.InvokeClaims
	if s.Token != nil {
		var err error
		claims, err = s.verifyToken(r)
		if err != nil {
			logger.Warnf("Rejected metadata request from %s: %v", r.RemoteAddr, err)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
	}

	var env models.Envelope
	if err := json.NewDecoder(io.LimitReader(r.Body, maxEventBytes)).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid envelope: %v", err))
		return
	}

	if claims != nil && claims.JobID != "" && claims.JobID != env.JobID() {
		writeError(w, http.StatusForbidden, "token is not valid for this job")
		return
	}

	writeResponse(w, s.Metadata.Handle(r.Context(), env))
}

// verifyToken checks the bearer token against the configured secret.
func (s *Server) verifyToken(r *http.Request) (*models.InvokeClaims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("authorization header required")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return nil, fmt.Errorf("invalid authorization header format")
	}

	return utils.VerifyInvokeToken(token, *s.Token)
}
