package models

// InvokeClaims authorize a caller to submit envelopes to the metadata logger over HTTP.
type InvokeClaims struct {
	Issuer    string `json:"iss"` // optional
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	JobID     string `json:"job_id,omitempty"` // job the envelope is about
}
