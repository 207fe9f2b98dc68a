package invoke

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"vidcompress/models"
	"vidcompress/utils"
)

// TokenTTL bounds how long a signed invocation token stays valid.
const TokenTTL = 5 * time.Minute

// HTTP posts envelopes to a metadata logger served over HTTP. When Secret is
// set every request carries an HS256 bearer token scoped to the job.
type HTTP struct {
	URL    string
	Secret []byte
	Issuer string
	Client *http.Client
}

func NewHTTP(url string, secret []byte, issuer string) *HTTP {
	return &HTTP{
		URL:    url,
		Secret: secret,
		Issuer: issuer,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *HTTP) LogEvent(ctx context.Context, env models.Envelope) (models.Response, error) {
	payload, err := marshalEnvelope(env)
	if err != nil {
		return models.Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(payload))
	if err != nil {
		return models.Response{}, fmt.Errorf("failed to create logger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if len(h.Secret) > 0 {
		token, err := utils.CreateInvokeToken(utils.NewInvokeClaims(h.Issuer, env.JobID(), TokenTTL), h.Secret)
		if err != nil {
			return models.Response{}, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return models.Response{}, fmt.Errorf("logger request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Response{}, fmt.Errorf("failed to read logger response: %w", err)
	}
	return models.Response{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
