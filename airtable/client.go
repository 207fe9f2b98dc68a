// Package airtable adapts github.com/mehanizm/airtable to the record
// operations the metadata logger needs on a single table.
package airtable

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	at "github.com/mehanizm/airtable"
)

// DefaultAPIURL is the public Airtable API host.
const DefaultAPIURL = "https://api.airtable.com"

// ErrRecordNotFound is matched by errors.Is for 404 responses.
var ErrRecordNotFound = errors.New("airtable: record not found")

// Fields is a record's field map as sent to and returned by the API.
type Fields map[string]interface{}

type Record struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime,omitempty"`
	Fields      Fields `json:"fields"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("airtable error (status %d, %s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("airtable error (status %d, %s)", e.StatusCode, e.Type)
}

func (e *APIError) Is(target error) bool {
	return target == ErrRecordNotFound && e.StatusCode == http.StatusNotFound
}

// ListOptions narrows a List call.
type ListOptions struct {
	FilterByFormula string
	MaxRecords      int
}

// Client talks to one table of one base.
type Client struct {
	BaseURL string
	BaseID  string
	Table   string

	api   *at.Client
	table *at.Table
	err   error // invalid BaseURL, reported by every call
}

func NewClient(baseURL, baseID, table, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	c := &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		BaseID:  baseID,
		Table:   table,
		api:     at.NewClient(apiKey),
	}
	if err := c.api.SetBaseURL(c.BaseURL + "/v0"); err != nil {
		c.err = fmt.Errorf("airtable: invalid API URL %q: %w", baseURL, err)
	}
	c.table = c.api.GetTable(baseID, table)
	return c
}

// TableURL is https://api.airtable.com/v0/{baseId}/{tableName}.
func (c *Client) TableURL() string {
	return fmt.Sprintf("%s/v0/%s/%s", c.BaseURL, url.PathEscape(c.BaseID), url.PathEscape(c.Table))
}

func (c *Client) ready(ctx context.Context) error {
	if c.err != nil {
		return c.err
	}
	return ctx.Err()
}

// Create inserts one record and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, fields Fields) (*Record, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	out, err := c.table.AddRecords(&at.Records{Records: []*at.Record{{Fields: fields}}})
	if err != nil {
		return nil, apiError("create", err)
	}
	rec := first(out)
	if rec == nil || rec.ID == "" {
		return nil, errors.New("airtable: create response carried no record id")
	}
	return rec, nil
}

// Update patches the given fields of record id.
func (c *Client) Update(ctx context.Context, id string, fields Fields) (*Record, error) {
	if id == "" {
		return nil, errors.New("airtable: record id required")
	}
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	out, err := c.table.UpdateRecordsPartial(&at.Records{Records: []*at.Record{{ID: id, Fields: fields}}})
	if err != nil {
		return nil, apiError("update", err)
	}
	rec := first(out)
	if rec == nil {
		return nil, &APIError{StatusCode: http.StatusNotFound, Type: "NOT_FOUND", Message: "update returned no record " + id}
	}
	return rec, nil
}

// List returns the first page of records matching opts.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	req := c.table.GetRecords()
	if opts.FilterByFormula != "" {
		req = req.WithFilterFormula(opts.FilterByFormula)
	}
	if opts.MaxRecords > 0 {
		req = req.MaxRecords(opts.MaxRecords)
	}
	out, err := req.Do()
	if err != nil {
		return nil, apiError("list", err)
	}

	records := make([]Record, 0, len(out.Records))
	for _, r := range out.Records {
		records = append(records, convert(r))
	}
	return records, nil
}

// Delete removes record id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("airtable: record id required")
	}
	if err := c.ready(ctx); err != nil {
		return err
	}
	if _, err := c.table.DeleteRecords([]string{id}); err != nil {
		return apiError("delete", err)
	}
	return nil
}

func first(out *at.Records) *Record {
	if out == nil || len(out.Records) == 0 || out.Records[0] == nil {
		return nil
	}
	rec := convert(out.Records[0])
	return &rec
}

func convert(r *at.Record) Record {
	return Record{ID: r.ID, CreatedTime: r.CreatedTime, Fields: Fields(r.Fields)}
}

var errorType = regexp.MustCompile(`"type"\s*:\s*"([^"]+)"|"error"\s*:\s*"([^"]+)"`)

// apiError turns the library's HTTP error into an *APIError. The library
// carries the response body inside its message, so the Airtable error type
// is read back out of it.
func apiError(op string, err error) error {
	var httpErr *at.HTTPClientError
	if !errors.As(err, &httpErr) {
		return fmt.Errorf("airtable %s request failed: %w", op, err)
	}

	apiErr := &APIError{StatusCode: httpErr.StatusCode, Type: http.StatusText(httpErr.StatusCode)}
	if httpErr.Err != nil {
		apiErr.Message = strings.TrimSpace(httpErr.Err.Error())
		if m := errorType.FindStringSubmatch(apiErr.Message); m != nil {
			apiErr.Type = m[1] + m[2]
		}
	}
	return apiErr
}

// EqualsFormula builds {field}='value' with the value's quotes and backslashes escaped.
func EqualsFormula(field, value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return fmt.Sprintf("{%s}='%s'", field, escaped)
}
