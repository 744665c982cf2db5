package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"gopairs/domain/core"
	"gopairs/domain/pricetable"
	"gopairs/internal/errors"
	"gopairs/ports"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// maxResponseBytes caps how much of a response body is read
const maxResponseBytes = 64 << 20

// Source describes a remote JSON endpoint that serves a price table
type Source struct {
	URL string `json:"url"`
	// DataPath is the gjson path of the instrument array
	DataPath    string            `json:"data_path"`
	IDField     string            `json:"id_field"`
	ValuesField string            `json:"values_field"`
	Headers     map[string]string `json:"headers"`
	AuthMethod  string            `json:"auth_method"` // "bearer", "api_key" or empty
	AuthToken   string            `json:"-"`
	Timeout     time.Duration     `json:"timeout"`
}

// DefaultSource reads the same body shape the screening API accepts:
// {"instruments":[{"id":"A","values":[...]}, ...]}
func DefaultSource(url string) Source {
	return Source{
		URL:         url,
		DataPath:    "instruments",
		IDField:     "id",
		ValuesField: "values",
		Timeout:     30 * time.Second,
	}
}

// APIReader fetches a price table from a REST endpoint
type APIReader struct {
	config     Source
	httpClient *http.Client
	log        logrus.FieldLogger
}

var _ ports.TableSource = (*APIReader)(nil)

// NewAPIReader creates a reader for a data source
func NewAPIReader(config Source, logger logrus.FieldLogger) *APIReader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &APIReader{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		log: logger.WithField("component", "api_reader"),
	}
}

// ReadTable retrieves and parses the configured endpoint
func (r *APIReader) ReadTable(ctx context.Context) (*pricetable.Table, error) {
	start := time.Now()

	req, err := r.buildRequest(ctx)
	if err != nil {
		return nil, core.NewInvalidInputError("url", err.Error())
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errors.ExternalService("price source request failed", err)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()
	if err != nil {
		return nil, errors.ExternalService("failed to read price source response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.ExternalService(fmt.Sprintf("price source returned status %d", resp.StatusCode), nil)
	}

	table, err := r.parseResponse(body)
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"url":          r.config.URL,
		"instruments":  table.Width(),
		"observations": table.Len(),
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Info("price table fetched")
	return table, nil
}

// buildRequest creates an HTTP request with authentication
func (r *APIReader) buildRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range r.config.Headers {
		req.Header.Set(k, v)
	}

	switch r.config.AuthMethod {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+r.config.AuthToken)
	case "api_key":
		req.Header.Set("X-API-Key", r.config.AuthToken)
	}
	return req, nil
}

// parseResponse extracts the instrument array from a JSON document
func (r *APIReader) parseResponse(body []byte) (*pricetable.Table, error) {
	if !gjson.ValidBytes(body) {
		return nil, core.NewInvalidInputError("response", "body is not valid JSON")
	}
	return ParseInstruments(body, r.config.DataPath, r.config.IDField, r.config.ValuesField)
}

// ParseInstruments builds a table from the array at dataPath. Each element
// carries an id at idField and a numeric array at valuesField.
func ParseInstruments(body []byte, dataPath, idField, valuesField string) (*pricetable.Table, error) {
	if dataPath == "" {
		dataPath = "@this"
	}
	data := gjson.GetBytes(body, dataPath)
	if !data.Exists() {
		return nil, core.NewInvalidInputError(dataPath, "path not found in response")
	}
	if !data.IsArray() {
		return nil, core.NewInvalidInputError(dataPath, "is not an array")
	}

	b := pricetable.NewBuilder()
	for i, elem := range data.Array() {
		field := fmt.Sprintf("%s.%d", dataPath, i)
		id := elem.Get(idField)
		if id.Type != gjson.String {
			return nil, core.NewInvalidInputError(field+"."+idField, "must be a string")
		}
		raw := elem.Get(valuesField)
		if !raw.IsArray() {
			return nil, core.NewInvalidInputError(field+"."+valuesField, "must be an array of numbers")
		}
		cells := raw.Array()
		values := make([]float64, len(cells))
		for j, cell := range cells {
			if cell.Type != gjson.Number {
				return nil, core.NewInvalidInputError(fmt.Sprintf("%s.%s.%d", field, valuesField, j), fmt.Sprintf("%s is not a number", cell.Raw))
			}
			values[j] = cell.Float()
		}
		b.AddColumn(core.InstrumentID(id.String()), values)
	}
	return b.Build()
}
