package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/providers"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// maxErrorBody bounds how much of a failed response is kept for the error
const maxErrorBody = 512

// TokenSource supplies the bearer token sent with every request
type TokenSource interface {
	Token() string
}

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("backend %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// HTTPClient talks to the hospital REST backend
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

var _ providers.ReceptionBackend = (*HTTPClient)(nil)

// NewClient creates a backend client. tokens may be nil.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
	}
}

// TodayAppointmentsGrouped calls GET /today-appointments-grouped?date=
func (c *HTTPClient) TodayAppointmentsGrouped(ctx context.Context, date string) (*entities.GroupedAppointments, error) {
	out := &entities.GroupedAppointments{}
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("/today-appointments-grouped", date), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReceptionDashboardStats calls GET /reception-dashboard-stats
func (c *HTTPClient) ReceptionDashboardStats(ctx context.Context) (*entities.ReceptionDashboardStats, error) {
	out := &entities.ReceptionDashboardStats{}
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("/reception-dashboard-stats", ""), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// PatientsByDate calls GET /patients-by-date?date=. The backend returns a bare
// array; some deployments wrap it in {"data": [...]}.
func (c *HTTPClient) PatientsByDate(ctx context.Context, date string) ([]entities.Appointment, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("/patients-by-date", date), nil, &raw); err != nil {
		return nil, err
	}
	return decodeAppointmentList(raw)
}

func decodeAppointmentList(raw json.RawMessage) ([]entities.Appointment, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []entities.Appointment{}, nil
	}

	if trimmed[0] == '[' {
		var list []entities.Appointment
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to decode patients: %w", err)
		}
		return list, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode patients: %w", err)
	}
	for _, key := range []string{"data", "patients", "appointments"} {
		if inner, ok := wrapped[key]; ok {
			return decodeAppointmentList(inner)
		}
	}
	return nil, fmt.Errorf("failed to decode patients: unexpected response shape")
}

func (c *HTTPClient) endpoint(path, date string) string {
	endpoint := c.baseURL + path
	if date != "" {
		endpoint = fmt.Sprintf("%s?date=%s", endpoint, url.QueryEscape(date))
	}
	return endpoint
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, body io.Reader, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("backend request %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode backend response from %s: %w", endpoint, err)
	}

	return nil
}
