package store

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

	"github.com/awardintel/award-engine/internal/observation"
	"github.com/awardintel/award-engine/internal/pkg/errors"
	"github.com/awardintel/award-engine/internal/pkg/httpclient"
	"github.com/awardintel/award-engine/internal/pkg/security"
)

// PostgRESTConfig holds the hosted REST endpoint settings.
type PostgRESTConfig struct {
	URL     string        // project URL, e.g. https://xyz.supabase.co
	Key     string        // anon or service key
	Table   string        // target table
	Timeout time.Duration // per-request timeout (default: 10s)
}

// PostgRESTStore talks to a Supabase-style PostgREST API.
type PostgRESTStore struct {
	base   string
	key    string
	table  string
	client *http.Client
}

// insertRow is the request body; captured_at is left to the database default.
type insertRow struct {
	Airline       string  `json:"airline"`
	Program       string  `json:"program"`
	MilesRequired int     `json:"miles_required"`
	TaxUSD        float64 `json:"tax_usd"`
}

// snapshotRow is a selected row. captured_at may come back with or without
// a UTC offset depending on the column type.
type snapshotRow struct {
	Airline       string    `json:"airline"`
	Program       string    `json:"program"`
	MilesRequired int       `json:"miles_required"`
	TaxUSD        float64   `json:"tax_usd"`
	CapturedAt    timestamp `json:"captured_at"`
}

func (r snapshotRow) award() observation.AwardObservation {
	return observation.AwardObservation{
		Airline:       r.Airline,
		Program:       r.Program,
		MilesRequired: r.MilesRequired,
		TaxUSD:        r.TaxUSD,
		CapturedAt:    time.Time(r.CapturedAt),
	}
}

func toObservations(rows []snapshotRow) []observation.AwardObservation {
	out := make([]observation.AwardObservation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.award())
	}
	return out
}

// timestampLayouts are tried in order. Values without an offset are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// timestamp decodes timestamptz and timestamp columns alike.
type timestamp time.Time

func (t *timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if v, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*t = timestamp(v)
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// apiError is the PostgREST error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// NewPostgREST creates a PostgREST-backed store.
func NewPostgREST(cfg PostgRESTConfig) (*PostgRESTStore, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.ConfigurationError("store URL cannot be empty")
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, errors.ConfigurationError("store key cannot be empty")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.ConfigurationError(fmt.Sprintf("invalid store URL: %q", cfg.URL))
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}

	return &PostgRESTStore{
		base:   strings.TrimRight(cfg.URL, "/") + "/rest/v1/",
		key:    cfg.Key,
		table:  cfg.Table,
		client: httpclient.New(cfg.Timeout),
	}, nil
}

func (s *PostgRESTStore) Name() string  { return "postgrest" }
func (s *PostgRESTStore) Table() string { return s.table }

// Insert posts one row and counts the rows echoed back.
func (s *PostgRESTStore) Insert(ctx context.Context, obs observation.AwardObservation) (int, error) {
	body, err := json.Marshal([]insertRow{{
		Airline:       obs.Airline,
		Program:       obs.Program,
		MilesRequired: obs.MilesRequired,
		TaxUSD:        obs.TaxUSD,
	}})
	if err != nil {
		return 0, errors.InternalError("encoding row", err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, nil, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	var rows []snapshotRow
	status, err := s.do(req, "insert", &rows)
	if err != nil {
		return 0, err
	}

	if len(rows) == 0 && status == http.StatusCreated {
		return 1, nil
	}
	return len(rows), nil
}

// Latest fetches the newest snapshot by captured_at.
func (s *PostgRESTStore) Latest(ctx context.Context) (observation.AwardObservation, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "captured_at.desc")
	q.Set("limit", "1")

	req, err := s.newRequest(ctx, http.MethodGet, q, nil)
	if err != nil {
		return observation.AwardObservation{}, err
	}

	var rows []snapshotRow
	if _, err := s.do(req, "select latest", &rows); err != nil {
		return observation.AwardObservation{}, err
	}
	if len(rows) == 0 {
		return observation.AwardObservation{}, errors.NotFoundError("snapshot")
	}
	return rows[0].award(), nil
}

// Since fetches snapshots captured at or after t, oldest first.
func (s *PostgRESTStore) Since(ctx context.Context, t time.Time) ([]observation.AwardObservation, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("captured_at", "gte."+t.UTC().Format(time.RFC3339))
	q.Set("order", "captured_at.asc")

	req, err := s.newRequest(ctx, http.MethodGet, q, nil)
	if err != nil {
		return nil, err
	}

	var rows []snapshotRow
	if _, err := s.do(req, "select history", &rows); err != nil {
		return nil, err
	}
	return toObservations(rows), nil
}

func (s *PostgRESTStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *PostgRESTStore) newRequest(ctx context.Context, method string, q url.Values, body io.Reader) (*http.Request, error) {
	target := s.base + url.PathEscape(s.table)
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.InternalError("building request", err)
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a JSON array response into out.
func (s *PostgRESTStore) do(req *http.Request, op string, out any) (int, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, errors.FromRequest(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, errors.FromRequest(op, err)
	}

	if resp.StatusCode/100 != 2 {
		return resp.StatusCode, statusError(op, resp.StatusCode, data)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, errors.InternalError("decoding response", err)
	}
	return resp.StatusCode, nil
}

func statusError(op string, status int, body []byte) *errors.AppError {
	msg := fmt.Sprintf("%s: %s", op, http.StatusText(status))

	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		msg = fmt.Sprintf("%s: %s", op, security.SanitizeForLog(apiErr.Message))
	}

	appErr := errors.New(errors.CodeForHTTPStatus(status), msg).
		WithDetail("status", fmt.Sprintf("%d", status))
	if apiErr.Code != "" {
		appErr.WithDetail("pg_code", apiErr.Code)
	}
	if apiErr.Hint != "" {
		appErr.WithDetail("hint", security.SanitizeForLog(apiErr.Hint))
	}
	return appErr
}
