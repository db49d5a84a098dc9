package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/observability/metrics"
)

const knownTripID = "6f1c1f8e-8a4e-4c1e-9a55-2b7c9d3e4f10"

type plannerFake struct {
	err      error
	lastReq  domain.UserRequest
	enqueued bool
}

func (f *plannerFake) Plan(_ context.Context, req domain.UserRequest) (*domain.Trip, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Trip{ID: knownTripID, Status: domain.TripStatusReady, Request: req, Issues: []string{}}, nil
}

func (f *plannerFake) Enqueue(_ context.Context, req domain.UserRequest) (*domain.Trip, error) {
	f.lastReq = req
	f.enqueued = true
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Trip{ID: knownTripID, Status: domain.TripStatusQueued, Request: req, Issues: []string{}}, nil
}

type tripStoreFake struct {
	err     error
	payload []byte
}

func (f tripStoreFake) GetByID(_ context.Context, id string) (*domain.Trip, error) {
	if f.err != nil {
		return nil, f.err
	}
	if id != knownTripID {
		return nil, domain.WrapError(domain.ErrTripNotFound, "get trip", errors.New("id="+id))
	}
	return &domain.Trip{ID: id, Status: domain.TripStatusReady, Issues: []string{}}, nil
}

func (f tripStoreFake) ExportByID(ctx context.Context, id string) ([]byte, error) {
	if _, err := f.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return f.payload, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T, planner *plannerFake, store tripStoreFake, opts RouterOptions) http.Handler {
	t.Helper()
	opts.Logger = quietLogger()
	router, err := NewRouter(planner, store, store, opts)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return router.Handler()
}

func postTrip(handler http.Handler, target string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func validTripBody() map[string]any {
	return map[string]any{
		"origin":       "Dallas, TX",
		"destination":  "Austin, TX",
		"start_date":   "2026-06-01",
		"end_date":     "2026-06-03",
		"budget_total": 800,
		"interests":    []string{"food"},
	}
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestHandler(t, &plannerFake{}, tripStoreFake{}, RouterOptions{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestCreateTripPlansSynchronously(t *testing.T) {
	planner := &plannerFake{}
	handler := newTestHandler(t, planner, tripStoreFake{}, RouterOptions{})

	body := validTripBody()
	body["interests"] = []string{"food", " live music "}
	res := postTrip(handler, "/v1/trips", body)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var trip domain.Trip
	if err := json.NewDecoder(res.Body).Decode(&trip); err != nil {
		t.Fatalf("decode trip: %v", err)
	}
	if trip.ID != knownTripID || trip.Status != domain.TripStatusReady {
		t.Fatalf("unexpected trip %+v", trip)
	}
	if planner.enqueued {
		t.Fatalf("did not expect async enqueue")
	}
	if planner.lastReq.Travelers != 1 {
		t.Fatalf("expected travelers to default to 1, got %d", planner.lastReq.Travelers)
	}
	if got := planner.lastReq.Interests; len(got) != 2 || got[1] != "live music" {
		t.Fatalf("expected trimmed interests, got %q", got)
	}
	if planner.lastReq.StartDate.String() != "2026-06-01" {
		t.Fatalf("unexpected start date %s", planner.lastReq.StartDate)
	}
}

func TestCreateTripAsyncReturns202(t *testing.T) {
	planner := &plannerFake{}
	handler := newTestHandler(t, planner, tripStoreFake{}, RouterOptions{})

	body := validTripBody()
	body["interests"] = []string{"museums"}
	res := postTrip(handler, "/v1/trips?async=true", body)
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if !planner.enqueued || !strings.Contains(res.Body.String(), `"status":"queued"`) {
		t.Fatalf("expected queued trip, got %s", res.Body.String())
	}
}

func TestCreateTripRejectsContractViolations(t *testing.T) {
	handler := newTestHandler(t, &plannerFake{}, tripStoreFake{}, RouterOptions{})

	missingOrigin := validTripBody()
	delete(missingOrigin, "origin")
	missingOrigin["interests"] = []string{"food"}

	badDate := validTripBody()
	badDate["start_date"] = "June 1st"
	badDate["interests"] = []string{"food"}

	negativeBudget := validTripBody()
	negativeBudget["budget_total"] = -1
	negativeBudget["interests"] = []string{"food"}

	unknownField := validTripBody()
	unknownField["interests"] = []string{"food"}
	unknownField["vip"] = true

	for name, body := range map[string]map[string]any{
		"missing origin":  missingOrigin,
		"bad date":        badDate,
		"negative budget": negativeBudget,
		"unknown field":   unknownField,
	} {
		t.Run(name, func(t *testing.T) {
			res := postTrip(handler, "/v1/trips", body)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
			}
			var payload errorResponse
			if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if !strings.HasPrefix(payload.Error, "invalid request") || payload.RequestID == "" {
				t.Fatalf("unexpected error payload %+v", payload)
			}
		})
	}
}

func TestCreateTripRejectsBadAsyncFlag(t *testing.T) {
	handler := newTestHandler(t, &plannerFake{}, tripStoreFake{}, RouterOptions{})

	body := validTripBody()
	body["interests"] = []string{"food"}
	res := postTrip(handler, "/v1/trips?async=maybe", body)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestCreateTripMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		body string
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "validate", errors.New("end_date must be after start_date")), http.StatusBadRequest, "end_date must be after start_date"},
		{"queue down", domain.WrapError(domain.ErrTemporary, "enqueue trip", errors.New("nats unavailable")), http.StatusServiceUnavailable, "nats unavailable"},
		{"unexpected", errors.New("pq: connection reset"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestHandler(t, &plannerFake{err: tc.err}, tripStoreFake{}, RouterOptions{})
			body := validTripBody()
			body["interests"] = []string{"food"}

			res := postTrip(handler, "/v1/trips", body)
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
			if !strings.Contains(res.Body.String(), tc.body) {
				t.Fatalf("expected %q in %s", tc.body, res.Body.String())
			}
			if tc.want == http.StatusInternalServerError && strings.Contains(res.Body.String(), "pq:") {
				t.Fatalf("internal error details leaked: %s", res.Body.String())
			}
		})
	}
}

func TestGetTripByID(t *testing.T) {
	handler := newTestHandler(t, &plannerFake{}, tripStoreFake{}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/trips/"+strings.ToUpper(knownTripID), nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), knownTripID) {
		t.Fatalf("expected canonical trip id in %s", res.Body.String())
	}
}

func TestGetTripReturns404ForUnknownTrip(t *testing.T) {
	handler := newTestHandler(t, &plannerFake{}, tripStoreFake{}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/trips/00000000-0000-0000-0000-000000000000", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetTripRejectsMalformedID(t *testing.T) {
	handler := newTestHandler(t, &plannerFake{}, tripStoreFake{}, RouterOptions{})

	for _, id := range []string{"missing", "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/trips/"+id, nil))
		if res.Code != http.StatusBadRequest {
			t.Fatalf("id %q: expected 400, got %d", id, res.Code)
		}
	}
}

func TestExportTripStreamsWorkbook(t *testing.T) {
	payload := []byte("PK\x03\x04workbook")
	handler := newTestHandler(t, &plannerFake{}, tripStoreFake{payload: payload}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/trips/"+knownTripID+"/export.xlsx", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if res.Header().Get("Content-Type") != xlsxMimeType {
		t.Fatalf("unexpected content type %q", res.Header().Get("Content-Type"))
	}
	if !strings.Contains(res.Header().Get("Content-Disposition"), "trip-"+knownTripID+".xlsx") {
		t.Fatalf("unexpected disposition %q", res.Header().Get("Content-Disposition"))
	}
	if !bytes.Equal(res.Body.Bytes(), payload) {
		t.Fatalf("unexpected body %q", res.Body.Bytes())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, &plannerFake{}, tripStoreFake{}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/trips/"+knownTripID, nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	m := metrics.NewHTTPServerMetrics(serviceName)
	handler := newTestHandler(t, &plannerFake{}, tripStoreFake{}, RouterOptions{Metrics: m, QueueWait: time.Second})

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/trips/"+knownTripID, nil))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `path="/v1/trips/{trip_id}"`) {
		t.Fatalf("expected normalized trip path in metrics:\n%s", res.Body.String())
	}
}
