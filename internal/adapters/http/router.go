package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/itinerary-agent/internal/adapters/http/openapi"
	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
	"github.com/kirillkom/itinerary-agent/internal/observability/metrics"
)

const (
	serviceName  = "itinerary-api"
	maxBodyBytes = 64 << 10
	xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type RouterOptions struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueWait      time.Duration
	Metrics        *metrics.HTTPServerMetrics
	Logger         *slog.Logger
}

type Router struct {
	planner   ports.TripPlanner
	reader    ports.TripReader
	exporter  ports.TripExporter
	validator *openapi.Validator
	opts      RouterOptions
	logger    *slog.Logger
}

func NewRouter(
	planner ports.TripPlanner,
	reader ports.TripReader,
	exporter ports.TripExporter,
	opts RouterOptions,
) (*Router, error) {
	validator, err := openapi.NewValidator(context.Background())
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.QueueWait <= 0 {
		opts.QueueWait = 2 * time.Second
	}
	return &Router{
		planner:   planner,
		reader:    reader,
		exporter:  exporter,
		validator: validator,
		opts:      opts,
		logger:    opts.Logger,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPIDocument)
	mux.HandleFunc("POST /v1/trips", rt.createTrip)
	mux.HandleFunc("GET /v1/trips/{trip_id}", rt.getTrip)
	mux.HandleFunc("GET /v1/trips/{trip_id}/export.xlsx", rt.exportTrip)

	var onReject func()
	if rt.opts.Metrics != nil {
		mux.Handle("GET /metrics", rt.opts.Metrics.Handler())
		onReject = func() { rt.opts.Metrics.RecordRejected(serviceName, "rate_limit") }
	}

	var handler http.Handler = mux
	handler = validationMiddleware(rt.validator, handler)
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.QueueWait)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst, onReject)
	handler = recoverMiddleware(rt.logger, handler)
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPIDocument(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openapi.Spec())
}

type tripRequest struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Travelers   *int     `json:"travelers"`
	BudgetTotal float64  `json:"budget_total"`
	Interests   []string `json:"interests"`
}

func (req tripRequest) toDomain() (domain.UserRequest, error) {
	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		return domain.UserRequest{}, domain.WrapError(domain.ErrInvalidInput, "parse start_date", err)
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		return domain.UserRequest{}, domain.WrapError(domain.ErrInvalidInput, "parse end_date", err)
	}
	travelers := 1
	if req.Travelers != nil {
		travelers = *req.Travelers
	}
	interests := make([]string, 0, len(req.Interests))
	for _, interest := range req.Interests {
		if trimmed := strings.TrimSpace(interest); trimmed != "" {
			interests = append(interests, trimmed)
		}
	}
	return domain.UserRequest{
		Origin:      strings.TrimSpace(req.Origin),
		Destination: strings.TrimSpace(req.Destination),
		StartDate:   start,
		EndDate:     end,
		Travelers:   travelers,
		BudgetTotal: req.BudgetTotal,
		Interests:   interests,
	}, nil
}

func (rt *Router) createTrip(w http.ResponseWriter, r *http.Request) {
	async := false
	if raw := r.URL.Query().Get("async"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "async must be a boolean")
			return
		}
		async = parsed
	}

	var body tripRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	req, err := body.toDomain()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if async {
		trip, err := rt.planner.Enqueue(r.Context(), req)
		if err != nil {
			rt.logDomainError(r, "enqueue_trip_failed", err)
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, trip)
		return
	}

	trip, err := rt.planner.Plan(r.Context(), req)
	if err != nil {
		rt.logDomainError(r, "plan_trip_failed", err)
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (rt *Router) getTrip(w http.ResponseWriter, r *http.Request) {
	tripID, err := bindTripID(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	trip, err := rt.reader.GetByID(r.Context(), tripID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (rt *Router) exportTrip(w http.ResponseWriter, r *http.Request) {
	tripID, err := bindTripID(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	payload, err := rt.exporter.ExportByID(r.Context(), tripID)
	if err != nil {
		rt.logDomainError(r, "export_trip_failed", err)
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxMimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="trip-%s.xlsx"`, tripID))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// bindTripID decodes the simple-style path parameter and normalizes it to a
// canonical UUID string.
func bindTripID(r *http.Request) (string, error) {
	var raw string
	err := runtime.BindStyledParameterWithOptions("simple", "trip_id", r.PathValue("trip_id"), &raw, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "bind trip_id", err)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse trip_id", err)
	}
	return parsed.String(), nil
}

func (rt *Router) logDomainError(r *http.Request, event string, err error) {
	if mapErrorToHTTPStatus(err) < http.StatusInternalServerError {
		return
	}
	rt.logger.Error(event, "request_id", requestIDFromContext(r.Context()), "error", err)
}
