package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"

	"k8s.io/klog/v2"

	"water_service/internal/core"
	"water_service/internal/domain/model"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	service *core.ProjectionService
}

func NewHandler(service *core.ProjectionService) *Handler {
	return &Handler{service: service}
}

// CalculateRequest mirrors model.InputParameters with pointer fields so that
// missing and null values can be told apart from zeros.
type CalculateRequest struct {
	Region           *string      `json:"region"`
	PopulationSize   *wholeNumber `json:"population_size"`
	GPCD             *float64     `json:"gpcd"`
	PlantFactor      *float64     `json:"plant_factor"`
	Precipitation    *float64     `json:"precipitation"`
	CultivatedLand   *float64     `json:"cultivated_land"`
	DemographicShift *float64     `json:"demographic_shift"`
	BaseYear         *wholeNumber `json:"base_year"`
}

// wholeNumber accepts JSON integers and floats without a fractional part,
// so 100000 and 100000.0 decode to the same value.
type wholeNumber int64

func (n *wholeNumber) UnmarshalJSON(data []byte) error {
	text := string(data)
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		*n = wholeNumber(v)
		return nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return &json.UnmarshalTypeError{Value: jsonKind(data), Type: reflect.TypeFor[int64]()}
	}
	*n = wholeNumber(f)
	return nil
}

func jsonKind(data []byte) string {
	switch data[0] {
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case '{':
		return "object"
	case '[':
		return "array"
	default:
		return "number " + string(data)
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// FieldError reports a request field that is missing or has the wrong type.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate checks that every field is present and returns the core input.
func (req CalculateRequest) Validate() (model.InputParameters, error) {
	required := []struct {
		name    string
		present bool
	}{
		{"region", req.Region != nil},
		{"population_size", req.PopulationSize != nil},
		{"gpcd", req.GPCD != nil},
		{"plant_factor", req.PlantFactor != nil},
		{"precipitation", req.Precipitation != nil},
		{"cultivated_land", req.CultivatedLand != nil},
		{"demographic_shift", req.DemographicShift != nil},
		{"base_year", req.BaseYear != nil},
	}
	for _, f := range required {
		if !f.present {
			return model.InputParameters{}, &FieldError{Field: f.name, Reason: "field required"}
		}
	}

	return model.InputParameters{
		Region:           *req.Region,
		PopulationSize:   int64(*req.PopulationSize),
		GPCD:             *req.GPCD,
		PlantFactor:      *req.PlantFactor,
		Precipitation:    *req.Precipitation,
		CultivatedLand:   *req.CultivatedLand,
		DemographicShift: *req.DemographicShift,
		BaseYear:         int(*req.BaseYear),
	}, nil
}

// DecodeCalculateRequest reads and validates a calculation request body.
// Field problems are returned as *FieldError.
func DecodeCalculateRequest(body io.Reader) (model.InputParameters, error) {
	var req CalculateRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return model.InputParameters{}, &FieldError{
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
			}
		}
		return model.InputParameters{}, fmt.Errorf("invalid request body: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var sizeErr *http.MaxBytesError
		if errors.As(err, &sizeErr) {
			return model.InputParameters{}, fmt.Errorf("invalid request body: %w", err)
		}
		return model.InputParameters{}, errors.New("invalid request body: unexpected data after JSON object")
	}
	return req.Validate()
}

// Calculate handles POST /calculate.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	in, err := DecodeCalculateRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var fieldErr *FieldError
		if errors.As(err, &fieldErr) {
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: fieldErr.Error(), Field: fieldErr.Field})
			return
		}
		var sizeErr *http.MaxBytesError
		if errors.As(err, &sizeErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.service.Project(r.Context(), in, "http")
	if err != nil {
		// Only a cancelled request context gets here.
		klog.V(2).InfoS("Calculation abandoned", "region", in.Region, "err", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "request cancelled"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// LookupRegion handles GET /api/regions/{name}.
func (h *Handler) LookupRegion(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	info, err := h.service.LookupRegion(r.Context(), name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, info)
	case errors.Is(err, model.ErrRegionNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("region %q not found", name)})
	case errors.Is(err, model.ErrRegionLookupDisabled):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	default:
		klog.ErrorS(err, "Region lookup failed", "region", name)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "region lookup failed"})
	}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.ErrorS(err, "Failed to write response")
	}
}
