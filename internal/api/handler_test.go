package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"water_service/internal/config"
	"water_service/internal/core"
	"water_service/internal/domain/model"
)

const validBody = `{
	"region": "Arizona",
	"population_size": 100000,
	"gpcd": 100,
	"plant_factor": 1.0,
	"precipitation": 20,
	"cultivated_land": 5,
	"demographic_shift": 10,
	"base_year": 2024
}`

type stubRegions struct {
	info model.RegionInfo
	err  error
}

func (s stubRegions) FindRegion(context.Context, string) (model.RegionInfo, error) {
	return s.info, s.err
}

func defaultCORS() config.CORSConfig {
	return config.CORSConfig{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}

func newRouter(regions core.RegionFinder) http.Handler {
	svc := core.NewProjectionService(nil, regions)
	return NewRouter(NewHandler(svc), defaultCORS(), true)
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(rec *httptest.ResponseRecorder) ErrorResponse {
	var resp ErrorResponse
	ExpectWithOffset(1, json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
	return resp
}

var _ = Describe("POST /calculate", func() {
	var router http.Handler

	BeforeEach(func() {
		router = newRouter(nil)
	})

	Context("with a valid request", func() {
		It("returns six ascending years for the region", func() {
			rec := do(router, http.MethodPost, "/calculate", validBody)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			var result model.ProjectionResult
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.Region).To(Equal("Arizona"))
			Expect(result.Parameters).To(HaveLen(core.HorizonYears))
			for i, p := range result.Parameters {
				Expect(p.Year).To(Equal(2024 + i))
			}

			first := result.Parameters[0]
			Expect(first.Baseline).To(BeNumerically("~", 0.378541, 1e-12))
			Expect(first.PredictedRequirement).To(Equal(first.Baseline * 1.10 * 0.80))
			Expect(first.ActualRequirement).To(Equal(first.PredictedRequirement * 1.05))
		})

		It("uses the wire names for every output field", func() {
			rec := do(router, http.MethodPost, "/calculate", validBody)

			var raw map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &raw)).To(Succeed())
			Expect(raw).To(HaveKey("region"))
			Expect(raw).To(HaveKey("parameters"))

			params := raw["parameters"].([]any)
			Expect(params[0]).To(HaveKey("year"))
			Expect(params[0]).To(HaveKey("baseline"))
			Expect(params[0]).To(HaveKey("predicted_requirement"))
			Expect(params[0]).To(HaveKey("actual_requirement"))
		})

		It("returns byte-identical bodies for identical requests", func() {
			first := do(router, http.MethodPost, "/calculate", validBody)
			second := do(router, http.MethodPost, "/calculate", validBody)
			Expect(second.Body.String()).To(Equal(first.Body.String()))
		})

		It("ignores unknown fields", func() {
			body := strings.Replace(validBody, `"region"`, `"extra": true, "region"`, 1)
			rec := do(router, http.MethodPost, "/calculate", body)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	Context("with invalid input", func() {
		DescribeTable("rejects a missing or null field",
			func(field string, replacement string) {
				var payload map[string]any
				Expect(json.Unmarshal([]byte(validBody), &payload)).To(Succeed())
				if replacement == "delete" {
					delete(payload, field)
				} else {
					payload[field] = nil
				}
				body, err := json.Marshal(payload)
				Expect(err).NotTo(HaveOccurred())

				rec := do(router, http.MethodPost, "/calculate", string(body))
				Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
				resp := decodeError(rec)
				Expect(resp.Field).To(Equal(field))
				Expect(resp.Error).To(ContainSubstring("field required"))
			},
			Entry("region", "region", "delete"),
			Entry("population_size", "population_size", "delete"),
			Entry("gpcd", "gpcd", "null"),
			Entry("plant_factor", "plant_factor", "delete"),
			Entry("precipitation", "precipitation", "null"),
			Entry("cultivated_land", "cultivated_land", "delete"),
			Entry("demographic_shift", "demographic_shift", "delete"),
			Entry("base_year", "base_year", "null"),
		)

		DescribeTable("rejects a field of the wrong type",
			func(from, to, field string) {
				body := strings.Replace(validBody, from, to, 1)
				rec := do(router, http.MethodPost, "/calculate", body)
				Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
				Expect(decodeError(rec).Field).To(Equal(field))
			},
			Entry("string gpcd", `"gpcd": 100`, `"gpcd": "lots"`, "gpcd"),
			Entry("fractional population", `"population_size": 100000`, `"population_size": 1.5`, "population_size"),
			Entry("numeric region", `"region": "Arizona"`, `"region": 7`, "region"),
			Entry("string base year", `"base_year": 2024`, `"base_year": "2024"`, "base_year"),
			Entry("fractional base year", `"base_year": 2024`, `"base_year": 2024.5`, "base_year"),
			Entry("boolean population", `"population_size": 100000`, `"population_size": true`, "population_size"),
			Entry("oversized population", `"population_size": 100000`, `"population_size": 1e30`, "population_size"),
		)

		It("rejects malformed JSON with 400", func() {
			rec := do(router, http.MethodPost, "/calculate", `{"region": `)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(rec).Error).To(ContainSubstring("invalid request body"))
		})

		It("rejects trailing data after the JSON object", func() {
			rec := do(router, http.MethodPost, "/calculate", validBody+" garbage")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(rec).Error).To(ContainSubstring("unexpected data after JSON object"))

			rec = do(router, http.MethodPost, "/calculate", validBody+validBody)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects an empty body with 400", func() {
			rec := do(router, http.MethodPost, "/calculate", "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects oversized bodies", func() {
			body := `{"region": "` + strings.Repeat("a", maxBodyBytes) + `"}`
			rec := do(router, http.MethodPost, "/calculate", body)
			Expect(rec.Code).To(Equal(http.StatusRequestEntityTooLarge))
		})

		It("rejects other methods", func() {
			rec := do(router, http.MethodGet, "/calculate", "")
			Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
		})
	})

	Context("with a cross-origin client", func() {
		It("answers preflight requests", func() {
			req := httptest.NewRequest(http.MethodOptions, "/calculate", nil)
			req.Header.Set("Origin", "https://dashboard.example")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			req.Header.Set("Access-Control-Request-Headers", "content-type")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(BeNumerically("<", 300))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://dashboard.example"))
			Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring(http.MethodPost))
			Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
		})

		It("echoes the caller origin on credentialed requests", func() {
			req := httptest.NewRequest(http.MethodPost, "/calculate", strings.NewReader(validBody))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Origin", "http://app.example")
			req.Header.Set("Cookie", "session=abc")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://app.example"))
			Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
		})

		It("keeps the wildcard when credentials are off", func() {
			cfg := defaultCORS()
			cfg.AllowCredentials = false
			permissive := NewRouter(NewHandler(core.NewProjectionService(nil, nil)), cfg, false)

			req := httptest.NewRequest(http.MethodPost, "/calculate", strings.NewReader(validBody))
			req.Header.Set("Origin", "http://app.example")
			rec := httptest.NewRecorder()
			permissive.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(BeEmpty())
		})

		It("refuses origins outside the configured list", func() {
			cfg := defaultCORS()
			cfg.AllowedOrigins = []string{"https://allowed.example"}
			restricted := NewRouter(NewHandler(core.NewProjectionService(nil, nil)), cfg, false)

			req := httptest.NewRequest(http.MethodPost, "/calculate", strings.NewReader(validBody))
			req.Header.Set("Origin", "https://other.example")
			rec := httptest.NewRecorder()
			restricted.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
		})
	})
})

var _ = Describe("GET /api/regions/{name}", func() {
	It("returns the region population", func() {
		info := model.RegionInfo{Name: "Arizona", OSMID: 162018, AdminLevel: 4, Population: 7151502}
		rec := do(newRouter(stubRegions{info: info}), http.MethodGet, "/api/regions/Arizona", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var got model.RegionInfo
		Expect(json.Unmarshal(rec.Body.Bytes(), &got)).To(Succeed())
		Expect(got).To(Equal(info))
	})

	It("returns 404 for unknown regions", func() {
		rec := do(newRouter(stubRegions{err: model.ErrRegionNotFound}), http.MethodGet, "/api/regions/Atlantis", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(decodeError(rec).Error).To(ContainSubstring("Atlantis"))
	})

	It("returns 503 when lookups are disabled", func() {
		rec := do(newRouter(nil), http.MethodGet, "/api/regions/Arizona", "")
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("returns 502 on upstream failures", func() {
		rec := do(newRouter(stubRegions{err: errors.New("boom")}), http.MethodGet, "/api/regions/Arizona", "")
		Expect(rec.Code).To(Equal(http.StatusBadGateway))
	})
})

var _ = Describe("operational endpoints", func() {
	It("reports health", func() {
		rec := do(newRouter(nil), http.MethodGet, "/healthz", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"status":"ok"`))
	})

	It("exposes projection metrics", func() {
		router := newRouter(nil)
		do(router, http.MethodPost, "/calculate", validBody)

		rec := do(router, http.MethodGet, "/metrics", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("water_service_projections_total"))
		Expect(rec.Body.String()).To(ContainSubstring(`route="POST /calculate"`))
	})

	It("hides metrics when disabled", func() {
		router := NewRouter(NewHandler(core.NewProjectionService(nil, nil)), defaultCORS(), false)
		rec := do(router, http.MethodGet, "/metrics", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})
})

var _ = Describe("CalculateRequest.Validate", func() {
	It("maps every field into the core input", func() {
		in, err := DecodeCalculateRequest(strings.NewReader(validBody))
		Expect(err).NotTo(HaveOccurred())
		Expect(in).To(Equal(model.InputParameters{
			Region:           "Arizona",
			PopulationSize:   100000,
			GPCD:             100,
			PlantFactor:      1.0,
			Precipitation:    20,
			CultivatedLand:   5,
			DemographicShift: 10,
			BaseYear:         2024,
		}))
	})

	It("accepts whole numbers written as floats", func() {
		body := strings.NewReplacer(`"population_size": 100000`, `"population_size": 100000.0`,
			`"base_year": 2024`, `"base_year": 2.024e3`).Replace(validBody)
		in, err := DecodeCalculateRequest(strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		Expect(in.PopulationSize).To(Equal(int64(100000)))
		Expect(in.BaseYear).To(Equal(2024))
	})

	It("reports the expected type for a fractional population", func() {
		body := strings.Replace(validBody, `"population_size": 100000`, `"population_size": 1.5`, 1)
		_, err := DecodeCalculateRequest(strings.NewReader(body))
		var fieldErr *FieldError
		Expect(errors.As(err, &fieldErr)).To(BeTrue())
		Expect(fieldErr.Field).To(Equal("population_size"))
		Expect(fieldErr.Reason).To(Equal("expected int64, got number 1.5"))
	})

	It("allows trailing whitespace", func() {
		_, err := DecodeCalculateRequest(strings.NewReader(validBody + "\n\t "))
		Expect(err).NotTo(HaveOccurred())
	})

	It("accepts negative percentages and zero values", func() {
		body := strings.NewReplacer(`"cultivated_land": 5`, `"cultivated_land": -12.5`,
			`"population_size": 100000`, `"population_size": 0`).Replace(validBody)
		in, err := DecodeCalculateRequest(strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		Expect(in.CultivatedLand).To(Equal(-12.5))
		Expect(in.PopulationSize).To(BeZero())
	})
})
