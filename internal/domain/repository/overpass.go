package repository

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/serjvanilla/go-overpass"

	"water_service/internal/domain/model"
)

// OverpassRegionFinder resolves region names to OpenStreetMap administrative
// boundaries and reads their population tag.
type OverpassRegionFinder struct {
	client  *overpass.Client
	timeout time.Duration
}

func NewOverpassRegionFinder(endpoint string, timeout time.Duration) *OverpassRegionFinder {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &OverpassRegionFinder{
		client:  &client,
		timeout: timeout,
	}
}

func (r *OverpassRegionFinder) FindRegion(ctx context.Context, name string) (model.RegionInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.RegionInfo{}, model.ErrRegionNotFound
	}

	result, err := r.executeQuery(ctx, regionQuery(name))
	if err != nil {
		return model.RegionInfo{}, fmt.Errorf("failed to execute region query: %w", err)
	}

	return regionFromResult(name, result)
}

func regionQuery(name string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name)
	return fmt.Sprintf(`
		[out:json][timeout:%d];
		relation["boundary"="administrative"]["name"="%s"];
		out tags;
	`, 25, escaped)
}

func (r *OverpassRegionFinder) executeQuery(ctx context.Context, query string) (*overpass.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// The client has no context support; stop waiting when ctx ends.
	type response struct {
		result overpass.Result
		err    error
	}
	done := make(chan response, 1)
	go func() {
		result, err := r.client.Query(query)
		done <- response{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-done:
		if resp.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", resp.err)
		}
		return &resp.result, nil
	}
}

// regionFromResult picks the highest-ranked boundary (lowest admin_level) that
// carries a usable population tag. Ties go to the lowest OSM id so the
// answer does not depend on map iteration order.
func regionFromResult(name string, result *overpass.Result) (model.RegionInfo, error) {
	var best model.RegionInfo
	found := false

	for _, rel := range result.Relations {
		if rel == nil {
			continue
		}
		population, ok := parsePopulation(rel.Tags["population"])
		if !ok {
			continue
		}
		level, err := strconv.Atoi(rel.Tags["admin_level"])
		if err != nil {
			level = 99
		}

		candidate := model.RegionInfo{
			Name:       name,
			OSMID:      rel.ID,
			AdminLevel: level,
			Population: population,
		}
		if !found || better(candidate, best) {
			best = candidate
			found = true
		}
	}

	if !found {
		return model.RegionInfo{}, model.ErrRegionNotFound
	}
	return best, nil
}

func better(a, b model.RegionInfo) bool {
	if a.AdminLevel != b.AdminLevel {
		return a.AdminLevel < b.AdminLevel
	}
	return a.OSMID < b.OSMID
}

// parsePopulation accepts the formats seen in OSM population tags,
// e.g. "7151502", "7 151 502" or "7,151,502".
func parsePopulation(tag string) (int64, bool) {
	cleaned := strings.NewReplacer(" ", "", ",", "", "\u00a0", "").Replace(strings.TrimSpace(tag))
	if cleaned == "" {
		return 0, false
	}
	population, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil || population < 0 {
		return 0, false
	}
	return population, true
}
