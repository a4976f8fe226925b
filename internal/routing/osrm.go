// Package routing ranks branches by road distance using an OSRM routing
// server. Unlike the straight-line ranking in core, results depend on the
// road network data the server carries, so two runs against different
// servers may disagree; callers that need a reproducible answer should use
// core.Nearest instead.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"portal/internal/core"
)

const maxConcurrentRoutes = 4

type OSRMClient struct {
	baseURL string
	http    *http.Client
}

func NewOSRMClient(baseURL string, timeout time.Duration) *OSRMClient {
	return &OSRMClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// RoadDistance returns the driving distance in meters between two points.
func (c *OSRMClient) RoadDistance(ctx context.Context, from, to core.Point) (float64, error) {
	// OSRM wants lng,lat order.
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		c.baseURL, from.Lng, from.Lat, to.Lng, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build route request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call routing server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("routing server status %d", resp.StatusCode)
	}

	var parsed osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode route response: %w", err)
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return 0, fmt.Errorf("no route found (code %q)", parsed.Code)
	}
	return parsed.Routes[0].Distance, nil
}

// Nearest ranks branches by road distance from ref, querying the routing
// server for each branch concurrently. Branches the server cannot route to
// are skipped; the call fails only when no branch is reachable at all.
func (c *OSRMClient) Nearest(ctx context.Context, ref core.Point, branches []core.Branch) (core.Branch, float64, bool) {
	if len(branches) == 0 {
		return core.Branch{}, 0, false
	}

	type result struct {
		index    int
		distance float64
	}

	var (
		mu      sync.Mutex
		results []result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRoutes)
	for i, branch := range branches {
		g.Go(func() error {
			distance, err := c.RoadDistance(gctx, ref, branch.Location)
			if err != nil {
				// Unreachable branches drop out of the ranking.
				return nil
			}
			mu.Lock()
			results = append(results, result{index: i, distance: distance})
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if len(results) == 0 {
		return core.Branch{}, 0, false
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.distance < best.distance || (r.distance == best.distance && r.index < best.index) {
			best = r
		}
	}
	return branches[best.index], best.distance, true
}
