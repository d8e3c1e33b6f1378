package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Requests    []Request
}

// Request is one query against /api/books.
type Request struct {
	Kind   string
	Params url.Values
}

// Workload mixes every query mode of the book API over the given words.
func Workload(words []string, suggestIDs string) []Request {
	var reqs []Request
	var clean []string
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			clean = append(clean, w)
		}
	}
	for i, w := range clean {
		reqs = append(reqs,
			Request{Kind: "search", Params: url.Values{"search": {w}}},
			Request{Kind: "title", Params: url.Values{"searchByTitle": {w}}},
			Request{Kind: "author", Params: url.Values{"searchByAuthor": {w}}},
			Request{Kind: "regex", Params: url.Values{"regex": {w[:1] + ".*"}, "closeness": {"true"}}},
		)
		if next := clean[(i+1)%len(clean)]; next != w {
			reqs = append(reqs, Request{Kind: "search", Params: url.Values{"search": {w + " " + next}}})
		}
	}
	if suggestIDs != "" {
		reqs = append(reqs, Request{Kind: "suggestions", Params: url.Values{"suggestions": {suggestIDs}}})
	}
	return reqs
}

type kindStats struct {
	requests atomic.Int64
	errors   atomic.Int64
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	byKind        map[string]*kindStats
	mu            sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
		byKind:      make(map[string]*kindStats),
	}
}

func (s *Stats) kind(name string) *kindStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	ks, ok := s.byKind[name]
	if !ok {
		ks = &kindStats{}
		s.byKind[name] = ks
	}
	return ks
}

func (s *Stats) RecordRequest(kind string, duration time.Duration, statusCode int, cached bool, err error) {
	s.totalRequests.Add(1)
	ks := s.kind(kind)
	ks.requests.Add(1)

	if err != nil || statusCode < 200 || statusCode >= 300 {
		s.errorCount.Add(1)
		ks.errors.Add(1)
	} else {
		s.successCount.Add(1)
	}
	if err != nil {
		return
	}
	if cached {
		s.cacheHits.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.mu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.mu.Unlock()
}

func newClient(concurrency int) *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Run cycles the workload over cfg.Concurrency workers until ctx is done.
func Run(ctx context.Context, cfg Config, client *http.Client) *Stats {
	stats := NewStats()
	if len(cfg.Requests) == 0 {
		return stats
	}

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				req := cfg.Requests[next%len(cfg.Requests)]
				next++
				start := time.Now()
				status, cached, err := do(ctx, client, cfg.BaseURL, req)
				if ctx.Err() != nil {
					return
				}
				stats.RecordRequest(req.Kind, time.Since(start), status, cached, err)
			}
		}(w)
	}
	wg.Wait()
	return stats
}

func do(ctx context.Context, client *http.Client, baseURL string, r Request) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/books?"+r.Params.Encode(), nil)
	if err != nil {
		return 0, false, fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	var body struct {
		Cached bool `json:"cached"`
	}
	if resp.StatusCode == http.StatusOK && r.Kind != "suggestions" {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return resp.StatusCode, false, fmt.Errorf("decoding response: %w", err)
		}
	}
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, body.Cached, nil
}

// Report prints the summary and fails when nothing completed.
func (s *Stats) Report(w io.Writer, duration time.Duration) error {
	total := s.totalRequests.Load()
	success := s.successCount.Load()
	failed := s.errorCount.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", success)
	fmt.Fprintf(w, "Errors:          %d\n", failed)
	fmt.Fprintf(w, "Cache Hits:      %d\n", s.cacheHits.Load())
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	s.latenciesMu.Lock()
	latencies := slices.Clone(s.latencies)
	s.latenciesMu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		var sumSquared float64
		for _, l := range latencies {
			diff := float64(l) - float64(avg)
			sumSquared += diff * diff
		}

		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", avg)
		fmt.Fprintf(w, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(w, "P95:    %s\n", percentile(latencies, 95))
		fmt.Fprintf(w, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
		fmt.Fprintf(w, "StdDev: %s\n", time.Duration(math.Sqrt(sumSquared/float64(len(latencies)))))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== By Kind ===")
	kinds := make([]string, 0, len(s.byKind))
	for k := range s.byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-12s %d requests, %d errors\n", k, s.byKind[k].requests.Load(), s.byKind[k].errors.Load())
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(s.statusCodes))
	for code := range s.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, s.statusCodes[code].Load())
	}

	if total == 0 {
		return errors.New("no requests completed, is the service running?")
	}
	return nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
