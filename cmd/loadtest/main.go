package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	idempotencyHeader = "Idempotency-Key"
	defaultStock      = int64(1 << 40)
)

type loadMode string

const (
	modeCreate       loadMode = "create"
	modeCreateCancel loadMode = "create-cancel"
)

type config struct {
	baseURL     string
	total       int
	concurrency int
	timeout     time.Duration
	mode        loadMode
	cancelRate  int
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type endpointReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Statuses  map[string]int64 `json:"statuses"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt        time.Time                 `json:"started_at"`
	DurationSeconds  float64                   `json:"duration_seconds"`
	TotalScenarios   int64                     `json:"total_scenarios"`
	SuccessScenarios int64                     `json:"success_scenarios"`
	FailedScenarios  int64                     `json:"failed_scenarios"`
	ErrorRate        float64                   `json:"error_rate"`
	RPS              float64                   `json:"rps"`
	Endpoints        map[string]endpointReport `json:"endpoints"`
}

type endpointStats struct {
	calls     int64
	success   int64
	failed    int64
	statuses  map[string]int64
	latencies []float64
}

type collector struct {
	mu        sync.Mutex
	endpoints map[string]*endpointStats
}

func newCollector() *collector {
	return &collector{
		endpoints: make(map[string]*endpointStats),
	}
}

func (c *collector) record(endpoint string, latency time.Duration, status int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, found := c.endpoints[endpoint]
	if !found {
		stats = &endpointStats{statuses: make(map[string]int64)}
		c.endpoints[endpoint] = stats
	}

	stats.calls++
	if ok {
		stats.success++
	} else {
		stats.failed++
	}
	stats.statuses[fmt.Sprintf("%d", status)]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) build() map[string]endpointReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string]endpointReport, len(c.endpoints))
	for endpoint, stats := range c.endpoints {
		errorRate := 0.0
		if stats.calls > 0 {
			errorRate = float64(stats.failed) / float64(stats.calls)
		}
		result[endpoint] = endpointReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: errorRate,
			Statuses:  stats.statuses,
			LatencyMs: summarize(stats.latencies),
		}
	}
	return result
}

func summarize(latencies []float64) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}

	sorted := append([]float64(nil), latencies...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

// percentile ожидает отсортированный по возрастанию срез.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func main() {
	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	if err := run(cfg); err != nil {
		fail("loadtest failed: %v", err)
	}
}

func readConfig() (config, error) {
	var (
		cfg     config
		modeRaw string
	)

	flag.StringVar(&cfg.baseURL, "addr", "http://localhost:8080", "base URL of the inventory service")
	flag.IntVar(&cfg.total, "total", 100, "total number of scenarios")
	flag.IntVar(&cfg.concurrency, "concurrency", 8, "number of concurrent workers")
	flag.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	flag.StringVar(&modeRaw, "mode", string(modeCreate), "scenario mode: create|create-cancel")
	flag.IntVar(&cfg.cancelRate, "cancel-rate", 100, "percent of orders to cancel in create-cancel mode")
	flag.StringVar(&cfg.outputPath, "output", "", "path for JSON report (default: stdout)")
	flag.Parse()

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return config{}, fmt.Errorf("addr is required")
	}
	if cfg.total <= 0 {
		return config{}, fmt.Errorf("total must be > 0")
	}
	if cfg.concurrency <= 0 {
		return config{}, fmt.Errorf("concurrency must be > 0")
	}
	if cfg.cancelRate < 0 || cfg.cancelRate > 100 {
		return config{}, fmt.Errorf("cancel-rate must be within [0, 100]")
	}

	mode, err := validateMode(modeRaw)
	if err != nil {
		return config{}, err
	}
	cfg.mode = mode

	return cfg, nil
}

func validateMode(raw string) (loadMode, error) {
	mode := loadMode(strings.TrimSpace(raw))
	switch mode {
	case modeCreate, modeCreateCancel:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s (use create|create-cancel)", raw)
	}
}

func run(cfg config) error {
	client := &http.Client{Timeout: cfg.timeout}

	customerID, productID, err := seedFixtures(client, cfg)
	if err != nil {
		return fmt.Errorf("seed fixtures: %w", err)
	}

	stats := newCollector()
	var successScenarios, failedScenarios int64

	startedAt := time.Now()
	jobs := make(chan int)
	var wg sync.WaitGroup
	for worker := 0; worker < cfg.concurrency; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if runScenario(client, cfg, stats, customerID, productID, job) {
					atomic.AddInt64(&successScenarios, 1)
				} else {
					atomic.AddInt64(&failedScenarios, 1)
				}
			}
		}()
	}
	for i := 0; i < cfg.total; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(startedAt)
	total := successScenarios + failedScenarios
	errorRate := 0.0
	if total > 0 {
		errorRate = float64(failedScenarios) / float64(total)
	}

	result := report{
		StartedAt:        startedAt.UTC(),
		DurationSeconds:  elapsed.Seconds(),
		TotalScenarios:   total,
		SuccessScenarios: successScenarios,
		FailedScenarios:  failedScenarios,
		ErrorRate:        errorRate,
		RPS:              float64(total) / math.Max(elapsed.Seconds(), 0.001),
		Endpoints:        stats.build(),
	}

	return writeReport(cfg.outputPath, result)
}

// seedFixtures создаёт клиента и товар с практически неисчерпаемым остатком.
func seedFixtures(client *http.Client, cfg config) (customerID, productID int64, err error) {
	runID := uuid.NewString()[:8]

	var customerResp struct {
		Customer struct {
			ID int64 `json:"id"`
		} `json:"customer"`
	}
	err = postJSON(client, cfg.baseURL+"/api/customer/create/", map[string]any{
		"name":  "loadtest-" + runID,
		"email": "loadtest-" + runID + "@example.com",
	}, "", &customerResp)
	if err != nil {
		return 0, 0, err
	}

	var productResp struct {
		Product struct {
			ID int64 `json:"id"`
		} `json:"product"`
	}
	err = postJSON(client, cfg.baseURL+"/api/product/create/", map[string]any{
		"sku":            "LOAD-" + runID,
		"name":           "loadtest product " + runID,
		"price_minor":    1000,
		"stock_quantity": defaultStock,
	}, "", &productResp)
	if err != nil {
		return 0, 0, err
	}

	return customerResp.Customer.ID, productResp.Product.ID, nil
}

func runScenario(client *http.Client, cfg config, stats *collector, customerID, productID int64, job int) bool {
	var orderResp struct {
		Order struct {
			ID int64 `json:"id"`
		} `json:"order"`
	}

	start := time.Now()
	err := postJSON(client, cfg.baseURL+"/api/order/create/", map[string]any{
		"customer_id": customerID,
		"items":       []map[string]any{{"product_id": productID, "quantity": 1}},
	}, uuid.NewString(), &orderResp)
	statusCode := http.StatusCreated
	if err != nil {
		statusCode = statusFromError(err)
	}
	stats.record("order_create", time.Since(start), statusCode, err == nil)
	if err != nil {
		return false
	}

	if cfg.mode != modeCreateCancel || job%100 >= cfg.cancelRate {
		return true
	}

	start = time.Now()
	err = deleteJSON(client, cfg.baseURL+"/api/order/delete/", map[string]any{"id": orderResp.Order.ID})
	statusCode = http.StatusNoContent
	if err != nil {
		statusCode = statusFromError(err)
	}
	stats.record("order_cancel", time.Since(start), statusCode, err == nil)

	return err == nil
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.status, e.body)
}

func statusFromError(err error) int {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.status
	}
	return 0
}

func postJSON(client *http.Client, url string, payload map[string]any, idempotencyKey string, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(idempotencyHeader, idempotencyKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode >= 300 {
		return &httpStatusError{status: resp.StatusCode, body: buf.String()}
	}
	if target != nil {
		return json.Unmarshal(buf.Bytes(), target)
	}
	return nil
}

func deleteJSON(client *http.Client, url string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode >= 300 {
		return &httpStatusError{status: resp.StatusCode, body: buf.String()}
	}
	return nil
}

func writeReport(path string, result report) error {
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if strings.TrimSpace(path) == "" {
		fmt.Println(string(encoded))
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
