package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"
)

// target is one request replayed against the API. Body is sent verbatim as JSON.
type target struct {
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	Body         json.RawMessage `json:"body,omitempty"`
	ExpectStatus int             `json:"expectStatus"`
	Critical     bool            `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type result struct {
	Target         target
	Status         int
	BaselineStatus int
	StatusOK       bool
	BodyMatch      bool
	Compared       bool
	Error          error
	Duration       time.Duration
}

// volatileMeta lists envelope fields that legitimately differ between runs.
var volatileMeta = []string{"generated_at", "request_id", "cache_hit", "processing_time_ms", "goroutines"}

func main() {
	var (
		base        string
		baseline    string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL under test")
	flag.StringVar(&baseline, "baseline", "", "Optional base URL of a known-good deployment to diff bodies against")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "timetable_smoke", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	log := zap.NewExample().Sugar()
	defer log.Sync() //nolint:errcheck

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalw("failed to load targets", "path", targetsPath, "error", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []result
		breaking int
		optional int
	)
	for _, t := range targets {
		res := checkTarget(client, base, baseline, t)
		if res.Error != nil || !res.StatusOK || (res.Compared && !res.BodyMatch) {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Breaking failures: %d, Optional failures: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func checkTarget(client *http.Client, base, baseline string, tgt target) result {
	res := result{Target: tgt}
	resp, dur, err := performRequest(client, base, tgt)
	res.Duration = dur
	if err != nil {
		res.Error = fmt.Errorf("request failed: %w", err)
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	expect := tgt.ExpectStatus
	if expect == 0 {
		expect = http.StatusOK
	}
	res.StatusOK = res.Status == expect

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Error = fmt.Errorf("read body: %w", err)
		return res
	}
	if baseline == "" {
		return res
	}

	// Mutating targets would be applied twice, so only reads are diffed.
	if method := strings.ToUpper(tgt.Method); method != "" && method != http.MethodGet {
		return res
	}
	baseResp, _, err := performRequest(client, baseline, tgt)
	if err != nil {
		res.Error = fmt.Errorf("baseline request failed: %w", err)
		return res
	}
	defer baseResp.Body.Close()
	baseBody, err := io.ReadAll(baseResp.Body)
	if err != nil {
		res.Error = fmt.Errorf("read baseline body: %w", err)
		return res
	}
	res.Compared = true
	res.BaselineStatus = baseResp.StatusCode
	res.BodyMatch = res.BaselineStatus == res.Status && bodiesEqual(body, baseBody)
	return res
}

func performRequest(client *http.Client, base string, tgt target) (*http.Response, time.Duration, error) {
	if client == nil {
		return nil, 0, errors.New("nil client")
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	var body io.Reader
	if len(tgt.Body) > 0 {
		body = bytes.NewReader(tgt.Body)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	return resp, time.Since(start), nil
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for _, key := range volatileMeta {
			delete(val, key)
		}
		for k, v2 := range val {
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printReport(results []result) {
	fmt.Println("Timetable Smoke Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		switch {
		case res.Error != nil:
			status = "ERROR"
		case !res.StatusOK:
			status = "STATUS"
		case res.Compared && !res.BodyMatch:
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Printf("  Status: %d (%s)\n", res.Status, res.Duration)
		if res.Compared {
			fmt.Printf("  Baseline status: %d | Body match: %t\n", res.BaselineStatus, res.BodyMatch)
		}
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		}
	}
}
