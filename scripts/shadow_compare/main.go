// Command shadow_compare replays a fixed set of analytics requests against
// the legacy Node service and this API, then reports status and body
// differences. It exits non-zero when a critical endpoint diverges, which
// lets the cutover pipeline block promotion.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

type endpoint struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type targetsFile struct {
	Targets []endpoint `json:"targets"`
}

type result struct {
	Endpoint endpoint

	GoStatus       int
	LegacyStatus   int
	GoDuration     time.Duration
	LegacyDuration time.Duration

	StatusMatch bool
	BodyMatch   bool
	Err         error
}

func (r result) diverged() bool {
	return r.Err != nil || !r.StatusMatch || !r.BodyMatch
}

func main() {
	var (
		goBase      string
		legacyBase  string
		targetsPath string
		timeout     time.Duration
		concurrency int
	)

	flag.StringVar(&goBase, "go-base", "http://localhost:8080", "base URL of the Go insights API")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000", "base URL of the legacy service")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "path to the targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "per-request timeout")
	flag.IntVar(&concurrency, "concurrency", 4, "number of endpoints compared in parallel")
	flag.Parse()

	endpoints, err := loadEndpoints(targetsPath)
	if err != nil {
		log.Fatalf("load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	results := compareAll(client, goBase, legacyBase, endpoints, concurrency)

	var breaking, optional int
	for _, res := range results {
		if !res.diverged() {
			continue
		}
		if res.Endpoint.Critical {
			breaking++
		} else {
			optional++
		}
	}

	printReport(results)
	fmt.Printf("\nBreaking diffs: %d, optional diffs: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadEndpoints(path string) ([]endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parsed targetsFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return parsed.Targets, nil
}

func compareAll(client *http.Client, goBase, legacyBase string, endpoints []endpoint, concurrency int) []result {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]result, len(endpoints))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, ep := range endpoints {
		i, ep := i, ep
		g.Go(func() error {
			results[i] = compareOne(client, goBase, legacyBase, ep)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func compareOne(client *http.Client, goBase, legacyBase string, ep endpoint) result {
	res := result{Endpoint: ep}

	goStatus, goBody, goDur, err := fetch(client, goBase, ep)
	res.GoDuration = goDur
	if err != nil {
		res.Err = fmt.Errorf("go request: %w", err)
		return res
	}

	legacyStatus, legacyBody, legacyDur, err := fetch(client, legacyBase, ep)
	res.LegacyDuration = legacyDur
	if err != nil {
		res.Err = fmt.Errorf("legacy request: %w", err)
		return res
	}

	res.GoStatus = goStatus
	res.LegacyStatus = legacyStatus
	res.StatusMatch = goStatus == legacyStatus
	res.BodyMatch = bodiesEqual(goBody, legacyBody)
	return res
}

func fetch(client *http.Client, base string, ep endpoint) (int, []byte, time.Duration, error) {
	method := strings.ToUpper(strings.TrimSpace(ep.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := ep.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return 0, nil, 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return 0, nil, elapsed, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, elapsed, err
	}
	return resp.StatusCode, body, elapsed, nil
}

// bodiesEqual first tries a byte comparison, then falls back to a
// normalised JSON comparison that tolerates formatting differences.
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
		// meta carries processing time and cache hit flags that differ per run.
		delete(val, "meta")
		for k, nested := range val {
			normalize(&nested)
			val[k] = nested
		}
	case []interface{}:
		for i, nested := range val {
			normalize(&nested)
			val[i] = nested
		}
	case float64:
		// Treat 75 and 75.0 as the same value across serialisers.
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printReport(results []result) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("=====================")
	for _, res := range results {
		verdict := "OK"
		switch {
		case res.Err != nil:
			verdict = "ERROR"
		case res.diverged():
			verdict = "DIFF"
		}

		fmt.Printf("[%-5s] %s %s\n", verdict, res.Endpoint.Method, res.Endpoint.Path)
		if res.Err != nil {
			fmt.Printf("        %v\n", res.Err)
			continue
		}
		fmt.Printf("        go=%d (%s)  legacy=%d (%s)  status_match=%t body_match=%t critical=%t\n",
			res.GoStatus, res.GoDuration, res.LegacyStatus, res.LegacyDuration,
			res.StatusMatch, res.BodyMatch, res.Endpoint.Critical)
	}
}
