package main

import (
	"bytes"
	"fmt"
	json "github.com/goccy/go-json"
	"github.com/spf13/pflag"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"
	"time"
)

const numWorkers = 50

var (
	baseURL      string
	testDuration time.Duration
	bearer       string
)

var insightTypes = []string{"account", "posts", "stories", "audience"}

var httpClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	degraded bool
	latency  time.Duration
}

// endpointSummary groups responses by status class. Degraded responses are
// 200s served from fallback data and are also counted in ok.
type endpointSummary struct {
	endpoint  string
	ok        int
	degraded  int
	client    int
	server    int
	transport int
	p50       time.Duration
	p95       time.Duration
	max       time.Duration
}

func main() {
	var email, password string
	pflag.StringVar(&baseURL, "url", "http://127.0.0.1:8090", "server base URL")
	pflag.DurationVar(&testDuration, "duration", 10*time.Second, "duration of each phase")
	pflag.StringVar(&email, "email", "", "login email of a seeded user")
	pflag.StringVar(&password, "password", "", "login password")
	pflag.Parse()

	fmt.Println("=== InstaMetrics Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n\n", numWorkers, testDuration)

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			os.Exit(1)
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	token, err := login(email, password)
	if err != nil {
		fmt.Printf("FAILED: login: %s\n", err)
		os.Exit(1)
	}
	bearer = "Bearer " + token

	// Phase 1: cold reads fill the response cache
	fmt.Println("\n--- Phase 1: Insights (cold then cached) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doInsights(rng)
	})

	// Phase 2: dashboard mix
	fmt.Println("\n--- Phase 2: Dashboard mix (50% insights, 30% followers, 20% other) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.50:
			return doInsights(rng)
		case r < 0.65:
			return doGet("GET /api/followers", "/api/followers")
		case r < 0.80:
			days := []int{7, 30, 90}[rng.Intn(3)]
			return doGet("GET /api/followers/growth", fmt.Sprintf("/api/followers/growth?days=%d", days))
		case r < 0.90:
			return doGet("GET /api/token", "/api/token")
		default:
			return doGet("GET /api/auth/validate", "/api/auth/validate")
		}
	})
}

func login(email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := httpClient.Post(baseURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, out.Error)
	}
	return out.Data.Token, nil
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					results <- workFn(rng)
				}
			}
		}(rand.Int63() + int64(i))
	}

	var collected []result
	done := make(chan struct{})
	go func() {
		for r := range results {
			collected = append(collected, r)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	report(os.Stdout, summarize(collected), duration)
}

func summarize(results []result) []endpointSummary {
	latencies := map[string][]time.Duration{}
	byEndpoint := map[string]*endpointSummary{}
	for _, r := range results {
		s, ok := byEndpoint[r.endpoint]
		if !ok {
			s = &endpointSummary{endpoint: r.endpoint}
			byEndpoint[r.endpoint] = s
		}
		switch {
		case r.status == 0:
			s.transport++
		case r.status >= 500:
			s.server++
		case r.status >= 400:
			s.client++
		default:
			s.ok++
			if r.degraded {
				s.degraded++
			}
		}
		latencies[r.endpoint] = append(latencies[r.endpoint], r.latency)
	}

	out := make([]endpointSummary, 0, len(byEndpoint))
	for ep, s := range byEndpoint {
		l := latencies[ep]
		slices.Sort(l)
		s.p50, s.p95, s.max = rank(l, 50), rank(l, 95), l[len(l)-1]
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b endpointSummary) int { return strings.Compare(a.endpoint, b.endpoint) })
	return out
}

// rank is the nearest-rank percentile of sorted latencies.
func rank(sorted []time.Duration, pct int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct*len(sorted)+99)/100 - 1
	return sorted[max(idx, 0)]
}

func report(out io.Writer, summaries []endpointSummary, duration time.Duration) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "endpoint\tok\tdegraded\t4xx\t5xx\tnet\tp50\tp95\tmax\t")

	var total, failed, degraded int
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\t%s\t\n",
			s.endpoint, s.ok, s.degraded, s.client, s.server, s.transport,
			s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.max.Round(time.Microsecond))
		total += s.ok + s.client + s.server + s.transport
		failed += s.server + s.transport
		degraded += s.degraded
	}
	w.Flush()

	fmt.Fprintf(out, "%d requests in %s (%.0f/s), %d failed, %d degraded\n",
		total, duration, float64(total)/duration.Seconds(), failed, degraded)
}

func doInsights(rng *rand.Rand) result {
	kind := insightTypes[rng.Intn(len(insightTypes))]
	return doGet("GET /api/insights?type="+kind, "/api/insights?type="+kind)
}

func doGet(endpoint, path string) result {
	req, _ := http.NewRequest(http.MethodGet, baseURL+path, nil)
	req.Header.Set("Authorization", bearer)
	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return result{endpoint: endpoint, latency: time.Since(start)}
	}
	defer resp.Body.Close()

	var body struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	io.Copy(io.Discard, resp.Body)
	return result{
		endpoint: endpoint,
		status:   resp.StatusCode,
		degraded: body.Data.Status == "degraded",
		latency:  time.Since(start),
	}
}
