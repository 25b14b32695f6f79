package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type target struct {
	Method       string `json:"method"`
	Path         string `json:"path"`
	Body         string `json:"body"`
	Auth         bool   `json:"auth"`
	ExpectStatus int    `json:"expectStatus"`
	Critical     bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type result struct {
	Target   target
	Status   int
	Duration time.Duration
	Problems []string
	Error    error
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func main() {
	var (
		base        string
		token       string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&token, "token", os.Getenv("CAMPUS_CONNECT_TOKEN"), "Bearer token for targets marked auth")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "envelope_check", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := resty.New().SetBaseURL(strings.TrimRight(base, "/")).SetTimeout(timeout)

	var (
		results  []result
		breaking int
		warnings int
	)
	for _, t := range targets {
		res := checkTarget(client, token, t)
		if res.Error != nil || len(res.Problems) > 0 {
			if t.Critical {
				breaking++
			} else {
				warnings++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Breaking: %d, Warnings: %d\n", breaking, warnings)
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

func checkTarget(client *resty.Client, token string, tgt target) result {
	res := result{Target: tgt}
	if client == nil {
		res.Error = errors.New("nil client")
		return res
	}

	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req := client.R().SetHeader("Accept", "application/json")
	if tgt.Body != "" {
		req.SetHeader("Content-Type", "application/json").SetBody(tgt.Body)
	}
	if tgt.Auth && token != "" {
		req.SetAuthToken(token)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		res.Error = err
		return res
	}
	res.Status = resp.StatusCode()
	res.Duration = resp.Time()
	if tgt.ExpectStatus != 0 && tgt.ExpectStatus != res.Status {
		res.Problems = append(res.Problems, fmt.Sprintf("expected status %d", tgt.ExpectStatus))
	}
	res.Problems = append(res.Problems, checkEnvelope(res.Status, resp.Header().Get("X-Request-ID"), resp.Body())...)
	return res
}

// checkEnvelope reports every way body deviates from the response envelope.
func checkEnvelope(status int, requestID string, body []byte) []string {
	var problems []string
	if requestID == "" {
		problems = append(problems, "missing X-Request-ID header")
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return append(problems, "body is not a JSON envelope")
	}
	if env.Success == nil {
		return append(problems, "missing success flag")
	}

	failed := status >= http.StatusBadRequest
	if *env.Success == failed {
		problems = append(problems, fmt.Sprintf("success=%t does not match status %d", *env.Success, status))
	}
	if !failed {
		if len(env.Data) == 0 {
			problems = append(problems, "missing data")
		}
		return problems
	}

	if env.Error == nil {
		return append(problems, "missing error object")
	}
	if env.Error.Code == "" {
		problems = append(problems, "missing error code")
	}
	if env.Error.Message == "" {
		problems = append(problems, "missing error message")
	}
	if env.Error.RequestID != requestID {
		problems = append(problems, "error requestId does not echo X-Request-ID")
	}
	return problems
}

func printReport(results []result) {
	fmt.Println("Envelope Check Report")
	fmt.Println("=====================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if len(res.Problems) > 0 {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Printf("  Status: %d (%s) | Critical: %t\n", res.Status, res.Duration, res.Target.Critical)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		}
		for _, p := range res.Problems {
			fmt.Printf("  - %s\n", p)
		}
	}
}
