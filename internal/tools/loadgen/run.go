package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
	// Email and Password drive successful logins in the login profile.
	Email       string
	Password    string
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status3xx     int64
	Status4xx     int64
	Status429     int64
	Status5xx     int64
}

type step int

const (
	stepLoginForm step = iota
	stepLoginGood
	stepLoginBad
	stepDashboard
	stepLive
	stepReady
)

type counters struct {
	total, failures, s2xx, s3xx, s4xx, s429, s5xx atomic.Int64
}

func (c *counters) observe(status int) {
	c.total.Add(1)
	switch {
	case status == http.StatusTooManyRequests:
		c.s429.Add(1)
		c.s4xx.Add(1)
	case status >= 200 && status < 300:
		c.s2xx.Add(1)
	case status >= 300 && status < 400:
		c.s3xx.Add(1)
	case status >= 400 && status < 500:
		c.s4xx.Add(1)
	case status >= 500:
		c.s5xx.Add(1)
	}
}

func (c *counters) result() Result {
	return Result{
		TotalRequests: c.total.Load(),
		Failures:      c.failures.Load(),
		Status2xx:     c.s2xx.Load(),
		Status3xx:     c.s3xx.Load(),
		Status4xx:     c.s4xx.Load(),
		Status429:     c.s429.Load(),
		Status5xx:     c.s5xx.Load(),
	}
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return Result{}, fmt.Errorf("parse base url: %w", err)
	}
	steps := stepsForProfile(cfg.Profile)
	if len(steps) == 0 {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var c counters
	jobs := make(chan step, cfg.Concurrency*2)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Concurrency; i++ {
		jar, _ := cookiejar.New(nil)
		w := &worker{
			base: base,
			cfg:  cfg,
			client: &http.Client{
				Timeout: 5 * time.Second,
				Jar:     jar,
				CheckRedirect: func(*http.Request, []*http.Request) error {
					return http.ErrUseLastResponse
				},
			},
			rnd: rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(i))),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				status, err := w.do(ctx, s)
				if err != nil {
					c.failures.Add(1)
					continue
				}
				c.observe(status)
			}
		}()
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	i := 0
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return c.result(), nil
		case <-ticker.C:
			select {
			case jobs <- steps[i%len(steps)]:
				i++
			case <-ctx.Done():
			}
		}
	}
}

type worker struct {
	base   *url.URL
	cfg    Config
	client *http.Client
	rnd    *rand.Rand
}

func (w *worker) do(ctx context.Context, s step) (int, error) {
	switch s {
	case stepLoginForm:
		return w.get(ctx, "/Login")
	case stepLoginGood:
		if w.cfg.Email == "" {
			return w.login(ctx, "loadgen@example.invalid", "wrong")
		}
		return w.login(ctx, w.cfg.Email, w.cfg.Password)
	case stepLoginBad:
		return w.login(ctx, fmt.Sprintf("user%d@example.invalid", w.rnd.IntN(1000)), "wrong")
	case stepDashboard:
		return w.get(ctx, "/Dashboard/Dashboard")
	case stepLive:
		return w.get(ctx, "/health/live")
	case stepReady:
		return w.get(ctx, "/health/ready")
	default:
		return 0, fmt.Errorf("unknown step %d", s)
	}
}

func (w *worker) get(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.base.String()+path, nil)
	if err != nil {
		return 0, err
	}
	return w.send(req)
}

// login fetches the form first so the jar holds a CSRF cookie to echo back.
func (w *worker) login(ctx context.Context, email, password string) (int, error) {
	if status, err := w.get(ctx, "/Login"); err != nil || status != http.StatusOK {
		if err == nil {
			err = fmt.Errorf("login form returned %d", status)
		}
		return status, err
	}
	token := ""
	for _, ck := range w.client.Jar.Cookies(w.base) {
		if ck.Name == "csrf_token" {
			token = ck.Value
		}
	}
	form := url.Values{"Email": {email}, "Password": {password}, "csrf_token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.base.String()+"/Login", strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return w.send(req)
}

func (w *worker) send(req *http.Request) (int, error) {
	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func stepsForProfile(profile string) []step {
	switch strings.ToLower(profile) {
	case "", "mixed":
		return []step{stepLoginForm, stepLoginGood, stepDashboard, stepLoginBad, stepLive, stepReady}
	case "login":
		return []step{stepLoginGood, stepDashboard}
	case "brute-force":
		return []step{stepLoginBad}
	case "probes":
		return []step{stepLive, stepReady}
	default:
		return nil
	}
}
