package prober

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nao1215/aiscout/internal/config"
	"github.com/nao1215/aiscout/internal/model"
)

// Probe failure modes.
var (
	// ErrNoChatInterface is returned when the target page carries nothing
	// that looks like a chat frontend. Callers treat this as a verified
	// negative, not an iteration failure.
	ErrNoChatInterface = errors.New("no chat interface detected on target")

	// ErrUnreachable is returned when the target cannot be fetched at all.
	ErrUnreachable = errors.New("target unreachable")
)

// DefaultPrompts is the fixed battery sent to every detected chat
// interface. The battery mixes small talk, an explanation task, a creative
// task, arithmetic, and a factual question so the outcome spread says
// something about response quality, not just liveness.
func DefaultPrompts() []string {
	return []string{
		"Hello, how are you today?",
		"Explain the concept of artificial intelligence",
		"Write a short poem about technology",
		"Solve: 2 + 2 = ?",
		"What is the capital of Brazil?",
	}
}

// Prober probes one candidate endpoint and discovers related ones.
// Implementations must be safe for concurrent use; every worker goroutine
// shares one instance.
type Prober interface {
	// Probe examines the target and condenses the observation into a
	// ProbeResult. ErrNoChatInterface means the target answered but is
	// not a chat frontend; ErrUnreachable wraps fetch failures.
	Probe(ctx context.Context, target string) (*model.ProbeResult, error)

	// DiscoverRelated fetches the domain's page and returns candidate
	// chat endpoint URLs linked from it.
	DiscoverRelated(ctx context.Context, domain string) ([]string, error)
}

// Options configures HTTPProber behavior.
type Options struct {
	// UserAgent identifies probe traffic.
	UserAgent string

	// MaxBodySize bounds how much of a page is read.
	MaxBodySize int64

	// Prompts overrides the default prompt battery when non-empty.
	Prompts []string

	// TargetConfigs supplies per-target cookie and header overrides.
	TargetConfigs *config.File

	// Logger receives probe diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// HTTPProber probes endpoints over plain HTTP(S).
//
// Design decision: The HTTP client is injected rather than constructed
// here so the same prober code runs over direct transport or through
// anonet's SOCKS5 routing. The prober owns request shaping (user agent,
// per-target credentials); the client owns transport.
type HTTPProber struct {
	// client performs all probe traffic.
	client *http.Client

	// userAgent identifies probe requests.
	userAgent string

	// maxBodySize bounds page reads.
	maxBodySize int64

	// prompts is the test battery.
	prompts []string

	// targetConfigs holds per-target cookie/header overrides, may be nil.
	targetConfigs *config.File

	// logger receives diagnostics.
	logger *slog.Logger
}

// NewHTTPProber creates a prober over the given HTTP client.
func NewHTTPProber(client *http.Client, opts Options) *HTTPProber {
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = config.DefaultMaxBodySize
	}
	if len(opts.Prompts) == 0 {
		opts.Prompts = DefaultPrompts()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &HTTPProber{
		client:        client,
		userAgent:     opts.UserAgent,
		maxBodySize:   opts.MaxBodySize,
		prompts:       opts.Prompts,
		targetConfigs: opts.TargetConfigs,
		logger:        opts.Logger,
	}
}

// Probe fetches the target, detects a chat interface, runs the prompt
// battery, and scores the outcomes.
func (p *HTTPProber) Probe(ctx context.Context, target string) (*model.ProbeResult, error) {
	body, err := p.fetch(ctx, target, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, target, err)
	}

	classification, found := detectInterface(body)
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNoChatInterface, target)
	}

	outcomes := p.runPrompts(ctx, target)
	metrics, availability := scoreOutcomes(outcomes)

	result := &model.ProbeResult{
		URL:            target,
		Name:           classification,
		Classification: classification,
		DetectedModel:  extractModel(body),
		Metrics:        metrics,
		Availability:   availability,
		Metadata: map[string]string{
			"html_size": strconv.Itoa(len(body)),
		},
		Outcomes: outcomes,
		ProbedAt: time.Now(),
	}
	return result, nil
}

// runPrompts sends each battery prompt as a query against the target and
// records latency and success per prompt. A prompt counts as successful
// when the endpoint answers with a non-error status.
func (p *HTTPProber) runPrompts(ctx context.Context, target string) []model.ProbeOutcome {
	outcomes := make([]model.ProbeOutcome, 0, len(p.prompts))
	for _, prompt := range p.prompts {
		start := time.Now()
		_, err := p.fetch(ctx, target, prompt)
		latency := time.Since(start)

		outcome := model.ProbeOutcome{
			Label:     prompt,
			Latency:   latency,
			Success:   err == nil,
			Timestamp: time.Now(),
		}
		if err != nil {
			outcome.Payload = err.Error()
			p.logger.Debug("prompt probe failed",
				"url", target, "prompt", prompt, "error", err)
		}
		outcomes = append(outcomes, outcome)

		if ctx.Err() != nil {
			break
		}
	}
	return outcomes
}

// fetch retrieves the target page, optionally carrying a prompt as the q
// query parameter, and returns at most maxBodySize bytes of its body.
func (p *HTTPProber) fetch(ctx context.Context, target, prompt string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build probe request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	if prompt != "" {
		q := req.URL.Query()
		q.Set("q", prompt)
		req.URL.RawQuery = q.Encode()
	}

	if p.targetConfigs != nil {
		tc := p.targetConfigs.GetTargetConfig(target)
		if tc.Cookie != "" {
			req.Header.Set("Cookie", tc.Cookie)
		}
		for key, value := range tc.Headers {
			req.Header.Set(key, value)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(data), nil
}

// scoreOutcomes condenses the prompt battery into the four quality metrics
// plus the availability ratio.
//
// The heuristics are deliberately coarse: quality scales with how many
// prompts got answered, restriction is its inverse, latency maps average
// response time onto the 10-point scale, and accessibility is a two-level
// score keyed on whether most of the battery succeeded.
func scoreOutcomes(outcomes []model.ProbeOutcome) (model.QualityMetrics, float64) {
	if len(outcomes) == 0 {
		return model.QualityMetrics{
			ResponseQuality:    1,
			RestrictionLevel:   10,
			LatencyScore:       1,
			AccessibilityScore: 1,
		}, 0
	}

	successes := 0
	var totalLatency time.Duration
	for _, o := range outcomes {
		if o.Success {
			successes++
			totalLatency += o.Latency
		}
	}

	quality := clampMetric(float64(successes * 2))
	restriction := clampMetric(float64(10 - successes))

	latencyScore := 1.0
	if successes > 0 {
		avgSeconds := (totalLatency / time.Duration(successes)).Seconds()
		latencyScore = clampMetric(10 - avgSeconds)
	}

	accessibility := 3.0
	if successes > len(outcomes)/2 {
		accessibility = 8.0
	}

	availability := float64(successes) / float64(len(outcomes))

	return model.QualityMetrics{
		ResponseQuality:    quality,
		RestrictionLevel:   restriction,
		LatencyScore:       latencyScore,
		AccessibilityScore: accessibility,
	}, availability
}

// clampMetric clamps a score to [1, 10].
func clampMetric(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
