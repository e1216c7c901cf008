// Package upstream builds prompts, calls the generative-language provider and
// normalizes its failures.
package upstream

import (
	"context"
	"errors"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/akio-byte/navaltutka/internal/circuitbreaker"
)

const DefaultTimeout = 15 * time.Second

var tracer = otel.Tracer("github.com/akio-byte/navaltutka/internal/upstream")

// Observer receives call outcomes. Outcome is "ok" or an ErrorCode.
type Observer interface {
	ObserveUpstream(mode, outcome string, elapsed time.Duration)
	ObserveChunk()
}

// KeyBencher takes a key out of rotation after the provider throttled or
// rejected it.
type KeyBencher interface {
	Bench(key string)
}

type Options struct {
	Model         string
	Timeout       time.Duration // blocking calls
	StreamTimeout time.Duration // 0 leaves streams bounded only by the caller
	Keys          KeyFunc
	Bencher       KeyBencher // optional
	Factory       ProviderFactory
	Breaker       *circuitbreaker.CircuitBreaker
	Observer      Observer
	Logger        *zap.Logger
}

type Client struct {
	model         string
	timeout       time.Duration
	streamTimeout time.Duration
	keys          KeyFunc
	bencher       KeyBencher
	factory       ProviderFactory
	breaker       *circuitbreaker.CircuitBreaker
	observer      Observer
	logger        *zap.Logger
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Keys == nil {
		opts.Keys = EnvKeys("")
	}
	if opts.Factory == nil {
		opts.Factory = GeminiFactory()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		model:         opts.Model,
		timeout:       opts.Timeout,
		streamTimeout: opts.StreamTimeout,
		keys:          opts.Keys,
		bencher:       opts.Bencher,
		factory:       opts.Factory,
		breaker:       opts.Breaker,
		observer:      opts.Observer,
		logger:        opts.Logger,
	}
}

// EnvKeys prefers the configured key, then GEMINI_API_KEY, then API_KEY. The
// environment is read on every call.
func EnvKeys(configured string) KeyFunc {
	return func() string {
		if configured != "" {
			return configured
		}
		if k := os.Getenv("GEMINI_API_KEY"); k != "" {
			return k
		}
		return os.Getenv("API_KEY")
	}
}

// NewRequest binds a prompt to the client's model.
func (c *Client) NewRequest(p Prompt, streaming bool) Request {
	return Request{Model: c.model, Prompt: p.String(), Streaming: streaming}
}

func (c *Client) provider(ctx context.Context) (Provider, string, error) {
	key := c.keys()
	if key == "" {
		return nil, "", &Error{Code: CodeMissingKey, Err: ErrMissingKey}
	}
	p, err := c.factory(ctx, key)
	if err != nil {
		return nil, "", &Error{Code: Classify(err), Err: err}
	}
	return p, key, nil
}

func (c *Client) bench(key string, code ErrorCode) {
	if c.bencher == nil {
		return
	}
	if code == CodeRateLimit || code == CodeAuthInvalid {
		c.bencher.Bench(key)
	}
}

func (c *Client) admit() error {
	if c.breaker == nil {
		return nil
	}
	if err := c.breaker.Allow(); err != nil {
		return breakerError(err)
	}
	return nil
}

func (c *Client) record(err error) {
	if c.breaker != nil {
		c.breaker.Record(err)
	}
}

func (c *Client) observe(mode string, code ErrorCode, start time.Time) {
	if c.observer == nil {
		return
	}
	outcome := "ok"
	if code != "" {
		outcome = string(code)
	}
	c.observer.ObserveUpstream(mode, outcome, time.Since(start))
}

// Generate performs one blocking call bounded by the client timeout.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	ctx, span := tracer.Start(ctx, "upstream.Generate", trace.WithAttributes(
		attribute.String("upstream.model", req.Model),
		attribute.Int("upstream.prompt_bytes", len(req.Prompt)),
	))
	defer span.End()

	p, key, err := c.provider(ctx)
	if err != nil {
		failSpan(span, err)
		return "", err
	}
	if err := c.admit(); err != nil {
		failSpan(span, err)
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := p.Generate(ctx, req.Model, req.Prompt)
	if err != nil {
		code := Classify(err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			code = CodeTimeout
		}
		ue := &Error{Code: code, Err: err}
		c.record(ue)
		c.bench(key, code)
		c.observe("generate", code, start)
		failSpan(span, ue)
		c.logger.Warn("upstream generate failed",
			zap.String("code", string(code)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ue
	}

	c.record(nil)
	c.observe("generate", "", start)
	span.SetAttributes(attribute.Int("upstream.response_bytes", len(text)))
	return text, nil
}

// Stream starts a streaming call. Setup failures (missing key, open circuit)
// are returned directly; anything after that arrives as an Error event. The
// channel is closed when the stream ends or ctx is cancelled.
func (c *Client) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	ctx, span := tracer.Start(ctx, "upstream.Stream", trace.WithAttributes(
		attribute.String("upstream.model", req.Model),
		attribute.Int("upstream.prompt_bytes", len(req.Prompt)),
	))

	p, key, err := c.provider(ctx)
	if err != nil {
		failSpan(span, err)
		span.End()
		return nil, err
	}
	if err := c.admit(); err != nil {
		failSpan(span, err)
		span.End()
		return nil, err
	}

	events := make(chan Event)
	go c.pump(ctx, span, p, key, req, events)
	return events, nil
}

func (c *Client) pump(parent context.Context, span trace.Span, p Provider, key string, req Request, out chan<- Event) {
	defer close(out)
	defer span.End()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.streamTimeout > 0 {
		ctx, cancel = context.WithTimeout(parent, c.streamTimeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	defer cancel()

	start := time.Now()
	chunks := 0
	send := func(ev Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	// terminal events only give up when the caller has gone away
	finish := func(ev Event) {
		select {
		case out <- ev:
		case <-parent.Done():
		}
	}
	aborted := func() bool {
		if parent.Err() == nil {
			return false
		}
		// aborts do not count against the circuit
		c.record(nil)
		c.observe("stream", "aborted", start)
		span.SetAttributes(attribute.Bool("upstream.aborted", true))
		return true
	}

	for text, err := range p.Stream(ctx, req.Model, req.Prompt) {
		if err != nil {
			if aborted() {
				return
			}
			code := Classify(err)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				code = CodeTimeout
			}
			ue := &Error{Code: code, Err: err}
			c.record(ue)
			c.bench(key, code)
			c.observe("stream", code, start)
			failSpan(span, ue)
			c.logger.Warn("upstream stream failed",
				zap.String("code", string(code)),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			finish(Failed(code))
			return
		}
		if text == "" {
			continue
		}
		if !send(Chunk(text)) {
			break
		}
		chunks++
		if c.observer != nil {
			c.observer.ObserveChunk()
		}
	}
	span.SetAttributes(attribute.Int("upstream.chunks", chunks))

	if aborted() {
		return
	}
	if err := ctx.Err(); err != nil {
		// stream deadline fired between chunks
		ue := &Error{Code: CodeTimeout, Err: err}
		c.record(ue)
		c.observe("stream", CodeTimeout, start)
		failSpan(span, ue)
		finish(Failed(CodeTimeout))
		return
	}

	c.record(nil)
	c.observe("stream", "", start)
	finish(Done())
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	code := string(CodeGeneric)
	var ue *Error
	if errors.As(err, &ue) {
		code = string(ue.Code)
	}
	span.SetStatus(otelcodes.Error, code)
}

// NewBreaker builds a circuit breaker that only counts provider-side failures
// (timeouts and generic errors).
func NewBreaker(maxFailures int, cooldown time.Duration, halfOpenSuccess int, logger *zap.Logger) *circuitbreaker.CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return circuitbreaker.New(circuitbreaker.Config{
		MaxFailures:     maxFailures,
		Cooldown:        cooldown,
		HalfOpenSuccess: halfOpenSuccess,
		IsFailure:       countsAgainstCircuit,
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("upstream circuit changed state",
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
}
