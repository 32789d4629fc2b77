package executor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/jonwraymond/sessioncache/observe"
	"github.com/jonwraymond/sessioncache/session"
)

// Operation is a typed data operation, e.g. a GraphQL document.
type Operation struct {
	// Name identifies the operation for keying and telemetry.
	Name string

	// Document is the operation text sent to the server.
	Document string

	// Variables are the operation inputs.
	Variables map[string]any
}

// Options configure a single Execute call along three independent axes.
type Options struct {
	// Authenticated sends the call through the credential-bearing
	// transport. Authenticated results are never memoized.
	Authenticated bool

	// TTL bounds how long an unauthenticated result may be memoized.
	// Zero disables memoization for this call.
	TTL time.Duration

	// Tags index the memoized result for group invalidation.
	Tags []string

	// NoCache skips the memo cache for this call even when TTL is set.
	NoCache bool

	// DegradeToPublic permits one unauthenticated retry when the
	// credential is judged invalid. Only safe for public read data.
	DegradeToPublic bool
}

// Result is a successful operation outcome.
type Result struct {
	Data      json.RawMessage
	FromCache bool

	// Degraded marks a result obtained by the unauthenticated retry.
	Degraded bool
}

// gqlRequest is the wire shape posted to the endpoint.
type gqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// envelope is the wire shape of a response body.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Config configures an Executor.
type Config struct {
	// Transport posts operations. Required.
	Transport *Transport

	// MemoSize bounds the memo cache. Default: 512 entries.
	MemoSize int

	// MemoMaxTTL caps per-call TTLs. Default: 15m.
	MemoMaxTTL time.Duration

	// OnAuthExpiry is invoked with the matched signature before an
	// auth failure detected in a structured error list is surfaced.
	// Wire it to the session invalidator so callers never special-case
	// expiry.
	OnAuthExpiry func(ctx context.Context, signature string)

	Logger   observe.Logger
	Recorder observe.Recorder
	Tracer   observe.Tracer
}

// Executor runs operations against the data-fetch tier.
type Executor struct {
	transport    *Transport
	memo         *Memo
	onAuthExpiry func(ctx context.Context, signature string)
	logger       observe.Logger
	recorder     observe.Recorder
	tracer       observe.Tracer
}

// New creates an Executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Transport == nil {
		return nil, ErrNilTransport
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = observe.NopRecorder()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observe.NopTracer()
	}
	return &Executor{
		transport:    cfg.Transport,
		memo:         NewMemo(cfg.MemoSize, cfg.MemoMaxTTL),
		onAuthExpiry: cfg.OnAuthExpiry,
		logger:       cfg.Logger.WithComponent("executor"),
		recorder:     cfg.Recorder,
		tracer:       cfg.Tracer,
	}, nil
}

// Memo exposes the memoized-result cache, e.g. for wiring into the
// session invalidator.
func (e *Executor) Memo() *Memo { return e.memo }

// Execute runs the operation and classifies any failure as one of
// ErrNetwork, ErrTimeout, ErrAuth, ErrMalformed, or ErrApplication.
func (e *Executor) Execute(ctx context.Context, op Operation, opts Options) (*Result, error) {
	start := time.Now()
	ctx, span := e.tracer.StartSpan(ctx, observe.SpanMeta{
		Component: "executor",
		Operation: op.Name,
	})

	res, err := e.execute(ctx, op, opts)

	e.tracer.EndSpan(span, err)
	e.recorder.OperationDuration(ctx, "executor", time.Since(start), err)
	return res, err
}

func (e *Executor) execute(ctx context.Context, op Operation, opts Options) (*Result, error) {
	// The memo is consulted only for unauthenticated, TTL-bounded calls
	// without an explicit no-cache override. An authenticated call
	// never touches it, regardless of TTL.
	memoEligible := !opts.Authenticated && opts.TTL > 0 && !opts.NoCache

	var key string
	if memoEligible {
		k, err := memoKey(op)
		if err != nil {
			// Unkeyable variables: execute without memoization.
			memoEligible = false
		} else {
			key = k
			if data, ok := e.memo.Get(key); ok {
				return &Result{Data: data, FromCache: true}, nil
			}
		}
	}

	body, err := json.Marshal(gqlRequest{
		Query:         op.Document,
		OperationName: op.Name,
		Variables:     op.Variables,
	})
	if err != nil {
		return nil, &MalformedError{Snippet: err.Error()}
	}

	degraded := false
	resp, err := e.transport.Do(ctx, body, opts.Authenticated)
	if err != nil && opts.Authenticated && isCredentialFailure(err) {
		// The credential is bad before a response was even obtained.
		// Degrade to one unauthenticated attempt when the operation is
		// safe to serve publicly; the retry reuses the caller's
		// deadline rather than a fresh budget.
		if !opts.DegradeToPublic {
			sig, _ := session.ExpirySignature(err.Error())
			return nil, &AuthError{Signature: sig}
		}
		e.logger.Debug(ctx, "credential failure, degrading to unauthenticated",
			observe.Field{Key: "operation", Value: op.Name})
		degraded = true
		resp, err = e.transport.Do(ctx, body, false)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, &TimeoutError{Err: err}
		}
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &NetworkError{Status: resp.StatusCode, Body: raw}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// An HTML error page must be distinguishable from an empty
		// result, in the error kind and in the logs.
		merr := &MalformedError{
			ContentType: resp.Header.Get("Content-Type"),
			Snippet:     snippet(raw),
		}
		e.logger.Error(ctx, "malformed response body",
			observe.Field{Key: "operation", Value: op.Name},
			observe.Field{Key: "content_type", Value: merr.ContentType})
		return nil, merr
	}

	if len(env.Errors) > 0 {
		if sig, ok := scanErrors(env.Errors); ok {
			// Trigger the global teardown before surfacing so the
			// caller never has to special-case expiry.
			if e.onAuthExpiry != nil {
				e.onAuthExpiry(ctx, sig)
			}
			return nil, &AuthError{Signature: sig}
		}
		return nil, &ApplicationError{Errors: env.Errors}
	}

	if memoEligible {
		e.memo.Set(key, env.Data, opts.TTL, opts.Tags)
	}
	return &Result{Data: env.Data, Degraded: degraded}, nil
}

// isCredentialFailure reports whether a transport-level error indicates
// credential invalidity rather than a network problem. Credential store
// failures count: a store that cannot produce a token is handled like
// an expired one.
func isCredentialFailure(err error) bool {
	if errors.Is(err, session.ErrCredentialUnavailable) || errors.Is(err, session.ErrNoCredential) {
		return true
	}
	return session.IsAuthExpiryErr(err)
}

// scanErrors looks for an auth-expiry signature in a structured error
// list, using the shared session classifier.
func scanErrors(errs []GraphQLError) (string, bool) {
	for _, gqlErr := range errs {
		if sig, ok := session.ExpirySignature(gqlErr.Message); ok {
			return sig, true
		}
	}
	return "", false
}

// snippet truncates a body for diagnostics.
func snippet(raw []byte) string {
	const max = 256
	if len(raw) > max {
		raw = raw[:max]
	}
	return string(raw)
}
