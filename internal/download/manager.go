// SPDX-License-Identifier: MPL-2.0

package download

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency bounds in-flight transfers per Acquire call.
	DefaultConcurrency = 512
	// DefaultAttempts is the per-element attempt limit.
	DefaultAttempts = 3
	// DefaultAttemptTimeout bounds a single transfer attempt.
	DefaultAttemptTimeout = 30 * time.Second
	// DefaultBackoff is the delay before the second attempt; it doubles per attempt.
	DefaultBackoff = 500 * time.Millisecond
	// DefaultMaxBackoff caps the retry delay.
	DefaultMaxBackoff = 10 * time.Second
)

type (
	// Progress is reported after every element of an Acquire call settles.
	Progress struct {
		Done   int
		Total  int
		Result Result
	}

	// Manager acquires batches of elements. A Manager is safe for
	// concurrent use; each Acquire call is independent.
	Manager struct {
		fetcher        Fetcher
		concurrency    int
		attempts       int
		attemptTimeout time.Duration
		backoff        time.Duration
		maxBackoff     time.Duration
		logger         *slog.Logger
		onProgress     func(Progress)
	}

	// Option configures a Manager during construction.
	Option func(*Manager)
)

// WithFetcher sets the source of remote objects. Default: NewHTTPFetcher().
func WithFetcher(f Fetcher) Option {
	return func(m *Manager) {
		m.fetcher = f
	}
}

// WithConcurrency sets the maximum number of in-flight transfers.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithAttempts sets the per-element attempt limit. Values below 1 are ignored.
func WithAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.attempts = n
		}
	}
}

// WithAttemptTimeout bounds each attempt. Zero disables the bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.attemptTimeout = d
	}
}

// WithBackoff sets the base and maximum retry delay. A zero base retries immediately.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(m *Manager) {
		m.backoff = base
		m.maxBackoff = maxDelay
	}
}

// WithLogger sets the logger used for retry and failure records.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithProgress registers a callback invoked after each element settles.
// Calls are serialized and Done increases by one per call.
func WithProgress(fn func(Progress)) Option {
	return func(m *Manager) {
		m.onProgress = fn
	}
}

// NewManager creates a Manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		concurrency:    DefaultConcurrency,
		attempts:       DefaultAttempts,
		attemptTimeout: DefaultAttemptTimeout,
		backoff:        DefaultBackoff,
		maxBackoff:     DefaultMaxBackoff,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.fetcher == nil {
		m.fetcher = NewHTTPFetcher()
	}
	return m
}

// Acquire fetches every element and returns one Result per element in input
// order. Elements sharing a destination path are transferred once.
//
// If any element fails, the returned error is an *IncompleteResourcesError
// holding exactly the failed results. Cancelling ctx stops scheduling new
// transfers; unfinished elements get KindCanceled results and the aggregate
// error also unwraps to ctx.Err().
func (m *Manager) Acquire(ctx context.Context, elements []Element) ([]Result, error) {
	results := make([]Result, len(elements))

	// First occurrence of each path does the work; later ones copy its result.
	first := make(map[string]int, len(elements))
	var unique []int
	for i, e := range elements {
		if _, dup := first[e.key()]; dup {
			continue
		}
		first[e.key()] = i
		unique = append(unique, i)
	}

	var (
		progressMu sync.Mutex
		done       int
	)
	settle := func(i int, r Result) {
		results[i] = r
		if m.onProgress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		done++
		m.onProgress(Progress{Done: done, Total: len(unique), Result: r})
	}

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for _, i := range unique {
		e := elements[i]
		if ctx.Err() != nil {
			settle(i, Result{Element: e, Kind: KindCanceled, Err: ctx.Err()})
			continue
		}
		g.Go(func() error {
			settle(i, m.acquireOne(ctx, e))
			return nil
		})
	}
	_ = g.Wait() // Workers never return errors; failures live in results.

	var failed []Result
	for i, e := range elements {
		if j := first[e.key()]; j != i {
			r := results[j]
			r.Element = e
			results[i] = r
		}
		if !results[i].Succeeded {
			failed = append(failed, results[i])
		}
	}

	if len(failed) > 0 {
		m.logger.Warn("resources incomplete", "failed", len(failed), "total", len(elements))
		return results, &IncompleteResourcesError{Failed: failed, Total: len(elements), Cause: ctx.Err()}
	}
	return results, nil
}

func (m *Manager) acquireOne(ctx context.Context, e Element) Result {
	res := Result{Element: e}

	if err := e.Validate(); err != nil {
		res.Kind, res.Err = KindInvalid, err
		return res
	}

	if present(e) {
		res.Succeeded, res.Skipped = true, true
		return res
	}

	for attempt := 1; attempt <= m.attempts; attempt++ {
		if attempt > 1 {
			if err := m.wait(ctx, attempt-1); err != nil {
				res.Kind, res.Err = KindCanceled, err
				return res
			}
		}
		if err := ctx.Err(); err != nil {
			res.Kind, res.Err = KindCanceled, err
			return res
		}

		res.Attempts = attempt
		err := m.transfer(ctx, e)
		if err == nil {
			res.Succeeded, res.Kind, res.Err = true, KindNone, nil
			return res
		}

		res.Kind, res.Err = classify(ctx, err), err
		if !res.Kind.Retryable() {
			break
		}
		if attempt < m.attempts {
			m.logger.Debug("download attempt failed, retrying",
				"path", e.Path, "attempt", attempt, "max_attempts", m.attempts, "kind", res.Kind, "error", err)
		}
	}

	m.logger.Warn("download failed", "path", e.Path, "url", e.URL, "attempts", res.Attempts, "kind", res.Kind, "error", res.Err)
	return res
}

// transfer performs one attempt: stream into a temporary sibling of the
// destination, verify, then rename into place.
func (m *Manager) transfer(ctx context.Context, e Element) (err error) {
	attemptCtx := ctx
	if m.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeoutCause(ctx, m.attemptTimeout, ErrAttemptTimeout)
		defer cancel()
	}

	algo, err := e.Checksum.Algorithm()
	if err != nil {
		return err
	}

	body, err := m.fetcher.Fetch(attemptCtx, e.URL)
	if err != nil {
		return timeoutCause(attemptCtx, err)
	}
	defer func() { _ = body.Close() }() // Read-only response body.

	dir := filepath.Dir(e.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrFilesystem, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(e.Path)+".*.part")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFilesystem, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			// Best-effort removal of the partially written temp file.
			_ = os.Remove(tmpPath)
		}
	}()

	var h hash.Hash
	w := io.Writer(tmp)
	if h = algo.New(); h != nil {
		w = io.MultiWriter(tmp, h)
	}

	src := io.Reader(body)
	if e.Size > 0 {
		src = io.LimitReader(body, e.Size+1)
	}
	n, err := io.Copy(w, src)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) && pathErr.Path == tmpPath {
			return fmt.Errorf("%w: %w", ErrFilesystem, err)
		}
		return timeoutCause(attemptCtx, fmt.Errorf("read %s: %w", e.URL, err))
	}

	if e.Size > 0 && n != e.Size {
		return &SizeError{Path: e.Path, Expected: e.Size, Got: n}
	}
	if h != nil {
		if got := hex.EncodeToString(h.Sum(nil)); !e.Checksum.Matches(got) {
			return &ChecksumError{Path: e.Path, Expected: string(e.Checksum), Got: got}
		}
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrFilesystem, err)
	}
	if err = os.Rename(tmpPath, e.Path); err != nil {
		return fmt.Errorf("%w: %w", ErrFilesystem, err)
	}
	return nil
}

// wait sleeps before retry n (1-based) with exponential backoff and jitter.
func (m *Manager) wait(ctx context.Context, n int) error {
	if m.backoff <= 0 {
		return ctx.Err()
	}
	d := m.backoff * time.Duration(1<<uint(n-1))
	if m.maxBackoff > 0 && d > m.maxBackoff {
		d = m.maxBackoff
	}
	// Jitter: 0.5 to 1.5 of the delay.
	d = time.Duration(float64(d) * (0.5 + rand.Float64()))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// present reports whether the destination already holds a valid copy.
func present(e Element) bool {
	info, err := os.Stat(e.Path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if e.Size > 0 && info.Size() != e.Size {
		return false
	}
	if e.Checksum != "" {
		return VerifyFile(e.Path, e.Checksum) == nil
	}
	return true
}

// timeoutCause replaces a bare deadline error with ErrAttemptTimeout when
// the attempt context expired on its own.
func timeoutCause(attemptCtx context.Context, err error) error {
	if errors.Is(context.Cause(attemptCtx), ErrAttemptTimeout) {
		return fmt.Errorf("%w: %w", ErrAttemptTimeout, err)
	}
	return err
}

func classify(ctx context.Context, err error) ErrorKind {
	switch {
	case ctx.Err() != nil:
		return KindCanceled
	case errors.Is(err, ErrChecksumMismatch), errors.Is(err, ErrSizeMismatch):
		return KindIntegrity
	case errors.Is(err, ErrFilesystem):
		return KindFilesystem
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden),
		errors.Is(err, ErrUnsupportedURL), errors.Is(err, ErrUnexpectedStatus):
		return KindUnavailable
	case errors.Is(err, ErrInvalidChecksum):
		return KindInvalid
	default:
		return KindTransient
	}
}
