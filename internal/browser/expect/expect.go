// internal/browser/expect/expect.go
package expect

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xkilldash9x/mockpage/internal/config"
)

const (
	DefaultTimeout  = 5 * time.Second
	DefaultInterval = 50 * time.Millisecond
)

// Options bound a polling assertion.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration
}

// DefaultOptions returns the built-in polling bounds.
func DefaultOptions() Options {
	return Options{Timeout: DefaultTimeout, Interval: DefaultInterval}
}

// OptionsFromConfig reads the polling bounds from the harness configuration.
func OptionsFromConfig(cfg config.HarnessConfig) Options {
	return Options{Timeout: cfg.AssertTimeout, Interval: cfg.PollInterval}.normalized()
}

func (o Options) normalized() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Interval > o.Timeout {
		o.Interval = o.Timeout
	}
	return o
}

// TimeoutError is returned when a condition did not hold within the timeout.
type TimeoutError struct {
	What    string
	Timeout time.Duration
	// Last describes the most recent observed state.
	Last string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s (last observed: %s)", e.Timeout, e.What, e.Last)
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(what string, timeout time.Duration, last string) *TimeoutError {
	return &TimeoutError{What: what, Timeout: timeout, Last: last}
}

// Condition reports whether the awaited state holds and describes what it saw.
type Condition func() (ok bool, observed string)

// Poll evaluates cond immediately and then on every interval until it holds,
// the timeout elapses, or ctx is done.
func Poll(ctx context.Context, opts Options, what string, cond Condition) error {
	opts = opts.normalized()

	ok, last := cond()
	if ok {
		return nil
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", what, ctx.Err())
		case <-deadline.C:
			// One last look so a state reached at the deadline still counts.
			if ok, last = cond(); ok {
				return nil
			}
			return NewTimeoutError(what, opts.Timeout, last)
		case <-ticker.C:
			if ok, last = cond(); ok {
				return nil
			}
		}
	}
}

// TitleSource is anything with a document title.
type TitleSource interface {
	Title() string
}

// Element is the read side of a locator that assertions poll.
type Element interface {
	IsVisible() bool
	InputValue() (string, error)
	GetAttribute(name string) (string, bool, error)
	TextContent() (string, error)
	String() string
}

// Expect runs assertions with shared polling bounds.
type Expect struct {
	opts Options
}

// New creates an Expect with the given bounds.
func New(opts Options) *Expect {
	return &Expect{opts: opts.normalized()}
}

// Options returns the polling bounds in use.
func (e *Expect) Options() Options {
	return e.opts
}

// ToHaveTitle waits until the whitespace-normalized title equals want.
func (e *Expect) ToHaveTitle(ctx context.Context, page TitleSource, want string) error {
	want = normalize(want)
	return Poll(ctx, e.opts, fmt.Sprintf("title %q", want), func() (bool, string) {
		got := normalize(page.Title())
		return got == want, fmt.Sprintf("title %q", got)
	})
}

// ToHaveTitleMatching waits until the title matches re.
func (e *Expect) ToHaveTitleMatching(ctx context.Context, page TitleSource, re *regexp.Regexp) error {
	return Poll(ctx, e.opts, fmt.Sprintf("title matching /%s/", re), func() (bool, string) {
		got := page.Title()
		return re.MatchString(got), fmt.Sprintf("title %q", got)
	})
}

// ToBeVisible waits until el resolves to a visible element.
func (e *Expect) ToBeVisible(ctx context.Context, el Element) error {
	return Poll(ctx, e.opts, el.String()+" to be visible", func() (bool, string) {
		if el.IsVisible() {
			return true, "visible"
		}
		return false, "hidden or missing"
	})
}

// ToBeHidden waits until el is hidden or no longer present.
func (e *Expect) ToBeHidden(ctx context.Context, el Element) error {
	return Poll(ctx, e.opts, el.String()+" to be hidden", func() (bool, string) {
		if el.IsVisible() {
			return false, "visible"
		}
		return true, "hidden or missing"
	})
}

// ToHaveValue waits until the input value of el equals want.
func (e *Expect) ToHaveValue(ctx context.Context, el Element, want string) error {
	return Poll(ctx, e.opts, fmt.Sprintf("%s to have value %q", el, want), func() (bool, string) {
		got, err := el.InputValue()
		if err != nil {
			return false, err.Error()
		}
		return got == want, fmt.Sprintf("value %q", got)
	})
}

// ToBeEmpty waits until el has an empty value (form controls) or no text.
func (e *Expect) ToBeEmpty(ctx context.Context, el Element) error {
	return Poll(ctx, e.opts, el.String()+" to be empty", func() (bool, string) {
		got, err := el.InputValue()
		if err != nil {
			text, textErr := el.TextContent()
			if textErr != nil {
				return false, textErr.Error()
			}
			got = text
		}
		return got == "", fmt.Sprintf("content %q", got)
	})
}

// ToHaveAttribute waits until el carries the attribute name. When value is
// given the attribute must also equal it.
func (e *Expect) ToHaveAttribute(ctx context.Context, el Element, name string, value ...string) error {
	what := fmt.Sprintf("%s to have attribute %q", el, name)
	if len(value) > 0 {
		what = fmt.Sprintf("%s to have attribute %s=%q", el, name, value[0])
	}
	return Poll(ctx, e.opts, what, func() (bool, string) {
		got, ok, err := el.GetAttribute(name)
		switch {
		case err != nil:
			return false, err.Error()
		case !ok:
			return false, "attribute absent"
		case len(value) > 0 && got != value[0]:
			return false, fmt.Sprintf("%s=%q", name, got)
		}
		return true, fmt.Sprintf("%s=%q", name, got)
	})
}

// ToHaveText waits until the normalized text content of el contains want.
func (e *Expect) ToHaveText(ctx context.Context, el Element, want string) error {
	return Poll(ctx, e.opts, fmt.Sprintf("%s to have text %q", el, want), func() (bool, string) {
		got, err := el.TextContent()
		if err != nil {
			return false, err.Error()
		}
		return strings.Contains(normalize(got), normalize(want)), fmt.Sprintf("text %q", got)
	})
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
