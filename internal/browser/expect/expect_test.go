package expect

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/mockpage/internal/config"
)

// fakeElement is a hand-rolled Element whose state tests change concurrently.
type fakeElement struct {
	mu      sync.Mutex
	visible bool
	value   string
	text    string
	attrs   map[string]string
	noValue bool
}

func (f *fakeElement) set(fn func(*fakeElement)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeElement) IsVisible() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible
}

func (f *fakeElement) InputValue() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noValue {
		return "", errors.New("not a form control")
	}
	return f.value, nil
}

func (f *fakeElement) GetAttribute(name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.attrs[name]
	return v, ok, nil
}

func (f *fakeElement) TextContent() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, nil
}

func (f *fakeElement) String() string { return "fake" }

type fakeTitle struct {
	mu    sync.Mutex
	title string
}

func (f *fakeTitle) Title() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.title
}

func fast() *Expect {
	return New(Options{Timeout: 100 * time.Millisecond, Interval: 5 * time.Millisecond})
}

func TestPoll(t *testing.T) {
	t.Run("Immediate Success", func(t *testing.T) {
		calls := 0
		err := Poll(context.Background(), DefaultOptions(), "ready", func() (bool, string) {
			calls++
			return true, "ready"
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("Eventual Success", func(t *testing.T) {
		calls := 0
		err := Poll(context.Background(), Options{Timeout: time.Second, Interval: time.Millisecond}, "third call", func() (bool, string) {
			calls++
			return calls >= 3, "calls"
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("Timeout Reports Last State", func(t *testing.T) {
		start := time.Now()
		err := Poll(context.Background(), Options{Timeout: 30 * time.Millisecond, Interval: 5 * time.Millisecond}, "never", func() (bool, string) {
			return false, "still waiting"
		})
		var timeoutErr *TimeoutError
		require.True(t, errors.As(err, &timeoutErr))
		assert.Equal(t, "never", timeoutErr.What)
		assert.Equal(t, 30*time.Millisecond, timeoutErr.Timeout)
		assert.Equal(t, "still waiting", timeoutErr.Last)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Poll(ctx, Options{Timeout: time.Second, Interval: 10 * time.Millisecond}, "cancelled", func() (bool, string) {
			return false, ""
		})
		assert.ErrorIs(t, err, context.Canceled)
		var timeoutErr *TimeoutError
		assert.False(t, errors.As(err, &timeoutErr))
	})
}

func TestOptions(t *testing.T) {
	opts := OptionsFromConfig(config.HarnessConfig{AssertTimeout: 2 * time.Second, PollInterval: 10 * time.Millisecond})
	assert.Equal(t, Options{Timeout: 2 * time.Second, Interval: 10 * time.Millisecond}, opts)

	assert.Equal(t, DefaultOptions(), New(Options{}).Options())
	assert.Equal(t, Options{Timeout: time.Millisecond, Interval: time.Millisecond}, New(Options{Timeout: time.Millisecond, Interval: time.Second}).Options())
}

func TestAssertions(t *testing.T) {
	ctx := context.Background()

	t.Run("Title Changes During Polling", func(t *testing.T) {
		page := &fakeTitle{title: "AppRabbit Admin - Login"}
		go func() {
			time.Sleep(10 * time.Millisecond)
			page.mu.Lock()
			page.title = "  AppRabbit Admin -   Dashboard "
			page.mu.Unlock()
		}()
		require.NoError(t, fast().ToHaveTitle(ctx, page, "AppRabbit Admin - Dashboard"))
		require.NoError(t, fast().ToHaveTitleMatching(ctx, page, regexp.MustCompile(`Dashboard\s*$`)))
	})

	t.Run("Title Mismatch Times Out", func(t *testing.T) {
		err := fast().ToHaveTitle(ctx, &fakeTitle{title: "AppRabbit Admin - Login"}, "AppRabbit Admin - Dashboard")
		var timeoutErr *TimeoutError
		require.True(t, errors.As(err, &timeoutErr))
		assert.Equal(t, `title "AppRabbit Admin - Login"`, timeoutErr.Last)
	})

	t.Run("Visibility", func(t *testing.T) {
		el := &fakeElement{}
		go func() {
			time.Sleep(10 * time.Millisecond)
			el.set(func(f *fakeElement) { f.visible = true })
		}()
		require.NoError(t, fast().ToBeVisible(ctx, el))
		var timeoutErr *TimeoutError
		assert.True(t, errors.As(fast().ToBeHidden(ctx, el), &timeoutErr))

		el.set(func(f *fakeElement) { f.visible = false })
		assert.NoError(t, fast().ToBeHidden(ctx, el))
	})

	t.Run("Values", func(t *testing.T) {
		el := &fakeElement{value: "test@apprabbit.com"}
		require.NoError(t, fast().ToHaveValue(ctx, el, "test@apprabbit.com"))

		var timeoutErr *TimeoutError
		assert.True(t, errors.As(fast().ToBeEmpty(ctx, el), &timeoutErr))
		el.set(func(f *fakeElement) { f.value = "" })
		assert.NoError(t, fast().ToBeEmpty(ctx, el))

		textOnly := &fakeElement{noValue: true, text: ""}
		assert.NoError(t, fast().ToBeEmpty(ctx, textOnly))
	})

	t.Run("Attributes And Text", func(t *testing.T) {
		el := &fakeElement{attrs: map[string]string{"required": "", "type": "email"}, text: "You are logged in as: admin@apprabbit.com"}
		require.NoError(t, fast().ToHaveAttribute(ctx, el, "required"))
		require.NoError(t, fast().ToHaveAttribute(ctx, el, "type", "email"))

		var timeoutErr *TimeoutError
		assert.True(t, errors.As(fast().ToHaveAttribute(ctx, el, "type", "password"), &timeoutErr))
		assert.True(t, errors.As(fast().ToHaveAttribute(ctx, el, "disabled"), &timeoutErr))
		assert.Equal(t, "attribute absent", timeoutErr.Last)

		require.NoError(t, fast().ToHaveText(ctx, el, "logged in as:  admin@apprabbit.com"))
	})
}
