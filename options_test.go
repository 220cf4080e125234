package pagetext_test

import (
	"testing"
	"time"

	"github.com/fwojciec/pagetext"
	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := pagetext.DefaultOptions()

	assert.False(t, opts.UseJavaScript)
	assert.False(t, opts.ForceBrowser)
	assert.True(t, opts.Scroll())
	assert.Equal(t, "body", opts.WaitForSelector)
	assert.Equal(t, 2*time.Second, opts.PostScrollWait)
	assert.Zero(t, opts.Timeout)
}

func TestExtractionOptions_ZeroValueResolvesToDefaults(t *testing.T) {
	t.Parallel()

	var opts pagetext.ExtractionOptions
	defaults := pagetext.DefaultOptions()

	assert.Equal(t, defaults.Selector(), opts.Selector())
	assert.Equal(t, defaults.Scroll(), opts.Scroll())
	assert.Equal(t, defaults.ScrollWait(), opts.ScrollWait())
	assert.Equal(t, "body", opts.Selector())
	assert.True(t, opts.Scroll())
	assert.Equal(t, pagetext.DefaultPostScrollWait, opts.ScrollWait())
}

func TestExtractionOptions_Scroll(t *testing.T) {
	t.Parallel()

	assert.True(t, pagetext.ExtractionOptions{}.Scroll())
	assert.False(t, pagetext.ExtractionOptions{NoScroll: true}.Scroll())
}

func TestExtractionOptions_ScrollWait(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		wait time.Duration
		want time.Duration
	}{
		{name: "zero uses the default", wait: 0, want: pagetext.DefaultPostScrollWait},
		{name: "positive is kept", wait: 500 * time.Millisecond, want: 500 * time.Millisecond},
		{name: "negative disables the wait", wait: -1, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, pagetext.ExtractionOptions{PostScrollWait: tt.wait}.ScrollWait())
		})
	}
}

func TestExtractionOptions_TimeoutOr(t *testing.T) {
	t.Parallel()

	assert.Equal(t, pagetext.DefaultStaticTimeout, pagetext.ExtractionOptions{}.TimeoutOr(pagetext.DefaultStaticTimeout))
	assert.Equal(t, 5*time.Second, pagetext.ExtractionOptions{Timeout: 5 * time.Second}.TimeoutOr(pagetext.DefaultDynamicTimeout))
}

func TestExtractionOptions_Selector(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "body", pagetext.ExtractionOptions{}.Selector())
	assert.Equal(t, "#app", pagetext.ExtractionOptions{WaitForSelector: "#app"}.Selector())
}
