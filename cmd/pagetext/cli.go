package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fwojciec/pagetext"
)

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	URL string `arg:"" required:"" help:"URL to extract (https:// is assumed when no scheme is given)"`

	JS             bool          `name:"js" help:"Render in a browser first, falling back to a plain fetch"`
	ForceBrowser   bool          `help:"Render in a browser only, never fall back"`
	Timeout        time.Duration `short:"t" help:"Timeout per step (default: 30s browser, 10s plain fetch)"`
	WaitFor        string        `default:"body" help:"CSS selector to wait for after navigation"`
	NoScroll       bool          `help:"Do not scroll the page to load lazy content"`
	PostScrollWait time.Duration `default:"2s" help:"Wait after scrolling (negative disables)"`
	BrowserBin     string        `env:"PAGETEXT_BROWSER" help:"Chrome executable (default: found or downloaded)"`

	Policy   string        `type:"path" help:"YAML file listing hosts that need a browser"`
	Cache    string        `type:"path" env:"PAGETEXT_CACHE" help:"SQLite file for caching results"`
	CacheTTL time.Duration `default:"1h" help:"How long cached results stay fresh"`
	RPS      float64       `help:"Maximum requests per second per host (0 disables)"`

	Format  string `short:"f" enum:"text,json" default:"text" help:"Output format (text, json)"`
	Verbose bool   `short:"v" help:"Log debug output to stderr"`
}

// Options converts flags into extraction options.
func (c *CLI) Options() pagetext.ExtractionOptions {
	return pagetext.ExtractionOptions{
		UseJavaScript:   c.JS,
		ForceBrowser:    c.ForceBrowser,
		Timeout:         c.Timeout,
		WaitForSelector: c.WaitFor,
		NoScroll:        c.NoScroll,
		PostScrollWait:  c.PostScrollWait,
	}
}

type jsonResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`
}

func writeResult(w io.Writer, format string, r *pagetext.ExtractionResult) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonResult{
			Title:       r.Title,
			URL:         r.URL,
			Content:     r.Content,
			Description: r.Description,
			Source:      r.Source,
		})
	}

	if _, err := fmt.Fprintf(w, "# %s\n%s\n\n", r.Title, r.URL); err != nil {
		return err
	}
	if r.Description != "" {
		if _, err := fmt.Fprintf(w, "%s\n\n", r.Description); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, r.Content)
	return err
}
