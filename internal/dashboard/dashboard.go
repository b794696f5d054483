package dashboard

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/output"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/sentiment"
)

//go:embed index.html.tmpl
var pageSource string

var page = template.Must(template.New("index").Funcs(template.FuncMap{
	"num": func(v float64) string { return fmt.Sprintf("%g", v) },
}).Parse(pageSource))

// Options tune the rendered page.
type Options struct {
	Title     string
	ValueURL  string
	RefreshMS int64
}

// DefaultOptions polls gsi_value.json next to the page every five minutes.
func DefaultOptions() Options {
	return Options{
		Title:     "Gold Sentiment Index (GSI)",
		ValueURL:  "gsi_value.json",
		RefreshMS: (5 * time.Minute).Milliseconds(),
	}
}

type band struct {
	Label string  `json:"label"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Color string  `json:"color"`
}

type pageData struct {
	Options
	Bands []band
}

// Render writes the static gauge page. Band edges, colors and labels come
// from sentiment.Bands.
func Render(w io.Writer, opts Options) error {
	def := DefaultOptions()
	if opts.Title == "" {
		opts.Title = def.Title
	}
	if opts.ValueURL == "" {
		opts.ValueURL = def.ValueURL
	}
	if opts.RefreshMS <= 0 {
		opts.RefreshMS = def.RefreshMS
	}

	data := pageData{Options: opts, Bands: make([]band, 0, len(sentiment.Bands))}
	for _, b := range sentiment.Bands {
		data.Bands = append(data.Bands, band{
			Label: string(b.Label),
			Lower: b.Lower,
			Upper: b.Upper,
			Color: b.Color,
		})
	}

	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

// Write renders the page to path atomically.
func Write(path string, opts Options) error {
	var buf bytes.Buffer
	if err := Render(&buf, opts); err != nil {
		return err
	}
	return output.WriteFile(path, buf.Bytes())
}
