// Package imageopt rewrites image URLs so they are served resized and
// re-encoded by an optimizing proxy.
package imageopt

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

type Format string

const (
	FormatWebP Format = "webp"
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatAVIF Format = "avif"
)

var ErrUnknownFormat = errors.New("unknown image format")

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	switch f {
	case FormatWebP, FormatJPEG, FormatPNG, FormatAVIF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Options override the optimizer defaults; zero fields keep the default.
type Options struct {
	Width   int
	Quality int
	Format  Format
}

var DefaultSizes = []int{320, 640, 960, 1280}

// responsiveFormats are emitted by ResponsiveSources, most preferred first.
var responsiveFormats = []Format{FormatWebP, FormatAVIF, FormatJPEG}

type Source struct {
	Format Format `json:"format"`
	SrcSet string `json:"srcset"`
	Sizes  string `json:"sizes"`
}

type Optimizer struct {
	baseURL     string
	placeholder string
	defaults    Options
}

type Option func(*Optimizer)

func WithBaseURL(u string) Option {
	return func(o *Optimizer) { o.baseURL = u }
}

func WithPlaceholder(p string) Option {
	return func(o *Optimizer) { o.placeholder = p }
}

func WithDefaults(d Options) Option {
	return func(o *Optimizer) { o.defaults = merge(o.defaults, d) }
}

func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		baseURL:     "https://image-optimizer.example.com/",
		placeholder: "/assets/placeholder.jpg",
		defaults:    Options{Width: 800, Quality: 85, Format: FormatWebP},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OptimizeURL returns the URL the image should be loaded from. Empty input
// yields the placeholder. Bundled assets, placeholders and URLs that already
// carry a query are returned unchanged. Absolute http(s) URLs go through the
// proxy; anything else gets the parameters appended.
func (o *Optimizer) OptimizeURL(imageURL string, opts Options) string {
	if imageURL == "" {
		return o.placeholder
	}
	if strings.HasPrefix(imageURL, "/assets/") ||
		strings.Contains(imageURL, "placeholder") ||
		strings.Contains(imageURL, "?") {
		return imageURL
	}

	eff := merge(o.defaults, opts)
	params := fmt.Sprintf("w=%d&q=%d&fmt=%s", eff.Width, eff.Quality, eff.Format)
	if strings.HasPrefix(imageURL, "http") {
		return fmt.Sprintf("%s?url=%s&%s", o.baseURL, url.QueryEscape(imageURL), params)
	}
	return imageURL + "?" + params
}

// ResponsiveSources returns one srcset per format for a <picture> element.
// A nil or empty sizes uses DefaultSizes.
func (o *Optimizer) ResponsiveSources(imageURL string, sizes []int) []Source {
	if imageURL == "" {
		return nil
	}
	if len(sizes) == 0 {
		sizes = DefaultSizes
	}

	sizesAttr := make([]string, len(sizes))
	for i, size := range sizes {
		if i == len(sizes)-1 {
			sizesAttr[i] = fmt.Sprintf("(min-width: %dpx) %dpx, 100vw", size, size)
		} else {
			sizesAttr[i] = fmt.Sprintf("(max-width: %dpx) %dpx", size, size)
		}
	}
	joinedSizes := strings.Join(sizesAttr, ", ")

	sources := make([]Source, 0, len(responsiveFormats))
	for _, format := range responsiveFormats {
		set := make([]string, len(sizes))
		for i, size := range sizes {
			u := o.OptimizeURL(imageURL, Options{Width: size, Format: format})
			set[i] = fmt.Sprintf("%s %dw", u, size)
		}
		sources = append(sources, Source{
			Format: format,
			SrcSet: strings.Join(set, ", "),
			Sizes:  joinedSizes,
		})
	}
	return sources
}

// ShouldLoadWithPriority reports whether an image at the given page position
// should skip lazy loading.
func ShouldLoadWithPriority(position string) bool {
	return slices.Contains([]string{"hero", "above-fold", "thumbnail"}, position)
}

func merge(base, over Options) Options {
	if over.Width > 0 {
		base.Width = over.Width
	}
	if over.Quality > 0 {
		base.Quality = over.Quality
	}
	if over.Format != "" {
		base.Format = over.Format
	}
	return base
}
