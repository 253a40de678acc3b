package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
)

const scraperUserAgent = "Mozilla/5.0 (compatible; ProfessorBot/1.0; +https://github.com/ycotes/professor)"

// ErrInvalidURL is returned for URLs that are not absolute http(s).
var ErrInvalidURL = errors.New("invalid url: must be absolute http or https")

// ScraperConfig tunes the web scraper.
type ScraperConfig struct {
	Parallelism int
	Delay       time.Duration
	Timeout     time.Duration
}

// Page is the readable content extracted from a web page.
type Page struct {
	URL     string
	Title   string
	Content string
}

// Scraper fetches web pages and extracts their readable text. Article
// extraction goes through readability first; pages readability cannot
// handle (index pages, docs sites) fall back to a plain markup strip.
type Scraper struct {
	cfg    ScraperConfig
	logger *slog.Logger
}

// NewScraper creates a Scraper. Zero config fields get sane defaults.
func NewScraper(cfg ScraperConfig, logger *slog.Logger) *Scraper {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 2
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{cfg: cfg, logger: logger}
}

// Fetch downloads one page and returns its readable content.
func (s *Scraper) Fetch(rawURL string) (*Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	c := colly.NewCollector(
		colly.UserAgent(scraperUserAgent),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.cfg.Timeout)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: s.cfg.Parallelism,
		Delay:       s.cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("configure scraper limits: %w", err)
	}

	var (
		body     []byte
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch %s: %w", rawURL, err)
	})

	if err := c.Visit(parsed.String()); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch %s: empty response body", rawURL)
	}

	return s.extract(parsed, body)
}

func (s *Scraper) extract(pageURL *url.URL, body []byte) (*Page, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return &Page{
			URL:     pageURL.String(),
			Title:   strings.TrimSpace(article.Title),
			Content: CollapseBlankLines(article.TextContent),
		}, nil
	}

	// Readability rejected the page; strip markup directly instead.
	s.logger.Debug("readability extraction failed, falling back to markup strip",
		"url", pageURL.String())
	text, err := ExtractHTML(body)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", pageURL.String(), err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("extract %s: no readable content", pageURL.String())
	}
	return &Page{URL: pageURL.String(), Content: text}, nil
}
