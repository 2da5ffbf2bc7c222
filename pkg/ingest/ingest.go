// Package ingest builds a knowledge base document file by crawling a
// documentation site and chunking the extracted text.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/avoss/lantern/internal/models"
)

type Config struct {
	BaseURL        string
	MaxDepth       int
	RateLimit      float64 // requests per second
	IgnorePatterns []string
	Timeout        time.Duration
	Chunker        ChunkerConfig
	OnProgress     func(url string)
	Logger         *zap.Logger
}

type Ingester struct {
	config   Config
	client   *http.Client
	chunker  Chunker
	visited  map[string]bool
	limiter  *rate.Limiter
	baseHost string
	logger   *zap.Logger
}

func NewWithConfig(config Config) (*Ingester, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = 3
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, err
	}

	return &Ingester{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		chunker:  NewChunker(config.Chunker),
		visited:  make(map[string]bool),
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		baseHost: parsedURL.Host,
		logger:   config.Logger,
	}, nil
}

// Run crawls the configured site, chunks every page, and writes the
// resulting document collection to outPath as knowledge base JSON.
func (in *Ingester) Run(ctx context.Context, outPath string) ([]models.Document, error) {
	var texts []string
	if err := in.crawl(ctx, in.config.BaseURL, 0, &texts); err != nil {
		return nil, err
	}

	var docs []models.Document
	for _, text := range texts {
		for _, chunk := range in.chunker.Split(text) {
			var doc models.Document
			doc.Text = chunk
			doc.SetID(int64(len(docs)))
			docs = append(docs, doc)
		}
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("ingest: no usable content found at %s", in.config.BaseURL)
	}

	if err := writeDocuments(outPath, docs); err != nil {
		return nil, err
	}

	in.logger.Info("knowledge base written",
		zap.String("path", outPath),
		zap.Int("documents", len(docs)))

	return docs, nil
}

func (in *Ingester) crawl(ctx context.Context, urlStr string, depth int, texts *[]string) error {
	if depth > in.config.MaxDepth || in.visited[urlStr] {
		return nil
	}
	if !in.shouldProcessURL(urlStr) {
		return nil
	}

	in.visited[urlStr] = true
	if in.config.OnProgress != nil {
		in.config.OnProgress(urlStr)
	}

	if err := in.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return err
	}
	resp, err := in.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return err
	}

	if content := extractMainContent(doc); content != "" {
		*texts = append(*texts, content)
	}

	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, exists := selection.Attr("href")
		if !exists {
			return
		}

		link, err := url.Parse(href)
		if err != nil {
			in.logger.Debug("skipping unparsable link", zap.String("href", href))
			return
		}
		if !link.IsAbs() {
			base, err := url.Parse(urlStr)
			if err != nil {
				return
			}
			link = base.ResolveReference(link)
		}

		if err := in.crawl(ctx, link.String(), depth+1, texts); err != nil {
			in.logger.Debug("skipping page", zap.String("url", link.String()), zap.Error(err))
		}
	})

	return nil
}

func (in *Ingester) shouldProcessURL(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	if parsedURL.Host != in.baseHost {
		return false
	}
	for _, pattern := range in.config.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return false
		}
	}
	return true
}

func extractMainContent(doc *goquery.Document) string {
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documentation",
		"#documentation",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}
	if content == "" {
		content = doc.Find("body").Text()
	}

	return strings.TrimSpace(strings.Join(strings.Fields(content), " "))
}

func writeDocuments(path string, docs []models.Document) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding documents: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating documents dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing documents: %w", err)
	}
	return nil
}
