// Package extractor holds concrete newsletter extraction strategies.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/extract"
)

// skipLinkFragments filter out navigation, social, and housekeeping links
// that every newsletter carries.
var skipLinkFragments = []string{
	"unsubscribe", "manage preferences", "view in browser", "privacy policy",
	"twitter.com/intent", "facebook.com/share", "linkedin.com/share",
	"mailto:",
}

// minLinkTextLen drops icon links and bare "here" anchors.
const minLinkTextLen = 4

// GenericExtractor parses exported newsletter HTML files and emits one
// candidate per content link.
type GenericExtractor struct{}

// NewGenericExtractor returns the default strategy for HTML exports.
func NewGenericExtractor() *GenericExtractor {
	return &GenericExtractor{}
}

// Name identifies the strategy inside the registry.
func (g *GenericExtractor) Name() string {
	return "generic"
}

// Extract walks the source directory and parses every HTML file modified
// after req.Since.
func (g *GenericExtractor) Extract(ctx context.Context, req extract.Request) ([]domain.CandidateItem, error) {
	if req.Dir == "" {
		return nil, fmt.Errorf("source %s has no directory configured", req.SourceName)
	}

	entries, err := os.ReadDir(req.Dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir %s: %w", req.Dir, err)
	}

	var items []domain.CandidateItem
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if entry.IsDir() || !isHTMLFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !req.Since.IsZero() && info.ModTime().Before(req.Since) {
			continue
		}

		path := filepath.Join(req.Dir, entry.Name())
		fileItems, err := g.extractFile(path, req.SourceName, info.ModTime())
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", path, err)
		}
		items = append(items, fileItems...)
	}

	return items, nil
}

func (g *GenericExtractor) extractFile(path, sourceName string, fetchedAt time.Time) ([]domain.CandidateItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	subject := strings.TrimSpace(doc.Find("title").First().Text())

	var items []domain.CandidateItem
	seen := map[string]struct{}{}

	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		linkText := strings.Join(strings.Fields(sel.Text()), " ")

		if !keepLink(href, linkText) {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		items = append(items, domain.CandidateItem{
			ID:        fmt.Sprintf("%s#%d", filepath.Base(path), len(items)),
			Title:     linkText,
			LinkText:  linkText,
			URL:       href,
			RawText:   surroundingText(sel),
			Source:    sourceName,
			Author:    subject,
			FetchedAt: fetchedAt,
		})
	})

	return items, nil
}

// keepLink rejects housekeeping and navigation links.
func keepLink(href, linkText string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	if len(linkText) < minLinkTextLen {
		return false
	}
	lowered := strings.ToLower(href + " " + linkText)
	for _, fragment := range skipLinkFragments {
		if strings.Contains(lowered, fragment) {
			return false
		}
	}
	return true
}

// surroundingText grabs the closest block-level text around the link so the
// scorer has some context beyond the anchor itself.
func surroundingText(sel *goquery.Selection) string {
	for _, finder := range []string{"p", "td", "li", "div"} {
		if parent := sel.Closest(finder); parent.Length() > 0 {
			text := strings.Join(strings.Fields(parent.Text()), " ")
			if len(text) > 0 {
				return text
			}
		}
	}
	return ""
}

func isHTMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}
