package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/movira-cli/movira/log"
	"github.com/movira-cli/movira/network"
)

// urlPattern matches absolute URLs embedded anywhere in page markup or scripts.
var urlPattern = regexp.MustCompile(`https?://[^\s"'\\<>]+`)

// PageSandbox is the production Sandbox. It renders the embed page headlessly:
// the page and its first-level script and iframe dependencies are fetched with
// the browser-fingerprint client, every URL referenced by them is replayed on
// the request channel, and the parsed DOM is kept for video element polling.
type PageSandbox struct {
	requests chan string

	mu     sync.Mutex
	doc    *goquery.Document
	closed bool
}

// NewPageSandbox creates an idle page sandbox.
func NewPageSandbox() *PageSandbox {
	return &PageSandbox{
		requests: make(chan string, 64),
	}
}

// Load fetches the page, retains its DOM and begins surfacing observed request URLs.
func (s *PageSandbox) Load(ctx context.Context, pageURL string) error {
	body, status, err := network.FetchPage(ctx, pageURL, map[string]string{"Referer": pageURL})
	if err != nil {
		return fmt.Errorf("fetch embed page: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("embed page returned status %d", status)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse embed page: %w", err)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	go s.observe(ctx, pageURL, body, doc)
	return nil
}

// observe replays every URL the page references, then follows first-level
// scripts and iframes, mirroring what an injected fetch/XHR monitor would see.
func (s *PageSandbox) observe(ctx context.Context, pageURL, body string, doc *goquery.Document) {
	for _, u := range urlPattern.FindAllString(body, -1) {
		s.push(ctx, u)
	}

	var nested []string
	doc.Find("script[src], iframe[src]").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && src != "" {
			nested = append(nested, absoluteURL(pageURL, src))
		}
	})

	for _, u := range nested {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.push(ctx, u)

		content, status, err := network.FetchPage(ctx, u, map[string]string{"Referer": pageURL})
		if err != nil || status >= 400 {
			log.Debugf("nested fetch skipped for %s: status=%d err=%v", u, status, err)
			continue
		}
		for _, found := range urlPattern.FindAllString(content, -1) {
			s.push(ctx, found)
		}
	}
}

// VideoSources returns the src attributes of video elements and their source children.
func (s *PageSandbox) VideoSources(_ context.Context) ([]string, error) {
	s.mu.Lock()
	doc := s.doc
	s.mu.Unlock()

	if doc == nil {
		return nil, fmt.Errorf("sandbox has no loaded page")
	}

	var sources []string
	doc.Find("video").Each(func(_ int, video *goquery.Selection) {
		if src, ok := video.Attr("src"); ok && src != "" {
			sources = append(sources, src)
		}
		video.Find("source").Each(func(_ int, child *goquery.Selection) {
			if src, ok := child.Attr("src"); ok && src != "" {
				sources = append(sources, src)
			}
		})
	})
	return sources, nil
}

// Close tears down the sandbox and ends the request stream.
func (s *PageSandbox) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.requests)
	}
	return nil
}

// Requests returns the observed request URL stream.
func (s *PageSandbox) Requests() <-chan string {
	return s.requests
}

// push delivers a URL unless the sandbox closed. The send stays under the
// mutex so Close cannot close the channel mid-send.
func (s *PageSandbox) push(_ context.Context, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.requests <- url:
	default:
		// Channel full: the scanner is behind, dropping is acceptable since
		// stream URLs reappear in the DOM poll.
	}
}

// absoluteURL resolves a possibly-relative reference against the page URL.
func absoluteURL(pageURL, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	base := pageURL
	if idx := strings.LastIndex(base, "/"); idx > len("https://") {
		base = base[:idx]
	}
	return base + "/" + strings.TrimPrefix(ref, "/")
}
