package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/smogalia/list-gift/internal/domain"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
	"github.com/smogalia/list-gift/pkg/httpclient"
)

// maxPageBytes caps how much of a page is parsed. Head metadata sits near
// the top.
const maxPageBytes = 2 << 20

// ErrFetch wraps every failure to retrieve the page.
var ErrFetch = errors.New("metadata: fetch failed")

// Extractor reads link previews for product URLs.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (*domain.LinkMetadata, error)
}

// Fetcher issues GET requests. *httpclient.CircuitBreakerClient satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// HTMLExtractor scrapes OpenGraph, Twitter card, schema.org price and plain
// HTML head tags.
type HTMLExtractor struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func NewHTMLExtractor(fetcher Fetcher, logger *slog.Logger) *HTMLExtractor {
	return &HTMLExtractor{fetcher: fetcher, logger: logger}
}

// Extract fetches rawURL and reads its metadata. Only malformed URLs are
// InvalidInput; anything that goes wrong on the wire wraps ErrFetch.
func (e *HTMLExtractor) Extract(ctx context.Context, rawURL string) (*domain.LinkMetadata, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !domain.IsHTTPURL(rawURL) {
		return nil, apperrors.InvalidInput("url must be an absolute http(s) address")
	}

	resp, err := e.fetcher.Get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if err := httpclient.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	meta := &domain.LinkMetadata{URL: rawURL}
	if !isHTML(resp.Header.Get("Content-Type")) {
		e.logger.DebugContext(ctx, "skipping non-html link", slog.String("url", rawURL))
		return meta, nil
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %w", ErrFetch, err)
	}

	base, _ := url.Parse(rawURL)
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}

	tags := collect(doc)
	meta.Title = tags.first("og:title", "twitter:title", "<title>")
	meta.Description = flatten(tags.first("og:description", "twitter:description", "description"))
	meta.SiteName = tags.first("og:site_name")
	if meta.SiteName == "" && base != nil {
		meta.SiteName = strings.TrimPrefix(base.Hostname(), "www.")
	}
	if img := tags.first("og:image", "og:image:url", "twitter:image", "twitter:image:src"); img != "" {
		meta.ImageURL = resolve(base, img)
	}
	if p, ok := parsePrice(tags.first("product:price:amount", "og:price:amount", "itemprop:price")); ok {
		meta.Price = &p
	}
	meta.Currency = strings.ToUpper(tags.first("product:price:currency", "og:price:currency", "itemprop:pricecurrency"))

	e.logger.InfoContext(ctx, "link metadata extracted",
		slog.String("url", rawURL),
		slog.Bool("empty", meta.Empty()),
	)
	return meta, nil
}

// tagSet maps lower-cased meta keys to the first value seen.
type tagSet map[string]string

func (t tagSet) first(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(t[k]); v != "" {
			return v
		}
	}
	return ""
}

func (t tagSet) add(key, value string) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}
	if _, ok := t[key]; !ok {
		t[key] = html.UnescapeString(value)
	}
}

func collect(doc *html.Node) tagSet {
	tags := tagSet{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					tags.add("<title>", n.FirstChild.Data)
				}
			case "meta":
				content := attr(n, "content")
				tags.add(attr(n, "property"), content)
				tags.add(attr(n, "name"), content)
				if ip := attr(n, "itemprop"); ip != "" {
					tags.add("itemprop:"+ip, content)
				}
			default:
				// Inline microdata such as <span itemprop="price">19.99</span>.
				if ip := attr(n, "itemprop"); ip == "price" || ip == "priceCurrency" {
					v := attr(n, "content")
					if v == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
						v = n.FirstChild.Data
					}
					tags.add("itemprop:"+ip, v)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tags
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// flatten converts descriptions that carry markup into Markdown.
func flatten(s string) string {
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}

var priceChars = regexp.MustCompile(`[^0-9.,]`)

// parsePrice reads amounts like "1,299.00", "29,99" or "$ 15".
func parsePrice(raw string) (float64, bool) {
	s := priceChars.ReplaceAllString(raw, "")
	if s == "" {
		return 0, false
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ",") == 1 && len(s)-strings.Index(s, ",") <= 3:
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || p < 0 {
		return 0, false
	}
	return p, true
}
