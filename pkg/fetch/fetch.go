// Package fetch downloads consolidated statute XML from the publisher's
// website and stores it as a local source file.
//
// A statute's landing page states the date the consolidation is current to,
// the date it was last amended and links to the XML version. Fetch reads all
// three and downloads the XML.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/net/html"
)

// DefaultRateLimit is the default minimum interval between requests.
const DefaultRateLimit = 2 * time.Second

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// maxBody bounds the size of a downloaded page or statute.
const maxBody = 256 << 20

// ErrLandingPage is returned when a landing page lacks a required element.
var ErrLandingPage = errors.New("unrecognized statute landing page")

var (
	currentToPattern = regexp.MustCompile(`current to (\d{4}-\d{1,2}-\d{1,2})`)
	amendedPattern   = regexp.MustCompile(`last amended on (\d{4}-\d{1,2}-\d{1,2})`)
)

// Result is one downloaded statute.
type Result struct {
	URL        string    `json:"url"`
	XMLURL     string    `json:"xml_url"`
	Currency   time.Time `json:"currency"`
	Amended    time.Time `json:"amended"`
	Downloaded time.Time `json:"downloaded"`
	Digest     string    `json:"digest"`
	Data       []byte    `json:"-"`
}

// Fetcher downloads statutes.
type Fetcher struct {
	client    HTTPClient
	userAgent string
	now       func() time.Time
}

// New returns a Fetcher. A nil client uses a rate-limited http.Client with
// the default timeout and interval.
func New(client HTTPClient) *Fetcher {
	if client == nil {
		client = NewRateLimitedClient(&http.Client{Timeout: DefaultTimeout}, DefaultRateLimit)
	}
	return &Fetcher{client: client, userAgent: "statwiki", now: time.Now}
}

// Landing is what a statute landing page reports.
type Landing struct {
	Currency time.Time
	Amended  time.Time
	XMLURL   string
}

// Fetch reads the landing page at pageURL and downloads the statute XML it
// links to.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	page, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	landing, err := ParseLanding(pageURL, page)
	if err != nil {
		return nil, err
	}
	data, err := f.get(ctx, landing.XMLURL)
	if err != nil {
		return nil, err
	}
	sum := blake3.Sum256(data)
	return &Result{
		URL:        pageURL,
		XMLURL:     landing.XMLURL,
		Currency:   landing.Currency,
		Amended:    landing.Amended,
		Downloaded: f.now().UTC(),
		Digest:     fmt.Sprintf("%x", sum),
		Data:       data,
	}, nil
}

// Check reads only the landing page at pageURL.
func (f *Fetcher) Check(ctx context.Context, pageURL string) (Landing, error) {
	page, err := f.get(ctx, pageURL)
	if err != nil {
		return Landing{}, err
	}
	return ParseLanding(pageURL, page)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	return data, nil
}

// ParseLanding extracts the currency date, amendment date and XML link
// from a landing page. Relative links are resolved against pageURL.
func ParseLanding(pageURL string, page []byte) (Landing, error) {
	var l Landing
	var err error

	text := string(page)
	m := currentToPattern.FindStringSubmatch(text)
	if m == nil {
		return l, fmt.Errorf("%w: no currency date in %s", ErrLandingPage, pageURL)
	}
	if l.Currency, err = parseDate(m[1]); err != nil {
		return l, err
	}
	m = amendedPattern.FindStringSubmatch(text)
	if m == nil {
		return l, fmt.Errorf("%w: no amendment date in %s", ErrLandingPage, pageURL)
	}
	if l.Amended, err = parseDate(m[1]); err != nil {
		return l, err
	}

	href, err := xmlLink(page)
	if err != nil {
		return l, err
	}
	if href == "" {
		return l, fmt.Errorf("%w: no XML link in %s", ErrLandingPage, pageURL)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return l, fmt.Errorf("invalid page URL %s: %w", pageURL, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return l, fmt.Errorf("invalid XML link %q: %w", href, err)
	}
	l.XMLURL = base.ResolveReference(ref).String()
	return l, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-1-2", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// xmlLink returns the href of the first anchor whose text starts with "XML".
func xmlLink(page []byte) (string, error) {
	doc, err := html.Parse(strings.NewReader(string(page)))
	if err != nil {
		return "", fmt.Errorf("failed to parse landing page: %w", err)
	}
	var found string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			if strings.HasPrefix(strings.TrimSpace(nodeText(n)), "XML") {
				for _, a := range n.Attr {
					if a.Key == "href" {
						found = a.Val
						return
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found, nil
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
