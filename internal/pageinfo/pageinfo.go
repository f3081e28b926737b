// Package pageinfo reads display metadata from the wrapped website for the About panel.
package pageinfo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	apperrors "ewebapp/internal/infrastructure/errors"
)

// Info is what the About panel shows about the website
type Info struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	SiteName    string `json:"siteName"`
	Description string `json:"description"`
	IconURL     string `json:"iconUrl"`
	ManifestURL string `json:"manifestUrl"`
}

// Fetcher scrapes Info with a fixed user agent
type Fetcher struct {
	userAgent string
	timeout   time.Duration
}

// NewFetcher creates a Fetcher. An empty userAgent keeps colly's default.
func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{userAgent: userAgent, timeout: timeout}
}

// Fetch visits pageURL and collects its title, description and icon
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (Info, error) {
	const op = "pageinfo.Fetch"

	opts := []colly.CollectorOption{colly.StdlibContext(ctx)}
	if f.userAgent != "" {
		opts = append(opts, colly.UserAgent(f.userAgent))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(f.timeout)

	info := Info{URL: pageURL}
	var scrapeErr error

	c.OnHTML("head title", func(e *colly.HTMLElement) {
		if info.Title == "" {
			info.Title = strings.TrimSpace(e.Text)
		}
	})

	c.OnHTML("meta[name=description], meta[property='og:description']", func(e *colly.HTMLElement) {
		if info.Description == "" {
			info.Description = strings.TrimSpace(e.Attr("content"))
		}
	})

	c.OnHTML("meta[property='og:site_name'], meta[name=application-name]", func(e *colly.HTMLElement) {
		if info.SiteName == "" {
			info.SiteName = strings.TrimSpace(e.Attr("content"))
		}
	})

	c.OnHTML("link[rel]", func(e *colly.HTMLElement) {
		rels := strings.Fields(strings.ToLower(e.Attr("rel")))
		href := e.Attr("href")
		if href == "" {
			return
		}
		for _, rel := range rels {
			switch rel {
			case "apple-touch-icon":
				// preferred: usually the largest icon on the page
				info.IconURL = e.Request.AbsoluteURL(href)
			case "icon":
				if info.IconURL == "" {
					info.IconURL = e.Request.AbsoluteURL(href)
				}
			case "manifest":
				info.ManifestURL = e.Request.AbsoluteURL(href)
			}
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("scraping error (status %d): %w", r.StatusCode, err)
	})

	if err := c.Visit(pageURL); err != nil {
		return info, apperrors.WrapWithContext(op, err, map[string]string{"url": pageURL})
	}
	c.Wait()

	if scrapeErr != nil {
		return info, apperrors.WrapWithContext(op, scrapeErr, map[string]string{"url": pageURL})
	}

	if info.IconURL == "" {
		if u, err := url.Parse(pageURL); err == nil {
			info.IconURL = u.ResolveReference(&url.URL{Path: "/favicon.ico"}).String()
		}
	}
	return info, nil
}

// DisplayName picks the best available name for the site
func (i Info) DisplayName() string {
	switch {
	case i.SiteName != "":
		return i.SiteName
	case i.Title != "":
		return i.Title
	default:
		return i.URL
	}
}
