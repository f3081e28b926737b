// Package session is the network session every page request flows through:
// a reverse proxy to the wrapped website that applies the user agent
// override and the ad blocker, and prepares documents for the desktop shell.
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"

	"ewebapp/internal/infrastructure/logging"
	"ewebapp/internal/useragent"
)

// runtimeScripts are served by the Wails asset server itself. Wails only
// injects them into the root document, so other documents get them here.
const runtimeScripts = `<script src="/wails/ipc.js"></script><script src="/wails/runtime.js"></script>`

// clearSiteData asks the webview to drop everything stored for the local origin
const clearSiteData = `"cookies", "storage", "cache"`

// localPathKey carries the request path as the window asked for it, before upstream mapping
type localPathKey struct{}

// Options configures a Proxy
type Options struct {
	Target        *url.URL // origin of the wrapped website
	StartPath     string   // upstream path served for "/"
	UserAgent     string   // sent upstream when OverrideUA is set
	OverrideUA    bool
	Blocker       *Blocker // nil disables ad blocking
	ClearSiteData bool     // send Clear-Site-Data on the first document, finishing a reset
	Transport     http.RoundTripper
	Logger        logging.Logger
}

// Proxy is an http.Handler suitable for the Wails AssetServer
type Proxy struct {
	target       *url.URL
	startPath    string
	userAgent    string
	override     bool
	uaScript     string
	blocker      *Blocker
	rp           *httputil.ReverseProxy
	logger       logging.Logger
	blocked      atomic.Int64
	pendingClear atomic.Bool
}

// New creates a Proxy for opts.Target
func New(opts Options) *Proxy {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	startPath := opts.StartPath
	if startPath == "" {
		startPath = "/"
	}

	p := &Proxy{
		target:    &url.URL{Scheme: opts.Target.Scheme, Host: opts.Target.Host},
		startPath: startPath,
		userAgent: opts.UserAgent,
		override:  opts.OverrideUA,
		blocker:   opts.Blocker,
		logger:    logger,
	}
	p.pendingClear.Store(opts.ClearSiteData)
	if p.override {
		script, err := useragent.OverrideScript(p.userAgent)
		if err != nil {
			logger.Warn("User agent script could not be built", "error", err)
		} else {
			p.uaScript = "<script>" + script + "</script>"
		}
	}

	p.rp = &httputil.ReverseProxy{
		Director:       p.direct,
		ModifyResponse: p.modifyResponse,
		Transport:      opts.Transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			p.logger.Warn("Upstream request failed", "url", r.URL.String(), "error", err)
			http.Error(w, "Website unavailable", http.StatusBadGateway)
		},
	}
	return p
}

// ServeHTTP blocks filtered requests and proxies everything else upstream
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upstream := p.upstreamFor(r.URL)
	if p.blocker != nil && p.blocker.Match(upstream, p.refererFor(r), resourceFromFetchDest(r.Header.Get("Sec-Fetch-Dest"))) {
		p.blocked.Add(1)
		p.logger.Debug("Blocked request", "url", upstream.String())
		http.Error(w, "Blocked", http.StatusForbidden)
		return
	}
	ctx := context.WithValue(r.Context(), localPathKey{}, r.URL.Path)
	p.rp.ServeHTTP(w, r.WithContext(ctx))
}

// refererFor is the upstream page that issued r, nil for top level navigations
func (p *Proxy) refererFor(r *http.Request) *url.URL {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return nil
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return nil
	}
	if isLocalOrigin(refURL) {
		return p.upstreamFor(refURL)
	}
	return refURL
}

// Blocked returns how many requests and elements the blocker has removed
func (p *Proxy) Blocked() int64 {
	return p.blocked.Load()
}

// upstreamFor maps a local request URL onto the website
func (p *Proxy) upstreamFor(local *url.URL) *url.URL {
	u := *local
	u.Scheme = p.target.Scheme
	u.Host = p.target.Host
	u.User = nil
	if u.Path == "" || u.Path == "/" {
		if start, err := url.Parse(p.startPath); err == nil {
			u.Path = start.Path
			u.RawPath = start.RawPath
			if u.RawQuery == "" {
				u.RawQuery = start.RawQuery
			}
		}
	}
	return &u
}

func (p *Proxy) direct(r *http.Request) {
	upstream := p.upstreamFor(r.URL)
	r.URL = upstream
	r.Host = p.target.Host

	// documents are rewritten in modifyResponse, so ask for them uncompressed
	r.Header.Del("Accept-Encoding")

	if origin := r.Header.Get("Origin"); origin != "" {
		r.Header.Set("Origin", p.target.String())
	}
	if ref := r.Header.Get("Referer"); ref != "" {
		if refURL, err := url.Parse(ref); err == nil {
			r.Header.Set("Referer", p.upstreamFor(refURL).String())
		}
	}

	if p.override {
		r.Header.Set("User-Agent", p.userAgent)
	}
}

func (p *Proxy) modifyResponse(resp *http.Response) error {
	if loc := resp.Header.Get("Location"); loc != "" {
		resp.Header.Set("Location", p.localLocation(resp.Request.URL, loc))
	}

	if cookies := resp.Header.Values("Set-Cookie"); len(cookies) > 0 {
		resp.Header.Del("Set-Cookie")
		for _, raw := range cookies {
			resp.Header.Add("Set-Cookie", localCookie(raw))
		}
	}

	resp.Header.Del("Content-Security-Policy")
	resp.Header.Del("Content-Security-Policy-Report-Only")
	resp.Header.Del("X-Frame-Options")

	if !isHTML(resp) {
		return nil
	}

	if p.pendingClear.CompareAndSwap(true, false) {
		resp.Header.Set("Clear-Site-Data", clearSiteData)
		p.logger.Info("Clearing stored site data after reset", "url", resp.Request.URL.String())
	}

	injectRuntime := !isRootDocument(resp.Request)
	if !injectRuntime && p.blocker == nil && p.uaScript == "" {
		return nil
	}
	return p.rewriteDocument(resp, injectRuntime)
}

// localLocation keeps same-origin redirects inside the window
func (p *Proxy) localLocation(base *url.URL, loc string) string {
	u, err := base.Parse(loc)
	if err != nil {
		return loc
	}
	if !strings.EqualFold(u.Host, p.target.Host) {
		return loc
	}
	rel := u.EscapedPath()
	if rel == "" {
		rel = "/"
	}
	if u.RawQuery != "" {
		rel += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		rel += "#" + u.EscapedFragment()
	}
	return rel
}

// localCookie drops attributes that would stop the webview storing the cookie for the local origin
func localCookie(raw string) string {
	c, err := http.ParseSetCookie(raw)
	if err != nil {
		return raw
	}
	c.Domain = ""
	c.Secure = false
	if c.SameSite == http.SameSiteNoneMode {
		c.SameSite = http.SameSiteLaxMode
	}
	if s := c.String(); s != "" {
		return s
	}
	return raw
}

// rewriteDocument removes blocked subresources and adds the runtime scripts
func (p *Proxy) rewriteDocument(resp *http.Response, injectRuntime bool) error {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		p.logger.Warn("Document could not be parsed, passing through", "url", resp.Request.URL.String(), "error", err)
		setBody(resp, body)
		return nil
	}

	if p.blocker != nil {
		doc.Find("script[src], iframe[src], img[src], link[href][rel=stylesheet]").Each(func(_ int, s *goquery.Selection) {
			ref, ok := s.Attr("src")
			if !ok {
				ref, _ = s.Attr("href")
			}
			u, err := resp.Request.URL.Parse(ref)
			if err != nil {
				return
			}
			if p.blocker.Match(u, resp.Request.URL, resourceFromElement(goquery.NodeName(s))) {
				p.blocked.Add(1)
				p.logger.Debug("Removed blocked element", "tag", goquery.NodeName(s), "url", u.String())
				s.Remove()
			}
		})
	}

	var prelude string
	if injectRuntime {
		prelude += runtimeScripts
	}
	// the agent override goes first so it runs before any page script
	prelude = p.uaScript + prelude
	if prelude != "" {
		head := doc.Find("head")
		if head.Length() == 0 {
			doc.Find("html").PrependHtml("<head>" + prelude + "</head>")
		} else {
			head.PrependHtml(prelude)
		}
	}

	html, err := doc.Html()
	if err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	setBody(resp, []byte(html))
	return nil
}

func setBody(resp *http.Response, body []byte) {
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Header.Del("Content-Encoding")
}

func isHTML(resp *http.Response) bool {
	return strings.HasPrefix(strings.ToLower(resp.Header.Get("Content-Type")), "text/html")
}

// isRootDocument reports whether Wails serves r as its index and injects the runtime itself
func isRootDocument(r *http.Request) bool {
	if r == nil {
		return false
	}
	path, _ := r.Context().Value(localPathKey{}).(string)
	return path == "" || path == "/" || path == "/index.html"
}

// UpstreamURL maps a URL shown inside the window back to the website's URL.
// URLs that are already remote are returned unchanged.
func (p *Proxy) UpstreamURL(local string) string {
	u, err := url.Parse(local)
	if err != nil || !isLocalOrigin(u) {
		return local
	}
	up := p.upstreamFor(u)
	up.Fragment = u.Fragment
	return up.String()
}

func isLocalOrigin(u *url.URL) bool {
	if u.Scheme == "wails" {
		return true
	}
	host := u.Hostname()
	return host == "wails.localhost" || host == "wails" || host == "localhost" || host == "127.0.0.1"
}
