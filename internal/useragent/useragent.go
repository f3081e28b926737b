// Package useragent holds the browser signatures the shell can present to websites.
package useragent

import (
	"strings"

	"github.com/bytedance/sonic"
)

// Honest leaves the webview's own user agent untouched
const Honest = "honest"

const (
	Chrome  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"
	Edge    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36 Edg/139.0.3405.111"
	Firefox = "Mozilla/5.0 (X11; Linux x86_64; rv:142.0) Gecko/20100101 Firefox/142.0"
	Safari  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 15_6_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.5 Safari/605.1.15"
)

var signatures = map[string]string{
	"chrome":  Chrome,
	"edge":    Edge,
	"firefox": Firefox,
	"safari":  Safari,
}

// Resolve maps a configured name to the user agent to send.
// override is false only for Honest; unknown names fall back to Chrome.
func Resolve(name string) (ua string, override bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == Honest {
		return "", false
	}
	if sig, ok := signatures[name]; ok {
		return sig, true
	}
	return Chrome, true
}

// Names lists the recognised signature names
func Names() []string {
	return []string{"chrome", "edge", "firefox", "safari"}
}

// OverrideScript returns JavaScript that makes navigator report ua. The agent
// is HTML escaped so the script can be inlined in a document.
func OverrideScript(ua string) (string, error) {
	quoted, err := sonic.ConfigStd.MarshalToString(ua)
	if err != nil {
		return "", err
	}
	appVersion, err := sonic.ConfigStd.MarshalToString(strings.TrimPrefix(ua, "Mozilla/"))
	if err != nil {
		return "", err
	}
	return "(function(){try{" +
		"Object.defineProperty(navigator,'userAgent',{get:function(){return " + quoted + ";},configurable:true});" +
		"Object.defineProperty(navigator,'appVersion',{get:function(){return " + appVersion + ";},configurable:true});" +
		"}catch(e){}})();", nil
}
