package session

import (
	"bufio"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/AdguardTeam/urlfilter"
	"github.com/AdguardTeam/urlfilter/filterlist"
	"github.com/AdguardTeam/urlfilter/rules"

	apperrors "ewebapp/internal/infrastructure/errors"
)

const blockerListID = 1

// Resource is the kind of request being checked, it selects which
// $script, $image, $subdocument... rule options apply
type Resource = rules.RequestType

const (
	ResourceDocument    = rules.TypeDocument
	ResourceSubdocument = rules.TypeSubdocument
	ResourceScript      = rules.TypeScript
	ResourceStylesheet  = rules.TypeStylesheet
	ResourceImage       = rules.TypeImage
	ResourceMedia       = rules.TypeMedia
	ResourceFont        = rules.TypeFont
	ResourceXHR         = rules.TypeXmlhttprequest
	ResourceOther       = rules.TypeOther
)

// Blocker matches request URLs against an Adblock Plus style filter list
// using the AdGuard network engine. Element hiding rules and comments are
// ignored; network rules with options the engine cannot parse are skipped.
type Blocker struct {
	engine  *urlfilter.NetworkEngine
	rules   int
	skipped int
}

// LoadBlocker reads and parses the filter list at path
func LoadBlocker(path string) (*Blocker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.HandleResourceError("session.LoadBlocker", path, err)
	}
	defer f.Close()

	b, err := ParseRules(f)
	if err != nil {
		return nil, apperrors.HandleResourceError("session.LoadBlocker", path, err)
	}
	return b, nil
}

// ParseRules builds a Blocker from filter list text
func ParseRules(r io.Reader) (*Blocker, error) {
	b := &Blocker{}
	var text strings.Builder

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "["):
			continue
		case isCosmetic(line):
			b.skipped++
			continue
		}
		if _, err := rules.NewNetworkRule(line, blockerListID); err != nil {
			b.skipped++
			continue
		}
		b.rules++
		text.WriteString(line)
		text.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	storage, err := filterlist.NewRuleStorage([]filterlist.RuleList{
		&filterlist.StringRuleList{ID: blockerListID, RulesText: text.String(), IgnoreCosmetic: true},
	})
	if err != nil {
		return nil, err
	}
	b.engine = urlfilter.NewNetworkEngine(storage)
	return b, nil
}

// Len returns the number of network rules loaded, exceptions included
func (b *Blocker) Len() int {
	if b == nil {
		return 0
	}
	return b.rules
}

// Skipped returns how many lines were ignored as cosmetic or unparsable
func (b *Blocker) Skipped() int {
	if b == nil {
		return 0
	}
	return b.skipped
}

// ShouldBlock reports whether u, requested without a known source page,
// matches a blocking rule and no exception
func (b *Blocker) ShouldBlock(u *url.URL) bool {
	return b.Match(u, nil, ResourceOther)
}

// Match reports whether u, requested by the page at source as kind, is blocked.
// source decides $third-party and $domain options; nil means first party.
func (b *Blocker) Match(u, source *url.URL, kind Resource) bool {
	if b == nil || b.engine == nil || u == nil {
		return false
	}

	var sourceURL string
	if source != nil {
		sourceURL = source.String()
	}
	rule, ok := b.engine.Match(rules.NewRequest(u.String(), sourceURL, kind))
	if !ok || rule == nil {
		return false
	}
	return !strings.HasPrefix(rule.Text(), "@@")
}

func isCosmetic(line string) bool {
	for _, marker := range []string{"##", "#@#", "#?#", "#$#", "#%#"} {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// resourceFromFetchDest maps the Sec-Fetch-Dest request header to a Resource
func resourceFromFetchDest(dest string) Resource {
	switch dest {
	case "document":
		return ResourceDocument
	case "iframe", "frame":
		return ResourceSubdocument
	case "script", "worker", "sharedworker", "serviceworker":
		return ResourceScript
	case "style":
		return ResourceStylesheet
	case "image":
		return ResourceImage
	case "audio", "video", "track":
		return ResourceMedia
	case "font":
		return ResourceFont
	case "empty":
		return ResourceXHR
	default:
		return ResourceOther
	}
}

// resourceFromElement maps a document element that loads a subresource to a Resource
func resourceFromElement(tag string) Resource {
	switch tag {
	case "script":
		return ResourceScript
	case "iframe":
		return ResourceSubdocument
	case "img":
		return ResourceImage
	case "link":
		return ResourceStylesheet
	default:
		return ResourceOther
	}
}
