// Package sanitize makes author-supplied rich text safe to persist and
// later render as markup. It keeps an allow-list of tags and attributes,
// strips everything else while preserving inner text, and neutralizes
// script-bearing URLs and event handlers. All functions are pure and
// operate on in-memory strings via the x/net/html tokenizer.
package sanitize

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Tags whose markup is allowed through.
var allowedTags = map[string]bool{
	"p": true, "br": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"em": true, "strong": true, "b": true, "i": true, "u": true, "s": true,
	"ul": true, "ol": true, "li": true,
	"table": true, "thead": true, "tbody": true, "tfoot": true,
	"tr": true, "td": true, "th": true, "caption": true,
	"blockquote": true, "a": true, "code": true, "pre": true,
	"span": true, "div": true,
}

// Tags stripped together with their entire content. Keeping a script's
// text would leak its payload into the document.
var droppedContentTags = map[string]bool{
	"script": true, "style": true, "iframe": true, "object": true,
	"embed": true, "noscript": true, "svg": true, "math": true,
	"title": true, "head": true, "textarea": true,
}

// Attributes allowed through on any permitted tag; aria-* is allowed by
// prefix.
var allowedAttrs = map[string]bool{
	"style": true, "href": true, "target": true, "rel": true,
	"class": true, "id": true, "colspan": true, "rowspan": true,
}

var eventHandlerRe = regexp.MustCompile(`(?i)\bon\w+\s*=`)

// Deny-list markers whose presence flags the input as adversarial rather
// than accidental. See IsSafe.
var denyMarkers = []string{
	"<script", "javascript:", "<iframe", "<embed", "<object",
	"eval(", "settimeout", "setinterval", "document.", "window.",
}

// IsSafe is a pre-check against the deny-list. When it returns false the
// caller must not persist sanitized markup at all; it should fall back to
// PlainTextFallback instead. The scan runs over an entity-decoded copy
// with control characters removed, so markers split by "&#x09;" or a raw
// tab are still caught.
func IsSafe(input string) bool {
	scan := stripControlChars(strings.ToLower(html.UnescapeString(input)))
	for _, marker := range denyMarkers {
		if strings.Contains(scan, marker) {
			return false
		}
	}
	return !eventHandlerRe.MatchString(scan)
}

// stripControlChars removes ASCII control characters. Browsers discard
// tab/newline/CR inside a URL scheme, so "jav\tascript:" resolves as a
// javascript: URI and scheme checks must run with the controls removed.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}

// Sanitize returns input reduced to the allow-list. It never fails; the
// output contains no script tags, no on* handlers and no javascript:/data:
// URIs. External http(s) anchors are rewritten to open in a new context
// with rel="noopener noreferrer". Sanitize is idempotent.
func Sanitize(input string) string {
	z := html.NewTokenizer(strings.NewReader(input))
	var b strings.Builder
	skipDepth := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skipDepth == 0 {
				b.WriteString(html.EscapeString(string(z.Text())))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			token := z.Token()
			name := token.Data
			if droppedContentTags[name] {
				if token.Type == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth > 0 || !allowedTags[name] {
				continue
			}
			writeTag(&b, token)
		case html.EndTagToken:
			token := z.Token()
			name := token.Data
			if droppedContentTags[name] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if skipDepth == 0 && allowedTags[name] {
				b.WriteString("</" + name + ">")
			}
		case html.CommentToken, html.DoctypeToken:
			// dropped
		}
	}
}

// ExtractPlainText returns the text content of markup, whitespace
// normalized. Intended for word counts and search indexing over
// already-sanitized input.
func ExtractPlainText(input string) string {
	z := html.NewTokenizer(strings.NewReader(input))
	var parts []string
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(parts, " ")
		case html.TextToken:
			if skipDepth == 0 {
				if fields := strings.Fields(string(z.Text())); len(fields) > 0 {
					parts = append(parts, strings.Join(fields, " "))
				}
			}
		case html.StartTagToken:
			token := z.Token()
			if droppedContentTags[token.Data] {
				skipDepth++
			}
		case html.EndTagToken:
			token := z.Token()
			if droppedContentTags[token.Data] && skipDepth > 0 {
				skipDepth--
			}
		}
	}
}

// PlainTextFallback reduces input to a single escaped paragraph. Used when
// IsSafe rejected the markup.
func PlainTextFallback(input string) string {
	return "<p>" + html.EscapeString(ExtractPlainText(input)) + "</p>"
}

func writeTag(b *strings.Builder, token html.Token) {
	name := token.Data
	b.WriteString("<" + name)

	external := false
	if name == "a" {
		for _, attr := range token.Attr {
			if strings.ToLower(attr.Key) == "href" && isExternalLink(attr.Val) {
				external = true
				break
			}
		}
	}

	for _, attr := range token.Attr {
		key := strings.ToLower(attr.Key)
		if !attrAllowed(key) || !attrValueSafe(key, attr.Val) {
			continue
		}
		if external && (key == "target" || key == "rel") {
			continue // forced below
		}
		b.WriteString(` ` + key + `="` + html.EscapeString(attr.Val) + `"`)
	}

	// External links always open in a new browsing context without an
	// opener, regardless of what the author wrote.
	if external {
		b.WriteString(` target="_blank" rel="noopener noreferrer"`)
	}

	if token.Type == html.SelfClosingTagToken {
		b.WriteString("/>")
		return
	}
	b.WriteString(">")
}

func attrAllowed(key string) bool {
	if strings.HasPrefix(key, "on") {
		return false
	}
	return allowedAttrs[key] || strings.HasPrefix(key, "aria-")
}

func attrValueSafe(key, val string) bool {
	// Attribute values arrive entity-decoded from the tokenizer; control
	// characters are stripped before the scheme comparison so an embedded
	// tab or newline cannot split "javascript:".
	lower := stripControlChars(strings.ToLower(strings.TrimSpace(val)))
	switch key {
	case "href":
		return !strings.HasPrefix(lower, "javascript:") &&
			!strings.HasPrefix(lower, "data:") &&
			!strings.HasPrefix(lower, "vbscript:")
	case "style":
		return !strings.Contains(lower, "javascript:") &&
			!strings.Contains(lower, "expression(") &&
			!strings.Contains(lower, "data:")
	case "target":
		// Only _blank survives; anything else is dropped and the anchor
		// rewrite supplies the safe default.
		return lower == "_blank"
	}
	return true
}

func isExternalLink(href string) bool {
	if href == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
