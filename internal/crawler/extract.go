package crawler

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Link is a raw extracted link together with its discovery context. The
// href is unresolved; the engine normalizes it against the page URL.
type Link struct {
	// Href is the raw attribute value or JavaScript string literal.
	Href string

	// Context records how the link was discovered.
	Context LinkContext
}

// ExtractResult holds everything extracted from one fetched body.
type ExtractResult struct {
	// Links are the outgoing links in discovery order.
	Links []Link

	// Functions are JavaScript function names in discovery order.
	Functions []string
}

// Extract parses a fetched body into outgoing links and function names.
// HTML bodies are routed through the DOM walker; JavaScript bodies (by
// content type, or by the target's classified kind when servers mislabel
// script files) through the lexical scanner. Extraction is best-effort and
// never fails: unparseable fragments are skipped.
func Extract(body []byte, contentType string, kind Kind) ExtractResult {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "html"):
		return ExtractHTML(bytes.NewReader(body))
	case strings.Contains(ct, "javascript") || strings.Contains(ct, "ecmascript") || kind == KindScript:
		return ExtractJS(string(body))
	default:
		return ExtractResult{}
	}
}

// ExtractHTML walks an HTML document and collects href/src attributes,
// form actions (tagged as form-context links), and inline script bodies,
// which are additionally passed through the JavaScript scanner.
//
// Design decision: We use golang.org/x/net/html rather than regex because
// it correctly handles the malformed markup common on the web and always
// yields a tree, so extraction cannot fail on bad input.
func ExtractHTML(r io.Reader) ExtractResult {
	var result ExtractResult

	doc, err := html.Parse(r)
	if err != nil {
		// html.Parse only fails on reader errors; the partial result is
		// whatever was collected before the failure.
		return result
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			extractElement(n, &result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result
}

// extractElement collects links and inline scripts from one element node.
func extractElement(n *html.Node, result *ExtractResult) {
	switch n.Data {
	case "a", "link":
		addLink(result, getAttr(n, "href"), ContextNavigation)

	case "frame", "iframe", "img":
		addLink(result, getAttr(n, "src"), ContextNavigation)

	case "form":
		addLink(result, getAttr(n, "action"), ContextForm)

	case "script":
		if src := getAttr(n, "src"); src != "" {
			addLink(result, src, ContextScript)
			return
		}
		// Inline script: scan the text content.
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			inline := ExtractJS(n.FirstChild.Data)
			result.Links = append(result.Links, inline.Links...)
			result.Functions = append(result.Functions, inline.Functions...)
		}
	}
}

// addLink appends a link unless the href is empty or a non-navigable
// pseudo-scheme.
func addLink(result *ExtractResult, href string, linkCtx LinkContext) {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") {
		return
	}
	result.Links = append(result.Links, Link{Href: href, Context: linkCtx})
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// JavaScript patterns. The scan is syntactic, not semantic: no execution,
// no scope resolution. Nested declarations are all reported independently.
var (
	// function name(...) declarations.
	jsFuncDeclRe = regexp.MustCompile(`\bfunction\s+([A-Za-z_$][0-9A-Za-z_$]*)`)

	// var/let/const name = function literals.
	jsFuncExprRe = regexp.MustCompile(`\b(?:var|let|const)\s+([A-Za-z_$][0-9A-Za-z_$]*)\s*=\s*(?:async\s+)?function\b`)

	// var/let/const name = (...) => or name = x => arrow literals.
	jsArrowRe = regexp.MustCompile(`\b(?:var|let|const)\s+([A-Za-z_$][0-9A-Za-z_$]*)\s*=\s*(?:async\s*)?(?:\([^)]*\)|[A-Za-z_$][0-9A-Za-z_$]*)\s*=>`)

	// fetch/axios/jQuery call targets with a string-literal URL.
	jsAPICallRe = regexp.MustCompile(`(?i)\b(?:fetch|axios(?:\.(?:get|post|put|patch|delete))?|\$\.ajax|\$\.get|\$\.post)\s*\(\s*['"]([^'"]+)['"]`)

	// XMLHttpRequest open("METHOD", "url") targets.
	jsXHROpenRe = regexp.MustCompile(`\.open\s*\(\s*['"][A-Za-z]+['"]\s*,\s*['"]([^'"]+)['"]`)
)

// ExtractJS scans JavaScript source for function declarations,
// function-valued assignments, and XHR-style call targets. Call targets
// are returned as script-context links so that the classifier treats them
// as endpoint references rather than navigation.
func ExtractJS(src string) ExtractResult {
	var result ExtractResult

	for _, re := range []*regexp.Regexp{jsFuncDeclRe, jsFuncExprRe, jsArrowRe} {
		for _, m := range re.FindAllStringSubmatch(src, -1) {
			result.Functions = append(result.Functions, m[1])
		}
	}

	for _, re := range []*regexp.Regexp{jsAPICallRe, jsXHROpenRe} {
		for _, m := range re.FindAllStringSubmatch(src, -1) {
			result.Links = append(result.Links, Link{Href: m[1], Context: ContextScript})
		}
	}

	return result
}
