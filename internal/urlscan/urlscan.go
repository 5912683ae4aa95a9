// Package urlscan pulls URLs out of extracted page text for the
// identify-urls tool. Text-layer only; scanned PDFs need OCR, which this
// service does not do.
package urlscan

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
)

// urlPattern is pragmatic rather than RFC-strict: scheme or www prefix, then
// anything that is not whitespace or an obvious breaker.
var urlPattern = regexp.MustCompile(`(?i)\b((?:https?://|www\.)[^\s<>()\[\]{}"']+)`)

// trailing punctuation commonly glued onto URLs by prose
const trimTrailing = ".,);:!?'\"”’"

// FromText returns the URLs found in text, in match order, with trailing
// punctuation stripped.
func FromText(text string) []string {
	if text == "" {
		return nil
	}
	var found []string
	for _, m := range urlPattern.FindAllStringSubmatch(text, -1) {
		u := strings.TrimRight(strings.TrimSpace(m[1]), trimTrailing)
		if u != "" {
			found = append(found, u)
		}
	}
	return found
}

// Collect deduplicates URLs from multiple pages and sorts them
// case-insensitively for a stable report.
func Collect(pages []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, text := range pages {
		for _, u := range FromText(text) {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// ReportHTML builds the report document handed to the converter for the DOCX
// download. stem is the uploaded file's name without extension.
func ReportHTML(stem string, urls []string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"></head><body>\n")
	fmt.Fprintf(&b, "<h1>URLs found in &quot;%s.pdf&quot;</h1>\n", html.EscapeString(stem))
	if len(urls) > 0 {
		fmt.Fprintf(&b, "<p>Total unique URLs: %d</p>\n<ul>\n", len(urls))
		for _, u := range urls {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(u))
		}
		b.WriteString("</ul>\n")
	} else {
		b.WriteString("<p>No URLs were found in the text of this PDF.</p>\n")
		b.WriteString("<p>(Note: scanned PDFs/images need OCR; text-only extraction was used.)</p>\n")
	}
	b.WriteString("</body></html>\n")
	return b.String()
}
