// Package registry is the single source of truth for the tool catalog.
// The home page cards and the sitemap are both generated from it.
package registry

import "strings"

// Tool describes one entry in the catalog.
type Tool struct {
	Name        string
	Path        string
	Description string
}

// Tools lists every tool in display order.
var Tools = []Tool{
	{
		Name:        "Convert PDF → DOCX",
		Path:        "/convert-pdf/",
		Description: "Upload one PDF and download an editable Word document.",
	},
	{
		Name:        "Merge 2 PDFs → 1 DOCX",
		Path:        "/merge/",
		Description: "Upload two PDFs; we merge them and convert into one DOCX.",
	},
	{
		Name:        "Split PDF",
		Path:        "/split/",
		Description: "Slice a PDF into page ranges and download them as PDF or DOCX.",
	},
	{
		Name:        "Identify URLs",
		Path:        "/identify-urls/",
		Description: "Extract every link from a PDF's text into a DOCX report.",
	},
	{
		Name:        "Sign PDF",
		Path:        "/sign/",
		Description: "Place your signature anywhere on the pages and download the signed PDF.",
	},
}

// AbsoluteURL joins the configured base URL with a tool path.
func AbsoluteURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}
