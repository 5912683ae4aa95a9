// Package web wires the tool handlers: multipart uploads in, scratch
// workdirs, downloads out. All tools are synchronous request/response.
package web

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolbox/internal/converter"
	"github.com/local/pdftoolbox/internal/filetype"
	"github.com/local/pdftoolbox/internal/limiter"
	"github.com/local/pdftoolbox/internal/metrics"
	"github.com/local/pdftoolbox/internal/registry"
	"github.com/local/pdftoolbox/internal/scratch"
)

// Settings carries the per-deployment knobs the handlers need.
type Settings struct {
	BaseURL        string
	MaxUploadMB    int
	ScratchRoot    string
	TemplatesDir   string
	SigWidthPt     float64
	FontCandidates []string
	PreviewDPI     int
	PreviewQuality int
}

type Web struct {
	tpl  *template.Template
	conv *converter.LibreOffice
	lim  *limiter.Adaptive
	det  *filetype.Detector
	cfg  Settings
}

func New(conv *converter.LibreOffice, lim *limiter.Adaptive, cfg Settings) *Web {
	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = filepath.Join("web", "templates")
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 64
	}
	if cfg.SigWidthPt <= 0 {
		cfg.SigWidthPt = 200
	}
	if cfg.PreviewDPI <= 0 {
		cfg.PreviewDPI = 96
	}
	if cfg.PreviewQuality <= 0 {
		cfg.PreviewQuality = 80
	}
	tpl := template.Must(template.ParseGlob(filepath.Join(cfg.TemplatesDir, "*.html")))
	return &Web{
		tpl:  tpl,
		conv: conv,
		lim:  lim,
		det:  filetype.New(),
		cfg:  cfg,
	}
}

func (w *Web) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", w.handleHome)
	mux.HandleFunc("/robots.txt", w.handleRobots)
	mux.HandleFunc("/sitemap.xml", w.handleSitemap)
	mux.HandleFunc("/convert-pdf/", w.handleConvert)
	mux.HandleFunc("/merge/", w.handleMerge)
	mux.HandleFunc("/split/", w.handleSplit)
	mux.HandleFunc("/identify-urls/", w.handleIdentifyURLs)
	mux.HandleFunc("/sign/", w.handleSign)
	mux.HandleFunc("/sign/preview", w.handleSignPreview)
}

func (w *Web) render(wr http.ResponseWriter, name string, data any) {
	if err := w.tpl.ExecuteTemplate(wr, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("template render failed")
	}
}

func (w *Web) handleHome(wr http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(wr, r)
		return
	}
	w.render(wr, "home.html", map[string]any{"Tools": registry.Tools})
}

func (w *Web) handleRobots(wr http.ResponseWriter, r *http.Request) {
	wr.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(wr, "User-agent: *\nAllow: /\nSitemap: %s\n", registry.AbsoluteURL(w.cfg.BaseURL, "/sitemap.xml"))
}

func (w *Web) handleSitemap(wr http.ResponseWriter, r *http.Request) {
	urls := []string{registry.AbsoluteURL(w.cfg.BaseURL, "/")}
	for _, t := range registry.Tools {
		urls = append(urls, registry.AbsoluteURL(w.cfg.BaseURL, t.Path))
	}
	wr.Header().Set("Content-Type", "application/xml")
	fmt.Fprintln(wr, `<?xml version="1.0" encoding="UTF-8"?>`)
	fmt.Fprintln(wr, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, u := range urls {
		fmt.Fprintf(wr, "<url><loc>%s</loc></url>\n", u)
	}
	fmt.Fprintln(wr, "</urlset>")
}

// --- shared request plumbing ---

// secureFilename keeps only filename-safe runes, mirroring what the upload
// field may carry from any browser. Empty results fall back to a default.
func secureFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" || out == "pdf" {
		return "upload.pdf"
	}
	return out
}

func stem(name string) string { return strings.TrimSuffix(name, filepath.Ext(name)) }

// saveUpload persists one multipart file field into the workdir and verifies
// it is a real PDF by magic bytes.
func (w *Web) saveUpload(r *http.Request, field string, wd *scratch.Dir) (string, string, int64, error) {
	file, hdr, err := r.FormFile(field)
	if err != nil {
		return "", "", 0, fmt.Errorf("please upload a PDF file")
	}
	defer file.Close()

	name := secureFilename(hdr.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return "", "", 0, fmt.Errorf("only PDF files are accepted")
	}
	path := wd.Join(name)
	size, err := writeFile(path, file)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to store upload")
	}
	ok, err := w.det.IsPDF(path)
	if err != nil || !ok {
		return "", "", 0, fmt.Errorf("only PDF files are accepted")
	}
	return path, name, size, nil
}

func writeFile(path string, src multipart.File) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, src)
	if err != nil {
		out.Close()
		return 0, err
	}
	return n, out.Close()
}

// sendFile streams a produced artifact as an attachment.
func sendFile(wr http.ResponseWriter, path, downloadName, mime string) {
	f, err := os.Open(path)
	if err != nil {
		http.Error(wr, "result not available", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	wr.Header().Set("Content-Type", mime)
	wr.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	if info, err := f.Stat(); err == nil {
		wr.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	}
	io.Copy(wr, f)
}

const docxMime = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// tool wraps a POST handler with workdir lifecycle, request id, metrics and
// upload size limiting. The inner handler returns a result label.
func (w *Web) tool(name string, wr http.ResponseWriter, r *http.Request, fn func(wd *scratch.Dir, reqID string) string) {
	start := time.Now()
	reqID := uuid.NewString()
	r.Body = http.MaxBytesReader(wr, r.Body, int64(w.cfg.MaxUploadMB)<<20)
	if err := r.ParseMultipartForm(int64(w.cfg.MaxUploadMB) << 20); err != nil {
		http.Error(wr, "invalid multipart form", http.StatusBadRequest)
		metrics.ObserveTool(name, "bad_request", time.Since(start))
		return
	}
	wd, err := scratch.New(w.cfg.ScratchRoot, name)
	if err != nil {
		log.Error().Err(err).Str("tool", name).Msg("cannot create workdir")
		http.Error(wr, "server storage unavailable", http.StatusInternalServerError)
		metrics.ObserveTool(name, "error", time.Since(start))
		return
	}
	defer wd.Remove()

	result := fn(wd, reqID)
	metrics.ObserveTool(name, result, time.Since(start))
	log.Info().Str("tool", name).Str("request_id", reqID).Str("result", result).
		Dur("duration", time.Since(start)).Msg("tool request finished")
}

// convertGuarded runs one LibreOffice job behind the breaker and slot limiter.
func (w *Web) convertGuarded(r *http.Request, tool string, job converter.Job) (converter.Result, int, error) {
	if w.conv == nil {
		return converter.Result{}, http.StatusServiceUnavailable, errors.New("conversion is not available on this server")
	}
	if w.lim != nil {
		if w.lim.IsOpen(r.Context(), tool) {
			return converter.Result{}, http.StatusServiceUnavailable, errors.New("conversion is cooling down, please retry shortly")
		}
		release, ok := w.lim.Allow(tool)
		if !ok {
			return converter.Result{}, http.StatusServiceUnavailable, errors.New("too many conversions in flight, please retry")
		}
		defer release()
	}
	res := w.conv.Convert(job)
	if !res.Success {
		if w.lim != nil {
			w.lim.Open(r.Context(), tool)
			metrics.BreakerOpened(tool)
		}
		return res, http.StatusInternalServerError, fmt.Errorf("conversion failed: %s", res.Error)
	}
	if w.lim != nil && w.lim.IsOpen(r.Context(), tool) {
		w.lim.Close(r.Context(), tool)
		metrics.BreakerClosed(tool)
	}
	return res, http.StatusOK, nil
}
