package web

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/font/sfnt"

	"github.com/local/pdftoolbox/internal/converter"
	"github.com/local/pdftoolbox/internal/fetch"
	"github.com/local/pdftoolbox/internal/metrics"
	"github.com/local/pdftoolbox/internal/pagerange"
	"github.com/local/pdftoolbox/internal/pdfdoc"
	"github.com/local/pdftoolbox/internal/pdfops"
	"github.com/local/pdftoolbox/internal/placement"
	"github.com/local/pdftoolbox/internal/scratch"
	"github.com/local/pdftoolbox/internal/sigfont"
	"github.com/local/pdftoolbox/internal/signature"
	"github.com/local/pdftoolbox/internal/urlscan"
)

// obtainPDF returns a local PDF either from the uploaded form field or, when
// no file was attached, from the file_url field (http(s) or s3 only).
func (w *Web) obtainPDF(r *http.Request, field string, wd *scratch.Dir) (string, string, int64, error) {
	if f, _, err := r.FormFile(field); err == nil {
		f.Close()
		return w.saveUpload(r, field, wd)
	}
	ref := strings.TrimSpace(r.FormValue("file_url"))
	if ref == "" {
		return "", "", 0, fmt.Errorf("please upload a PDF file")
	}
	// Local refs would let a request read arbitrary server files.
	if fetch.Classify(ref) == fetch.KindLocal {
		return "", "", 0, fmt.Errorf("file_url must be an http(s) or s3 URL")
	}
	name := secureFilename(refBase(ref))
	if !strings.EqualFold(path.Ext(name), ".pdf") {
		name = "upload.pdf"
	}
	dest := wd.Join(name)
	if err := fetch.ToFile(r.Context(), ref, dest); err != nil {
		log.Warn().Err(err).Str("ref", ref).Msg("remote fetch failed")
		return "", "", 0, fmt.Errorf("could not fetch the file from the given URL")
	}
	ok, err := w.det.IsPDF(dest)
	if err != nil || !ok {
		return "", "", 0, fmt.Errorf("only PDF files are accepted")
	}
	info, err := os.Stat(dest)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to store upload")
	}
	return dest, name, info.Size(), nil
}

func refBase(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(ref)
}

// --- convert ---

func (w *Web) handleConvert(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.render(wr, "convert.html", nil)
		return
	}
	w.tool("convert", wr, r, func(wd *scratch.Dir, reqID string) string {
		in, name, size, err := w.obtainPDF(r, "file", wd)
		if err != nil {
			http.Error(wr, err.Error(), http.StatusBadRequest)
			return "bad_request"
		}
		metrics.ObserveUpload("convert", size)

		out := wd.Join(stem(name) + ".docx")
		res, code, err := w.convertGuarded(r, "convert", converter.Job{
			InputPath:  in,
			OutputPath: out,
			Format:     "docx",
		})
		if err != nil {
			log.Error().Err(err).Str("request_id", reqID).Msg("convert failed")
			http.Error(wr, err.Error(), code)
			if code == http.StatusServiceUnavailable {
				return "busy"
			}
			return "error"
		}
		metrics.AddArtifacts("convert", 1)
		sendFile(wr, res.OutputPath, stem(name)+".docx", docxMime)
		return "ok"
	})
}

// --- merge ---

func (w *Web) handleMerge(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.render(wr, "merge.html", nil)
		return
	}
	w.tool("merge", wr, r, func(wd *scratch.Dir, reqID string) string {
		in1, _, size1, err := w.saveUpload(r, "file1", wd)
		if err != nil {
			http.Error(wr, "first file: "+err.Error(), http.StatusBadRequest)
			return "bad_request"
		}
		in2, _, size2, err := w.saveUpload(r, "file2", wd)
		if err != nil {
			http.Error(wr, "second file: "+err.Error(), http.StatusBadRequest)
			return "bad_request"
		}
		metrics.ObserveUpload("merge", size1+size2)

		merged := wd.Join("merged.pdf")
		if err := pdfops.Merge([]string{in1, in2}, merged); err != nil {
			log.Error().Err(err).Str("request_id", reqID).Msg("pdf merge failed")
			http.Error(wr, "failed to merge the PDFs", http.StatusInternalServerError)
			return "error"
		}

		out := wd.Join("merged.docx")
		res, code, err := w.convertGuarded(r, "merge", converter.Job{
			InputPath:  merged,
			OutputPath: out,
			Format:     "docx",
		})
		if err != nil {
			log.Error().Err(err).Str("request_id", reqID).Msg("merge conversion failed")
			http.Error(wr, err.Error(), code)
			if code == http.StatusServiceUnavailable {
				return "busy"
			}
			return "error"
		}
		metrics.AddArtifacts("merge", 1)
		sendFile(wr, res.OutputPath, "merged.docx", docxMime)
		return "ok"
	})
}

// --- split ---

func (w *Web) handleSplit(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.render(wr, "split.html", nil)
		return
	}
	w.tool("split", wr, r, func(wd *scratch.Dir, reqID string) string {
		in, name, size, err := w.obtainPDF(r, "file", wd)
		if err != nil {
			http.Error(wr, err.Error(), http.StatusBadRequest)
			return "bad_request"
		}
		metrics.ObserveUpload("split", size)

		format := strings.ToLower(r.FormValue("output_format"))
		if format != "docx" {
			format = "pdf"
		}

		total, err := pdfdoc.PageCountFile(in)
		if err != nil {
			log.Error().Err(err).Str("request_id", reqID).Msg("page count failed")
			http.Error(wr, "could not read the PDF", http.StatusBadRequest)
			return "bad_request"
		}

		ranges, err := pagerange.Plan(r.Form["start"], r.Form["end"], total)
		if err != nil {
			http.Error(wr, rangeErrorMessage(err), http.StatusBadRequest)
			return "bad_request"
		}

		base := stem(name)
		var artifacts []string
		for i, rg := range ranges {
			slice := wd.Join(rg.ArtifactName(base, i+1, "pdf"))
			if err := pdfops.ExtractRange(in, slice, rg); err != nil {
				log.Error().Err(err).Str("request_id", reqID).Str("range", rg.String()).Msg("slice failed")
				http.Error(wr, "failed to split the PDF", http.StatusInternalServerError)
				return "error"
			}
			if format == "docx" {
				docx := wd.Join(rg.ArtifactName(base, i+1, "docx"))
				res, code, err := w.convertGuarded(r, "split", converter.Job{
					InputPath:  slice,
					OutputPath: docx,
					Format:     "docx",
				})
				if err != nil {
					log.Error().Err(err).Str("request_id", reqID).Msg("slice conversion failed")
					http.Error(wr, err.Error(), code)
					if code == http.StatusServiceUnavailable {
						return "busy"
					}
					return "error"
				}
				artifacts = append(artifacts, res.OutputPath)
			} else {
				artifacts = append(artifacts, slice)
			}
		}

		metrics.AddArtifacts("split", len(artifacts))
		wr.Header().Set("Content-Type", "application/zip")
		wr.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "splits_"+format+"s.zip"))
		if err := pdfops.ZipFiles(wr, artifacts); err != nil {
			log.Error().Err(err).Str("request_id", reqID).Msg("zip stream failed")
			return "error"
		}
		return "ok"
	})
}

func rangeErrorMessage(err error) string {
	switch {
	case errors.Is(err, pagerange.ErrNoRanges):
		return "please provide at least one page range"
	case errors.Is(err, pagerange.ErrOutOfBounds):
		return "the requested ranges are beyond the document's page count"
	case errors.Is(err, pagerange.ErrInvalidBounds):
		return "each range needs start >= 1 and end >= start"
	default:
		return "page ranges must be whole numbers"
	}
}

// --- identify urls ---

func (w *Web) handleIdentifyURLs(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.render(wr, "identify_urls.html", nil)
		return
	}
	w.tool("urls", wr, r, func(wd *scratch.Dir, reqID string) string {
		in, name, size, err := w.obtainPDF(r, "file", wd)
		if err != nil {
			http.Error(wr, err.Error(), http.StatusBadRequest)
			return "bad_request"
		}
		metrics.ObserveUpload("urls", size)

		doc, err := pdfdoc.Open(in)
		if err != nil {
			http.Error(wr, "could not read the PDF", http.StatusBadRequest)
			return "bad_request"
		}
		pages := make([]string, 0, doc.PageCount())
		for i := 0; i < doc.PageCount(); i++ {
			text, err := doc.PageText(i)
			if err != nil {
				log.Warn().Err(err).Int("page", i+1).Str("request_id", reqID).Msg("page text extraction failed")
				continue
			}
			pages = append(pages, text)
		}
		doc.Close()

		base := stem(name)
		urls := urlscan.Collect(pages)
		report := wd.Join("report.html")
		if err := os.WriteFile(report, []byte(urlscan.ReportHTML(base, urls)), 0o644); err != nil {
			http.Error(wr, "failed to build the report", http.StatusInternalServerError)
			return "error"
		}

		out := wd.Join(base + "_URLs.docx")
		res, code, err := w.convertGuarded(r, "urls", converter.Job{
			InputPath:  report,
			OutputPath: out,
			Format:     "docx",
		})
		if err != nil {
			log.Error().Err(err).Str("request_id", reqID).Msg("report conversion failed")
			http.Error(wr, err.Error(), code)
			if code == http.StatusServiceUnavailable {
				return "busy"
			}
			return "error"
		}
		metrics.AddArtifacts("urls", 1)
		sendFile(wr, res.OutputPath, base+"_URLs.docx", docxMime)
		return "ok"
	})
}

// --- sign ---

func (w *Web) handleSign(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.render(wr, "sign.html", nil)
		return
	}
	w.tool("sign", wr, r, func(wd *scratch.Dir, reqID string) string {
		in, name, size, err := w.obtainPDF(r, "file", wd)
		if err != nil {
			http.Error(wr, err.Error(), http.StatusBadRequest)
			return "bad_request"
		}
		metrics.ObserveUpload("sign", size)

		fullName := strings.TrimSpace(r.FormValue("full_name"))
		if fullName == "" {
			http.Error(wr, "please enter your full name", http.StatusBadRequest)
			return "bad_request"
		}
		points, err := placement.ParseJSON(r.FormValue("placements_json"))
		if err != nil {
			if errors.Is(err, placement.ErrNoPlacements) {
				http.Error(wr, "place the signature on at least one page", http.StatusBadRequest)
			} else {
				http.Error(wr, "invalid signature placements", http.StatusBadRequest)
			}
			return "bad_request"
		}

		sigWidth := w.cfg.SigWidthPt
		if v := r.FormValue("sig_width_pt"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 {
				http.Error(wr, "signature width must be a positive number", http.StatusBadRequest)
				return "bad_request"
			}
			sigWidth = f
		}

		doc, err := pdfdoc.Open(in)
		if err != nil {
			http.Error(wr, "could not read the PDF", http.StatusBadRequest)
			return "bad_request"
		}
		dims, err := doc.Dimensions()
		doc.Close()
		if err != nil {
			log.Error().Err(err).Str("request_id", reqID).Msg("page dimensions failed")
			http.Error(wr, "could not read the PDF", http.StatusBadRequest)
			return "bad_request"
		}

		out := wd.Join(stem(name) + "_signed.pdf")
		style := r.FormValue("sig_style")
		if style != "text" {
			style = "draw"
		}

		if style == "draw" {
			fnt, err := w.loadSigFont()
			if err != nil {
				log.Error().Err(err).Str("request_id", reqID).Msg("signature font unavailable")
				http.Error(wr, "the signature font is not installed on this server", http.StatusInternalServerError)
				return "error"
			}
			asset, err := signature.Render(fnt, fullName)
			if err != nil {
				log.Error().Err(err).Str("request_id", reqID).Msg("signature render failed")
				http.Error(wr, "failed to draw the signature", http.StatusInternalServerError)
				return "error"
			}
			imgPath := wd.Join("signature.png")
			if err := os.WriteFile(imgPath, asset.PNG, 0o644); err != nil {
				http.Error(wr, "failed to draw the signature", http.StatusInternalServerError)
				return "error"
			}
			heightPt, err := placement.RasterHeight(sigWidth, asset.Width, asset.Height)
			if err != nil {
				http.Error(wr, "failed to draw the signature", http.StatusInternalServerError)
				return "error"
			}
			overlays, err := placement.ForImage(points, dims, heightPt)
			if err != nil {
				http.Error(wr, placementErrorMessage(err), http.StatusBadRequest)
				return "bad_request"
			}
			if err := pdfops.StampImage(in, out, imgPath, sigWidth, asset.Width, overlays); err != nil {
				log.Error().Err(err).Str("request_id", reqID).Msg("image stamp failed")
				http.Error(wr, "failed to sign the PDF", http.StatusInternalServerError)
				return "error"
			}
		} else {
			text := fullName
			fitted, err := fitTextSize(text, sigWidth)
			if err != nil {
				http.Error(wr, "failed to sign the PDF", http.StatusInternalServerError)
				return "error"
			}
			overlays, err := placement.ForText(points, dims, fitted)
			if err != nil {
				http.Error(wr, placementErrorMessage(err), http.StatusBadRequest)
				return "bad_request"
			}
			if err := pdfops.StampText(in, out, text, overlays); err != nil {
				log.Error().Err(err).Str("request_id", reqID).Msg("text stamp failed")
				http.Error(wr, "failed to sign the PDF", http.StatusInternalServerError)
				return "error"
			}
		}

		metrics.AddArtifacts("sign", 1)
		sendFile(wr, out, stem(name)+"_signed.pdf", "application/pdf")
		return "ok"
	})
}

func placementErrorMessage(err error) string {
	if errors.Is(err, placement.ErrOutOfRange) {
		return "a signature was placed on a page the document does not have"
	}
	return "invalid signature placements"
}

// helveticaMeasure approximates core-font Helvetica advance widths; the
// stamper renders the text style with pdfcpu's built-in Helvetica, so an
// average 0.5em per rune is close enough for fitting.
func helveticaMeasure(text string) func(size float64) (float64, error) {
	n := float64(len([]rune(text)))
	return func(size float64) (float64, error) {
		return 0.5 * size * n, nil
	}
}

// fitTextSize fits text into targetWidth and floors the result to a whole
// point. pdfcpu takes integer point sizes, so the baseline drop must be
// computed from the same whole-point value the stamp will use. Flooring only
// shrinks, so the fitted width still fits and the 4pt floor is preserved.
func fitTextSize(text string, targetWidth float64) (float64, error) {
	fitted, err := placement.FitFontSize(helveticaMeasure(text), targetWidth)
	if err != nil {
		return 0, err
	}
	if whole := math.Floor(fitted); whole >= placement.MinFontSize {
		return whole, nil
	}
	return fitted, nil
}

func (w *Web) loadSigFont() (*sfnt.Font, error) {
	candidates := w.cfg.FontCandidates
	if len(candidates) == 0 {
		candidates = sigfont.DefaultCandidates()
	}
	fontPath, err := sigfont.Resolve(candidates)
	if err != nil {
		return nil, err
	}
	return sigfont.Load(fontPath)
}

// --- sign preview ---

// handleSignPreview renders one page as JPEG for the placement canvas.
func (w *Web) handleSignPreview(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(wr, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.tool("sign", wr, r, func(wd *scratch.Dir, reqID string) string {
		in, _, _, err := w.obtainPDF(r, "file", wd)
		if err != nil {
			http.Error(wr, err.Error(), http.StatusBadRequest)
			return "bad_request"
		}
		page := 1
		if v := r.FormValue("page"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				http.Error(wr, "page must be a positive number", http.StatusBadRequest)
				return "bad_request"
			}
			page = n
		}
		doc, err := pdfdoc.Open(in)
		if err != nil {
			http.Error(wr, "could not read the PDF", http.StatusBadRequest)
			return "bad_request"
		}
		defer doc.Close()
		if page > doc.PageCount() {
			http.Error(wr, "page is beyond the document's page count", http.StatusBadRequest)
			return "bad_request"
		}
		img, width, height, err := doc.RenderPageJPEG(page, w.cfg.PreviewDPI, w.cfg.PreviewQuality)
		if err != nil {
			log.Error().Err(err).Str("request_id", reqID).Int("page", page).Msg("preview render failed")
			http.Error(wr, "failed to render the preview", http.StatusInternalServerError)
			return "error"
		}
		wr.Header().Set("Content-Type", "image/jpeg")
		wr.Header().Set("X-Page-Width", strconv.Itoa(width))
		wr.Header().Set("X-Page-Height", strconv.Itoa(height))
		wr.Header().Set("X-Page-Count", strconv.Itoa(doc.PageCount()))
		wr.Write(img)
		return "ok"
	})
}
