// Package pdfops is the slicer/merger/stamper collaborator built on pdfcpu.
// It consumes RangePlans and overlay descriptors; it never computes them.
package pdfops

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolbox/internal/pagerange"
	"github.com/local/pdftoolbox/internal/placement"
)

// ExtractRange writes a new PDF containing exactly the pages of r (1-based,
// inclusive) to outPath.
func ExtractRange(inPath, outPath string, r pagerange.PageRange) error {
	conf := model.NewDefaultConfiguration()
	if err := api.TrimFile(inPath, outPath, []string{r.String()}, conf); err != nil {
		return fmt.Errorf("failed to extract pages %s: %w", r, err)
	}
	return nil
}

// Merge concatenates the input PDFs into outPath in order.
func Merge(inputs []string, outPath string) error {
	log.Info().Int("count", len(inputs)).Str("output", filepath.Base(outPath)).Msg("merging PDFs")
	conf := model.NewDefaultConfiguration()
	if err := api.MergeCreateFile(inputs, outPath, false, conf); err != nil {
		return fmt.Errorf("failed to merge PDFs: %w", err)
	}
	return nil
}

// StampImage stamps the signature image onto inPath at every overlay anchor
// and writes the result to outPath. widthPt is the rendered stamp width;
// imgWidthPx the asset's natural pixel width, giving the absolute scale
// factor pdfcpu applies to the image.
//
// pdfcpu applies one watermark position per call, so anchors are stamped in
// sequential passes over the output file.
func StampImage(inPath, outPath, imgPath string, widthPt float64, imgWidthPx int, overlays []placement.Overlay) error {
	if imgWidthPx <= 0 {
		return fmt.Errorf("invalid stamp image width %d", imgWidthPx)
	}
	if err := copyFile(inPath, outPath); err != nil {
		return fmt.Errorf("failed to copy PDF: %w", err)
	}
	scale := widthPt / float64(imgWidthPx)
	desc := fmt.Sprintf("scale:%.4f abs, pos:bl, rot:0, op:1", scale)

	for _, ov := range overlays {
		pages := []string{strconv.Itoa(ov.PageIndex + 1)}
		for _, a := range ov.Anchors {
			wm, err := pdfcpu.ParseImageWatermarkDetails(imgPath, desc, true, types.POINTS)
			if err != nil {
				os.Remove(outPath)
				return fmt.Errorf("failed to parse image watermark: %w", err)
			}
			wm.Dx = a.X
			wm.Dy = a.Y
			if err := api.AddWatermarksFile(outPath, outPath, pages, wm, model.NewDefaultConfiguration()); err != nil {
				os.Remove(outPath)
				return fmt.Errorf("failed to stamp page %d: %w", ov.PageIndex+1, err)
			}
		}
	}
	return nil
}

// StampText stamps text at every overlay anchor, using the fitted font size
// carried by the overlay. Anchors are baseline coordinates.
func StampText(inPath, outPath, text string, overlays []placement.Overlay) error {
	if err := copyFile(inPath, outPath); err != nil {
		return fmt.Errorf("failed to copy PDF: %w", err)
	}
	for _, ov := range overlays {
		pages := []string{strconv.Itoa(ov.PageIndex + 1)}
		desc := fmt.Sprintf("fontname:Helvetica, points:%d, scale:1 abs, pos:bl, rot:0, op:1", int(ov.FontSize))
		for _, a := range ov.Anchors {
			wm, err := pdfcpu.ParseTextWatermarkDetails(text, desc, true, types.POINTS)
			if err != nil {
				os.Remove(outPath)
				return fmt.Errorf("failed to parse text watermark: %w", err)
			}
			wm.Dx = a.X
			wm.Dy = a.Y
			if err := api.AddWatermarksFile(outPath, outPath, pages, wm, model.NewDefaultConfiguration()); err != nil {
				os.Remove(outPath)
				return fmt.Errorf("failed to stamp page %d: %w", ov.PageIndex+1, err)
			}
		}
	}
	return nil
}

// ZipFiles writes the named files into w as a deflate ZIP, flat, using each
// file's base name as the archive entry.
func ZipFiles(w io.Writer, paths []string) error {
	zw := zip.NewWriter(w)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			zw.Close()
			return fmt.Errorf("failed to open %s: %w", p, err)
		}
		entry, err := zw.Create(filepath.Base(p))
		if err != nil {
			f.Close()
			zw.Close()
			return fmt.Errorf("failed to add zip entry: %w", err)
		}
		if _, err := io.Copy(entry, f); err != nil {
			f.Close()
			zw.Close()
			return fmt.Errorf("failed to write zip entry: %w", err)
		}
		f.Close()
	}
	return zw.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
