package web

import (
	"bytes"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stubTemplates = map[string]string{
	"home.html":          `home {{range .Tools}}{{.Name}};{{end}}`,
	"convert.html":       "convert form",
	"merge.html":         "merge form",
	"split.html":         "split form",
	"sign.html":          "sign form",
	"identify_urls.html": "identify urls form",
}

func newTestWeb(t *testing.T) *Web {
	t.Helper()
	dir := t.TempDir()
	for name, body := range stubTemplates {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return New(nil, nil, Settings{
		BaseURL:      "http://pdftoolbox.test",
		ScratchRoot:  t.TempDir(),
		TemplatesDir: dir,
	})
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	newTestWeb(t).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// multipartBody builds a multipart form with files (field -> content) and
// plain values.
func multipartBody(t *testing.T, files map[string][]byte, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".pdf")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// pdfStub passes magic-byte detection but is not a parseable document.
var pdfStub = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func postForm(t *testing.T, url string, files map[string][]byte, values map[string]string) *http.Response {
	t.Helper()
	body, ctype := multipartBody(t, files, values)
	resp, err := http.Post(url, ctype, body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestSecureFilename(t *testing.T) {
	assert.Equal(t, "my_report.pdf", secureFilename("my report.pdf"))
	assert.Equal(t, "report.pdf", secureFilename("../../etc/report.pdf"))
	assert.Equal(t, "upload.pdf", secureFilename("../.."))
	assert.Equal(t, "upload.pdf", secureFilename("....pdf"))
	assert.Equal(t, "Rapport2024-v1.pdf", secureFilename("Rapport©2024-v1.pdf"))
}

func TestHomeListsTools(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Split PDF")
	assert.Contains(t, body, "Sign PDF")
}

func TestUnknownPathIs404(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/no-such-tool/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRobotsPointsAtSitemap(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/robots.txt")
	require.NoError(t, err)
	defer resp.Body.Close()
	body := readBody(t, resp)
	assert.Contains(t, body, "User-agent: *")
	assert.Contains(t, body, "http://pdftoolbox.test/sitemap.xml")
}

func TestSitemapListsEveryTool(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/sitemap.xml")
	require.NoError(t, err)
	defer resp.Body.Close()
	body := readBody(t, resp)
	for _, p := range []string{"/", "/convert-pdf/", "/merge/", "/split/", "/identify-urls/", "/sign/"} {
		assert.Contains(t, body, "<loc>http://pdftoolbox.test"+p+"</loc>")
	}
}

func TestToolFormsRenderOnGET(t *testing.T) {
	srv := newTestServer(t)
	for path, want := range map[string]string{
		"/convert-pdf/":   "convert form",
		"/merge/":         "merge form",
		"/split/":         "split form",
		"/sign/":          "sign form",
		"/identify-urls/": "identify urls form",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		body := readBody(t, resp)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, body, want, path)
	}
}

func TestConvertRejectsMissingFile(t *testing.T) {
	srv := newTestServer(t)
	resp := postForm(t, srv.URL+"/convert-pdf/", nil, map[string]string{"unused": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "upload a PDF")
}

func TestConvertRejectsNonPDFUpload(t *testing.T) {
	srv := newTestServer(t)
	resp := postForm(t, srv.URL+"/convert-pdf/", map[string][]byte{"file": []byte("just text")}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "only PDF files")
}

func TestConvertUnavailableWithoutConverter(t *testing.T) {
	srv := newTestServer(t)
	resp := postForm(t, srv.URL+"/convert-pdf/", map[string][]byte{"file": pdfStub}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMergeRequiresBothFiles(t *testing.T) {
	srv := newTestServer(t)
	resp := postForm(t, srv.URL+"/merge/", map[string][]byte{"file1": pdfStub}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "second file")
}

func TestSplitRejectsUnreadablePDF(t *testing.T) {
	srv := newTestServer(t)
	resp := postForm(t, srv.URL+"/split/",
		map[string][]byte{"file": pdfStub},
		map[string]string{"start": "1", "end": "2"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignRejectsInvalidPlacements(t *testing.T) {
	srv := newTestServer(t)
	resp := postForm(t, srv.URL+"/sign/",
		map[string][]byte{"file": pdfStub},
		map[string]string{"full_name": "Jane Doe", "placements_json": "{broken"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "invalid signature placements")
}

func TestSignRejectsEmptyPlacements(t *testing.T) {
	srv := newTestServer(t)
	resp := postForm(t, srv.URL+"/sign/",
		map[string][]byte{"file": pdfStub},
		map[string]string{"full_name": "Jane Doe", "placements_json": "[]"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "at least one page")
}

func TestSignRejectsEmptyFullName(t *testing.T) {
	srv := newTestServer(t)
	resp := postForm(t, srv.URL+"/sign/",
		map[string][]byte{"file": pdfStub},
		map[string]string{"full_name": "   ", "placements_json": `[{"page_index":0,"x_norm":0.5,"y_norm":0.5}]`})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "full name")
}

func TestFitTextSizeReturnsWholePoints(t *testing.T) {
	// 9 runes at 0.5em each: exact fit would be 200/4.5 = 44.44pt
	size, err := fitTextSize("Jane Doe!", 200)
	require.NoError(t, err)
	assert.Equal(t, math.Floor(size), size)
	assert.LessOrEqual(t, 0.5*size*9, 200.0)
	assert.GreaterOrEqual(t, size, 4.0)
}

func TestSignPreviewRejectsGET(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/sign/preview")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSignPreviewRejectsBadPageNumber(t *testing.T) {
	srv := newTestServer(t)
	resp := postForm(t, srv.URL+"/sign/preview",
		map[string][]byte{"file": pdfStub},
		map[string]string{"page": "zero"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFileURLRejectsLocalPaths(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "secret.pdf")
	require.NoError(t, os.WriteFile(src, pdfStub, 0o644))

	srv := newTestServer(t)
	for _, ref := range []string{src, "file://" + src, "../relative.pdf"} {
		resp := postForm(t, srv.URL+"/convert-pdf/", nil, map[string]string{"file_url": ref})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, ref)
		assert.Contains(t, readBody(t, resp), "http(s) or s3", ref)
	}
}

func TestFileURLFetchesOverHTTP(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(wr http.ResponseWriter, r *http.Request) {
		wr.Write(pdfStub)
	}))
	defer remote.Close()

	srv := newTestServer(t)
	resp := postForm(t, srv.URL+"/convert-pdf/", nil, map[string]string{"file_url": remote.URL + "/doc.pdf"})
	// the fetch path accepted the file; only the converter is missing
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, strings.ToLower(readBody(t, resp)), "conversion")
}

func TestRefBase(t *testing.T) {
	assert.Equal(t, "doc.pdf", refBase("https://example.com/a/doc.pdf?x=1"))
	assert.Equal(t, "doc.pdf", refBase("s3://bucket/key/doc.pdf"))
	assert.Equal(t, "doc.pdf", refBase("/var/data/doc.pdf"))
}
