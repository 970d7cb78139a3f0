package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"go-signpdf/internal/config"
	"go-signpdf/internal/pdf"
	"go-signpdf/internal/store/memory"
	"go-signpdf/internal/testutil"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func setupTestServer(t *testing.T) *httptest.Server {
	cfg := config.Default()
	cfg.Sign.TempDir = t.TempDir()
	s := New(cfg, memory.NewDocumentStore())
	server := httptest.NewServer(s.RegisterRoutes())
	t.Cleanup(server.Close)
	return server
}

func uploadPDF(t *testing.T, server *httptest.Server, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("file", filename)
	_, _ = part.Write(content)
	writer.Close()

	req, _ := http.NewRequest("POST", server.URL+"/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to upload file: %v", err)
	}
	return resp
}

func postSign(t *testing.T, server *httptest.Server, body map[string]any) *http.Response {
	t.Helper()
	payload, _ := json.Marshal(body)
	resp, err := http.Post(server.URL+"/sign", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Failed to sign: %v", err)
	}
	return resp
}

func download(t *testing.T, server *httptest.Server, filename string) []byte {
	t.Helper()
	resp, err := http.Get(server.URL + "/download/" + filename)
	if err != nil {
		t.Fatalf("Failed to download: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	return body
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return result
}

func signature() string {
	return base64.StdEncoding.EncodeToString(testutil.SignaturePNG(60, 30))
}

func TestUploadFetchDownload(t *testing.T) {
	server := setupTestServer(t)
	src := testutil.BlankPDF(1)

	resp := uploadPDF(t, server, "doc.pdf", src)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}
	result := decodeJSON(t, resp)
	if result["message"] != "PDF uploaded successfully" || result["filename"] != "doc.pdf" {
		t.Errorf("Unexpected upload response: %v", result)
	}

	resp, err := http.Get(server.URL + "/pdf/doc.pdf")
	if err != nil {
		t.Fatalf("Failed to fetch: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}
	fetched := decodeJSON(t, resp)
	if fetched["filename"] != "doc.pdf" {
		t.Errorf("Expected filename doc.pdf, got %q", fetched["filename"])
	}
	content, err := base64.StdEncoding.DecodeString(fetched["content"])
	if err != nil || !bytes.Equal(content, src) {
		t.Error("Fetched content differs from upload")
	}

	resp, err = http.Get(server.URL + "/download/doc.pdf")
	if err != nil {
		t.Fatalf("Failed to download: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Disposition"); got != "attachment; filename=doc.pdf" {
		t.Errorf("Unexpected Content-Disposition %q", got)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Unexpected Content-Type %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, src) {
		t.Error("Downloaded content differs from upload")
	}
}

func TestUploadWithoutFile(t *testing.T) {
	server := setupTestServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("other", "value")
	writer.Close()
	req, _ := http.NewRequest("POST", server.URL+"/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestMissingDocument(t *testing.T) {
	server := setupTestServer(t)

	for _, path := range []string{"/pdf/never.pdf", "/download/never.pdf"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, resp.StatusCode)
		}
		if detail := decodeJSON(t, resp)["detail"]; detail != "Document not found" {
			t.Errorf("GET %s: unexpected detail %q", path, detail)
		}
	}

	resp := postSign(t, server, map[string]any{
		"filename": "never.pdf", "signature": signature(), "x": 100, "y": 100,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestSignScenario(t *testing.T) {
	server := setupTestServer(t)
	src := testutil.BlankPDF(1)
	uploadPDF(t, server, "doc.pdf", src).Body.Close()

	resp := postSign(t, server, map[string]any{
		"filename":  "doc.pdf",
		"signature": signature(),
		"x":         100,
		"y":         100,
		"width":     200,
		"height":    100,
		"page":      0,
	})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected 200 OK, got %d: %s", resp.StatusCode, body)
	}
	result := decodeJSON(t, resp)
	if result["message"] != "Signature added successfully" || result["filename"] != "doc.pdf" {
		t.Errorf("Unexpected sign response: %v", result)
	}

	signed := download(t, server, "doc.pdf")
	if bytes.Equal(signed, src) {
		t.Fatal("Expected the stored document to change")
	}
	n, err := pdf.NewCodec(t.TempDir()).PageCount(signed)
	if err != nil {
		t.Fatalf("Signed document does not decode: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 page, got %d", n)
	}

	// Rect (100,100)-(300,200) from the top of a 792pt page has its
	// bottom-left corner at (100, 592) in PDF user space.
	x, y := stampOrigin(t, signed)
	if math.Abs(x-100) > 0.01 || math.Abs(y-592) > 0.01 {
		t.Errorf("Expected signature at (100, 592), got (%.2f, %.2f)", x, y)
	}
}

var stampMatrix = regexp.MustCompile(`(-?[0-9.]+) (-?[0-9.]+) cm /\w+ gs`)

func stampOrigin(t *testing.T, signed []byte) (float64, float64) {
	t.Helper()
	ctx, err := pdfapi.ReadAndValidate(bytes.NewReader(signed), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("Failed to read signed document: %v", err)
	}
	d, _, _, err := ctx.PageDict(1, false)
	if err != nil {
		t.Fatalf("Failed to read page: %v", err)
	}
	content, err := ctx.PageContent(d)
	if err != nil {
		t.Fatalf("Failed to read page content: %v", err)
	}
	m := stampMatrix.FindSubmatch(content)
	if m == nil {
		t.Fatalf("No signature placement in page content %q", content)
	}
	x, _ := strconv.ParseFloat(string(m[1]), 64)
	y, _ := strconv.ParseFloat(string(m[2]), 64)
	return x, y
}

func TestSignWithDefaultsAndDataURL(t *testing.T) {
	server := setupTestServer(t)
	uploadPDF(t, server, "doc.pdf", testutil.BlankPDF(2)).Body.Close()

	resp := postSign(t, server, map[string]any{
		"filename":  "doc.pdf",
		"signature": "data:image/png;base64," + signature(),
		"x":         50,
		"y":         50,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}
}

func TestSignRejectsBadInput(t *testing.T) {
	server := setupTestServer(t)
	src := testutil.BlankPDF(1)
	uploadPDF(t, server, "doc.pdf", src).Body.Close()
	uploadPDF(t, server, "broken.pdf", []byte("not a pdf")).Body.Close()

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"page out of range", map[string]any{"filename": "doc.pdf", "signature": signature(), "x": 1, "y": 1, "page": 1}, "invalid page index"},
		{"negative page", map[string]any{"filename": "doc.pdf", "signature": signature(), "x": 1, "y": 1, "page": -1}, "invalid page index"},
		{"signature not base64", map[string]any{"filename": "doc.pdf", "signature": "%%%", "x": 1, "y": 1}, "invalid signature image"},
		{"signature not an image", map[string]any{"filename": "doc.pdf", "signature": base64.StdEncoding.EncodeToString([]byte("text")), "x": 1, "y": 1}, "invalid signature image"},
		{"signature too large", map[string]any{"filename": "doc.pdf", "signature": base64.StdEncoding.EncodeToString(testutil.LargePNG(64, 30000)), "x": 1, "y": 1}, "invalid signature image"},
		{"document not a pdf", map[string]any{"filename": "broken.pdf", "signature": signature(), "x": 1, "y": 1}, "invalid document"},
		{"zero height", map[string]any{"filename": "doc.pdf", "signature": signature(), "x": 1, "y": 1, "height": 0}, "invalid placement"},
		{"missing coordinates", map[string]any{"filename": "doc.pdf", "signature": signature()}, "x and y are required"},
		{"missing filename", map[string]any{"signature": signature(), "x": 1, "y": 1}, "filename is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := postSign(t, server, tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", resp.StatusCode)
			}
			if detail := decodeJSON(t, resp)["detail"]; !strings.HasPrefix(detail, tc.want) {
				t.Errorf("Expected detail starting with %q, got %q", tc.want, detail)
			}
		})
	}

	if !bytes.Equal(download(t, server, "doc.pdf"), src) {
		t.Error("Rejected sign requests changed the stored document")
	}
}

func TestSignInvalidJSON(t *testing.T) {
	server := setupTestServer(t)
	resp, err := http.Post(server.URL+"/sign", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("Failed to post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestCORSIsOpen(t *testing.T) {
	server := setupTestServer(t)

	req, _ := http.NewRequest("OPTIONS", server.URL+"/sign", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Preflight failed: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example" && got != "*" {
		t.Errorf("Unexpected Access-Control-Allow-Origin %q", got)
	}
}

func TestHealth(t *testing.T) {
	server := setupTestServer(t)
	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("Health check failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}
	if status := decodeJSON(t, resp)["status"]; status != "ok" {
		t.Errorf("Expected status ok, got %q", status)
	}
}
