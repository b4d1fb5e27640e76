package bootstrap_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"pdfsearch/internal/archive"
	"pdfsearch/internal/bootstrap"
	"pdfsearch/internal/shared/config"
)

// stubPdftotext writes a fake pdftotext that prints the file it is given.
func stubPdftotext(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "pdftotext")
	if err := os.WriteFile(path, []byte("#!/bin/sh\ncat \"$1\"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func buildApp(t *testing.T, bin string) (*bootstrap.App, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	filesDir := t.TempDir()
	app, err := bootstrap.Build(config.Config{
		Env:             "dev",
		ObjectStoreType: "local",
		FilesDir:        filesDir,
		ExtractorBin:    bin,
		Fallback:        false,
		LogLevel:        "error",
	})
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app, filesDir
}

func do(t *testing.T, app *bootstrap.App, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	return resp
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", resp.Body.String(), err)
	}
	return body.Error.Code
}

func TestHealthAndMetrics(t *testing.T) {
	app, _ := buildApp(t, stubPdftotext(t))

	resp := do(t, app, http.MethodGet, "/api/v1/health", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", resp.Code)
	}
	var status struct {
		OK        bool   `json:"ok"`
		Database  string `json:"database"`
		Extractor string `json:"extractor"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if !status.OK || status.Database != "memory" || status.Extractor != "ok" {
		t.Fatalf("unexpected health %+v", status)
	}

	if resp := do(t, app, http.MethodGet, "/metrics", nil); resp.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", resp.Code)
	}
}

func TestInstallMissingBinary(t *testing.T) {
	app, _ := buildApp(t, filepath.Join(t.TempDir(), "no-pdftotext"))

	resp := do(t, app, http.MethodPost, "/api/v1/admin/pdf-search/install", nil)
	if resp.Code != http.StatusPreconditionFailed || errorCode(t, resp) != "missing_dependency" {
		t.Fatalf("expected 412 missing_dependency, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestEndToEndRefreshFlow(t *testing.T) {
	app, filesDir := buildApp(t, stubPdftotext(t))
	ctx := context.Background()
	mem, ok := app.Store.(*archive.MemoryStore)
	if !ok {
		t.Fatalf("expected memory store in dev without DATABASE_URL, got %T", app.Store)
	}

	// Mutations before install are accepted and ignored.
	item, err := mem.CreateItem(ctx)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if resp := do(t, app, http.MethodPost, "/api/v1/hooks/after-save-item", map[string]any{"itemId": item.ID}); resp.Code != http.StatusNoContent {
		t.Fatalf("after-save before install: expected 204, got %d", resp.Code)
	}
	if resp := do(t, app, http.MethodPost, "/api/v1/admin/pdf-search/backfill", nil); resp.Code != http.StatusConflict || errorCode(t, resp) != "not_installed" {
		t.Fatalf("backfill before install: expected 409 not_installed, got %d", resp.Code)
	}

	if resp := do(t, app, http.MethodPost, "/api/v1/admin/pdf-search/install", nil); resp.Code != http.StatusCreated {
		t.Fatalf("install: expected 201, got %d %s", resp.Code, resp.Body.String())
	}
	if resp := do(t, app, http.MethodPost, "/api/v1/admin/pdf-search/install", nil); resp.Code != http.StatusConflict || errorCode(t, resp) != "config_conflict" {
		t.Fatalf("second install: expected 409 config_conflict, got %d", resp.Code)
	}

	for _, f := range []struct{ name, body, mime string }{
		{"report one.pdf", "first report", "application/pdf"},
		{"it's second.pdf", "second report", "application/x-pdf"},
		{"notes.txt", "plain notes", "text/plain"},
	} {
		if err := os.WriteFile(filepath.Join(filesDir, f.name), []byte(f.body), 0o644); err != nil {
			t.Fatalf("write %s: %v", f.name, err)
		}
		if _, err := mem.AddFile(ctx, archive.File{ItemID: item.ID, ArchiveFilename: f.name, MimeBrowser: f.mime}); err != nil {
			t.Fatalf("AddFile: %v", err)
		}
	}

	if resp := do(t, app, http.MethodPost, "/api/v1/hooks/after-save-item", map[string]any{"itemId": item.ID}); resp.Code != http.StatusNoContent {
		t.Fatalf("after-save: expected 204, got %d", resp.Code)
	}
	texts := listTexts(t, app, item.ID)
	if len(texts) != 2 || texts[0] != "first report" || texts[1] != "second report" {
		t.Fatalf("unexpected texts %q", texts)
	}

	files, err := mem.ListFiles(ctx, item.ID)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	removed, err := mem.RemoveFile(ctx, files[0].ID)
	if err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if resp := do(t, app, http.MethodPost, "/api/v1/hooks/after-delete-file", map[string]any{"fileId": removed.ID, "itemId": removed.ItemID}); resp.Code != http.StatusNoContent {
		t.Fatalf("after-delete: expected 204, got %d", resp.Code)
	}
	if texts := listTexts(t, app, item.ID); len(texts) != 1 || texts[0] != "second report" {
		t.Fatalf("unexpected texts after delete %q", texts)
	}

	resp := do(t, app, http.MethodPost, "/api/v1/admin/pdf-search/backfill", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("backfill: expected 200, got %d", resp.Code)
	}
	var result struct {
		Status  string `json:"status"`
		Items   int    `json:"items"`
		Records int    `json:"records"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode backfill: %v", err)
	}
	if result.Status != "completed" || result.Items != 1 || result.Records != 1 {
		t.Fatalf("unexpected backfill result %+v", result)
	}

	if resp := do(t, app, http.MethodPost, "/api/v1/admin/pdf-search/items/9999/refresh", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("refresh unknown item: expected 404, got %d", resp.Code)
	}
	if resp := do(t, app, http.MethodPost, "/api/v1/admin/pdf-search/items/abc/refresh", nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("refresh bad id: expected 400, got %d", resp.Code)
	}

	if resp := do(t, app, http.MethodDelete, "/api/v1/admin/pdf-search/install", nil); resp.Code != http.StatusNoContent {
		t.Fatalf("uninstall: expected 204, got %d", resp.Code)
	}
	if resp := do(t, app, http.MethodGet, "/api/v1/admin/pdf-search/items/1/texts", nil); resp.Code != http.StatusConflict {
		t.Fatalf("texts after uninstall: expected 409, got %d", resp.Code)
	}
}

func listTexts(t *testing.T, app *bootstrap.App, itemID int64) []string {
	t.Helper()
	resp := do(t, app, http.MethodGet, "/api/v1/admin/pdf-search/items/"+strconv.FormatInt(itemID, 10)+"/texts", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("texts: expected 200, got %d %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Texts []struct {
			Text string `json:"text"`
		} `json:"texts"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode texts: %v", err)
	}
	out := make([]string, 0, len(body.Texts))
	for _, tx := range body.Texts {
		out = append(out, tx.Text)
	}
	return out
}
