package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendJSONWithETag(t *testing.T) {
	payload := map[string]string{"month": "2024-03"}

	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	rec := httptest.NewRecorder()
	sendJSONWithETag(rec, req, payload)

	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", rec.Code, http.StatusOK)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag header on the first response")
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected a body on the first response")
	}

	// A client replaying the ETag gets 304 and no body.
	req2 := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	req2.Header.Set("If-None-Match", etag)
	rec2 := httptest.NewRecorder()
	sendJSONWithETag(rec2, req2, payload)

	if rec2.Code != http.StatusNotModified {
		t.Fatalf("matching If-None-Match status = %d, want %d", rec2.Code, http.StatusNotModified)
	}
	if rec2.Body.Len() != 0 {
		t.Errorf("304 response must not carry a body, got %q", rec2.Body.String())
	}

	// Changed data invalidates the tag.
	req3 := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	req3.Header.Set("If-None-Match", etag)
	rec3 := httptest.NewRecorder()
	sendJSONWithETag(rec3, req3, map[string]string{"month": "2024-04"})

	if rec3.Code != http.StatusOK {
		t.Fatalf("stale If-None-Match status = %d, want %d", rec3.Code, http.StatusOK)
	}
	if rec3.Header().Get("ETag") == etag {
		t.Error("expected a different ETag for different data")
	}
}
