package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestSanitize_StripsScriptsAndEventHandlers(t *testing.T) {
	html := `<html><body>
		<script>alert(1)</script>
		<style>body{color:red}</style>
		<iframe src="https://evil.example"></iframe>
		<p onclick="alert(2)" onmouseover="alert(3)">hello</p>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}

	sanitize(doc)

	if doc.Find("script").Length() != 0 {
		t.Error("expected script elements removed")
	}
	if doc.Find("style").Length() != 0 {
		t.Error("expected style elements removed")
	}
	if doc.Find("iframe").Length() != 0 {
		t.Error("expected iframe elements removed")
	}

	p := doc.Find("p")
	if _, exists := p.Attr("onclick"); exists {
		t.Error("expected onclick attribute removed")
	}
	if _, exists := p.Attr("onmouseover"); exists {
		t.Error("expected onmouseover attribute removed")
	}
	if p.Text() != "hello" {
		t.Errorf("got text %q, want %q", p.Text(), "hello")
	}
}

func TestJoinSelectors(t *testing.T) {
	got := joinSelectors([]string{"script", "style", "iframe"})
	want := "script, style, iframe"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestProxy_MissingURLRejected(t *testing.T) {
	h := NewOpenProxyHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/open-proxy", nil)
	rec := httptest.NewRecorder()
	h.Proxy(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestProxy_RejectsDisallowedScheme(t *testing.T) {
	h := NewOpenProxyHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/open-proxy?url="+"ftp://example.com/page", nil)
	rec := httptest.NewRecorder()
	h.Proxy(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestProxy_RejectsLoopbackTarget(t *testing.T) {
	h := NewOpenProxyHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/open-proxy?url="+"https://127.0.0.1/page", nil)
	rec := httptest.NewRecorder()
	h.Proxy(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
