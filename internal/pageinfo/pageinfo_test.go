package pageinfo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "ewebapp/internal/infrastructure/errors"
	"ewebapp/internal/useragent"
)

const testPage = `<!DOCTYPE html>
<html><head>
<title> Example Notes </title>
<meta name="description" content="Take notes anywhere.">
<meta property="og:site_name" content="Notes">
<link rel="icon" href="/favicon-32.png">
<link rel="apple-touch-icon" href="/touch.png">
<link rel="manifest" href="/site.webmanifest">
</head><body><title>not this one</title></body></html>`

func TestFetcher_Fetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	f := NewFetcher(useragent.Firefox, time.Second)
	info, err := f.Fetch(context.Background(), srv.URL+"/app")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if gotUA != useragent.Firefox {
		t.Errorf("Expected configured UA, got %q", gotUA)
	}

	want := Info{
		URL:         srv.URL + "/app",
		Title:       "Example Notes",
		SiteName:    "Notes",
		Description: "Take notes anywhere.",
		IconURL:     srv.URL + "/touch.png",
		ManifestURL: srv.URL + "/site.webmanifest",
	}
	if info != want {
		t.Errorf("Expected %+v, got %+v", want, info)
	}
	if info.DisplayName() != "Notes" {
		t.Errorf("Unexpected display name %q", info.DisplayName())
	}
}

func TestFetcher_FaviconFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Bare</title></head></html>`))
	}))
	defer srv.Close()

	info, err := NewFetcher("", 0).Fetch(context.Background(), srv.URL+"/deep/page")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if info.IconURL != srv.URL+"/favicon.ico" {
		t.Errorf("Expected favicon fallback, got %q", info.IconURL)
	}
	if info.DisplayName() != "Bare" {
		t.Errorf("Expected title as display name, got %q", info.DisplayName())
	}
}

func TestFetcher_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewFetcher("", time.Second).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("Expected an error for a 500 response")
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Context["url"] != srv.URL {
		t.Errorf("Expected classified error with url context, got %v", err)
	}
}

func TestInfo_DisplayNameFallsBackToURL(t *testing.T) {
	if got := (Info{URL: "https://x.test"}).DisplayName(); got != "https://x.test" {
		t.Errorf("Unexpected display name %q", got)
	}
}
