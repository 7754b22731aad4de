package musicbrainz

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	client := NewClient()
	if client == nil {
		t.Fatal("Expected client to be created, got nil")
	}

	if client.httpClient == nil {
		t.Error("Expected httpClient to be initialized, got nil")
	}

	if client.baseURL != defaultBaseURL {
		t.Errorf("Expected base URL %s, got %s", defaultBaseURL, client.baseURL)
	}
}

func TestLookupRecording(t *testing.T) {
	var gotQuery, gotFormat, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/2/recording/" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("query")
		gotFormat = r.URL.Query().Get("fmt")
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"recordings": [{"id": "b1a9c0e9-d987-4042-ae91-78d6a3267d69", "title": "Bohemian Rhapsody", "score": 100}]}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL + "/ws/2")
	recording, err := client.LookupRecording(context.Background(), "Queen", `Say "Hi"`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if recording.ID != "b1a9c0e9-d987-4042-ae91-78d6a3267d69" {
		t.Errorf("Unexpected recording ID %s", recording.ID)
	}
	if expected := `artist:"Queen" AND recording:"Say \"Hi\""`; gotQuery != expected {
		t.Errorf("Expected query %s, got %s", expected, gotQuery)
	}
	if gotFormat != "json" {
		t.Errorf("Expected fmt=json, got %s", gotFormat)
	}
	if gotAgent != userAgent {
		t.Errorf("Expected user agent %s, got %s", userAgent, gotAgent)
	}
}

func TestLookupRecordingTitleOnly(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		io.WriteString(w, `{"recordings": []}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	_, err := client.LookupRecording(context.Background(), "", "Yesterday")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if gotQuery != `recording:"Yesterday"` {
		t.Errorf("Unexpected query %s", gotQuery)
	}
}

func TestLookupRecordingErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)

	if _, err := client.LookupRecording(context.Background(), "Artist", ""); err == nil {
		t.Error("Expected error for empty title, got nil")
	}

	if _, err := client.LookupRecording(context.Background(), "Artist", "Title"); err == nil {
		t.Error("Expected error for 503 response, got nil")
	}
}

func TestLookupRecordingLowScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"recordings": [{"id": "other", "title": "Something Else", "score": 42}]}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	_, err := client.LookupRecording(context.Background(), "Artist", "Title")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a low scoring hit, got %v", err)
	}
}

func TestQuote(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"Yesterday", `"Yesterday"`},
		{`Say "Hi"`, `"Say \"Hi\""`},
		{`Back\`, `"Back\\"`},
		{`a\"b`, `"a\\\"b"`},
	}

	for _, tc := range testCases {
		if got := quote(tc.input); got != tc.expected {
			t.Errorf("quote(%s) = %s, expected %s", tc.input, got, tc.expected)
		}
	}
}

func TestRecordingURL(t *testing.T) {
	if got := RecordingURL("abc"); got != "https://musicbrainz.org/recording/abc" {
		t.Errorf("Unexpected URL %s", got)
	}
}
