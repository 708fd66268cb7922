package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSynthesizeStreamsAudio(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-audio"))
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:  "secret",
		BaseURL: server.URL + "/v1/",
		Model:   "tts-1",
		Voice:   "Nova",
		Format:  "mp3",
		Speed:   1.25,
	})
	var buf bytes.Buffer
	written, err := client.Synthesize(context.Background(), "It was a dark night.", &buf)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if written != int64(len("ID3-audio")) || buf.String() != "ID3-audio" {
		t.Fatalf("unexpected audio %q (%d bytes)", buf.String(), written)
	}
	if captured["model"] != "tts-1" || captured["voice"] != "nova" || captured["input"] != "It was a dark night." {
		t.Fatalf("unexpected request %v", captured)
	}
	if captured["response_format"] != "mp3" || captured["speed"] != 1.25 {
		t.Fatalf("unexpected format/speed %v", captured)
	}
}

func TestSynthesizeSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, Model: "tts-1", Voice: "nova"})
	var buf bytes.Buffer
	if _, err := client.Synthesize(context.Background(), "hello", &buf); err == nil {
		t.Fatal("expected error from failing endpoint")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no audio written, got %d bytes", buf.Len())
	}
}

func TestSynthesizeRejectsEmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, Model: "tts-1", Voice: "nova"})
	if _, err := client.Synthesize(context.Background(), "hello", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for empty audio")
	}
}

func TestSynthesizeValidatesInput(t *testing.T) {
	client := NewClient(Config{APIKey: "secret", Model: "tts-1", Voice: "nova"})
	if _, err := client.Synthesize(context.Background(), "  ", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for blank input")
	}
	noKey := NewClient(Config{Model: "tts-1", Voice: "nova"})
	if _, err := noKey.Synthesize(context.Background(), "hello", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error without api key")
	}
}
