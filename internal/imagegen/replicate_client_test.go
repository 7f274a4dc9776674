package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestClientRunSubmitsPredictionAndParsesOutput(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/google/nano-banana/predictions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		if got := r.Header.Get("Prefer"); got != "wait" {
			t.Fatalf("expected sync prediction request, got Prefer=%q", got)
		}
		var payload predictionRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Input.Prompt != "anime style" {
			t.Fatalf("prompt mismatch: %q", payload.Input.Prompt)
		}
		if len(payload.Input.ImageInput) != 1 || payload.Input.ImageInput[0] != "https://example.com/in.jpg" {
			t.Fatalf("image input mismatch: %v", payload.Input.ImageInput)
		}
		if payload.Input.AspectRatio != "match_input_image" || payload.Input.OutputFormat != "jpg" {
			t.Fatalf("input parameters mismatch: %+v", payload.Input)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "p1", "status": "succeeded", "output": "https://cdn.example.com/out.jpg"}`))
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL, APIToken: "test-token"})
	out, err := client.Run(context.Background(), "https://example.com/in.jpg", "anime style")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	url, ok := out.(URLString)
	if !ok || url.URL != "https://cdn.example.com/out.jpg" {
		t.Fatalf("unexpected output: %#v", out)
	}
}

func TestClientRunReturnsByteStreamForBinaryResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("raw-image"))
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL, APIToken: "test-token"})
	out, err := client.Run(context.Background(), "https://example.com/in.jpg", "anime style")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	data, err := Normalize(context.Background(), nil, out)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if string(data) != "raw-image" {
		t.Fatalf("unexpected bytes: %q", data)
	}
}

func TestClientRunSurfacesProviderFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "p2", "status": "failed", "error": "NSFW content detected"}`))
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL, APIToken: "test-token"})
	if _, err := client.Run(context.Background(), "https://example.com/in.jpg", "x"); err == nil {
		t.Fatalf("expected error for failed prediction")
	}
}

func TestClientRunSurfacesAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail": "invalid model input"}`))
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL, APIToken: "test-token"})
	if _, err := client.Run(context.Background(), "https://example.com/in.jpg", "x"); err == nil {
		t.Fatalf("expected error for 422 response")
	}
}

func TestClientRunRequiresToken(t *testing.T) {
	client := NewClient(Options{})
	if _, err := client.Run(context.Background(), "https://example.com/in.jpg", "x"); err == nil {
		t.Fatalf("expected error when API token missing")
	}
}

func TestExecutorGeneratesBytesEndToEnd(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("final-image"))
	}))
	defer cdn.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{"id": "p3", "status": "succeeded", "output": []string{cdn.URL + "/out.jpg"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer api.Close()

	exec := NewExecutor(NewClient(Options{BaseURL: api.URL, APIToken: "test-token"}), cdn.Client(), zerolog.Nop())
	data, err := exec.Generate(context.Background(), "https://example.com/in.jpg", "anime style")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(data) != "final-image" {
		t.Fatalf("unexpected bytes: %q", data)
	}
}
