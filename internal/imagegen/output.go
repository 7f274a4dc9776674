package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Output is the provider result in one of the shapes the inference API is
// known to produce. Normalization switches over the concrete variants, so a
// new provider shape is a compile-visible extension rather than another
// runtime probe.
type Output interface {
	isOutput()
}

// DirectURL is an output object exposing a single result URL.
type DirectURL struct {
	URL string
}

// ByteStream is a streaming byte source holding the result itself.
type ByteStream struct {
	Body io.ReadCloser
}

// URLList is an ordered list of result URLs; the first one is the artifact.
type URLList struct {
	URLs []string
}

// URLString is a bare result URL.
type URLString struct {
	URL string
}

func (DirectURL) isOutput()  {}
func (ByteStream) isOutput() {}
func (URLList) isOutput()    {}
func (URLString) isOutput()  {}

// ParseOutput maps the raw prediction output field onto an Output variant.
func ParseOutput(raw json.RawMessage) (Output, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.New("imagegen: prediction produced no output")
	}

	switch trimmed[0] {
	case '"':
		var url string
		if err := json.Unmarshal(trimmed, &url); err != nil {
			return nil, fmt.Errorf("imagegen: decode output url: %w", err)
		}
		if strings.TrimSpace(url) == "" {
			return nil, errors.New("imagegen: prediction output url is empty")
		}
		return URLString{URL: url}, nil
	case '[':
		var urls []string
		if err := json.Unmarshal(trimmed, &urls); err != nil {
			return nil, fmt.Errorf("imagegen: decode output url list: %w", err)
		}
		if len(urls) == 0 {
			return nil, errors.New("imagegen: prediction output list is empty")
		}
		return URLList{URLs: urls}, nil
	case '{':
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("imagegen: decode output object: %w", err)
		}
		if obj.URL == "" {
			return nil, errors.New("imagegen: output object carries no url")
		}
		return DirectURL{URL: obj.URL}, nil
	default:
		return nil, fmt.Errorf("imagegen: unsupported output shape: %s", previewJSON(trimmed))
	}
}

// Normalize reduces any Output variant to a single in-memory byte buffer,
// preserving stream order. Fetch failures and empty results are errors; the
// caller maps them onto its generation-failure taxonomy.
func Normalize(ctx context.Context, httpClient *http.Client, out Output) ([]byte, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	switch v := out.(type) {
	case ByteStream:
		defer v.Body.Close()
		data, err := io.ReadAll(v.Body)
		if err != nil {
			return nil, fmt.Errorf("imagegen: drain output stream: %w", err)
		}
		if len(data) == 0 {
			return nil, errors.New("imagegen: output stream was empty")
		}
		return data, nil
	case DirectURL:
		return fetchBytes(ctx, httpClient, v.URL)
	case URLList:
		if len(v.URLs) == 0 {
			return nil, errors.New("imagegen: output url list is empty")
		}
		return fetchBytes(ctx, httpClient, v.URLs[0])
	case URLString:
		return fetchBytes(ctx, httpClient, v.URL)
	default:
		return nil, fmt.Errorf("imagegen: unknown output variant %T", out)
	}
}

func fetchBytes(ctx context.Context, httpClient *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("imagegen: build fetch request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagegen: fetch result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagegen: fetch result: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("imagegen: read result body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("imagegen: fetched result was empty")
	}
	return data, nil
}

func previewJSON(raw []byte) string {
	const max = 64
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
