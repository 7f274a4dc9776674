package imagegen

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// Executor runs one generation end to end: invoke the provider, then reduce
// whatever shape it answered with to a single byte buffer. Persistence is the
// caller's job.
type Executor struct {
	client     *Client
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewExecutor wires a provider client with the HTTP client used to fetch
// URL-shaped results.
func NewExecutor(client *Client, httpClient *http.Client, logger zerolog.Logger) *Executor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Executor{client: client, httpClient: httpClient, logger: logger}
}

// Generate produces the transformed image bytes for the given input reference
// and instruction.
func (e *Executor) Generate(ctx context.Context, imageURL, instruction string) ([]byte, error) {
	out, err := e.client.Run(ctx, imageURL, instruction)
	if err != nil {
		return nil, err
	}
	data, err := Normalize(ctx, e.httpClient, out)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().Int("bytes", len(data)).Msg("provider output normalized")
	return data, nil
}
