package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPRetriever queries a knowledge-base HTTP endpoint (runbooks,
// postmortems, architecture docs, known issues) and decodes its JSON
// response into a Result. Retry/backoff is grounded on the same
// hashicorp/go-retryablehttp client used by the domain tool backends
// (pkg/tool/httptool), so knowledge retrieval degrades the same way a
// flaky vendor API does rather than failing the whole investigation.
type HTTPRetriever struct {
	endpoint string
	http     *retryablehttp.Client
}

// NewHTTPRetriever builds a retriever against endpoint.
func NewHTTPRetriever(endpoint string, timeout time.Duration) *HTTPRetriever {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc.HTTPClient.Timeout = timeout
	return &HTTPRetriever{endpoint: endpoint, http: rc}
}

type httpRetrieverResponse struct {
	Runbooks     []Document `json:"runbooks"`
	Postmortems  []Document `json:"postmortems"`
	Architecture []Document `json:"architecture"`
	KnownIssues  []Document `json:"knownIssues"`
}

// Retrieve implements Retriever.
func (r *HTTPRetriever) Retrieve(ctx context.Context, q Query) (Result, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return Result{}, fmt.Errorf("knowledge: encoding query: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(string(body)))
	if err != nil {
		return Result{}, fmt.Errorf("knowledge: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("knowledge: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("knowledge: status %d", resp.StatusCode)
	}

	var parsed httpRetrieverResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("knowledge: decoding response: %w", err)
	}
	return Result{
		Runbooks:     parsed.Runbooks,
		Postmortems:  parsed.Postmortems,
		Architecture: parsed.Architecture,
		KnownIssues:  parsed.KnownIssues,
	}, nil
}

// NullRetriever always returns an empty Result, for when knowledge
// retrieval is disabled in configuration.
type NullRetriever struct{}

// Retrieve implements Retriever.
func (NullRetriever) Retrieve(ctx context.Context, q Query) (Result, error) {
	return Result{}, nil
}
