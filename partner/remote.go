package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Searcher is the consumed remote partner search interface.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (Response, error)
}

// RemoteSearcher speaks the versioned JSON search protocol over HTTP.
type RemoteSearcher struct {
	endpoint string
	client   *http.Client
}

func NewRemoteSearcher(endpoint string, client *http.Client) *RemoteSearcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RemoteSearcher{endpoint: endpoint, client: client}
}

// Search posts the request and decodes the versioned response. Transport and
// protocol failures surface as SearchUnavailableError; nothing is retried
// here, callers fall back to "no results yet".
func (r *RemoteSearcher) Search(ctx context.Context, req SearchRequest) (Response, error) {
	req.SchemaVersion = SchemaVersion

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("partner: encode search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("partner: build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := r.client.Do(httpReq)
	if err != nil {
		return Response{}, &SearchUnavailableError{Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return Response{}, &SearchUnavailableError{
			Err: fmt.Errorf("unexpected status %d", httpResp.StatusCode),
		}
	}

	var resp Response
	if err := json.NewDecoder(io.LimitReader(httpResp.Body, 1<<20)).Decode(&resp); err != nil {
		return Response{}, &SearchUnavailableError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp.SchemaVersion != SchemaVersion {
		return Response{}, &SearchUnavailableError{
			Err: fmt.Errorf("unsupported schema version %d", resp.SchemaVersion),
		}
	}
	return resp, nil
}
