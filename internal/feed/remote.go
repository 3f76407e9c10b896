package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Remote fetches pending news from an HTTP endpoint returning a Batch as JSON.
type Remote struct {
	client *resty.Client
	path   string
}

// NewRemote creates a remote source against baseURL.
func NewRemote(baseURL, path string, timeout time.Duration) *Remote {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	return &Remote{client: client, path: path}
}

func (r *Remote) Name() string { return "remote" }

func (r *Remote) Fetch(ctx context.Context, tick int64) (Batch, error) {
	var batch Batch
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("tick", strconv.FormatInt(tick, 10)).
		SetResult(&batch).
		Get(r.path)
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch news: status %d", resp.StatusCode())
	}
	return batch, nil
}
