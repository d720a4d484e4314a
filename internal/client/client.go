// Package client talks to a running TESA API.
package client

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"

	"github.com/jim-wyatt/saas-tesa/internal/model"
)

const DefaultTimeout = 10 * time.Second

type Client struct {
	http *resty.Client
}

type SignalsResult struct {
	Ingested int                     `json:"ingested"`
	Findings []model.SecurityFinding `json:"findings"`
}

type FindingsResult struct {
	Ingested int `json:"ingested"`
}

type apiError struct {
	Error string `json:"error"`
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

func (c *Client) SendSignals(ctx context.Context, signals []model.ThreatSignal) (SignalsResult, error) {
	var out SignalsResult
	err := c.post(ctx, "/api/v1/signals", map[string]any{"signals": signals}, &out)
	return out, err
}

func (c *Client) SendFindings(ctx context.Context, findings []model.SecurityFinding) (FindingsResult, error) {
	var out FindingsResult
	err := c.post(ctx, "/api/v1/findings", map[string]any{"findings": findings}, &out)
	return out, err
}

func (c *Client) Summary(ctx context.Context) (model.Summary, error) {
	var out model.Summary
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/api/v1/summary")
	if err != nil {
		return out, errors.Wrap(err, "get summary")
	}
	return out, checkStatus(resp, "get summary")
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(&apiError{}).
		Post(path)
	if err != nil {
		return errors.Wrapf(err, "post %s", path)
	}
	return checkStatus(resp, "post "+path)
}

func checkStatus(resp *resty.Response, op string) error {
	if !resp.IsError() {
		return nil
	}
	msg := resp.Status()
	if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
		msg = e.Error
	}
	return errors.WithDetailf(errors.Newf("%s: status %d: %s", op, resp.StatusCode(), msg), "body: %s", resp.String())
}
