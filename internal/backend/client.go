// Package backend is the REST client for the backtest backend that serves
// symbols, bars, indicators and project results.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dgnsrekt/chartdeck/internal/apperr"
	"github.com/dgnsrekt/chartdeck/internal/chart"
)

const DefaultBaseURL = "http://localhost:8800/api"

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	HTTPClient *http.Client
}

// Client wraps a resty client. It is safe for concurrent use.
type Client struct {
	rc *resty.Client
}

func New(opts Options) *Client {
	base := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(base).
		SetTimeout(timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Accept", "application/json")
	return &Client{rc: rc}
}

func (c *Client) BaseURL() string { return c.rc.BaseURL }

func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	req := c.rc.R().SetContext(ctx).SetError(&errorBody{})
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	return decode(http.MethodGet, path, resp, err, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	req := c.rc.R().SetContext(ctx).SetError(&errorBody{})
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Post(path)
	return decode(http.MethodPost, path, resp, err, out)
}

func decode(method, path string, resp *resty.Response, err error, out any) error {
	op := method + " " + path
	if err != nil {
		return apperr.New(apperr.CodeNetwork, op+" failed", err)
	}
	if resp.IsError() {
		msg := fmt.Sprintf("%s returned %d", op, resp.StatusCode())
		if eb, ok := resp.Error().(*errorBody); ok && eb.Error != "" {
			msg += ": " + eb.Error
		}
		return apperr.New(apperr.CodeBackend, msg, nil)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return apperr.New(apperr.CodeDecode, op+" returned malformed JSON", err)
	}
	return nil
}

func rangeQuery(symbol, start, end string) map[string]string {
	return map[string]string{
		"symbol":     symbol,
		"start_date": start,
		"end_date":   end,
	}
}

// Symbols lists the symbols of an asset type.
func (c *Client) Symbols(ctx context.Context, assetType string) ([]string, error) {
	var out SymbolsResponse
	if err := c.get(ctx, "/"+url.PathEscape(assetType), nil, &out); err != nil {
		return nil, err
	}
	return out.Symbols, nil
}

// Bars fetches OHLCV bars for [start, end].
func (c *Client) Bars(ctx context.Context, assetType, symbol, start, end string) ([]chart.Bar, error) {
	var out BarsResponse
	if err := c.get(ctx, "/"+url.PathEscape(assetType)+"/bars", rangeQuery(symbol, start, end), &out); err != nil {
		return nil, err
	}
	return ChartBars(out.Bars), nil
}

// Indicator fetches a raw indicator payload. Its shape depends on name.
func (c *Client) Indicator(ctx context.Context, assetType, symbol, start, end, name string) (json.RawMessage, error) {
	q := rangeQuery(symbol, start, end)
	q["indicator"] = name
	var out IndicatorResponse
	if err := c.get(ctx, "/"+url.PathEscape(assetType)+"/indicators", q, &out); err != nil {
		return nil, err
	}
	return out.Indicator, nil
}

func (c *Client) Projects(ctx context.Context) ([]string, error) {
	var out ProjectsResponse
	if err := c.get(ctx, "/projects", nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

func (c *Client) Project(ctx context.Context, name string) (*ProjectSummary, error) {
	var out ProjectResponse
	if err := c.get(ctx, "/project/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, err
	}
	if out.Project == nil {
		return nil, apperr.New(apperr.CodeDecode, "project "+name+": response has no project", nil)
	}
	return out.Project, nil
}

func (c *Client) ProjectData(ctx context.Context, name string) (*StrategyData, error) {
	var out StrategyDataResponse
	if err := c.get(ctx, "/project/"+url.PathEscape(name)+"/data", nil, &out); err != nil {
		return nil, err
	}
	return &out.StrategyData, nil
}

func (c *Client) TradedSymbols(ctx context.Context, project string) ([]string, error) {
	var out TradedSymbolsResponse
	if err := c.get(ctx, "/trades/"+url.PathEscape(project)+"/symbol_list", nil, &out); err != nil {
		return nil, err
	}
	return out.Symbols, nil
}

func (c *Client) Trades(ctx context.Context, project, symbol string) ([]Trade, error) {
	var out TradesResponse
	q := map[string]string{"symbol": symbol}
	if err := c.get(ctx, "/trades/"+url.PathEscape(project)+"/data", q, &out); err != nil {
		return nil, err
	}
	return out.Trades, nil
}

// RunProject starts a backtest run. A response with success=false is a
// backend error.
func (c *Client) RunProject(ctx context.Context, name, start, end string) (*ActionResponse, error) {
	var out ActionResponse
	body := RunProjectRequest{ProjectName: name, StartDate: start, EndDate: end}
	if err := c.post(ctx, "/run_project", body, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, apperr.New(apperr.CodeBackend, "run project "+name+": "+out.Error, nil)
	}
	return &out, nil
}

func (c *Client) ReloadProjects(ctx context.Context) (*ActionResponse, error) {
	var out ActionResponse
	if err := c.post(ctx, "/reload_projects", nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, apperr.New(apperr.CodeBackend, "reload projects: "+out.Error, nil)
	}
	return &out, nil
}
