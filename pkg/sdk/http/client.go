package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Options 客户端选项
type Options struct {
	Timeout    time.Duration
	RetryCount int // 0 表示不重试（提交类请求必须为 0，避免同一个 nonce 被重放）
	APIKey     string
	UserAgent  string
}

type Client struct {
	client    *resty.Client
	apiKey    string
	userAgent string
}

func NewClient(host string, opts Options) *Client {
	host = strings.TrimRight(host, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "gridwager-go"
	}

	// resty 会自动从环境变量读取代理配置（HTTP_PROXY, HTTPS_PROXY）
	client := resty.New().
		SetBaseURL(host).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount)
	if opts.RetryCount > 0 {
		client.
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(5 * time.Second).
			AddRetryCondition(func(resp *resty.Response, err error) bool {
				return err != nil || (resp != nil && resp.StatusCode() >= 500)
			})
	}

	return &Client{client: client, apiKey: opts.APIKey, userAgent: opts.UserAgent}
}

type RequestOptions struct {
	Headers map[string]string
	Data    any
	Params  map[string]any
}

// 仅设置本次请求的默认 Header（不要改 client 级 Header）
func (c *Client) newRequest(ctx context.Context) *resty.Request {
	r := c.client.R()
	if ctx != nil {
		r.SetContext(ctx)
	}
	r.SetHeader("Accept", "application/json")
	r.SetHeader("User-Agent", c.userAgent)
	r.SetHeader("X-Request-Id", uuid.NewString())
	if c.apiKey != "" {
		r.SetHeader("X-API-Key", c.apiKey)
	}
	return r
}

// DoRequest 发送请求。非 2xx 不作为 error 返回，由调用方解析 Body。
func (c *Client) DoRequest(ctx context.Context, method, endpoint string, opt *RequestOptions, out any) (*resty.Response, error) {
	rc := c.newRequest(ctx)
	if opt != nil {
		for k, v := range opt.Headers {
			rc.SetHeader(k, v)
		}
		if opt.Params != nil {
			rc.SetQueryParamsFromValues(toValues(opt.Params))
		}
		if opt.Data != nil {
			rc.SetHeader("Content-Type", "application/json")
			rc.SetBody(opt.Data)
		}
	}

	var (
		resp *resty.Response
		err  error
	)
	switch strings.ToUpper(method) {
	case http.MethodGet:
		resp, err = rc.Get(endpoint)
	case http.MethodPost:
		resp, err = rc.Post(endpoint)
	case http.MethodDelete:
		resp, err = rc.Delete(endpoint)
	case http.MethodPut:
		resp, err = rc.Put(endpoint)
	default:
		return nil, errors.Errorf("unsupported method: %s", method)
	}
	if err != nil {
		return resp, errors.Wrapf(err, "%s %s", strings.ToUpper(method), endpoint)
	}
	// 不依赖 resty 按 Content-Type 自动解析：服务端不一定带 application/json
	if out != nil && resp.IsSuccess() {
		if err := DecodeJSON(resp, out); err != nil {
			return resp, errors.Wrapf(err, "%s %s", strings.ToUpper(method), endpoint)
		}
	}
	return resp, nil
}

// DecodeJSON 把 2xx 响应体解析到 out；空响应体视为错误
func DecodeJSON(resp *resty.Response, out any) error {
	raw := resp.Body()
	if len(strings.TrimSpace(string(raw))) == 0 {
		return errors.Errorf("empty response body (http %d)", resp.StatusCode())
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "decode response body")
	}
	return nil
}

func toValues(m map[string]any) map[string][]string {
	v := make(map[string][]string, len(m))
	for k, val := range m {
		switch t := val.(type) {
		case []string:
			v[k] = t
		default:
			v[k] = []string{fmt.Sprint(val)}
		}
	}
	return v
}

// ErrorBody 服务端错误响应的通用结构
type ErrorBody struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          string `json:"code"`
	ExpectedNonce *int64 `json:"expectedNonce"`
}

// Text 可读的错误文本
func (b ErrorBody) Text() string {
	switch {
	case b.Error != "" && b.Message != "" && b.Error != b.Message:
		return b.Error + ": " + b.Message
	case b.Error != "":
		return b.Error
	case b.Message != "":
		return b.Message
	}
	return ""
}

// ParseErrorBody 解析非 2xx 响应体；非 JSON 时把原文放进 Error。
func ParseErrorBody(resp *resty.Response) ErrorBody {
	var body ErrorBody
	raw := resp.Body()
	if err := json.Unmarshal(raw, &body); err != nil || body.Text() == "" && body.ExpectedNonce == nil {
		text := strings.TrimSpace(string(raw))
		if text == "" {
			text = resp.Status()
		}
		body.Error = text
	}
	return body
}
