package braacket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"braacket-bot/internal/components/assert"
	"braacket-bot/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("braacket.scrapers.braacket")

const (
	report_client_fetch = "client.fetch"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type ClientOptions struct {
	// Timeout bounds a single attempt, defaults to 10 seconds.
	Timeout time.Duration
	// Retries is the number of retries after the first attempt, defaults to 3.
	// Set it to a negative number to disable retries.
	Retries int
	// RetryUnit is the linear backoff unit, the n-th retry waits n*RetryUnit. Defaults to 1 second.
	RetryUnit time.Duration
	// RequestsPerSecond limits outgoing requests (including retries), 0 disables the limit.
	RequestsPerSecond float64
	UserAgent         string
	CloudflareBypass  bool
	// Dump receives every http exchange if set.
	Dump telemetry.HttpDump
}

// Client fetches braacket pages.
type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(tel telemetry.API, opts ClientOptions) *Client {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("braacket_scraper", tel)

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retries == 0 {
		opts.Retries = 3
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryUnit <= 0 {
		opts.RetryUnit = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	httpClient := resty.New()
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetTimeout(opts.Timeout)

	httpClient.SetRetryCount(opts.Retries)
	// resty clamps the value returned by RetryAfter to [wait, max wait]
	httpClient.SetRetryWaitTime(opts.RetryUnit)
	httpClient.SetRetryMaxWaitTime(opts.RetryUnit * time.Duration(max(opts.Retries, 1)))
	httpClient.SetRetryAfter(func(_ *resty.Client, res *resty.Response) (time.Duration, error) {
		attempt := 1
		if res != nil && res.Request != nil && res.Request.Attempt > 0 {
			attempt = res.Request.Attempt
		}
		return opts.RetryUnit * time.Duration(attempt), nil
	})
	httpClient.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled)
		}
		return res != nil && res.StatusCode() >= 500
	})

	if opts.RequestsPerSecond > 0 {
		burst := max(int(opts.RequestsPerSecond), 1)
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return &Client{http: httpClient, tel: tel}
}

// Fetch performs a GET with retries and returns the raw body. Any failure, including an
// error status after the last retry, is an ErrNetwork.
func (c *Client) Fetch(ctx context.Context, target string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", target))

	res, err := c.http.R().
		SetContext(ctx).
		Get(target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.tel.ReportBroken(report_client_fetch, err, target)
		return nil, fmt.Errorf("%w: GET %s: %w", ErrNetwork, target, err)
	}
	if res.IsError() {
		err = fmt.Errorf("%w: GET %s: status %d after %d attempt(s)", ErrNetwork, target, res.StatusCode(), res.Request.Attempt)
		span.RecordError(err)
		span.SetStatus(codes.Error, "error status")
		c.tel.ReportBroken(report_client_fetch, err)
		return nil, err
	}

	return res.Body(), nil
}

// FetchDocument fetches and parses a page.
func (c *Client) FetchDocument(ctx context.Context, target string) (*goquery.Document, []byte, error) {
	body, err := c.Fetch(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	doc, err := ParseDocument(body, target)
	if err != nil {
		return nil, nil, err
	}
	return doc, body, nil
}

// ParseDocument parses a raw page, `pageUrl` is used to resolve the relative links on it.
func ParseDocument(raw []byte, pageUrl string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if pageUrl != "" {
		parsed, err := url.Parse(pageUrl)
		if err == nil {
			doc.Url = parsed
		}
	}
	return doc, nil
}
