package cdn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/9seconds/iplocation/geolib"
	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultVersionHeader is a header which jsDelivr uses to report
	// an exact version of the served package.
	DefaultVersionHeader = "X-Jsd-Version"

	DefaultRetries    = 3
	DefaultRetryDelay = 100 * time.Millisecond

	// DefaultCacheSize is a size of the bucket shard cache in bytes.
	DefaultCacheSize = 16 * 1024 * 1024

	DefaultUserAgent = "iplocation"
)

var (
	errNotFound         = errors.New("resource is not found")
	errRetriesExhausted = errors.New("all retries are exhausted")
)

type topIndex[K any] struct {
	starts []K

	// base is a base URL for buckets. It is pinned to the dataset
	// version if the index response carried one.
	base string
}

// Client resolves IP addresses with files produced by Export. Files
// are fetched over HTTP. Top indexes are kept for the lifetime of the
// client, buckets are cached in a bounded cache.
type Client struct {
	baseURL       string
	kind          Kind
	http          geolib.HTTPClient
	logger        geolib.Logger
	versionHeader string
	retries       int
	retryDelay    time.Duration
	cacheSize     int64
	cache         *ristretto.Cache
	group         singleflight.Group

	v4 atomic.Pointer[topIndex[uint32]]
	v6 atomic.Pointer[topIndex[geolib.Uint128]]
}

type ClientOption func(*Client)

func WithHTTPClient(client geolib.HTTPClient) ClientOption {
	return func(c *Client) {
		c.http = client
	}
}

func WithLogger(logger geolib.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithVersionHeader sets a name of the response header with a dataset
// version. Empty name disables version pinning.
func WithVersionHeader(name string) ClientOption {
	return func(c *Client) {
		c.versionHeader = name
	}
}

// WithRetries sets a number of retries and a base delay. A delay
// before attempt N is delay * N^2.
func WithRetries(retries int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.retries = retries
		c.retryDelay = delay
	}
}

func WithCacheSize(size int64) ClientOption {
	return func(c *Client) {
		c.cacheSize = size
	}
}

// Lookup resolves an IP address. It returns nil without error if
// nothing is found, including the case when files cannot be fetched
// after all retries. Malformed input returns geolib.ErrInvalidAddress.
func (c *Client) Lookup(ctx context.Context, ip string) (*Result, error) {
	addr, err := geolib.ParseIP(ip)

	switch {
	case errors.Is(err, geolib.ErrAddressOutOfRange):
		return nil, nil
	case err != nil:
		return nil, err
	}

	var result *Result

	if addr.Version == 4 {
		result, err = lookup(ctx, c, &c.v4, geolib.IPv4Codec, addr)
	} else {
		result, err = lookup(ctx, c, &c.v6, geolib.IPv6Codec, addr)
	}

	if errors.Is(err, errRetriesExhausted) {
		c.logger.LookupError(addr.String(), err)

		return nil, nil
	}

	return result, err
}

// Close releases the bucket cache.
func (c *Client) Close() {
	c.cache.Close()
}

func (c *Client) bucket(ctx context.Context, url string) ([]byte, error) {
	if value, ok := c.cache.Get(url); ok {
		return value.([]byte), nil
	}

	value, err, _ := c.group.Do(url, func() (interface{}, error) {
		body, _, err := c.fetch(ctx, url)
		if err != nil || body == nil {
			return []byte(nil), err
		}

		c.cache.Set(url, body, int64(len(body)))

		return body, nil
	})
	if err != nil {
		return nil, err
	}

	return value.([]byte), nil
}

// fetch downloads a resource with retries. Absent resource is returned
// as nil body without error.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot build a request to %s: %w", url, err)
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(c.retryDelay * time.Duration(attempt*attempt))

			select {
			case <-ctx.Done():
				timer.Stop()

				return nil, nil, ctx.Err()
			case <-timer.C:
			}
		}

		body, header, err := c.get(req)

		switch {
		case err == nil:
			return body, header, nil
		case errors.Is(err, errNotFound):
			return nil, nil, nil
		case ctx.Err() != nil:
			return nil, nil, ctx.Err()
		case attempt >= c.retries:
			return nil, nil, fmt.Errorf("cannot fetch %s: %w (%v)", url, errRetriesExhausted, err)
		}
	}
}

func (c *Client) get(req *http.Request) ([]byte, http.Header, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}

	defer flushResponse(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil, errNotFound
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, nil, &geolib.StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read a response body: %w", err)
	}

	return body, resp.Header, nil
}

func lookup[K any](ctx context.Context, c *Client, ptr *atomic.Pointer[topIndex[K]],
	codec geolib.KeyCodec[K], addr geolib.Address) (*Result, error) {
	index, err := loadIndex(ctx, c, ptr, codec)
	if err != nil || index == nil {
		return nil, err
	}

	key := codec.FromAddress(addr)

	bucket, ok := geolib.BinarySearch(index.starts, key, codec.Cmp)
	if !ok {
		return nil, nil
	}

	data, err := c.bucket(ctx, index.base+"/"+BucketPath(codec.Version, bucket))
	if err != nil || data == nil {
		return nil, err
	}

	payloadSize := c.kind.PayloadSize()
	recordSize := 2*codec.Size + payloadSize

	if len(data) == 0 || len(data)%recordSize != 0 {
		return nil, fmt.Errorf("bucket %s: %w", BucketPath(codec.Version, bucket), ErrCorruptedShard)
	}

	count := len(data) / recordSize
	starts := codec.DecodeKeys(data[:count*codec.Size])

	line, ok := geolib.BinarySearch(starts, key, codec.Cmp)
	if !ok {
		return nil, nil
	}

	if end := codec.Read(data[(count+line)*codec.Size:]); codec.Cmp(key, end) > 0 {
		return nil, nil
	}

	offset := 2*count*codec.Size + line*payloadSize

	return c.kind.decodePayload(data[offset : offset+payloadSize]), nil
}

func loadIndex[K any](ctx context.Context, c *Client, ptr *atomic.Pointer[topIndex[K]],
	codec geolib.KeyCodec[K]) (*topIndex[K], error) {
	if index := ptr.Load(); index != nil {
		return index, nil
	}

	url := c.baseURL + "/" + IndexFileName(codec.Version)

	value, err, _ := c.group.Do(url, func() (interface{}, error) {
		if index := ptr.Load(); index != nil {
			return index, nil
		}

		body, header, err := c.fetch(ctx, url)
		if err != nil || body == nil {
			return (*topIndex[K])(nil), err
		}

		if len(body) == 0 || len(body)%codec.Size != 0 {
			return nil, fmt.Errorf("index %s: %w", IndexFileName(codec.Version), ErrCorruptedShard)
		}

		index := &topIndex[K]{
			starts: codec.DecodeKeys(body),
			base:   c.baseURL,
		}

		if c.versionHeader != "" {
			if version := header.Get(c.versionHeader); version != "" {
				index.base = c.baseURL + "@" + version
			}
		}

		ptr.Store(index)

		return index, nil
	})
	if err != nil {
		return nil, err
	}

	return value.(*topIndex[K]), nil
}

func flushResponse(resp *http.Response) {
	io.Copy(io.Discard, resp.Body) // nolint: errcheck
	resp.Body.Close()
}

// NewClient returns a client for files exported with Export and served
// under baseURL.
func NewClient(baseURL string, kind Kind, opts ...ClientOption) *Client {
	client := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		kind:          kind,
		versionHeader: DefaultVersionHeader,
		retries:       DefaultRetries,
		retryDelay:    DefaultRetryDelay,
		cacheSize:     DefaultCacheSize,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.http == nil {
		client.http = geolib.NewHTTPClient(&http.Client{Timeout: 30 * time.Second},
			DefaultUserAgent,
			time.Millisecond,
			100,
			20,
			time.Minute,
			time.Minute)
	}

	if client.logger == nil {
		client.logger = geolib.NoopLogger{}
	}

	if client.cacheSize <= 0 {
		client.cacheSize = DefaultCacheSize
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		MaxCost:            client.cacheSize,
		NumCounters:        10 * (client.cacheSize/1024 + 1),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		panic(err)
	}

	client.cache = cache

	return client
}
