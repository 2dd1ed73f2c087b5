// Package fetcher discovers decision archives on an index page and streams
// the XML documents they contain.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"cassation-api/internal/storage"
)

const (
	// ArchiveSuffix identifies archive links on an index page.
	ArchiveSuffix = ".tar.gz"

	defaultMaxIndexBytes = 5 * 1024 * 1024
)

var (
	// ErrFetch is returned when the index page or an archive cannot be retrieved.
	ErrFetch = errors.New("fetch failed")
	// ErrArchive is returned when an archive stream is not a readable gzip-compressed tar.
	ErrArchive = errors.New("invalid archive")
)

// Entry is one XML document read from an archive.
type Entry struct {
	Name string
	Data []byte
}

type Config struct {
	IndexTimeout      time.Duration
	ArchiveTimeout    time.Duration
	RequestsPerSecond float64
	UserAgent         string
	// MaxIndexBytes bounds the index page; a larger page is an error.
	MaxIndexBytes int64
	HTTPClient    *http.Client
	// Storage serves s3://bucket/prefix index URLs; nil disables them.
	Storage storage.Service
	Logger  *logrus.Logger
}

type Fetcher struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Fetcher {
	if cfg.IndexTimeout <= 0 {
		cfg.IndexTimeout = 30 * time.Second
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = 30 * time.Minute
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "cassation-api/1.0"
	}
	if cfg.MaxIndexBytes <= 0 {
		cfg.MaxIndexBytes = defaultMaxIndexBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: cfg.IndexTimeout,
			IdleConnTimeout:       90 * time.Second,
		}}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Fetcher{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// ListArchives returns the absolute URLs of every archive linked from the
// index, in document order.
func (f *Fetcher) ListArchives(ctx context.Context, indexURL string) ([]string, error) {
	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, fmt.Errorf("parse index url: %w", err)
	}
	if base.Scheme == "s3" {
		return f.listS3Archives(ctx, base)
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.IndexTimeout)
	defer cancel()

	body, err := f.get(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	limited := &io.LimitedReader{R: body, N: f.cfg.MaxIndexBytes + 1}
	links, err := extractArchiveLinks(limited, base)
	if err != nil {
		return nil, fmt.Errorf("%w: read index %s: %v", ErrFetch, indexURL, err)
	}
	if limited.N == 0 {
		return nil, fmt.Errorf("%w: index %s exceeds %d bytes", ErrFetch, indexURL, f.cfg.MaxIndexBytes)
	}
	f.cfg.Logger.WithField("index", indexURL).Debugf("found %d archives", len(links))
	return links, nil
}

// Entries streams the XML documents of one archive. The sequence is single
// pass; a non-nil error is always the last value yielded.
func (f *Fetcher) Entries(ctx context.Context, archiveURL string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		ctx, cancel := context.WithTimeout(ctx, f.cfg.ArchiveTimeout)
		defer cancel()

		body, err := f.openArchive(ctx, archiveURL)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		defer body.Close()

		readEntries(body, yield)
	}
}

func (f *Fetcher) openArchive(ctx context.Context, archiveURL string) (io.ReadCloser, error) {
	u, err := url.Parse(archiveURL)
	if err != nil {
		return nil, fmt.Errorf("parse archive url: %w", err)
	}
	if u.Scheme == "s3" {
		if f.cfg.Storage == nil {
			return nil, fmt.Errorf("%w: no storage configured for %s", ErrFetch, archiveURL)
		}
		body, err := f.cfg.Storage.OpenObject(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}
		return body, nil
	}
	return f.get(ctx, archiveURL)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s: unexpected status %d", ErrFetch, rawURL, resp.StatusCode)
	}
	return resp.Body, nil
}

func (f *Fetcher) listS3Archives(ctx context.Context, index *url.URL) ([]string, error) {
	if f.cfg.Storage == nil {
		return nil, fmt.Errorf("%w: no storage configured for %s", ErrFetch, index.String())
	}

	bucket := index.Host
	objects, err := f.cfg.Storage.ListObjects(ctx, bucket, strings.TrimPrefix(index.Path, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	var links []string
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, ArchiveSuffix) {
			links = append(links, (&url.URL{Scheme: "s3", Host: bucket, Path: "/" + obj.Key}).String())
		}
	}
	return links, nil
}
