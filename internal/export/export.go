// Package export turns gallery items into downloadable attachments.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"studio/server/internal/model"
)

var (
	ErrNoURL    = errors.New("content item has no url")
	ErrUpstream = errors.New("upstream fetch failed")
	// ErrRefusedDestination covers non-http schemes and loopback, private or
	// link-local addresses, including ones reached through redirects.
	ErrRefusedDestination = errors.New("download destination refused")
)

func Filename(item model.ContentItem) string {
	switch item.Type {
	case model.VariantVideo:
		return fmt.Sprintf("shadow-empire-video-%d.mp4", item.ID)
	case model.VariantText:
		return fmt.Sprintf("shadow-empire-text-%d.txt", item.ID)
	}
	return fmt.Sprintf("shadow-empire-%d.jpg", item.ID)
}

func defaultContentType(v model.Variant) string {
	switch v {
	case model.VariantVideo:
		return "video/mp4"
	case model.VariantText:
		return "text/plain; charset=utf-8"
	}
	return "image/jpeg"
}

// Attachment is an open download. The caller must Close it.
type Attachment struct {
	Filename    string
	ContentType string
	// Size is -1 when unknown.
	Size int64
	Body io.ReadCloser
}

func (a *Attachment) Close() error {
	return a.Body.Close()
}

type Exporter struct {
	client *http.Client
}

// NewExporter fetches media only from public addresses.
func NewExporter(timeout time.Duration) *Exporter {
	return newExporter(timeout, true)
}

func newExporter(timeout time.Duration, publicOnly bool) *Exporter {
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	if publicOnly {
		dialer.Control = refuseInternal
	}
	transport := &http.Transport{
		// no proxy: the dial check must see the real destination
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &Exporter{client: &http.Client{Timeout: timeout, Transport: transport}}
}

// refuseInternal runs after DNS resolution, so address is always an IP.
func refuseInternal(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRefusedDestination, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRefusedDestination, address)
	}
	ip = ip.Unmap()
	// IsGlobalUnicast is false for loopback, link-local, multicast and unspecified.
	if !ip.IsGlobalUnicast() || ip.IsPrivate() {
		return fmt.Errorf("%w: %s", ErrRefusedDestination, ip)
	}
	return nil
}

// Open renders text items directly and streams media items from their URL
// without transforming them.
func (e *Exporter) Open(ctx context.Context, item model.ContentItem) (*Attachment, error) {
	if item.Type == model.VariantText {
		return &Attachment{
			Filename:    Filename(item),
			ContentType: defaultContentType(item.Type),
			Size:        int64(len(item.Content)),
			Body:        io.NopCloser(strings.NewReader(item.Content)),
		}, nil
	}
	if item.URL == "" {
		return nil, ErrNoURL
	}
	u, err := url.Parse(item.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: scheme %q", ErrRefusedDestination, schemeOf(u))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrRefusedDestination) {
			return nil, fmt.Errorf("%w: %s", ErrRefusedDestination, u.Hostname())
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = defaultContentType(item.Type)
	}
	return &Attachment{
		Filename:    Filename(item),
		ContentType: ct,
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}, nil
}

func schemeOf(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Scheme
}
