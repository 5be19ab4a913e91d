package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
		"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/hodlbook/internal/services/tracker"
	"github.com/vadiminshakov/hodlbook/pkg/retrier"
)

const maxEventSize = 4 << 20

// StreamClient follows the report stream of a running server.
type StreamClient struct {
	l       *zap.Logger
	url     string
	client  *http.Client
	retrier *retrier.Retrier
}

// NewStreamClient creates a client for the server at baseURL, e.g.
// "http://localhost:8080".
func NewStreamClient(l *zap.Logger, baseURL string, r *retrier.Retrier) *StreamClient {
	if r == nil {
		r = retrier.New(retrier.WithMaxRetries(10), retrier.WithMaxInterval(30*time.Second))
	}
	return &StreamClient{
		l:   l,
		url: strings.TrimRight(baseURL, "/") + "/api/stream",
		client: &http.Client{
			Transport: &http.Transport{
				DisableCompression: true,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
			Timeout: 0, // streaming
		},
		retrier: r,
	}
}

// Follow calls fn with every report until ctx is done. Dropped connections
// resume after the last report seen, so fn never gets a report twice; a
// restarted server is detected by its new epoch. Backoff starts over after
// every connection that delivered a report, so only consecutive failures
// count toward the retry limit.
func (c *StreamClient) Follow(ctx context.Context, fn func(*tracker.Report)) error {
	var last eventID
	for {
		err := c.retrier.Do(ctx, func(ctx context.Context) error {
			delivered := false
			err := c.stream(ctx, &last, func(r *tracker.Report) {
				delivered = true
				fn(r)
			})
			if ctx.Err() != nil {
				return retrier.Permanent(ctx.Err())
			}
			c.l.Debug("stream interrupted", zap.Stringer("last_id", last), zap.Error(err))
			if delivered && !retrier.IsPermanent(err) {
				return nil
			}
			return err
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (c *StreamClient) stream(ctx context.Context, last *eventID, fn func(*tracker.Report)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return retrier.Permanent(err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if !last.IsZero() {
		req.Header.Set("Last-Event-ID", last.String())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := errors.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return retrier.Permanent(err)
		}
		return err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxEventSize)

	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == "report" && data != "" {
				var report tracker.Report
				if err := json.Unmarshal([]byte(data), &report); err != nil {
					return retrier.Permanent(errors.Wrap(err, "decode report"))
				}
				if last.Precedes(&report) {
					*last = reportEventID(&report)
					fn(&report)
				}
			}
			event, data = "", ""
		case strings.HasPrefix(line, ":"):
			// heartbeat
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read stream")
	}
	return errors.New("stream closed by server")
}
