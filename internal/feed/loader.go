package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/OneBusAway/go-gtfs"

	"github.com/KganDev/irish-rail-schedule/internal/logging"
)

// LoadOptions configures feed acquisition.
type LoadOptions struct {
	Source          string // URL or local file path
	AuthHeaderKey   string
	AuthHeaderValue string
}

// IsLocalSource reports whether the source is a local file path rather than
// an HTTP(S) URL.
func IsLocalSource(source string) bool {
	return !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://")
}

const maxArchiveSize = 200 * 1024 * 1024

// RawData fetches the feed archive bytes from a URL or a local file.
func RawData(ctx context.Context, opts LoadOptions) ([]byte, error) {
	if IsLocalSource(opts.Source) {
		b, err := os.ReadFile(opts.Source)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.Source, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GTFS request: %w", err)
	}
	if opts.AuthHeaderKey != "" && opts.AuthHeaderValue != "" {
		req.Header.Set(opts.AuthHeaderKey, opts.AuthHeaderValue)
	}

	client := &http.Client{
		Timeout: 5 * time.Minute,
		Transport: &http.Transport{
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		}}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading GTFS data: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "feed_downloader")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download GTFS data: received HTTP status %s", resp.Status)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}
	if int64(len(b)) > maxArchiveSize {
		return nil, fmt.Errorf("static GTFS response exceeds size limit of %d bytes", maxArchiveSize)
	}

	return b, nil
}

// Load fetches and parses the feed into a row-level Snapshot.
func Load(ctx context.Context, opts LoadOptions) (*Snapshot, error) {
	b, err := RawData(ctx, opts)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse parses raw archive bytes into a Snapshot.
func Parse(b []byte) (*Snapshot, error) {
	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}

	snapshot := fromStatic(staticData)

	// go-gtfs does not surface feed_info.txt, so read it straight from the
	// archive. Absence is not an error.
	snapshot.FeedInfos = readFeedInfo(b)

	hash := sha256.Sum256(b)
	snapshot.SHA256 = hex.EncodeToString(hash[:])

	return snapshot, nil
}
