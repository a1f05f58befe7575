package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

const (
	// FetchAttempts is how many times Fetch tries before giving up.
	FetchAttempts = 3
	fetchBuffer   = 32 * 1024
)

// FetchRetryDelay is the pause between failed attempts.
var FetchRetryDelay = 5 * time.Second

// ByteProgress reports downloaded bytes; total is -1 when unknown.
type ByteProgress func(downloaded, total int64)

// IsURL reports whether s names an http(s) resource.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ArchiveName returns the file name a dataset bundle URL downloads to.
func ArchiveName(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return path.Base(url)
}

// Fetch downloads url to destPath, retrying failed attempts. A partial file
// left by an earlier attempt is resumed with a Range request.
func Fetch(ctx context.Context, url, destPath string, progress ByteProgress) error {
	var lastErr error
	for attempt := 1; attempt <= FetchAttempts; attempt++ {
		lastErr = fetchOnce(ctx, url, destPath, progress)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt < FetchAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(FetchRetryDelay):
			}
		}
	}
	return fmt.Errorf("download failed after %d attempts: %w", FetchAttempts, lastErr)
}

func fetchOnce(ctx context.Context, url, destPath string, progress ByteProgress) error {
	var have int64
	if st, err := os.Stat(destPath); err == nil {
		have = st.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if have > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", have))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	switch resp.StatusCode {
	case http.StatusOK:
		have = 0
		flags |= os.O_TRUNC
	case http.StatusPartialContent:
		flags |= os.O_APPEND
	case http.StatusRequestedRangeNotSatisfiable:
		if have > 0 {
			// the file on disk is already complete
			if progress != nil {
				progress(have, have)
			}
			return nil
		}
		return fmt.Errorf("bad status: %s", resp.Status)
	default:
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	total := int64(-1)
	if resp.ContentLength >= 0 {
		total = have + resp.ContentLength
	}

	out, err := os.OpenFile(destPath, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", destPath, err)
	}
	defer out.Close()

	done := have
	buf := make([]byte, fetchBuffer)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return fmt.Errorf("failed to write %s: %w", destPath, err)
			}
			done += int64(n)
			if progress != nil {
				progress(done, total)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("failed to read response: %w", rerr)
		}
	}
	return out.Close()
}
