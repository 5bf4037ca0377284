package pipeline

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// FetchOptions controls download behaviour for remote source files
type FetchOptions struct {
	MaxRetries   int           // additional attempts after the first failure
	InitialDelay time.Duration // delay before the first retry; doubles per attempt
	UserAgent    string
}

// DefaultFetchOptions matches the bounded retry policy used for the
// Statbel open-data exports
var DefaultFetchOptions = FetchOptions{
	MaxRetries:   2,
	InitialDelay: 2 * time.Second,
	UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
}

// Fetch downloads url into destDir and returns the path of the data file to
// process. Plain HTTP GET with a bounded retry count and exponential backoff;
// when every attempt fails it falls back to the system curl utility. Zip
// archives are unpacked and the building-statistics member is selected.
func Fetch(ctx context.Context, url, destDir string, opts FetchOptions) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	name := path.Base(url)
	if name == "" || name == "." || name == "/" {
		name = "download.zip"
	}
	downloadPath := filepath.Join(destDir, name)

	var lastErr error
	delay := opts.InitialDelay
	for attempt := 1; attempt <= opts.MaxRetries+1; attempt++ {
		fmt.Printf("➡️ Downloading %s (attempt %d/%d)\n", url, attempt, opts.MaxRetries+1)
		lastErr = httpDownload(ctx, url, downloadPath, opts.UserAgent)
		if lastErr == nil {
			break
		}
		if attempt <= opts.MaxRetries {
			fmt.Printf("❌ Download attempt %d failed: %v. Retrying in %v...\n", attempt, lastErr, delay)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	if lastErr != nil {
		fmt.Println("➡️ Trying fallback download method (curl)...")
		if err := curlDownload(ctx, url, downloadPath, opts.UserAgent); err != nil {
			return "", fmt.Errorf("all download methods failed: %w", lastErr)
		}
	}

	if err := validateDownload(downloadPath); err != nil {
		return "", err
	}

	if strings.HasSuffix(strings.ToLower(downloadPath), ".zip") {
		return extractDataFile(downloadPath, destDir)
	}
	return downloadPath, nil
}

func httpDownload(ctx context.Context, url, dest, userAgent string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return fmt.Errorf("server returned HTML instead of a data file")
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create download file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write download: %w", err)
	}
	return nil
}

func curlDownload(ctx context.Context, url, dest, userAgent string) error {
	cmd := exec.CommandContext(ctx, "curl", "-L", "-f", "-o", dest,
		"--max-time", "120", "-H", "User-Agent: "+userAgent, url)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("curl failed: %w (%s)", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// validateDownload rejects downloads where the server answered with an HTML
// error page instead of the data file
func validateDownload(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("download file not found: %w", err)
	}
	defer f.Close()

	preview := make([]byte, 1024)
	n, _ := f.Read(preview)
	head := strings.ToLower(string(preview[:n]))
	if strings.Contains(head, "<html") || strings.Contains(head, "<!doctype") || strings.Contains(head, "<body") {
		return fmt.Errorf("downloaded file %s appears to be an HTML error page", path)
	}
	return nil
}

// extractDataFile unpacks a zip archive and picks the building-statistics
// member: a txt/csv whose name mentions "building", else the first txt/csv
func extractDataFile(zipPath, destDir string) (string, error) {
	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to open zip %s: %w", zipPath, err)
	}
	defer archive.Close()

	var preferred, first string
	for _, member := range archive.File {
		lower := strings.ToLower(member.Name)
		if !strings.HasSuffix(lower, ".txt") && !strings.HasSuffix(lower, ".csv") {
			continue
		}
		if first == "" {
			first = member.Name
		}
		if strings.Contains(lower, "building") {
			preferred = member.Name
			break
		}
	}
	if preferred == "" {
		preferred = first
	}
	if preferred == "" {
		return "", fmt.Errorf("no txt/csv member found in %s", zipPath)
	}

	for _, member := range archive.File {
		if member.Name != preferred {
			continue
		}
		src, err := member.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open zip member %s: %w", member.Name, err)
		}
		defer src.Close()

		extracted := filepath.Join(destDir, filepath.Base(member.Name))
		dst, err := os.Create(extracted)
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", extracted, err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			return "", fmt.Errorf("failed to extract %s: %w", member.Name, err)
		}
		if err := dst.Close(); err != nil {
			return "", err
		}
		fmt.Printf("📄 Using extracted file: %s\n", extracted)
		return extracted, nil
	}
	return "", fmt.Errorf("zip member %s disappeared", preferred)
}
