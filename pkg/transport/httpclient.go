package transport

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/tipshjalpen/resultat/internal/logger"
)

// CABundleEnv names an optional PEM bundle appended to the system roots,
// for networks that intercept TLS
const CABundleEnv = "TIPSHJALPEN_CA_BUNDLE"

// maxSeasonFileSize caps how much of a response body is read
const maxSeasonFileSize = 16 << 20

var (
	httpClient     *http.Client
	httpClientOnce sync.Once
)

// loadCABundle returns the extra CA bundle named by $TIPSHJALPEN_CA_BUNDLE, if any
func loadCABundle() ([]byte, error) {
	bundlePath := os.Getenv(CABundleEnv)
	if bundlePath == "" {
		return nil, nil
	}
	caCert, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA bundle %s: %w", bundlePath, err)
	}
	return caCert, nil
}

// GetHTTPClient returns the shared HTTP client used for downloads
func GetHTTPClient() *http.Client {
	httpClientOnce.Do(func() {
		rootCAs, err := x509.SystemCertPool()
		if err != nil {
			logger.Warn("Failed to get system cert pool", err)
			rootCAs = x509.NewCertPool()
		}

		bundle, err := loadCABundle()
		if err != nil {
			logger.Warn("Proceeding without extra CA bundle", err)
		} else if bundle != nil {
			if ok := rootCAs.AppendCertsFromPEM(bundle); !ok {
				logger.Warn("Failed to append CA bundle")
			} else {
				logger.Info("Added CA bundle to root CAs")
			}
		}

		httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{RootCAs: rootCAs},
				Proxy:           http.ProxyFromEnvironment,
			},
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		}
	})
	return httpClient
}

// FetchSeasonFile downloads a season file. Compressed bodies are decoded and,
// when the file is served inside an HTML page, the text of the first <pre>
// block is returned instead of the page.
func FetchSeasonFile(ctx context.Context, url string) ([]byte, error) {
	return fetchSeasonFile(ctx, GetHTTPClient(), url)
}

func fetchSeasonFile(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "tipshjalpen/1.0")
	req.Header.Set("Accept", "text/plain,text/html;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request for %s returned error status %d", url, resp.StatusCode)
	}

	reader, err := decodeBody(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxSeasonFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	logger.Debug("Downloaded", url, len(data), "bytes")

	if isHTML(resp.Header.Get("Content-Type"), data) {
		return extractPre(data)
	}
	return data, nil
}

// decodeBody wraps body according to its Content-Encoding
func decodeBody(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
		return io.NopCloser(body), nil
	case "gzip":
		r, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return r, nil
	case "deflate":
		return flate.NewReader(body), nil
	case "br":
		return io.NopCloser(brotli.NewReader(body)), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", contentEncoding)
	}
}

func isHTML(contentType string, data []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(data[:min(len(data), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

// extractPre returns the text of the first <pre> element of an HTML page
func extractPre(page []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	pre := doc.Find("pre").First()
	if pre.Length() == 0 {
		return nil, fmt.Errorf("html page has no <pre> block")
	}
	return []byte(pre.Text()), nil
}
