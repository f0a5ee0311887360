// Package probe implements scanner.Fetcher with a single HTTPS GET against a
// domain's root document.
package probe

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/textproto"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/JakeFAU/rootscan/internal/scanner"
)

// Defaults applied when Config leaves a field empty.
const (
	DefaultUserAgent = "rootscan/1.0 (+https://github.com/JakeFAU/rootscan)"
	DefaultTimeout   = 2 * time.Second
)

// Config controls probe behavior.
type Config struct {
	UserAgent string
	// Timeout bounds the whole request, body included.
	Timeout time.Duration
	// VerifyTLS enables certificate validation. Scans run with it off.
	VerifyTLS bool
}

// Fetcher probes https://<domain>/ and converts the response to an Outcome.
// It is safe for concurrent use.
type Fetcher struct {
	cfg    Config
	client *http.Client
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newHTTPTransport(cfg),
		},
	}
}

// Fetch issues one GET with no retry. Transport failures of any kind yield the
// failure outcome together with the cause.
func (f *Fetcher) Fetch(ctx context.Context, domain string) (scanner.Outcome, error) {
	var peer peerAddr
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Conn != nil {
				peer.set(info.Conn.RemoteAddr())
			}
		},
	}
	url := "https://" + domain + "/"
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodGet, url, nil)
	if err != nil {
		return scanner.Failed(domain), fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return scanner.Failed(domain), fmt.Errorf("probe %s: %w", domain, err)
	}
	defer resp.Body.Close() //nolint:errcheck // body fully consumed below

	return toOutcome(domain, resp, peer.get()), nil
}

func toOutcome(domain string, resp *http.Response, addr net.Addr) scanner.Outcome {
	out := scanner.Outcome{
		Domain:                domain,
		Success:               true,
		Date:                  headerValue(resp.Header, "date"),
		Server:                headerValue(resp.Header, "server"),
		ContentSecurityPolicy: headerValue(resp.Header, "content-security-policy"),
		ContentType:           headerValue(resp.Header, "content-type"),
	}
	if tcp, ok := addr.(*net.TCPAddr); ok && tcp != nil {
		ip := tcp.IP.String()
		port := uint16(tcp.Port) //nolint:gosec // TCP ports fit in 16 bits
		out.IPAddr = &ip
		out.Port = &port
	}
	status := int16(resp.StatusCode) //nolint:gosec // HTTP status codes fit in int16
	out.Status = &status
	if resp.Request != nil && resp.Request.URL != nil {
		final := scanner.StripNUL(resp.Request.URL.String())
		out.ResultingURL = &final
	}
	out.Body = readBody(resp.Body, resp.Header.Get("Content-Type"))
	return out
}

// headerValue returns the first value of a header, or nil when the header is
// missing or not valid UTF-8.
func headerValue(h http.Header, name string) *string {
	values, ok := h[textproto.CanonicalMIMEHeaderKey(name)]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	if !utf8.ValidString(v) {
		return nil
	}
	v = scanner.StripNUL(v)
	return &v
}

// readBody reads the body in full, decodes it to UTF-8 and encodes it as
// unpadded standard base64. A read failure leaves the body absent.
func readBody(body io.Reader, contentType string) *string {
	if body == nil {
		return nil
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil
	}
	text, err := decodeText(raw, contentType)
	if err != nil {
		return nil
	}
	encoded := base64.RawStdEncoding.EncodeToString([]byte(text))
	return &encoded
}

// decodeText converts raw bytes to UTF-8 using the declared or sniffed
// charset. Undecodable sequences become U+FFFD.
func decodeText(raw []byte, contentType string) (string, error) {
	enc, _, _ := charset.DetermineEncoding(raw, contentType)
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return strings.ToValidUTF8(string(decoded), "\uFFFD"), nil
}

// peerAddr records the remote address of the most recent connection used by a
// request; after redirects that is the connection that served the final response.
type peerAddr struct {
	mu   sync.Mutex
	addr net.Addr
}

func (p *peerAddr) set(a net.Addr) {
	p.mu.Lock()
	p.addr = a
	p.mu.Unlock()
}

func (p *peerAddr) get() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr
}

func newHTTPTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS, //nolint:gosec // scans accept any certificate
		},
		TLSHandshakeTimeout: cfg.Timeout,
		// Every domain is a distinct host; pooled connections would never be reused.
		DisableKeepAlives: true,
		ForceAttemptHTTP2: true,
	}
}
