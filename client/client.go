// Package client implements HTTP discovery of a running browser's
// WebSocket debugger URL (GET http://<host>:<port>/json/version), the
// one external interface spec.md §1 calls "a one-line helper" and §6
// names explicitly.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// DefaultPort is the Chrome remote-debugging port used when the caller
// does not specify one (spec.md §9 notes the source mixes 9222/9223;
// either is acceptable, so Connect/DiscoverWebSocketURL just take it as
// configuration).
const DefaultPort = 9222

// fetchVersionPayload performs the GET /json/version request shared by
// VersionInfo and DiscoverWebSocketURL.
func fetchVersionPayload(ctx context.Context, host string, port int) ([]byte, error) {
	url := fmt.Sprintf("http://%s/json/version", net.JoinHostPort(host, strconv.Itoa(port)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	return io.ReadAll(res.Body)
}

// VersionInfo fetches the raw /json/version payload from host:port,
// keyed by the field names Chrome reports ("Browser", "Protocol-Version",
// "webSocketDebuggerUrl", ...).
func VersionInfo(ctx context.Context, host string, port int) (map[string]string, error) {
	body, err := fetchVersionPayload(ctx, host, port)
	if err != nil {
		return nil, err
	}

	raw := make(map[string]string)
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// DiscoverWebSocketURL fetches /json/version from host:port and returns
// its webSocketDebuggerUrl, with any embedded "localhost:<port>" or
// 127.0.0.1 host replaced by the configured host:port — Chrome reports
// the URL using whatever host it was told to bind, which is frequently
// not the host the caller used to reach it (e.g. inside a container).
func DiscoverWebSocketURL(ctx context.Context, host string, port int) (string, error) {
	raw, err := VersionInfo(ctx, host, port)
	if err != nil {
		return "", err
	}

	wsURL := raw["webSocketDebuggerUrl"]
	if wsURL == "" {
		return "", fmt.Errorf("client: %s:%d returned no webSocketDebuggerUrl", host, port)
	}

	return rewriteHost(wsURL, host, port), nil
}

// rewriteHost substitutes the configured host:port for any localhost or
// 127.0.0.1 authority embedded in wsURL, leaving everything else (path,
// scheme, query) untouched.
func rewriteHost(wsURL, host string, port int) string {
	for _, bad := range []string{"localhost", "127.0.0.1"} {
		prefix := "ws://" + bad + ":"
		if strings.HasPrefix(wsURL, prefix) {
			rest := wsURL[len(prefix):]
			if i := strings.Index(rest, "/"); i != -1 {
				return fmt.Sprintf("ws://%s%s", net.JoinHostPort(host, strconv.Itoa(port)), rest[i:])
			}
		}
	}
	return wsURL
}
