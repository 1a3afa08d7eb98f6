package http

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// ClientConfig は外部API呼び出し用HTTPクライアントの設定です。
type ClientConfig struct {
	Timeout   time.Duration // リクエスト全体のタイムアウト
	ProxyURL  string        // 空の場合は環境変数（HTTP_PROXYなど）に従う
	UserAgent string        // 空の場合はGoのデフォルト
}

// NewHTTPClient は外部API呼び出し用に設定されたHTTPクライアントを作成します。
//
// 設定:
//   - Proxy: ProxyURL、未指定なら環境変数
//   - Dialer.Timeout: TCP接続タイムアウト（デフォルトより短い）
//   - MaxIdleConnsPerHost: 同一ホストへのチャンク取得が続くため多めに確保
//   - Client.Timeout: リクエスト全体のタイムアウト
//
// 注意:
//   - http.DefaultClientにはタイムアウトがないため、常にカスタムクライアントを使用すること
func NewHTTPClient(cfg ClientConfig) (*http.Client, error) {
	proxy := http.ProxyFromEnvironment
	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", cfg.ProxyURL, err)
		}
		proxy = http.ProxyURL(u)
	}

	t := &http.Transport{
		Proxy: proxy,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	var rt http.RoundTripper = t
	if cfg.UserAgent != "" {
		rt = &userAgentTransport{next: t, userAgent: cfg.UserAgent}
	}
	return &http.Client{Timeout: cfg.Timeout, Transport: rt}, nil
}

// userAgentTransport は全リクエストにUser-Agentを付与します。
type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (u *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", u.userAgent)
	return u.next.RoundTrip(r)
}
