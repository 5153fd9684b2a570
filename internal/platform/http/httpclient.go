package http

import (
	"net"
	"net/http"
	"time"
)

// 外部カタログAPI（Open Food Facts）向けのトランスポート設定。
// スキャンのたびに同一ホストへ小さなJSON GETを発行するため、
// ホスト単位のアイドル接続を確保してハンドシェイクの再発生を抑えます。
const (
	dialTimeout         = 5 * time.Second
	keepAliveInterval   = 30 * time.Second
	maxIdleConns        = 100
	maxIdleConnsPerHost = 10
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 5 * time.Second
)

// NewHTTPClient は外部API呼び出し用に設定されたHTTPクライアントを作成します。
// timeoutはリクエスト全体（接続確立からボディ読み取りまで）の上限で、
// 呼び出し元のConfigから渡されます。
//
// http.DefaultClientにはタイムアウトがないため使用しないこと。
func NewHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: keepAliveInterval,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
		TLSHandshakeTimeout: tlsHandshakeTimeout,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}
