package ethrpc

import (
	"log/slog"
	"net/http"
)

type Option func(*Provider)

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func WithHTTPClient(c httpClient) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(p *Provider) {
		if log != nil {
			p.log = log
		}
	}
}

// WithJWTAuthorization sends token as a bearer token on every request.
func WithJWTAuthorization(token string) Option {
	return func(p *Provider) {
		p.jwtToken = token
	}
}
