package httpclient

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

var knownMethods = map[string]bool{
	http.MethodGet: true, http.MethodHead: true, http.MethodPost: true,
	http.MethodPut: true, http.MethodPatch: true, http.MethodDelete: true,
	http.MethodOptions: true,
}

// BuildRequest builds an HTTP request from an api check's resolved spec.
// The method and url come from params; the body, when present, is sent
// raw with the content_type param (defaulting to application/json).
func BuildRequest(ctx context.Context, check domain.CheckSpec) (*http.Request, error) {
	rawURL := strings.TrimSpace(check.Params["url"])
	if rawURL == "" {
		return nil, &domain.OpError{
			Op:   "httpclient.build",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("params.url must not be empty"),
		}
	}

	method := strings.ToUpper(strings.TrimSpace(check.Params["method"]))
	if method == "" {
		method = http.MethodGet
	}
	if !knownMethods[method] {
		return nil, &domain.OpError{
			Op:   "httpclient.build",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("params.method: unknown HTTP method " + method),
		}
	}

	var body *strings.Reader
	contentType := ""
	if check.Body != "" {
		body = strings.NewReader(check.Body)
		contentType = check.Params["content_type"]
		if contentType == "" {
			contentType = "application/json"
		}
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "httpclient.build",
			Kind: domain.KindInvalidConfig,
			Err:  err,
		}
	}

	for k, v := range check.Headers {
		req.Header.Set(k, v)
	}

	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}
