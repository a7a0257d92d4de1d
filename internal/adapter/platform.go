package adapter

import (
	"encoding/base64"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
)

// toEvent converts a finished Response into the Function URL / HTTP API
// response shape.
func toEvent(res *Response) events.APIGatewayV2HTTPResponse {
	body := res.Body()

	if len(body) > 0 && res.Get("Content-Type") == "" {
		res.Set("Content-Type", http.DetectContentType(body))
	}

	headers := make(map[string]string, len(res.Header()))
	var cookies []string
	for key, values := range res.Header() {
		if key == "Set-Cookie" {
			cookies = append(cookies, values...)
			continue
		}
		headers[key] = strings.Join(values, ", ")
	}

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: res.StatusCode(),
		Headers:    headers,
		Cookies:    cookies,
	}
	if isText(headers["Content-Type"], body) {
		out.Body = string(body)
	} else {
		out.Body = base64.StdEncoding.EncodeToString(body)
		out.IsBase64Encoded = true
	}
	return out
}

func isText(contentType string, body []byte) bool {
	if len(body) == 0 {
		return true
	}
	ct := strings.ToLower(contentType)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case strings.HasPrefix(ct, "text/"),
		strings.HasSuffix(ct, "+json"),
		strings.HasSuffix(ct, "+xml"),
		strings.Contains(ct, "javascript"):
		return true
	case ct == "application/json",
		ct == "application/xml",
		ct == "application/x-www-form-urlencoded":
		return true
	case ct == "":
		return utf8.Valid(body)
	}
	return false
}
