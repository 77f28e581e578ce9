package methodmcp

import "net/url"

// RequestSpec describes one logical HTTP request against the Method API.
// It is built fresh per call and never mutated after construction; the
// transport copies what it needs and attaches credentials on its own request.
type RequestSpec struct {
	Method  string
	Path    string // relative to the client base URL, leading slash optional
	Headers map[string]string
	Query   url.Values
	Body    []byte
}

// Response is the raw outcome of one HTTP attempt. Header keys are
// normalized to lower case so callers and the classifier can look them up
// without canonicalization.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Data       []byte
}

// Header returns the named response header or "" when absent.
func (r *Response) Header(key string) string {
	if r == nil {
		return ""
	}
	return r.Headers[lowerASCII(key)]
}

func lowerASCII(k string) string {
	b := []byte(k)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
