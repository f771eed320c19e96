package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/tidwall/gjson"
)

// Request describes one API call. Path is relative to the API base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	// Token is sent verbatim in the Authorization header when set.
	Token string
}

// Response is a decoded API reply. Classification reads fields lazily from the
// raw JSON body so that unknown fields survive untouched.
type Response struct {
	StatusCode int
	Body       []byte
}

// Field returns the JSON value at the given gjson path.
func (r *Response) Field(path string) gjson.Result {
	if r == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Body, path)
}

// Succeeded reports whether the body carries status "success".
func (r *Response) Succeeded() bool {
	return r.Field("status").String() == "success"
}

// TFAURL returns the provisioning URL of a first-time TFA challenge.
func (r *Response) TFAURL() string {
	return r.Field("tfa_url").String()
}

// TFAFailure reports whether the server demands a TFA code.
func (r *Response) TFAFailure() bool {
	return r.Field("tfa_failure").Bool()
}

// Challenged reports whether the reply is a TFA challenge of any kind.
func (r *Response) Challenged() bool {
	return r.TFAURL() != "" || r.TFAFailure()
}

// Message returns the human-readable message, if any.
func (r *Response) Message() string {
	return r.Field("message").String()
}

// Object decodes the JSON object at path. An empty path decodes the whole body.
// A missing path yields an empty record.
func (r *Response) Object(path string) (domain.Record, error) {
	raw := []byte(nil)
	if r != nil {
		raw = r.Body
	}
	if path != "" {
		res := r.Field(path)
		if !res.Exists() {
			return domain.Record{}, nil
		}
		if !res.IsObject() {
			return nil, fmt.Errorf("field %q is not an object", path)
		}
		raw = []byte(res.Raw)
	}
	if len(raw) == 0 {
		return domain.Record{}, nil
	}
	var out domain.Record
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	if out == nil {
		out = domain.Record{}
	}
	return out, nil
}

// List decodes the JSON array of objects at path. A missing path yields nil.
func (r *Response) List(path string) ([]domain.Record, error) {
	res := r.Field(path)
	if !res.Exists() || res.Type == gjson.Null {
		return nil, nil
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("field %q is not a list", path)
	}
	var out []domain.Record
	if err := json.Unmarshal([]byte(res.Raw), &out); err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}
	return out, nil
}

// Data decodes the "data" wrapper most endpoints reply with.
func (r *Response) Data() (domain.Record, error) {
	return r.Object("data")
}

// Gateway performs API calls. Implementations return *domain.TransportError
// for network failures and for non-2xx replies that are not TFA challenges.
type Gateway interface {
	Do(ctx context.Context, req Request) (*Response, error)
}
