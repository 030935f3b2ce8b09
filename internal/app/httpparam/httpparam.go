// Package httpparam reads path and query parameters. Unknown query keys are
// ignored; a recognized key with a malformed value is an error.
package httpparam

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Error names the parameter that could not be parsed.
type Error struct {
	Name string
	Want string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%q must be %s", e.Name, e.Want)
}

// ID parses a positive integer path parameter.
func ID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &Error{Name: name, Want: "a positive integer"}
	}
	return id, nil
}

func Int64(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, &Error{Name: name, Want: "a positive integer"}
	}
	return &v, nil
}

func Bool(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, &Error{Name: name, Want: "true or false"}
	}
	return &v, nil
}

func String(r *http.Request, name string) *string {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	return &raw
}

// Upper is String upper-cased, for enum filters such as difficulty.
func Upper(r *http.Request, name string) *string {
	v := String(r, name)
	if v == nil {
		return nil
	}
	s := strings.ToUpper(*v)
	return &s
}
