// Copyright (c) 2025 BVK Chaitanya

package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
)

// Error is an error with an explicit http status code.
type Error struct {
	Status int
	Err    error
}

func NewError(status int, err error) *Error {
	return &Error{Status: status, Err: err}
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// statusCode maps errors to http status codes.
func statusCode(err error) int {
	var herr *Error
	switch {
	case errors.As(err, &herr):
		return herr.Status
	case errors.Is(err, os.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, os.ErrExist):
		return http.StatusConflict
	case errors.Is(err, os.ErrPermission):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// JSONHandler returns a http handler that decodes the POST request body into
// REQ and encodes the response from the function as JSON.
func JSONHandler[REQ, RESP any](fn func(context.Context, *REQ) (*RESP, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "only POST method is supported", http.StatusMethodNotAllowed)
			return
		}
		req := new(REQ)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, fmt.Sprintf("could not decode request: %v", err), http.StatusBadRequest)
			return
		}
		resp, err := fn(r.Context(), req)
		if err != nil {
			slog.Warn("api request failed", "path", r.URL.Path, "err", err)
			http.Error(w, err.Error(), statusCode(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("could not encode api response", "path", r.URL.Path, "err", err)
		}
	})
}

// Post sends a JSON request to the api at base url and subpath and decodes
// the JSON response.
func Post[RESP, REQ any](ctx context.Context, client *http.Client, base *url.URL, subpath string, req *REQ) (*RESP, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	addr := *base
	addr.Path = path.Join(addr.Path, subpath)
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, addr.String(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	r.Header.Set("content-type", "application/json")

	resp, err := client.Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(data))
		switch resp.StatusCode {
		case http.StatusBadRequest:
			return nil, fmt.Errorf("%s: %w", msg, os.ErrInvalid)
		case http.StatusNotFound:
			return nil, fmt.Errorf("%s: %w", msg, os.ErrNotExist)
		case http.StatusConflict:
			return nil, fmt.Errorf("%s: %w", msg, os.ErrExist)
		}
		return nil, fmt.Errorf("http status code %d: %s", resp.StatusCode, msg)
	}
	response := new(RESP)
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}
	return response, nil
}
