package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorKind classifies a backend failure.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindProtocol  ErrorKind = "protocol"
	KindRefused   ErrorKind = "refused"
)

var (
	ErrTransport = errors.New("model transport error")
	ErrProtocol  = errors.New("model protocol error")
	ErrRefused   = errors.New("model refused request")
)

// ModelError reports a failed Generate call.
type ModelError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Err        error
}

func (e *ModelError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s error (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

func (e *ModelError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrProtocol:
		return e.Kind == KindProtocol
	case ErrRefused:
		return e.Kind == KindRefused
	}
	return false
}

// classify wraps err as a *ModelError. status is the HTTP status when the
// backend answered, 0 otherwise. Context errors pass through.
func classify(provider string, status int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	kind := KindProtocol
	switch {
	case status != 0:
		if retryableStatus(status) {
			kind = KindTransport
		}
	case isNetworkError(err):
		kind = KindTransport
	}
	return &ModelError{Kind: kind, Provider: provider, StatusCode: status, Err: err}
}

func retryableStatus(status int) bool {
	return status == 408 || status == 429 || status >= 500
}

func isNetworkError(err error) bool {
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr)
}

func protocolError(provider string, err error) error {
	return &ModelError{Kind: KindProtocol, Provider: provider, Err: err}
}

func refusedError(provider, reason string) error {
	return &ModelError{Kind: KindRefused, Provider: provider, Err: errors.New(reason)}
}
