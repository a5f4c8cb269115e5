package ics

import "fmt"

// NotFoundError indicates a local calendar path that does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ics: calendar not found: %s", e.Path)
}

// FetchError indicates a remote calendar source that could not be retrieved:
// network failure, timeout, or a non-2xx response.
type FetchError struct {
	URL    string
	Status int // 0 when the request never produced a response
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("ics: fetch %s: status %d", redactURL(e.URL), e.Status)
	}
	return fmt.Sprintf("ics: fetch %s: %v", redactURL(e.URL), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError indicates a calendar document that could not be parsed.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ics: parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
