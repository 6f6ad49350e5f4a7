package scraper

import "fmt"

// FetchError reports that a source could not be retrieved at all:
// transport failure or a non-success HTTP status.
type FetchError struct {
	Url    string
	Status int
	Cause  error
}

func (e FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s", e.Url, e.Cause.Error())
	}
	return fmt.Sprintf("fetch %s: status %d", e.Url, e.Status)
}

func (e FetchError) Unwrap() error {
	return e.Cause
}

// EmptyContentError reports a fetch that succeeded but yielded nothing
// usable: an empty body, or a locator chain that matched no content.
type EmptyContentError struct {
	Url  string
	What string
}

func (e EmptyContentError) Error() string {
	return fmt.Sprintf("%s: no %s found", e.Url, e.What)
}

// SourceUnavailableError reports a document that is structurally
// missing: a workbook without the expected sheet, a dead pdf link.
type SourceUnavailableError struct {
	Source string
	Reason string
}

func (e SourceUnavailableError) Error() string {
	return fmt.Sprintf("source unavailable: %s: %s", e.Source, e.Reason)
}

// AutomationStepError reports a failed step of a browser-driven form
// walk. Step names the wizard stage so retries can be diagnosed from
// logs alone.
type AutomationStepError struct {
	Step  string
	Cause error
}

func (e AutomationStepError) Error() string {
	return fmt.Sprintf("automation step %q: %s", e.Step, e.Cause.Error())
}

func (e AutomationStepError) Unwrap() error {
	return e.Cause
}

// ParseError reports one row or cell of an otherwise valid document
// failing to parse. it is absorbed at the row level, logged, and never
// aborts a scrape on its own.
type ParseError struct {
	Input  string
	Reason string
}

func (e ParseError) Error() string {
	in := e.Input
	if len(in) > 80 {
		in = in[:80] + "..."
	}
	return fmt.Sprintf("parse %q: %s", in, e.Reason)
}
