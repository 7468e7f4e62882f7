package gateway

import "fmt"

// ListingFailedError reports that the repository listing itself failed, which
// is fatal for the run: without a repository set there is nothing to collect.
type ListingFailedError struct {
	Org string
	Err error
}

func (e *ListingFailedError) Error() string {
	return fmt.Sprintf("failed to list repositories for %s: %v", e.Org, e.Err)
}

func (e *ListingFailedError) Unwrap() error { return e.Err }

// FetchExhaustedError reports that one logical API call kept failing after
// every retry attempt. At the collector level this degrades the repository to
// an empty result instead of aborting the run.
type FetchExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error { return e.Err }
