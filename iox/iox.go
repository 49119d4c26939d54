// Package iox holds small cleanup helpers shared by the runtime and CLI.
package iox

import "io"

// DiscardClose closes c, ignoring the error.
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a func that closes c, for t.Cleanup.
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn, ignoring the error (e.g. logger Sync).
func DiscardErr(fn func() error) { _ = fn() }

// CloseReport closes c and hands a non-nil error to report.
//
//	defer iox.CloseReport(policy, func(err error) { logger.Warn(...) })
func CloseReport(c io.Closer, report func(error)) {
	if err := c.Close(); err != nil {
		report(err)
	}
}
