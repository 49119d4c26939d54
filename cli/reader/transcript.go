package reader

import "github.com/pithecene-io/inquire/transcript"

// SummarizeTranscript folds transcript records into per-execution rows,
// in order of first appearance. skipped is the count of undecodable frames.
func SummarizeTranscript(records []transcript.Record, skipped int) *TranscriptSummary {
	sum := &TranscriptSummary{
		Records:    len(records),
		Skipped:    skipped,
		Executions: []TranscriptExecution{},
	}
	index := make(map[string]int)

	for _, rec := range records {
		if sum.RunID == "" {
			sum.RunID = rec.RunID
		}
		if sum.LDS == "" {
			sum.LDS = rec.LDS
		}
		switch rec.Op {
		case "submit":
			sum.Submits++
		case "poll":
			sum.Polls++
		}
		if rec.Error != "" {
			sum.Errors++
		}

		key := rec.ExecutionID
		if key == "" {
			// Submits that failed before an id was assigned.
			key = "?" + rec.Query
		}
		i, ok := index[key]
		if !ok {
			i = len(sum.Executions)
			index[key] = i
			sum.Executions = append(sum.Executions, TranscriptExecution{
				ExecutionID: rec.ExecutionID,
				Query:       rec.Query,
			})
		}

		exec := &sum.Executions[i]
		if rec.Op == "poll" {
			exec.Polls++
		}
		if rec.Kind != "" {
			exec.Final = rec.Kind
		}
		if rec.ErrorKind != "" {
			exec.ErrorKind = rec.ErrorKind
		}
		exec.DurationMs += rec.DurationMs
	}
	return sum
}
