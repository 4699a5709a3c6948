package ledger

import (
	"time"

	"gwreport-backend/lib/timezone"
)

type NormalizeConfig struct {
	Start, End time.Time
	// terminal-approval status tokens, compared exactly after trim.
	// the crawler's date filter does not guarantee status, so it is
	// re-checked here.
	ClosedTokens []string
}

// Normalize applies the validation rules in order, first failing rule
// wins. The first occurrence of a document id is accepted, later
// duplicates are rejected rather than merged since a duplicate is
// almost always a scrape artifact. Holds no state across runs.
func Normalize(candidates []CandidateRecord, cfg NormalizeConfig) ([]ValidatedRecord, []Rejection) {
	start := timezone.Day(cfg.Start)
	end := timezone.Day(cfg.End)

	var validated []ValidatedRecord
	var rejections []Rejection
	seen := map[string]bool{}

	reject := func(c CandidateRecord, reason RejectReason) {
		rejections = append(rejections, Rejection{
			DocumentID: c.DocumentID,
			Reason:     reason,
			Record:     c,
		})
	}

	for _, c := range candidates {
		if !isClosed(c.Status, cfg.ClosedTokens) {
			reject(c, RejectNotClosed)
			continue
		}
		day := timezone.Day(c.ClosedDate)
		if day.Before(start) || day.After(end) {
			reject(c, RejectOutOfRange)
			continue
		}
		if c.Amount <= 0 {
			reject(c, RejectInvalidAmount)
			continue
		}
		if c.DocumentID == "" || seen[c.DocumentID] {
			reject(c, RejectDuplicate)
			continue
		}

		seen[c.DocumentID] = true
		validated = append(validated, ValidatedRecord{CandidateRecord: c})
	}

	return validated, rejections
}

func isClosed(status string, tokens []string) bool {
	for _, token := range tokens {
		if status == token {
			return true
		}
	}
	return false
}
