package ledger

// ExtractionReport is the operator-facing diagnostic output of a run.
// It never ends up in the spreadsheet.
type ExtractionReport struct {
	PagesVisited     int
	PagesSkipped     []PageSkip
	RowsScraped      int
	TransientRetries int
	ParseFailures    []ParseFailure
	Rejections       []Rejection

	// set when no candidate selector matched a listing on any visited
	// page, so an empty result is distinguishable from "no
	// transactions occurred"
	NoListingMatched bool
}

type PageSkip struct {
	Page   int
	Reason string
}

type ParseFailure struct {
	Page      int
	Row       int
	Reason    error
	RawSource []string
}

type RejectReason string

const (
	RejectNotClosed     RejectReason = "not_closed"
	RejectOutOfRange    RejectReason = "out_of_range"
	RejectInvalidAmount RejectReason = "invalid_amount"
	RejectDuplicate     RejectReason = "duplicate"
)

type Rejection struct {
	DocumentID string
	Reason     RejectReason
	Record     CandidateRecord
}
