package scraper

// OutcomeKind tags what a page task reports back to the run
type OutcomeKind int

const (
	// OutcomeContinue means the page was full and pagination may go on
	OutcomeContinue OutcomeKind = iota
	// OutcomeEndOfResults means the page was below ListingFloor
	OutcomeEndOfResults
	// OutcomeFailure means the page could not be fetched
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeContinue:
		return "continue"
	case OutcomeEndOfResults:
		return "end_of_results"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// PageOutcome is the result of one page task. Tasks return outcomes and
// never touch the run state themselves.
type PageOutcome struct {
	Kind      OutcomeKind
	Page      int
	NextPage  int
	Records   map[string]ProductRecord
	TotalHint *int
	Err       error
}

// Continue reports a full page
func Continue(page int, records map[string]ProductRecord) PageOutcome {
	return PageOutcome{Kind: OutcomeContinue, Page: page, NextPage: page + 1, Records: records}
}

// EndOfResults reports the last page
func EndOfResults(page int, records map[string]ProductRecord) PageOutcome {
	return PageOutcome{Kind: OutcomeEndOfResults, Page: page, Records: records}
}

// Failure reports a page that could not be fetched
func Failure(page int, err error) PageOutcome {
	return PageOutcome{Kind: OutcomeFailure, Page: page, Err: err}
}
