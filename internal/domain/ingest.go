package domain

// ItemError records one raw item that failed normalization or persistence.
type ItemError struct {
	Ref     string `json:"ref"`
	Message string `json:"message"`
}

// ImportResult is the per-item outcome of one ingestion run. A run with a
// non-empty Errors list is still a successful run; single items never abort
// the batch.
type ImportResult struct {
	Imported int         `json:"imported"`
	Skipped  int         `json:"skipped"`
	Errors   []ItemError `json:"errors"`
	// NoItems distinguishes "the source returned nothing" from a run that
	// processed items.
	NoItems bool `json:"noItems"`
}

// ImportOptions tune one ImportFromSource call.
type ImportOptions struct {
	AutoApprove     bool
	TargetListingID *string
}

// IngestRun is the audit record persisted after each ingestion run.
type IngestRun struct {
	Source   Source
	Locator  string
	Imported int
	Skipped  int
	Failed   int
}
