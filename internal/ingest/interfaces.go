package ingest

// Walker evaluates child selectors against decoded data.
type Walker interface {
	// Query executes a selector against root and returns the matched values
	// in document order.
	Query(root any, selector string) ([]any, error)
}
