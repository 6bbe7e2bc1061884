package search

// TaskType tells the embedding model how the text will be used.
type TaskType string

// TaskType values.
const (
	TaskRetrievalQuery    TaskType = "RETRIEVAL_QUERY"
	TaskRetrievalDocument TaskType = "RETRIEVAL_DOCUMENT"
)

// String returns the wire name.
func (t TaskType) String() string { return string(t) }
