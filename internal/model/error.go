package model

// AppError is the error payload carried by every typed error in this
// repo. Stage names the pipeline stage that failed; Code is a stable
// machine-readable identifier, suitable for grepping run logs.
type AppError struct {
	Code    string
	Message string
	Stage   string

	URL     string
	Line    int    // 1-based; 0 means "not set"
	Snippet string // <= 200 chars
	Hint    string
}
