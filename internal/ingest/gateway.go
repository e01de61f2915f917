package ingest

// Gateway is the persistence side of one request. Implementations are bound
// to the request's lifetime and log their own failures in full.
type Gateway interface {
	Insert(record any) error
	VisitKeys(userID string) (map[string]struct{}, error)
	UserExists(userID string) (bool, error)
}

// Result is the response body. Outcomes are reported here, never through the
// HTTP status.
type Result struct {
	Success string `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

func Success(msg string) Result { return Result{Success: msg} }

func Failure(msg string) Result { return Result{Error: msg} }

func (r Result) OK() bool { return r.Error == "" }
