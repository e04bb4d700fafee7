package runtime

import (
	"github.com/Jeffail/gabs/v2"
)

// Outcome is the result of one submission: a success carrying the opaque
// response body, or a failure carrying its classification.
type Outcome struct {
	StatusCode int
	Body       []byte
	// JSON is the parsed body when it is valid JSON. The flow never reads it.
	JSON *gabs.Container

	Failure FailureKind
	Err     error
}

// Succeeded reports whether the call completed. The response content plays
// no part in this decision.
func (o Outcome) Succeeded() bool {
	return o.Failure == ""
}

// SuccessOutcome wraps a completed response.
func SuccessOutcome(statusCode int, body []byte) Outcome {
	out := Outcome{
		StatusCode: statusCode,
		Body:       body,
	}
	if len(body) > 0 {
		if parsed, err := gabs.ParseJSON(body); err == nil {
			out.JSON = parsed
		}
	}
	return out
}

// FailureOutcome wraps a failed submission.
func FailureOutcome(kind FailureKind, statusCode int, err error) Outcome {
	if kind == "" {
		kind = FailureUnknown
	}
	return Outcome{
		StatusCode: statusCode,
		Failure:    kind,
		Err:        err,
	}
}
