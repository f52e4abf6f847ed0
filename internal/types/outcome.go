package types

import "errors"

// Outcome kinds reported over the HTTP API.
const (
	KindInvalidInput    = "invalid_input"
	KindTransportFault  = "transport_fault"
	KindUpstreamFailure = "upstream_failure"
	KindExhausted       = "relays_exhausted"
)

// Outcome is the JSON envelope the fetch API returns. The success
// fields are populated when OK is true, Error and Kind otherwise.
type Outcome struct {
	OK         bool   `json:"ok"`
	HTML       string `json:"html,omitempty"`
	SourceURL  string `json:"sourceUrl,omitempty"`
	FinalURL   string `json:"finalUrl,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Relay      string `json:"relay,omitempty"`
	ElapsedMs  int64  `json:"elapsedMs,omitempty"`
	Error      string `json:"error,omitempty"`
	Kind       string `json:"kind,omitempty"`
}

// OutcomeFrom folds a fetch result into the wire shape.
func OutcomeFrom(snap *Snapshot, err error) *Outcome {
	if err != nil {
		return &Outcome{Error: err.Error(), Kind: KindOf(err)}
	}
	return &Outcome{
		OK:         true,
		HTML:       string(snap.HTML),
		SourceURL:  snap.SourceURL,
		FinalURL:   snap.FinalURL,
		StatusCode: snap.StatusCode,
		Relay:      snap.Relay,
		ElapsedMs:  snap.FetchDuration.Milliseconds(),
	}
}

// KindOf classifies err into one of the outcome kinds.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTarget):
		return KindInvalidInput
	case errors.Is(err, ErrRelaysExhausted):
		return KindExhausted
	}
	var attempt *AttemptError
	if errors.As(err, &attempt) {
		if attempt.Transport() {
			return KindTransportFault
		}
		return KindUpstreamFailure
	}
	return KindTransportFault
}
