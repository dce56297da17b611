package driver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/onderjan/machine-check-sub004/bv"
	"github.com/onderjan/machine-check-sub004/manip"
)

// BatchOutput is the JSON shape batch front ends print for one Verify
// run: an object with a "result" holding either the three-valued
// verdict or an error kind, and the run's "stats".
type BatchOutput struct {
	Result BatchResult `json:"result"`
	Stats  BatchStats  `json:"stats"`
}

// BatchResult holds exactly one of Ok (a verdict string) or Err (an
// error kind mapped to its payload).
type BatchResult struct {
	Ok  string            `json:"ok,omitempty"`
	Err map[string]string `json:"err,omitempty"`
}

// BatchStats is Stats with the JSON field names batch consumers expect.
type BatchStats struct {
	NumRefinements          int    `json:"num_refinements"`
	NumGeneratedStates      int    `json:"num_generated_states"`
	NumFinalStates          int    `json:"num_final_states"`
	NumGeneratedTransitions int    `json:"num_generated_transitions"`
	NumFinalTransitions     int    `json:"num_final_transitions"`
	InherentPanicMessage    string `json:"inherent_panic_message,omitempty"`
}

// NewBatchOutput converts one Verify outcome into its batch shape. The
// err parameter is Verify's returned error, classified into the error
// kinds a batch consumer can act on; any other failure is reported
// under the generic "exec" kind.
func NewBatchOutput(result VerifyResult, err error) BatchOutput {
	out := BatchOutput{
		Stats: BatchStats{
			NumRefinements:          result.Stats.NumRefinements,
			NumGeneratedStates:      result.Stats.NumGeneratedStates,
			NumFinalStates:          result.Stats.NumFinalStates,
			NumGeneratedTransitions: result.Stats.NumGeneratedTransitions,
			NumFinalTransitions:     result.Stats.NumFinalTransitions,
			InherentPanicMessage:    result.Stats.InherentPanicMessage,
		},
	}
	if err == nil {
		out.Result.Ok = verdictString(result.Verdict)
		return out
	}
	var inherent *InherentPanicError
	switch {
	case errors.As(err, &inherent):
		out.Result.Err = map[string]string{"inherent_panic": inherent.Message}
	case errors.Is(err, manip.ErrFieldNotFound):
		out.Result.Err = map[string]string{"field_not_found": err.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		out.Result.Err = map[string]string{"canceled": err.Error()}
	default:
		out.Result.Err = map[string]string{"exec": err.Error()}
	}
	return out
}

// MarshalBatch renders the batch JSON for one Verify outcome.
func MarshalBatch(result VerifyResult, err error) ([]byte, error) {
	return json.Marshal(NewBatchOutput(result, err))
}

func verdictString(t bv.Truth) string {
	switch t {
	case bv.True3:
		return "true"
	case bv.False3:
		return "false"
	default:
		return "unknown"
	}
}
