package driver

import "github.com/sirupsen/logrus"

// Options configures Verify. Construct via Option functions.
type Options struct {
	maxIterations int
	importance    uint8
	useDecay      bool
	logger        *logrus.Logger
	err           error
}

// Option configures a Verify call.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		maxIterations: 0, // 0 means unbounded
		importance:    1,
		logger:        logrus.StandardLogger(),
	}
}

// WithMaxIterations bounds the number of CEGAR rounds Verify performs
// before giving up with an Unknown verdict. 0 (the default) means
// unbounded — Verify relies on ApplyRefin's one-bit-at-a-time
// convergence guarantee to terminate instead.
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		if n < 0 {
			o.err = errInvalidOption("WithMaxIterations: negative limit")
			return
		}
		o.maxIterations = n
	}
}

// WithImportance sets the importance level new refinement marks are
// offered at. It does not choose among culprit bits: ApplyRefin always
// adds the highest-position offered bit, whatever the importance.
func WithImportance(level uint8) Option {
	return func(o *Options) {
		if level == 0 {
			o.err = errInvalidOption("WithImportance: importance must be nonzero")
			return
		}
		o.importance = level
	}
}

// WithDecay also records refinement marks that cross a step boundary
// in the per-step state-decay map, so the next forward sweep coarsens
// state bits the culprit does not depend on — trading graph precision
// for a smaller graph.
func WithDecay(enabled bool) Option {
	return func(o *Options) {
		o.useDecay = enabled
	}
}

// WithLogger overrides the logrus.Logger iteration tracing is written
// to. The zero value (no call) uses logrus's standard logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *Options) {
		if l == nil {
			o.err = errInvalidOption("WithLogger: nil logger")
			return
		}
		o.logger = l
	}
}

type optionError string

func (e optionError) Error() string { return "driver: " + string(e) }

func errInvalidOption(msg string) error { return optionError(msg) }
