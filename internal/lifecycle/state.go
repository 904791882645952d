package lifecycle

import "github.com/spigell/jd-comparator/internal/comparator"

// State is one of Idle, Loading, Success or Failed.
type State interface {
	Name() string
	state()
}

type Idle struct{}

type Loading struct {
	Generation uint64
}

type Success struct {
	Result *comparator.Result
}

// Failed carries a message ready to show to the user.
type Failed struct {
	Message string
	Err     error
}

func (Idle) Name() string    { return "idle" }
func (Loading) Name() string { return "loading" }
func (Success) Name() string { return "success" }
func (Failed) Name() string  { return "failed" }

func (Idle) state()    {}
func (Loading) state() {}
func (Success) state() {}
func (Failed) state()  {}

// IsLoading reports whether s is Loading.
func IsLoading(s State) bool {
	_, ok := s.(Loading)
	return ok
}

// ResultOf returns the result held by a Success state, or nil.
func ResultOf(s State) *comparator.Result {
	if success, ok := s.(Success); ok {
		return success.Result
	}
	return nil
}

// ErrorOf returns the message held by a Failed state, or "".
func ErrorOf(s State) string {
	if failed, ok := s.(Failed); ok {
		return failed.Message
	}
	return ""
}
