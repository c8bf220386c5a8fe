package progress

// Nop is an Observer that discards every event. Library callers and tests
// that don't care about progress reporting can pass this instead of nil.
var Nop Observer = nopObserver{}

type nopObserver struct{}

func (nopObserver) Start(int)      {}
func (nopObserver) Inc(int)        {}
func (nopObserver) Info(string)    {}
func (nopObserver) Warn(string)    {}
func (nopObserver) Finish(string)  {}
