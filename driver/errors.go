package driver

import "errors"

// ErrCancelled identifies the Cancelled error kind spec.md §7 names. It is
// intentionally reserved and never returned on any path: per §7, a
// cancelled async request is absorbed, not reported, so AsyncRequest's
// channel simply closes with no terminal Done/Err event rather than
// surfacing this sentinel. Kept so a future caller-visible cancellation
// signal (if one is ever added) has a named error to return instead of an
// ad hoc one.
var ErrCancelled = errors.New("driver: async request cancelled")
