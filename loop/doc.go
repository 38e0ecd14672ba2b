// Package loop multiplexes many request handles concurrently and
// surfaces finished transfers as an ordered completion queue.
//
// The model is pull-based: callers register handles and then call
// [Loop.Poll] in their own control flow; the loop never invokes caller
// callbacks from library internals.
//
//	l, _ := loop.New(loop.WithMaxConcurrent(8))
//	defer l.Close()
//
//	_ = l.Register(ctx, h1)
//	_ = l.Register(ctx, h2)
//
//	for l.Len() > 0 {
//		for _, c := range l.Poll(100 * time.Millisecond) {
//			// c.Handle finished as Completed or Failed
//		}
//	}
//
// Poll never blocks longer than its wait argument. Per-handle timeouts
// run from registration time, independent of socket readiness: a
// handle receiving no data at all still fails with the transport's
// timeout error. Cancellation (Handle.Cancel or [Loop.Remove]) is
// cooperative and observed at the transfer's next step boundary.
package loop
