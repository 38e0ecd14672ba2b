// Package request provides the Handle, the reusable unit of request
// configuration and execution state at the center of mimic.
//
// # Building a Handle
//
// Use [New] with functional options:
//
//	h, err := request.New(
//		request.WithURL("https://example.com/api"),
//		request.WithMethod(http.MethodGet),
//		request.WithTimeout(10*time.Second),
//	)
//
// # Applying a Profile
//
// A fingerprint profile is copied by value into the handle's pending
// configuration with [Handle.ApplyProfile]. Mutating the profile source
// afterwards never affects handles that already applied it.
//
// # Reuse
//
// A Handle is reusable across sequential requests. After a transfer
// finishes, [Handle.Reset] returns it to Idle, clears the response sink
// and preserves the configuration and profile snapshot, so repeated
// requests avoid re-allocating the handle and its buffer.
//
// Handles are driven by the transport and loop packages; [Handle.Start]
// and [Handle.Finish] form the driver contract and are not meant to be
// called by ordinary callers.
package request
