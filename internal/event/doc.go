// Package event provides the pub-sub bus that carries reconstruction
// activity from the event observer to presentation components.
//
// The observer is the only publisher. It wraps each engine event in a
// [SessionEvent] carrying the session ID and a per-session sequence number,
// and publishes run-level outcomes ([ExportEvent], [ExitEvent]) as they
// happen. The console renderer subscribes with [Bus.SubscribeAll].
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine, so a handler observes events in publish order.
// A panicking handler is recovered and does not prevent delivery to the
// remaining handlers.
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action":
//   - session.<kind> for engine events, e.g. session.requestProgress
//   - export.finished
//   - run.exit
package event
