// Package stream runs scripted, free-running exchanges with a fixture.
//
// Unlike marionette.Session.Command, a Streamer does not pair requests with
// responses. A writer goroutine sends the lines of a Script, pausing after
// each one, while a reader goroutine relays every line the fixture emits to
// a LineHandler. This suits asynchronous exercises such as ADC capture where
// the device keeps reporting between commands.
//
// Shutdown is two-phase: the writer is joined first, then the reader is
// told to stop and joined. Wait lets the script finish on its own; Stop
// interrupts it.
package stream
