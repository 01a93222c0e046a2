// Package marionette implements the command/response protocol used to drive
// a Marionette hardware test fixture over a serial line.
//
// Requests are single text lines:
//
//	name\r\n
//	name(arg1,arg2)\r\n
//
// A response is an arbitrary number of free lines, a "begin" line, tagged
// body lines and one "end:ok" or "end:error" line. Body lines are
// "tag:name:value" for results and "tag:text" for device log output:
//
//   - "#", "?", "w": info, debug and warning log lines.
//   - "e": an application error; any error line fails the command with a *ResultError.
//   - "b", "s", "sa": bool, string and string array results.
//   - "f": float array result.
//   - "s8".."u32": decimal integer arrays; "h8".."h32": hexadecimal integer arrays.
//
// Session owns an exclusive transport, performs the open handshake
// ("+noecho", "+noprompt") and serializes commands. Command returns a
// ResultSet only when the device terminated the response with "end:ok" and
// reported no errors. Errors match ErrIO, ErrResult, ErrFormat or ErrPortPin
// with errors.Is.
//
// Session.Raw hands the line transport to a streaming reader/writer pair
// (see package stream) and blocks synchronous commands until released.
package marionette
