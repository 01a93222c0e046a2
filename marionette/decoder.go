package marionette

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-marionette/logger"
)

// DecoderState is the state of a Decoder.
type DecoderState int

const (
	// AwaitingBegin discards lines until a "begin" line arrives.
	AwaitingBegin DecoderState = iota
	// InBody dispatches tagged lines until an "end" line arrives.
	InBody
	// Terminated is final; Result is available.
	Terminated
)

func (s DecoderState) String() string {
	switch s {
	case AwaitingBegin:
		return "AwaitingBegin"
	case InBody:
		return "InBody"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Response tags.
const (
	tagBegin   = "begin"
	tagEnd     = "end"
	tagInfo    = "#"
	tagDebug   = "?"
	tagError   = "e"
	tagWarn    = "w"
	tagBool    = "b"
	tagString  = "s"
	tagStrings = "sa"
	tagFloats  = "f"

	endOK    = "ok"
	endError = "error"
)

// Decoder turns the response lines of one command into a ResultSet.
//
// It is a three state machine (AwaitingBegin, InBody, Terminated). Lines
// before "begin" are banner or log output and are discarded. Once
// terminated, further input is ignored.
//
// A Decoder is not goroutine-safe and decodes exactly one response.
type Decoder struct {
	state   DecoderState
	results ResultSet
	errs    []string
	err     error
	logger  logger.Logger
}

// NewDecoder creates a Decoder that reports device log lines to l.
// A nil l discards them.
func NewDecoder(l logger.Logger) *Decoder {
	if l == nil {
		l = logger.NewNop()
	}

	return &Decoder{
		state:   AwaitingBegin,
		results: make(ResultSet),
		logger:  l,
	}
}

// State returns the current state.
func (d *Decoder) State() DecoderState { return d.state }

// Done reports whether the decoder reached Terminated.
func (d *Decoder) Done() bool { return d.state == Terminated }

// Feed consumes one raw line and reports whether the decoder is terminated.
// Blank lines are ignored in every state.
func (d *Decoder) Feed(raw string) bool {
	if d.state == Terminated {
		return true
	}

	line := ParseLine(raw)
	if line.IsBlank() {
		return false
	}

	if d.state == AwaitingBegin {
		if line.Tag == tagBegin {
			d.state = InBody
		} else {
			d.logger.Debug("marionette: discard line before begin", "line", raw)
		}

		return false
	}

	d.dispatch(line, raw)

	return d.state == Terminated
}

// Result returns the decoded ResultSet or the error that terminated the
// response. Before termination it returns ErrIO.
func (d *Decoder) Result() (ResultSet, error) {
	if d.state != Terminated {
		return nil, fmt.Errorf("%w: response not terminated (state %s)", ErrIO, d.state)
	}
	if d.err != nil {
		return nil, d.err
	}

	return d.results, nil
}

func (d *Decoder) dispatch(line ResponseLine, raw string) {
	switch line.Tag {
	case tagEnd:
		d.end(line, raw)

	case tagInfo:
		d.logger.Info(line.Rest())

	case tagDebug:
		d.logger.Debug(line.Rest())

	case tagError:
		msg := line.Rest()
		d.errs = append(d.errs, msg)
		d.logger.Error(msg)

	case tagWarn:
		d.logger.Warn(line.Rest())

	case tagBool, tagString, tagStrings, tagFloats,
		"s8", "u8", "s16", "u16", "s32", "u32",
		"h8", "h16", "h32":
		d.value(line, raw)

	default:
		d.fail(newFormatError(raw, "invalid line format"))
	}
}

func (d *Decoder) end(line ResponseLine, raw string) {
	if len(line.Params) != 1 {
		d.fail(newFormatError(raw, "invalid line format"))
		return
	}

	switch strings.TrimSpace(line.Params[0]) {
	case endOK:
		if len(d.errs) == 0 {
			d.state = Terminated
			return
		}
		d.fail(newFormatError(raw, "invalid end status: ok after errors: "+strings.Join(d.errs, "; ")))

	case endError:
		d.fail(d.resultError())

	default:
		d.fail(newFormatError(raw, "invalid end status"))
	}
}

func (d *Decoder) value(line ResponseLine, raw string) {
	if len(line.Params) != 2 {
		d.fail(newFormatError(raw, "invalid line format"))
		return
	}

	name, text := line.Params[0], line.Params[1]
	if name == "" {
		d.fail(newFormatError(raw, "empty result name"))
		return
	}

	var (
		v   any
		err error
	)

	switch line.Tag {
	case tagBool:
		switch strings.TrimSpace(text) {
		case "true", "t", "1":
			v = true
		default:
			v = false
		}
	case tagString:
		v = text
	case tagStrings:
		v = strings.Split(text, ArraySeparator)
	case tagFloats:
		v, err = parseFloats(text)
	case "h8", "h16", "h32":
		v, err = parseInts(text, 16)
	default:
		v, err = parseInts(text, 10)
	}

	if err != nil {
		d.fail(newFormatError(raw, err.Error()))
		return
	}

	if _, dup := d.results[name]; dup {
		d.logger.Warn("marionette: duplicate result name, keeping last value", "name", name)
	}

	d.results[name] = v
}

func (d *Decoder) resultError() error {
	errs := make([]string, len(d.errs))
	copy(errs, d.errs)

	return &ResultError{Errors: errs}
}

func (d *Decoder) fail(err error) {
	d.err = err
	d.state = Terminated
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ArraySeparator)
	out := make([]float64, len(parts))

	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", p)
		}
		out[i] = f
	}

	return out, nil
}

func parseInts(s string, base int) ([]int64, error) {
	parts := strings.Split(s, ArraySeparator)
	out := make([]int64, len(parts))

	for i, p := range parts {
		p = strings.TrimSpace(p)
		if base == 16 {
			p = strings.TrimPrefix(p, "0x")
		}

		n, err := strconv.ParseInt(p, base, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid base-%d integer %q", base, p)
		}
		out[i] = n
	}

	return out, nil
}

// DecodeLines feeds lines to a new Decoder until it terminates.
// If the lines run out first the result is an ErrIO error.
func DecodeLines(lines []string, l logger.Logger) (ResultSet, error) {
	d := NewDecoder(l)
	for _, line := range lines {
		if d.Feed(line) {
			break
		}
	}

	return d.Result()
}
