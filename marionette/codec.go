package marionette

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Framing constants of the wire protocol.
const (
	LineTerminator = "\r\n"
	FieldSeparator = ":"
	ArraySeparator = ","
)

// Arg is a typed command argument. Each implementation serializes its value
// through a dedicated encoder so argument text can never break framing.
type Arg interface {
	EncodeArg() (string, error)
}

type intArg int64

func (a intArg) EncodeArg() (string, error) { return strconv.FormatInt(int64(a), 10), nil }

type uintArg uint64

func (a uintArg) EncodeArg() (string, error) { return strconv.FormatUint(uint64(a), 10), nil }

type boolArg bool

func (a boolArg) EncodeArg() (string, error) {
	if a {
		return "1", nil
	}

	return "0", nil
}

type floatArg float64

func (a floatArg) EncodeArg() (string, error) {
	return strconv.FormatFloat(float64(a), 'g', -1, 64), nil
}

type tokenArg string

func (a tokenArg) EncodeArg() (string, error) {
	s := string(a)
	if s == "" {
		return "", fmt.Errorf("%w: empty token", ErrInvalidArgument)
	}
	if i := strings.IndexFunc(s, isReservedOrSpace); i >= 0 {
		return "", fmt.Errorf("%w: token %q contains %q", ErrInvalidArgument, s, s[i])
	}

	return s, nil
}

type textArg string

func (a textArg) EncodeArg() (string, error) {
	s := string(a)
	if i := strings.IndexFunc(s, isReserved); i >= 0 {
		return "", fmt.Errorf("%w: text %q contains %q", ErrInvalidArgument, s, s[i])
	}

	return s, nil
}

type hexArg []byte

func (a hexArg) EncodeArg() (string, error) {
	if len(a) == 0 {
		return "", fmt.Errorf("%w: empty hex data", ErrInvalidArgument)
	}

	var sb strings.Builder
	for i, b := range a {
		if i > 0 {
			sb.WriteString(ArraySeparator)
		}
		sb.WriteString(strconv.FormatUint(uint64(b), 16))
	}

	return sb.String(), nil
}

type intsArg []int64

func (a intsArg) EncodeArg() (string, error) {
	if len(a) == 0 {
		return "", fmt.Errorf("%w: empty integer list", ErrInvalidArgument)
	}

	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = strconv.FormatInt(v, 10)
	}

	return strings.Join(parts, ArraySeparator), nil
}

// Int encodes a signed decimal integer.
func Int(v int64) Arg { return intArg(v) }

// Uint encodes an unsigned decimal integer.
func Uint(v uint64) Arg { return uintArg(v) }

// Bool encodes true as 1 and false as 0.
func Bool(v bool) Arg { return boolArg(v) }

// Float encodes a float in its shortest exact decimal form.
func Float(v float64) Arg { return floatArg(v) }

// Token encodes an enumeration keyword such as "output" or "rising".
// Tokens may not contain whitespace or any framing character.
func Token(s string) Arg { return tokenArg(s) }

// Text encodes free text. Whitespace is allowed, framing characters are not.
func Text(s string) Arg { return textArg(s) }

// Hex encodes bytes as a comma separated list of lower-case hex values.
// It is meant as the trailing argument of a variadic command.
func Hex(data []byte) Arg { return hexArg(data) }

// Ints encodes a comma separated list of decimal integers.
// It is meant as the trailing argument of a variadic command.
func Ints(v ...int64) Arg { return intsArg(v) }

// Command is one request: a name and its ordered arguments.
type Command struct {
	Name string
	Args []Arg
}

// NewCommand creates a Command.
func NewCommand(name string, args ...Arg) Command {
	return Command{Name: name, Args: args}
}

// Line returns the request line without its terminator: "name" or
// "name(arg1,arg2,...)".
func (c Command) Line() (string, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return "", fmt.Errorf("%w: empty command name", ErrInvalidArgument)
	}
	if i := strings.IndexFunc(name, isReservedOrSpace); i >= 0 {
		return "", fmt.Errorf("%w: command name %q contains %q", ErrInvalidArgument, name, name[i])
	}

	if len(c.Args) == 0 {
		return name, nil
	}

	parts := make([]string, len(c.Args))
	for i, arg := range c.Args {
		if arg == nil {
			return "", fmt.Errorf("%w: %s argument %d is nil", ErrInvalidArgument, name, i+1)
		}

		s, err := arg.EncodeArg()
		if err != nil {
			return "", fmt.Errorf("%s argument %d: %w", name, i+1, err)
		}

		if strings.ContainsAny(s, FieldSeparator+"()\r\n") {
			return "", fmt.Errorf("%w: %s argument %d encodes to %q", ErrInvalidArgument, name, i+1, s)
		}

		parts[i] = s
	}

	return name + "(" + strings.Join(parts, ArraySeparator) + ")", nil
}

// Encode returns the request line followed by CRLF.
func (c Command) Encode() ([]byte, error) {
	line, err := c.Line()
	if err != nil {
		return nil, err
	}

	return []byte(line + LineTerminator), nil
}

// String returns the request line, or the bare name if it cannot be encoded.
func (c Command) String() string {
	line, err := c.Line()
	if err != nil {
		return c.Name
	}

	return line
}

func isReserved(r rune) bool {
	switch r {
	case ':', ',', '(', ')', '\r', '\n':
		return true
	}

	return unicode.IsControl(r)
}

func isReservedOrSpace(r rune) bool {
	return isReserved(r) || unicode.IsSpace(r)
}

// ResponseLine is one decoded response line.
type ResponseLine struct {
	// Tag is the first colon separated token, lower-cased.
	Tag string
	// Params holds at most two remaining fields. The second one is not split
	// further and may itself contain colons or a comma separated list.
	Params []string
}

// ParseLine lower-cases raw, strips its trailing CR/LF and splits it on ':'
// into at most three parts.
func ParseLine(raw string) ResponseLine {
	s := strings.ToLower(strings.TrimRight(raw, "\r\n"))
	parts := strings.SplitN(s, FieldSeparator, 3)

	return ResponseLine{Tag: parts[0], Params: parts[1:]}
}

// Rest joins the params back with ':'; used for log and error lines.
func (l ResponseLine) Rest() string {
	return strings.Join(l.Params, FieldSeparator)
}

// IsBlank reports whether the line carries no content.
func (l ResponseLine) IsBlank() bool {
	return len(l.Params) == 0 && strings.TrimSpace(l.Tag) == ""
}
