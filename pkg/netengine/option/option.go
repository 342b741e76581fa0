// Package option implements the UCI options registry: parsing of
// "option name ... type ..." declaration lines, typed current/default
// values, and case-insensitive, insertion-ordered lookup.
package option

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the variant of an Option.
type Kind int

const (
	Check Kind = iota
	Spin
	Combo
	Button
	String
)

func (k Kind) String() string {
	switch k {
	case Check:
		return "check"
	case Spin:
		return "spin"
	case Combo:
		return "combo"
	case Button:
		return "button"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Option is a single UCI option: a tagged value with a case-preserving
// name (compared case-insensitively), a default, a current value, and a
// Modified flag set whenever Current differs from Default after an
// update. Only the fields relevant to Kind are meaningful:
//
//   - Check:  Value.Bool
//   - Spin:   Value.Int, Min, Max
//   - Combo:  Value.Str, Vars (allowed values, canonical case)
//   - Button: no value
//   - String: Value.Str
type Option struct {
	Name    string
	Kind    Kind
	Min     int64
	Max     int64
	Vars    []string
	Default Value
	Current Value

	Modified bool
}

// Value holds the payload for whichever variant is in play. Only one
// field is meaningful at a time, selected by the owning Option's Kind.
type Value struct {
	Bool bool
	Int  int64
	Str  string
}

// Clone returns a deep copy of o.
func (o Option) Clone() Option {
	c := o
	c.Vars = append([]string(nil), o.Vars...)
	return c
}

// GetStringValue renders Current in the textual form setoption/the UCI
// wire protocol would use.
func (o Option) GetStringValue() string {
	switch o.Kind {
	case Check:
		return strconv.FormatBool(o.Current.Bool)
	case Spin:
		return strconv.FormatInt(o.Current.Int, 10)
	case Combo, String:
		return o.Current.Str
	case Button:
		return ""
	default:
		return ""
	}
}

// SetFromString attempts to update Current from a textual value, using
// the same update semantics SetOption would apply on the wire. It
// returns true iff the value was applied (a no-op "already equal" update
// also returns true, per spec: Modified is left untouched in that case).
// Out-of-range Spin values and non-matching Combo values are rejected
// without mutation.
func (o *Option) SetFromString(s string) bool {
	switch o.Kind {
	case Check:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return false
		}
		return o.setBool(v)

	case Spin:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return false
		}
		if v < o.Min || v > o.Max {
			return false
		}
		return o.setInt(v)

	case Combo:
		for _, allowed := range o.Vars {
			if strings.EqualFold(allowed, s) {
				return o.setStr(allowed)
			}
		}
		return false

	case String:
		return o.setStr(s)

	case Button:
		// Buttons have no value; any SetFromString is a no-op non-update.
		return false

	default:
		return false
	}
}

func (o *Option) setBool(v bool) bool {
	if o.Current.Bool == v {
		return true // unchanged
	}
	o.Current.Bool = v
	o.Modified = o.Current != o.Default
	return true
}

func (o *Option) setInt(v int64) bool {
	if o.Current.Int == v {
		return true
	}
	o.Current.Int = v
	o.Modified = o.Current != o.Default
	return true
}

func (o *Option) setStr(v string) bool {
	if o.Current.Str == v {
		return true
	}
	o.Current.Str = v
	o.Modified = o.Current != o.Default
	return true
}

// Press reports whether o can be activated, which is true only for a
// Button. Buttons are valueless action triggers; Press changes no state
// and exists so callers have a uniform way to "activate" an Option
// regardless of Kind.
func (o *Option) Press() bool {
	return o.Kind == Button
}

// Declaration is the parsed form of a single "option name ... type ..."
// line.
type Declaration = Option

// hostManaged is the fixed set of option names the host configures
// directly; they are never surfaced in a GUI editor, mirroring the
// UCI_-prefix rule for engine-declared semantics the GUI must special
// case.
var hostManaged = map[string]bool{
	"hash":              true,
	"ponder":            true,
	"multipv":           true,
	"uci_chess960":      true,
	"uci_limitstrength": true,
	"uci_elo":           true,
	"ownbook":           true,
	"syzygypath":        true,
	"gaviotatbpath":     true,
}

// IsHostManaged reports whether name is either UCI_-prefixed or among the
// fixed set of names the host configures directly, and should therefore
// be excluded from a GUI options editor.
func IsHostManaged(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "uci_") {
		return true
	}
	return hostManaged[lower]
}

// keyword tokens recognized while scanning an "option" declaration line.
var keywords = map[string]bool{
	"name": true, "type": true, "default": true, "min": true, "max": true, "var": true,
}

// Parse parses a single "option name <Name> type <check|spin|combo|button|string>
// [default <val>] [min <i>] [max <i>] [var <s>]*" declaration line, per the
// UCI protocol. It returns false if the line is not a well-formed
// declaration; a malformed input never yields a partially-constructed
// Option.
func Parse(line string) (Option, bool) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) < 2 || fields[0] != "option" {
		return Option{}, false
	}
	fields = fields[1:] // drop "option"

	// name consumes the longest run of tokens up to "type".
	i := 0
	if i >= len(fields) || fields[i] != "name" {
		return Option{}, false
	}
	i++
	nameStart := i
	for i < len(fields) && fields[i] != "type" {
		i++
	}
	if i >= len(fields) || i == nameStart {
		return Option{}, false
	}
	name := strings.Join(fields[nameStart:i], " ")
	i++ // skip "type"

	if i >= len(fields) {
		return Option{}, false
	}
	var kind Kind
	switch fields[i] {
	case "check":
		kind = Check
	case "spin":
		kind = Spin
	case "combo":
		kind = Combo
	case "button":
		kind = Button
	case "string":
		kind = String
	default:
		return Option{}, false
	}
	i++

	opt := Option{Name: name, Kind: kind}

	var defaultTokens []string
	var vars [][]string

	for i < len(fields) {
		switch fields[i] {
		case "default":
			i++
			start := i
			for i < len(fields) && !keywords[fields[i]] {
				i++
			}
			defaultTokens = fields[start:i]

		case "min":
			i++
			if i >= len(fields) {
				return Option{}, false
			}
			v, err := strconv.ParseInt(fields[i], 10, 64)
			if err != nil {
				return Option{}, false
			}
			opt.Min = v
			i++

		case "max":
			i++
			if i >= len(fields) {
				return Option{}, false
			}
			v, err := strconv.ParseInt(fields[i], 10, 64)
			if err != nil {
				return Option{}, false
			}
			opt.Max = v
			i++

		case "var":
			i++
			start := i
			for i < len(fields) && !keywords[fields[i]] {
				i++
			}
			if i == start {
				return Option{}, false
			}
			vars = append(vars, fields[start:i])

		default:
			// Unexpected token where a keyword was expected.
			return Option{}, false
		}
	}

	for _, v := range vars {
		opt.Vars = append(opt.Vars, strings.Join(v, " "))
	}

	def := strings.Join(defaultTokens, " ")
	switch kind {
	case Check:
		v, _ := strconv.ParseBool(def)
		opt.Default = Value{Bool: v}
		opt.Current = opt.Default

	case Spin:
		v, err := strconv.ParseInt(def, 10, 64)
		if err != nil {
			return Option{}, false
		}
		opt.Default = Value{Int: v}
		opt.Current = opt.Default

	case Combo:
		if def == "" {
			return Option{}, false
		}
		opt.Default = Value{Str: def}
		opt.Current = opt.Default

	case String:
		if def == "<empty>" {
			def = ""
		}
		opt.Default = Value{Str: def}
		opt.Current = opt.Default

	case Button:
		// no value.
	}

	return opt, true
}

// DeclarationLine renders o back into an "option name ... type ..." line,
// the inverse of Parse (modulo the canonical-case normalization Combo
// values undergo on update).
func (o Option) DeclarationLine() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "option name %s type %s", o.Name, o.Kind)

	switch o.Kind {
	case Check:
		fmt.Fprintf(&sb, " default %v", o.Default.Bool)
	case Spin:
		fmt.Fprintf(&sb, " default %v min %v max %v", o.Default.Int, o.Min, o.Max)
	case Combo:
		fmt.Fprintf(&sb, " default %v", o.Default.Str)
		for _, v := range o.Vars {
			fmt.Fprintf(&sb, " var %v", v)
		}
	case String:
		v := o.Default.Str
		if v == "" {
			v = "<empty>"
		}
		fmt.Fprintf(&sb, " default %v", v)
	case Button:
		// no default/min/max.
	}
	return sb.String()
}
