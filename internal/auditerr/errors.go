// Package auditerr defines the error taxonomy shared by the audit engine.
//
// Configuration errors are fatal before a scan starts. Scan errors are fatal only at the
// project-enumeration level. Cache, plugin and fix errors never abort a run; callers log
// them and continue.
package auditerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindScan
	KindCache
	KindPlugin
	KindFix
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindScan:
		return "ScanError"
	case KindCache:
		return "CacheError"
	case KindPlugin:
		return "PluginError"
	case KindFix:
		return "FixError"
	default:
		return "Error"
	}
}

// Error carries a kind, the failing operation and a context map for reporting.
type Error struct {
	Kind    Kind
	Op      string
	Context map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, auditerr.ErrConfiguration) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// With returns a copy of e with key set in its context.
func (e *Error) With(key string, value interface{}) *Error {
	ctx := make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	cp := *e
	cp.Context = ctx
	return &cp
}

var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrScan          = &Error{Kind: KindScan}
	ErrCache         = &Error{Kind: KindCache}
	ErrPlugin        = &Error{Kind: KindPlugin}
	ErrFix           = &Error{Kind: KindFix}
)

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Configuration(op string, format string, args ...interface{}) *Error {
	return New(KindConfiguration, op, fmt.Errorf(format, args...))
}

func Scan(op string, err error) *Error   { return New(KindScan, op, err) }
func Cache(op string, err error) *Error  { return New(KindCache, op, err) }
func Plugin(op string, err error) *Error { return New(KindPlugin, op, err) }
func Fix(op string, err error) *Error    { return New(KindFix, op, err) }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
