// Package xlerr defines the failure taxonomy shared by every layer of the
// patch engine. Each failure carries a Kind plus enough context (part name,
// offending reference) for a caller to correct its edit set.
package xlerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindCorruptArchive
	KindMalformedXML
	KindPartNotFound
	KindUnknownSheet
	KindInvalidIndex
	KindOutOfRangeReference
	KindUnsupportedFeature
	KindInvalidEdit
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCorruptArchive:
		return "CorruptArchive"
	case KindMalformedXML:
		return "MalformedXml"
	case KindPartNotFound:
		return "PartNotFound"
	case KindUnknownSheet:
		return "UnknownSheet"
	case KindInvalidIndex:
		return "InvalidIndex"
	case KindOutOfRangeReference:
		return "OutOfRangeReference"
	case KindUnsupportedFeature:
		return "UnsupportedFeature"
	case KindInvalidEdit:
		return "InvalidEdit"
	default:
		return "Unknown"
	}
}

// Sentinels for use with errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrCorruptArchive      = errors.New("corrupt archive")
	ErrMalformedXML        = errors.New("malformed xml")
	ErrPartNotFound        = errors.New("part not found")
	ErrUnknownSheet        = errors.New("unknown sheet")
	ErrInvalidIndex        = errors.New("invalid index")
	ErrOutOfRangeReference = errors.New("reference out of range")
	ErrUnsupportedFeature  = errors.New("unsupported feature")
	ErrInvalidEdit         = errors.New("invalid edit")
)

func (k Kind) sentinel() error {
	switch k {
	case KindCorruptArchive:
		return ErrCorruptArchive
	case KindMalformedXML:
		return ErrMalformedXML
	case KindPartNotFound:
		return ErrPartNotFound
	case KindUnknownSheet:
		return ErrUnknownSheet
	case KindInvalidIndex:
		return ErrInvalidIndex
	case KindOutOfRangeReference:
		return ErrOutOfRangeReference
	case KindUnsupportedFeature:
		return ErrUnsupportedFeature
	case KindInvalidEdit:
		return ErrInvalidEdit
	}
	return nil
}

// Error is a classified engine failure.
type Error struct {
	Kind Kind
	Part string // archive path of the part involved, if any
	Ref  string // offending reference, sheet name or index, if any
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Part != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Part)
		sb.WriteString("]")
	}
	if e.Ref != "" {
		sb.WriteString(" '")
		sb.WriteString(e.Ref)
		sb.WriteString("'")
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// New builds an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// WithPart returns a copy of e annotated with the part name.
func (e *Error) WithPart(part string) *Error {
	c := *e
	c.Part = part
	return &c
}

// WithRef returns a copy of e annotated with the offending reference.
func (e *Error) WithRef(ref string) *Error {
	c := *e
	c.Ref = ref
	return &c
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// InPart annotates err with a part name when it is an *Error that carries
// none yet; other errors are returned unchanged.
func InPart(err error, part string) error {
	var e *Error
	if errors.As(err, &e) && e.Part == "" {
		return e.WithPart(part)
	}
	return err
}
