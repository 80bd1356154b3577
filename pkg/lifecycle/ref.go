package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// ErrMalformedIdentifier is wrapped by every ParseError.
var ErrMalformedIdentifier = errors.New("malformed resource identifier")

// ParseError reports an identifier that does not have the shape a kind expects.
type ParseError struct {
	Identifier string
	Reason     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMalformedIdentifier, e.Identifier, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedIdentifier
}

// Ref is a parsed resource identifier. Parent is only set for kinds
// addressed by a pair (ECS cluster + service).
type Ref struct {
	ARN    string `json:"arn"`
	ID     string `json:"id"`
	Parent string `json:"parent,omitempty"`
}

func (r Ref) String() string {
	if r.Parent != "" {
		return r.Parent + "/" + r.ID
	}
	return r.ID
}

// ParseTrailing returns a Ref whose ID is the last sep-delimited segment.
func ParseTrailing(identifier, sep string) (Ref, error) {
	parts, err := segments(identifier, sep)
	if err != nil {
		return Ref{}, err
	}

	id := parts[len(parts)-1]
	if id == "" {
		return Ref{}, &ParseError{Identifier: identifier, Reason: "empty trailing segment"}
	}
	return Ref{ARN: identifier, ID: id}, nil
}

// ParseNested returns a Ref whose ID is the last segment and Parent the one before it.
func ParseNested(identifier, sep string) (Ref, error) {
	parts, err := segments(identifier, sep)
	if err != nil {
		return Ref{}, err
	}

	want := 2
	if arn.IsARN(identifier) {
		// resource part is "<type>/<parent>/<id>"
		want = 3
	}
	if len(parts) < want {
		return Ref{}, &ParseError{Identifier: identifier, Reason: fmt.Sprintf("expected at least %d %q-separated segments", want, sep)}
	}

	id, parent := parts[len(parts)-1], parts[len(parts)-2]
	if id == "" || parent == "" {
		return Ref{}, &ParseError{Identifier: identifier, Reason: "empty trailing segment"}
	}
	return Ref{ARN: identifier, ID: id, Parent: parent}, nil
}

// segments splits the resource part of an ARN, or the raw identifier when
// it is not a well-formed ARN.
func segments(identifier, sep string) ([]string, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, &ParseError{Identifier: identifier, Reason: "empty identifier"}
	}

	resource := identifier
	if a, err := arn.Parse(identifier); err == nil {
		resource = a.Resource
	}
	return strings.Split(resource, sep), nil
}
