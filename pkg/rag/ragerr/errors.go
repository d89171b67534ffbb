package ragerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of the retrieval pipeline
type Kind string

const (
	KindUninitialized        Kind = "uninitialized"
	KindEmptyCorpus          Kind = "empty_corpus"
	KindRetrievalUnavailable Kind = "retrieval_unavailable"
	KindGenerationFailed     Kind = "generation_failed"
	KindSummarizationFailed  Kind = "summarization_failed"
	KindInvalidInput         Kind = "invalid_input"
)

// Error is a typed pipeline error. Two errors match under errors.Is when their kinds match.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrUninitialized        = &Error{Kind: KindUninitialized}
	ErrEmptyCorpus          = &Error{Kind: KindEmptyCorpus}
	ErrRetrievalUnavailable = &Error{Kind: KindRetrievalUnavailable}
	ErrGenerationFailed     = &Error{Kind: KindGenerationFailed}
	ErrSummarizationFailed  = &Error{Kind: KindSummarizationFailed}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
)

// Wrap tags err with a kind and the operation that produced it
func Wrap(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
