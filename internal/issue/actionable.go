// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is a user-facing error: the operation that failed, the
	// archive, image or file it failed on, hints for fixing it and the topic
	// that 'jmodlink explain' prints for it.
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("open module").
	//		WithResource("./app.jmod").
	//		WithSuggestion("Recreate the archive with 'jmodlink jmod create'").
	//		Wrap(cause).
	//		Build()
	ActionableError struct {
		// Operation is a verb phrase such as "link image".
		Operation string
		// Resource is optional.
		Resource    string
		Suggestions []string
		Cause       error
		// Topic is zero when no catalog entry applies.
		Topic Id
	}

	// ErrorContext builds an ActionableError step by step.
	ErrorContext struct {
		operation   string
		resource    string
		suggestions []string
		cause       error
		topic       Id
	}
)

// NewErrorContext returns an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error returns "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	var msg strings.Builder
	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)
	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	return msg.String()
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the message, the suggestions as bullets and a pointer to
// the explain topic. Verbose output adds the numbered error chain.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n")
		for _, s := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(s)
		}
	}

	if i := Get(e.Topic); i != nil {
		fmt.Fprintf(&msg, "\n\nRun 'jmodlink explain %s' for details.", i.Name())
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		writeChain(&msg, e.Cause, 1)
	}
	return msg.String()
}

// writeChain numbers every error below err, following both single and
// multi-error Unwrap methods depth first.
func writeChain(msg *strings.Builder, err error, depth int) int {
	for err != nil {
		fmt.Fprintf(msg, "\n  %d. %s", depth, err.Error())
		depth++
		if multi, ok := err.(interface{ Unwrap() []error }); ok {
			for _, inner := range multi.Unwrap() {
				depth = writeChain(msg, inner, depth)
			}
			return depth
		}
		err = errors.Unwrap(err)
	}
	return depth
}

func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.operation = op
	return c
}

func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.resource = res
	return c
}

// WithSuggestion appends a hint; call it once per hint.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.suggestions = append(c.suggestions, sug)
	return c
}

// WithIssue pins the explain topic, overriding the one Wrap derives.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.topic = id
	return c
}

// Wrap sets the cause. Unless WithIssue was called, the topic comes from
// ForError.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	if c.topic == 0 {
		if i := ForError(err); i != nil {
			c.topic = i.Id()
		}
	}
	return c
}

// Build returns nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.operation == "" {
		return nil
	}
	return &ActionableError{
		Operation:   c.operation,
		Resource:    c.resource,
		Suggestions: c.suggestions,
		Cause:       c.cause,
		Topic:       c.topic,
	}
}

// BuildError is Build for return statements: it yields an untyped nil
// instead of a nil *ActionableError.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
