// Package middleware provides the chain every inbound transcript message
// passes through before it is rendered. Middleware can transform, validate,
// record or reject messages.
package middleware

import (
	"context"
	"fmt"

	"github.com/shawkym/jarvisui/pkg/log"
)

// Message sources.
const (
	SourceBackend = "backend"
	SourceLocal   = "local"
)

// Message is an add_message request on its way to the transcript.
type Message struct {
	Role    string
	Content string
	RawText string
	// Format is "" or "html" for markup, "markdown" for Markdown source.
	Format string
}

// MessageContext contains contextual information for middleware processing.
type MessageContext struct {
	// Ctx is the request context
	Ctx context.Context

	// Source is SourceBackend or SourceLocal
	Source string

	// Sequence counts inbound messages, starting at 1
	Sequence int

	// Metadata contains additional context information
	Metadata map[string]interface{}
}

// Middleware processes messages in a chain.
// It can modify the message, add metadata, or stop processing by returning an error.
type Middleware interface {
	// Process handles a message and optionally passes it to the next middleware.
	Process(ctx *MessageContext, msg *Message, next ProcessFunc) (*Message, error)

	// Name returns the middleware name for logging and debugging.
	Name() string
}

// ProcessFunc is a function that processes a message.
type ProcessFunc func(ctx *MessageContext, msg *Message) (*Message, error)

// Chain represents a chain of middleware.
type Chain struct {
	middleware []Middleware
}

// NewChain creates a new middleware chain.
func NewChain(middleware ...Middleware) *Chain {
	return &Chain{
		middleware: middleware,
	}
}

// Add appends middleware to the chain.
func (c *Chain) Add(m Middleware) {
	c.middleware = append(c.middleware, m)
}

// Process executes the middleware chain for a message.
func (c *Chain) Process(ctx *MessageContext, msg *Message) (*Message, error) {
	if len(c.middleware) == 0 {
		return msg, nil
	}

	process := ProcessFunc(func(ctx *MessageContext, msg *Message) (*Message, error) {
		return msg, nil
	})

	for i := len(c.middleware) - 1; i >= 0; i-- {
		m := c.middleware[i]
		next := process
		process = func(ctx *MessageContext, msg *Message) (*Message, error) {
			return m.Process(ctx, msg, next)
		}
	}

	return process(ctx, msg)
}

// Len returns the number of middleware in the chain.
func (c *Chain) Len() int {
	return len(c.middleware)
}

// MiddlewareFunc is a function adapter for the Middleware interface.
type MiddlewareFunc struct {
	name string
	fn   func(ctx *MessageContext, msg *Message, next ProcessFunc) (*Message, error)
}

// NewMiddlewareFunc creates a middleware from a function.
func NewMiddlewareFunc(name string, fn func(ctx *MessageContext, msg *Message, next ProcessFunc) (*Message, error)) Middleware {
	return &MiddlewareFunc{
		name: name,
		fn:   fn,
	}
}

// Process implements Middleware.
func (m *MiddlewareFunc) Process(ctx *MessageContext, msg *Message, next ProcessFunc) (*Message, error) {
	return m.fn(ctx, msg, next)
}

// Name implements Middleware.
func (m *MiddlewareFunc) Name() string {
	return m.name
}

// TransformFunc transforms a message.
type TransformFunc func(ctx *MessageContext, msg *Message) (*Message, error)

// NewTransformMiddleware creates middleware from a transform function.
func NewTransformMiddleware(name string, transform TransformFunc) Middleware {
	return NewMiddlewareFunc(name, func(ctx *MessageContext, msg *Message, next ProcessFunc) (*Message, error) {
		transformed, err := transform(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("transform error: %w", err)
		}
		return next(ctx, transformed)
	})
}

// ObserverFunc looks at a message after the rest of the chain is done.
type ObserverFunc func(ctx *MessageContext, msg *Message)

// NewObserverMiddleware creates middleware that calls observe with the
// final message once downstream processing succeeded.
func NewObserverMiddleware(name string, observe ObserverFunc) Middleware {
	return NewMiddlewareFunc(name, func(ctx *MessageContext, msg *Message, next ProcessFunc) (*Message, error) {
		result, err := next(ctx, msg)
		if err != nil || result == nil {
			return result, err
		}
		observe(ctx, result)
		return result, nil
	})
}

// ValidationFunc validates a message.
type ValidationFunc func(ctx *MessageContext, msg *Message) error

// NewValidationMiddleware creates middleware from a validation function.
func NewValidationMiddleware(name string, validate ValidationFunc) Middleware {
	return NewMiddlewareFunc(name, func(ctx *MessageContext, msg *Message, next ProcessFunc) (*Message, error) {
		if err := validate(ctx, msg); err != nil {
			log.WithFields(map[string]interface{}{
				"middleware": name,
				"source":     ctx.Source,
				"sequence":   ctx.Sequence,
			}).WithError(err).Warn("message validation failed")
			return nil, fmt.Errorf("validation failed in %s: %w", name, err)
		}
		return next(ctx, msg)
	})
}
