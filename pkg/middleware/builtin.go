package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/shawkym/jarvisui/pkg/log"
	"github.com/shawkym/jarvisui/pkg/markup"
	"github.com/shawkym/jarvisui/pkg/metrics"
	"github.com/shawkym/jarvisui/pkg/transcript"
)

// FormatMarkdown marks a message whose content is Markdown source.
const FormatMarkdown = "markdown"

// FormatHTML marks markup content. An empty format means the same.
const FormatHTML = "html"

// ChatLog receives every message that makes it through the chain.
type ChatLog interface {
	LogMessage(role, text string, at time.Time)
}

// LoggingMiddleware creates middleware that logs all messages.
func LoggingMiddleware() Middleware {
	return NewMiddlewareFunc("logging", func(ctx *MessageContext, msg *Message, next ProcessFunc) (*Message, error) {
		start := time.Now()

		log.WithFields(map[string]interface{}{
			"source":      ctx.Source,
			"sequence":    ctx.Sequence,
			"role":        msg.Role,
			"format":      msg.Format,
			"content_len": len(msg.Content),
		}).Debug("processing message")

		result, err := next(ctx, msg)
		if err != nil {
			log.WithFields(map[string]interface{}{
				"source":      ctx.Source,
				"sequence":    ctx.Sequence,
				"duration_ms": time.Since(start).Milliseconds(),
			}).WithError(err).Error("message processing failed")
			return nil, err
		}
		return result, nil
	})
}

// LocalEchoMiddleware escapes locally typed input so it renders as
// literal text. The unescaped input becomes the raw text for copying.
func LocalEchoMiddleware() Middleware {
	return NewTransformMiddleware("local-echo", func(ctx *MessageContext, msg *Message) (*Message, error) {
		if ctx.Source != SourceLocal {
			return msg, nil
		}
		if msg.RawText == "" {
			msg.RawText = msg.Content
		}
		msg.Content = markup.EscapeHTML(msg.Content)
		msg.Format = ""
		return msg, nil
	})
}

// FormatValidationMiddleware rejects messages whose format is neither
// markup nor Markdown.
func FormatValidationMiddleware() Middleware {
	return NewValidationMiddleware("format", func(ctx *MessageContext, msg *Message) error {
		switch strings.ToLower(strings.TrimSpace(msg.Format)) {
		case "", FormatHTML, FormatMarkdown:
			return nil
		default:
			return fmt.Errorf("unsupported message format %q", msg.Format)
		}
	})
}

// MarkdownMiddleware converts Markdown content to HTML. A message without
// raw text keeps the Markdown source as its raw text.
func MarkdownMiddleware() Middleware {
	return NewTransformMiddleware("markdown", func(ctx *MessageContext, msg *Message) (*Message, error) {
		if !strings.EqualFold(msg.Format, FormatMarkdown) {
			return msg, nil
		}
		html, err := markup.ToHTML(msg.Content)
		if err != nil {
			return nil, fmt.Errorf("render markdown: %w", err)
		}
		if msg.RawText == "" {
			msg.RawText = msg.Content
		}
		msg.Content = html
		msg.Format = ""
		return msg, nil
	})
}

// RoleNormalizationMiddleware maps unknown roles to system.
func RoleNormalizationMiddleware() Middleware {
	return NewTransformMiddleware("role-normalization", func(ctx *MessageContext, msg *Message) (*Message, error) {
		role, ok := transcript.ParseRole(msg.Role)
		if !ok {
			log.WithFields(map[string]interface{}{
				"role":     msg.Role,
				"sequence": ctx.Sequence,
			}).Warn("unknown message role, rendering as system")
		}
		msg.Role = string(role)
		return msg, nil
	})
}

// ChatLogMiddleware records every message that reaches the transcript.
func ChatLogMiddleware(l ChatLog) Middleware {
	return NewObserverMiddleware("chat-log", func(ctx *MessageContext, msg *Message) {
		text := msg.RawText
		if text == "" {
			text = msg.Content
		}
		l.LogMessage(msg.Role, text, time.Now())
	})
}

// MetricsMiddleware counts messages by role and records processing time
// in the context metadata.
func MetricsMiddleware(m *metrics.Metrics) Middleware {
	return NewMiddlewareFunc("metrics", func(ctx *MessageContext, msg *Message, next ProcessFunc) (*Message, error) {
		start := time.Now()
		result, err := next(ctx, msg)

		if ctx.Metadata == nil {
			ctx.Metadata = make(map[string]interface{})
		}
		ctx.Metadata["processing_duration_ms"] = time.Since(start).Milliseconds()

		if err == nil && result != nil {
			m.RecordMessage(result.Role)
		}
		return result, err
	})
}

// ErrorRecoveryMiddleware catches panics in downstream middleware and
// converts them to errors.
func ErrorRecoveryMiddleware() Middleware {
	return NewMiddlewareFunc("error-recovery", func(ctx *MessageContext, msg *Message, next ProcessFunc) (result *Message, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(map[string]interface{}{
					"panic":    r,
					"sequence": ctx.Sequence,
				}).Error("middleware panic recovered")
				err = fmt.Errorf("middleware panic: %v", r)
				result = nil
			}
		}()

		return next(ctx, msg)
	})
}

// InboundOptions configures NewInboundChain.
type InboundOptions struct {
	ChatLog ChatLog
	Metrics *metrics.Metrics
}

// NewInboundChain builds the chain used for every transcript message.
// Observers come first so they see the fully transformed message.
func NewInboundChain(opts InboundOptions) *Chain {
	chain := NewChain(
		ErrorRecoveryMiddleware(),
		LoggingMiddleware(),
		MetricsMiddleware(opts.Metrics),
	)
	if opts.ChatLog != nil {
		chain.Add(ChatLogMiddleware(opts.ChatLog))
	}
	chain.Add(FormatValidationMiddleware())
	chain.Add(LocalEchoMiddleware())
	chain.Add(MarkdownMiddleware())
	chain.Add(RoleNormalizationMiddleware())
	log.WithField("middleware", chain.Len()).Debug("inbound chain ready")
	return chain
}
