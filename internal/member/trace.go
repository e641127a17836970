package member

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/xact"
)

// Span attribute keys.
const (
	AttrRegistration = "member.registration"
	AttrCategory     = "member.category"
	AttrXact         = "member.xact"
	AttrCode         = "member.error.code"
)

// SpanPrefix prefixes every member operation span name.
const SpanPrefix = "member."

func (c *Client) startSpan(ctx context.Context, op string, reg *Registration, x xact.Transaction) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRegistration, reg.String()),
		attribute.String(AttrCategory, reg.base.Category.String()),
	}
	if x != nil {
		attrs = append(attrs, attribute.String(AttrXact, x.ID()))
	}
	return c.tracer.Start(ctx, SpanPrefix+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		if code, ok := CodeOf(err); ok {
			span.SetAttributes(attribute.String(AttrCode, string(code)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
