package gateway

import (
	"context"

	"github.com/shandysiswandi/gorelay/internal/pkg/instrument"
	"github.com/shandysiswandi/gorelay/internal/pkg/smsgateway"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Gateway struct {
	client smsgateway.Gateway
	ins    instrument.Instrumentation
}

func New(client smsgateway.Gateway, ins instrument.Instrumentation) *Gateway {
	return &Gateway{client: client, ins: ins}
}

func (g *Gateway) Send(ctx context.Context, msg smsgateway.Message) (*smsgateway.Receipt, error) {
	ctx, span := g.ins.Tracer("relay.outbound.gateway").Start(ctx, "Send")
	defer span.End()

	span.SetAttributes(attribute.Int("sms.recipients", len(msg.PhoneNumbers)))

	receipt, err := g.client.Send(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("sms.message_id", receipt.ID))

	return receipt, nil
}

func (g *Gateway) GetState(ctx context.Context, id string) (*smsgateway.Receipt, error) {
	ctx, span := g.ins.Tracer("relay.outbound.gateway").Start(ctx, "GetState")
	defer span.End()

	span.SetAttributes(attribute.String("sms.message_id", id))

	receipt, err := g.client.GetState(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return receipt, nil
}
