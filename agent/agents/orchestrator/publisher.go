package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/pkg/qstash"
)

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, contractx.Event) error { return nil }

// QStashPublisher forwards committed appointment changes to a QStash
// destination. Replays of the same change are deduplicated by QStash.
type QStashPublisher struct {
	client      *qstash.Client
	destination string
}

func NewQStashPublisher(client *qstash.Client, destination string) (*QStashPublisher, error) {
	if client == nil {
		return nil, errors.New("qstash client is required")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, errors.New("qstash destination is required")
	}
	return &QStashPublisher{client: client, destination: destination}, nil
}

func (p *QStashPublisher) Publish(ctx context.Context, ev contractx.Event) error {
	res, err := p.client.PublishJSON(ctx, p.destination, ev, qstash.PublishOptions{
		DeduplicationID: dedupID(ev),
	})
	if err != nil {
		return err
	}
	log.Debug().
		Str("message_id", res.MessageID).
		Bool("deduplicated", res.Deduplicated).
		Str("event", string(ev.Type)).
		Msg("event published")
	return nil
}

func dedupID(ev contractx.Event) string {
	return ev.AppointmentID + ":" + string(ev.Type) + ":" + ev.Date + "T" + ev.Time
}
