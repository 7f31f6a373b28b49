package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"ai-researcher-be/pkg/events"
)

const (
	streamName    = "RESEARCH_EVENTS"
	subjectPrefix = "research.reports."
)

// Publisher mirrors report lifecycle events onto NATS JetStream so other
// systems can observe runs. The backend works fully without it.
type Publisher struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	p := &Publisher{conn: conn, js: js}
	p.ensureStream()
	return p, nil
}

// ensureStream creates the stream if missing. Failure is logged, not fatal;
// the server may simply not have JetStream ready yet.
func (p *Publisher) ensureStream() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPrefix + ">"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		log.Printf("nats: could not ensure stream %s: %v", streamName, err)
	}
}

// Publish sends one lifecycle event. The subject encodes the event type,
// e.g. research.reports.report_completed.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	subject := subjectPrefix + strings.ToLower(event.EventType())
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
