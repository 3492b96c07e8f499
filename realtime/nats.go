package realtime

import (
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSForwarder republishes hub events on <prefix>.<topic>, with the ':' of
// a topic turned into a subject separator.
type NATSForwarder struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSForwarder(url, prefix string) (*NATSForwarder, error) {
	conn, err := nats.Connect(url, nats.Name("dineflow"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSForwarder{conn: conn, prefix: prefix}, nil
}

func Subject(prefix, topic string) string {
	subject := strings.ReplaceAll(topic, ":", ".")
	if prefix == "" {
		return subject
	}
	return prefix + "." + subject
}

func (f *NATSForwarder) Forward(ev Event, payload []byte) error {
	return f.conn.Publish(Subject(f.prefix, ev.Topic), payload)
}

func (f *NATSForwarder) Close() error {
	if err := f.conn.Drain(); err != nil {
		f.conn.Close()
		return err
	}
	return nil
}
