package checkpoint

import (
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/devicelab-dev/baseline-runner/pkg/logger"
)

// DefaultSubject is where instrumentation publishes checkpoints.
// The last subject token names the checkpoint unless the payload does.
const DefaultSubject = "baseline.checkpoints.>"

// SubscribeNATS forwards checkpoint messages on subject to the hub.
func SubscribeNATS(nc *nats.Conn, subject string, h *Hub) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		name := nameFromMessage(msg.Subject, msg.Data)
		cp, err := Parse(name)
		if err != nil {
			logger.Warn("ignoring NATS checkpoint on %s: %v", msg.Subject, err)
			return
		}
		h.Signal(cp)
	})
}

func nameFromMessage(subject string, data []byte) string {
	if body := strings.TrimSpace(string(data)); body != "" {
		return body
	}
	if i := strings.LastIndex(subject, "."); i >= 0 {
		return subject[i+1:]
	}
	return subject
}
