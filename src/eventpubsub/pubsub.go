package eventpubsub

import (
	"fmt"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"
)

const (
	// TopicTaskProgress carries every task's progress updates; the
	// monitor stream subscribes here.
	TopicTaskProgress = "task:progress"
)

// TaskProgressTopic is the per-task channel used by single-task progress
// streams.
func TaskProgressTopic(taskID string) string {
	return fmt.Sprintf("task:progress:%s", taskID)
}

// PubSub wraps an EventBus instance owned by the process that created it;
// there is no package-level bus, so independent servers (or tests) cannot
// interfere with each other.
type PubSub struct {
	bus EventBus.Bus
}

func New() *PubSub {
	return &PubSub{
		bus: EventBus.New(),
	}
}

func (p *PubSub) Publish(topic string, event interface{}) {
	p.bus.Publish(topic, event)
}

func (p *PubSub) Subscribe(topic string, callbackFn interface{}) error {
	if err := p.bus.SubscribeAsync(topic, callbackFn, false); err != nil {
		return fmt.Errorf("pubsub: failed to subscribe to %s: %w", topic, err)
	}

	log.Debugf("Subscribed to topic %s", topic)
	return nil
}

func (p *PubSub) Unsubscribe(topic string, callbackFn interface{}) {
	if err := p.bus.Unsubscribe(topic, callbackFn); err != nil {
		log.Warnf("pubsub: failed to unsubscribe from %s: %v", topic, err)
	}
}
