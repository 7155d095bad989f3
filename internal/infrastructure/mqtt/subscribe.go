package mqtt

import (
	"fmt"
)

// Subscribe registers interest in pattern with the configured QoS.
//
// Patterns can include MQTT wildcards:
//   - + (single-level): "mql/cmd/+" matches every control topic
//   - # (multi-level): "mql/log/#" matches every log record
//
// Matching messages are delivered as EventMessage on the event stream.
// Subscriptions are not restored after a connection loss because the
// client never reconnects.
//
// Subscribe must not be called from a goroutine that is also the only
// reader of Events while the event buffer is full.
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Subscribe(pattern string) error {
	if pattern == "" {
		return ErrInvalidTopic
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Subscribe(pattern, byte(c.cfg.QoS), c.messageHandler())
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrSubscribeFailed, pattern, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, pattern, err)
	}

	return nil
}
