// Package mqtt connects VisionPilot to an MQTT broker for status
// publication and remote control.
//
// It wraps paho.mqtt.golang with:
//   - auto-reconnect with subscriptions restored after each reconnect
//   - a retained availability topic with a Last Will so that consumers
//     see "offline" when the process dies without closing
//   - handler panic recovery
//
// Topic names hang off a configurable prefix (default "visionpilot"):
//
//	visionpilot/availability       retained online/offline, LWT
//	visionpilot/status             retained engine status snapshot
//	visionpilot/transition         state transitions
//	visionpilot/session            session summaries
//	visionpilot/control/{action}   inbound start/stop requests
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
//	err = client.Subscribe(topics.AllControl(), 1, func(topic string, payload []byte) error {
//	    return nil
//	})
package mqtt
