// Package messaging is a thin publish/subscribe client used next to the
// cache to broadcast and receive change notifications.
//
// It wraps paho.mqtt.golang behind a destination/listener model: callers
// Subscribe a consumer to a destination, register listeners with
// AddListener, and every message received on any subscribed destination is
// handed to every registered listener as a Message.
//
// # Usage
//
//	client, err := messaging.Connect(messaging.ConfigFromEnv())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect()
//
//	client.AddListener(func(m messaging.Message) {
//	    log.Printf("%s: %s", m.Destination, m.Message)
//	}, "audit")
//
//	if err := client.Subscribe("industrial/devices", "cache-1"); err != nil {
//	    log.Fatal(err)
//	}
//	client.Send("industrial/devices", "device updated")
//
// Listeners run on paho's delivery goroutine. A panicking listener is
// recovered and logged; the remaining listeners still receive the message.
package messaging
