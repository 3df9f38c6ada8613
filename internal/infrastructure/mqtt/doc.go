// Package mqtt publishes irrigation status events to an MQTT broker.
//
// The broker is optional. When configured, job lifecycle events and pump
// status changes are published so Home Assistant dashboards and external
// automations can subscribe to them without polling the HTTP API.
//
//	irrigationd -> MQTT Broker -> dashboards / automations
//
// The client is publish-only: the service never takes commands over MQTT,
// all control goes through the HTTP API. A Last Will and Testament on the
// system status topic lets subscribers detect an unexpected crash, while
// a graceful shutdown publishes a distinct offline payload.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, logger)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	notifier := mqtt.NewNotifier(client, byte(cfg.MQTT.QoS))
package mqtt
