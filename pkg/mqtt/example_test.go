package mqtt_test

import (
	"context"
	"time"

	"cloupeer.io/nvsprov/pkg/log"
	"cloupeer.io/nvsprov/pkg/mqtt"
	"cloupeer.io/nvsprov/pkg/mqtt/topic"
)

// ExampleClient shows how a provisioning run publishes its record and leaves.
func ExampleClient() {
	cfg := &mqtt.ClientConfig{
		BrokerURL:      "tcp://localhost:1883",
		ClientID:       "nvsprov-station-01",
		ConnectTimeout: 5 * time.Second,
		CleanStart:     true,
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Start returns immediately; the connection is established in the background.
	if err := client.Start(ctx); err != nil {
		log.Error(err, "Failed to start MQTT client")
		return
	}
	defer client.Disconnect(context.Background())

	if err := client.AwaitConnection(ctx); err != nil {
		log.Error(err, "Connection timed out")
		return
	}

	topics := topic.NewTopicBuilder("nvsprov/v1")
	payload := []byte(`{"deviceID":"24:0a:c4:12:34:56","state":"flashed"}`)
	if err := client.Publish(ctx, topics.Provision("240ac4123456"), 1, false, payload); err != nil {
		log.Error(err, "Failed to publish provisioning record")
	}
}
