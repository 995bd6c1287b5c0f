// Package notifier publishes provisioning records to the fleet back end.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
	pkgmqtt "cloupeer.io/nvsprov/pkg/mqtt"
	"cloupeer.io/nvsprov/pkg/mqtt/topic"
	"cloupeer.io/nvsprov/pkg/options"
)

type MQTTNotifier struct {
	client         pkgmqtt.Client
	topics         *topic.TopicBuilder
	qos            int
	connectTimeout time.Duration
	started        bool
}

var _ core.EventNotifier = (*MQTTNotifier)(nil)

// NewMQTTNotifier creates a notifier. The broker connection is opened on the
// first Notify, so runs that end early never dial the broker.
func NewMQTTNotifier(opts *options.MqttOptions, instanceID string) (*MQTTNotifier, error) {
	cfg := opts.ToClientConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = "nvsprov-" + instanceID
	}

	client, err := pkgmqtt.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return newNotifier(client, opts.TopicRoot, opts.QoS, opts.ConnectTimeout), nil
}

func newNotifier(client pkgmqtt.Client, topicRoot string, qos int, connectTimeout time.Duration) *MQTTNotifier {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	return &MQTTNotifier{
		client:         client,
		topics:         topic.NewTopicBuilder(topicRoot),
		qos:            qos,
		connectTimeout: connectTimeout,
	}
}

// Notify publishes rec on the provision topic of its device, or on the
// failed topic when the run stopped with an error.
func (n *MQTTNotifier) Notify(ctx context.Context, rec *core.Record) error {
	if !n.started {
		if err := n.client.Start(ctx); err != nil {
			return fmt.Errorf("failed to start mqtt client: %w", err)
		}
		n.started = true
	}

	ctx, cancel := context.WithTimeout(ctx, n.connectTimeout)
	defer cancel()
	if err := n.client.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("mqtt broker not reachable: %w", err)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	t := n.topics.Provision(rec.DeviceID)
	if rec.Error != "" {
		t = n.topics.ProvisionFailed(rec.DeviceID)
	}
	return n.client.Publish(ctx, t, n.qos, false, payload)
}

func (n *MQTTNotifier) Close(ctx context.Context) {
	if n.started {
		n.client.Disconnect(ctx)
	}
}
