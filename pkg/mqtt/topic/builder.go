package topic

import (
	"fmt"
)

// Constants defining the topic segments consumed by the fleet back end.
// Changing these values breaks existing subscribers.
const (
	// SuffixProvision carries one record per provisioning run (Factory -> Cloud).
	// Structure: {root}/provision/{deviceID}
	SuffixProvision = "provision"

	// SuffixProvisionFailed carries records of runs that stopped with an error.
	// Structure: {root}/provision/failed/{deviceID}
	SuffixProvisionFailed = "provision/failed"
)

// TopicBuilder encapsulates the logic for constructing MQTT topic strings.
type TopicBuilder struct {
	// root is the base namespace for all topics (e.g., "nvsprov/v1").
	root string
}

// NewTopicBuilder creates a new instance of TopicBuilder with the specified root namespace.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: root}
}

// Provision returns the topic for a successful run of the given device.
func (b *TopicBuilder) Provision(deviceID string) string {
	return b.build(SuffixProvision, deviceID)
}

// ProvisionFailed returns the topic for a failed run of the given device.
func (b *TopicBuilder) ProvisionFailed(deviceID string) string {
	return b.build(SuffixProvisionFailed, deviceID)
}

// build constructs {root}/{suffix}/{identifier}.
func (b *TopicBuilder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}
