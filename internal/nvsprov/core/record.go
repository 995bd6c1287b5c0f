package core

import (
	"context"
	"time"
)

// Record summarizes one provisioning run. It is what leaves the host:
// archived next to the image and published as an event.
type Record struct {
	RunID           string    `json:"runID"`
	DeviceID        string    `json:"deviceID"`
	Mode            string    `json:"mode"`
	HardwareVersion string    `json:"hardwareVersion,omitempty"`
	Port            string    `json:"port,omitempty"`
	ImageSHA256     string    `json:"imageSHA256,omitempty"`
	ImageSize       int64     `json:"imageSize,omitempty"`
	State           string    `json:"state"`
	Error           string    `json:"error,omitempty"`
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
}

// ImageArchiver stores a copy of a generated partition image.
// It is implemented by the S3 adapter.
type ImageArchiver interface {
	// Archive uploads the image at imagePath for the device and returns the object key.
	Archive(ctx context.Context, rec *Record, imagePath string) (string, error)
}

// EventNotifier publishes the outcome of a provisioning run.
// It is implemented by the MQTT adapter.
type EventNotifier interface {
	Notify(ctx context.Context, rec *Record) error
	Close(ctx context.Context)
}
