package domain

// DeviceIdentity describes the installed device.
// It is re-queried for every handshake and never persisted by the controller.
type DeviceIdentity struct {
	UUID       string `json:"device_uuid"`
	PlatformID string `json:"device_platform"`
	OSName     string `json:"device_os"`
}

// Validate checks that the identity carries a device UUID.
func (d DeviceIdentity) Validate() error {
	if d.UUID == "" {
		return ErrInvalidArgument.WithDetails("device uuid is empty")
	}
	return nil
}
