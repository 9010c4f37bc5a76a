package store

import "errors"

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface.
type Store interface {
	// Device operations
	SaveDevice(dev *Device) error
	GetDevice(id int) (*Device, error)
	DeleteDevice(id int) error
	ListDevices() ([]*Device, error)

	// UpdateDevice atomically reads, modifies, and saves a device in a single
	// transaction. Returns ErrNotFound if the device does not exist.
	UpdateDevice(id int, fn func(dev *Device) error) error

	// State variables, keyed by device, service id and name. Values are
	// opaque strings with last-write-wins semantics.
	GetVariable(device int, service, name string) (string, error)
	SetVariable(device int, service, name, value string) error
	// SetVariables writes several variables of one service in a single
	// transaction.
	SetVariables(device int, service string, values map[string]string) error
	ListVariables(device int) ([]Variable, error)

	// Close the store
	Close() error
}
