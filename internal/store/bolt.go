package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketDevices   = []byte("devices")
	bucketVariables = []byte("variables")
)

// BoltStore implements Store using BoltDB. Devices are keyed by big-endian
// id so listings come back in id order. Each device's variables live in a
// nested bucket keyed "<service>\x00<name>" with JSON string values.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketDevices, bucketVariables} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func deviceKey(id int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func variableKey(service, name string) []byte {
	return []byte(service + "\x00" + name)
}

func (s *BoltStore) SaveDevice(dev *Device) error {
	if dev.ID <= 0 {
		return fmt.Errorf("invalid device id %d", dev.ID)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDevices)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketDevices)
		}
		dev.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(dev)
		if err != nil {
			return err
		}
		return b.Put(deviceKey(dev.ID), data)
	})
}

func (s *BoltStore) GetDevice(id int) (*Device, error) {
	var dev Device
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDevices)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketDevices)
		}
		data := b.Get(deviceKey(id))
		if data == nil {
			return fmt.Errorf("device %d: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &dev)
	})
	if err != nil {
		return nil, err
	}
	return &dev, nil
}

// DeleteDevice removes a device together with its variables.
func (s *BoltStore) DeleteDevice(id int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDevices)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketDevices)
		}
		if err := b.Delete(deviceKey(id)); err != nil {
			return err
		}
		vars := tx.Bucket(bucketVariables)
		if vars.Bucket(deviceKey(id)) != nil {
			return vars.DeleteBucket(deviceKey(id))
		}
		return nil
	})
}

func (s *BoltStore) ListDevices() ([]*Device, error) {
	var devices []*Device
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDevices)
		if b == nil {
			return nil // no bucket = no devices
		}
		devices = make([]*Device, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var dev Device
			if err := json.Unmarshal(v, &dev); err != nil {
				return err
			}
			devices = append(devices, &dev)
			return nil
		})
	})
	return devices, err
}

func (s *BoltStore) UpdateDevice(id int, fn func(dev *Device) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDevices)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketDevices)
		}
		data := b.Get(deviceKey(id))
		if data == nil {
			return fmt.Errorf("device %d: %w", id, ErrNotFound)
		}
		var dev Device
		if err := json.Unmarshal(data, &dev); err != nil {
			return err
		}
		if err := fn(&dev); err != nil {
			return err
		}
		dev.ID = id
		dev.UpdatedAt = time.Now().UTC()
		out, err := json.Marshal(&dev)
		if err != nil {
			return err
		}
		return b.Put(deviceKey(id), out)
	})
}

func (s *BoltStore) GetVariable(device int, service, name string) (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVariables).Bucket(deviceKey(device))
		if b == nil {
			return fmt.Errorf("variable %d %s: %w", device, name, ErrNotFound)
		}
		data := b.Get(variableKey(service, name))
		if data == nil {
			return fmt.Errorf("variable %d %s: %w", device, name, ErrNotFound)
		}
		return json.Unmarshal(data, &value)
	})
	return value, err
}

func (s *BoltStore) SetVariable(device int, service, name, value string) error {
	return s.SetVariables(device, service, map[string]string{name: value})
}

func (s *BoltStore) SetVariables(device int, service string, values map[string]string) error {
	if service == "" {
		return fmt.Errorf("empty service id")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketVariables).CreateBucketIfNotExists(deviceKey(device))
		if err != nil {
			return err
		}
		for name, value := range values {
			if name == "" || strings.ContainsRune(name, 0) {
				return fmt.Errorf("invalid variable name %q", name)
			}
			data, err := json.Marshal(value)
			if err != nil {
				return err
			}
			if err := b.Put(variableKey(service, name), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) ListVariables(device int) ([]Variable, error) {
	var vars []Variable
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVariables).Bucket(deviceKey(device))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			service, name, ok := strings.Cut(string(k), "\x00")
			if !ok {
				return fmt.Errorf("corrupt variable key %s", strconv.Quote(string(k)))
			}
			vr := Variable{Service: service, Name: name}
			if err := json.Unmarshal(v, &vr.Value); err != nil {
				return err
			}
			vars = append(vars, vr)
			return nil
		})
	})
	return vars, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
