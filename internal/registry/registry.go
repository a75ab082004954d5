// Package registry keeps stable ids and user-assigned names for printers.
package registry

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no entry matches an id or name.
var ErrNotFound = errors.New("printer not registered")

// Kinds of registered printers
const (
	KindUSB     = "usb"
	KindSerial  = "serial"
	KindNetwork = "network"
)

// Registry maps printer identities to persistent entries stored as JSON.
type Registry struct {
	filePath string
	data     map[string]*Entry
	mu       sync.RWMutex
}

// Entry is a registered printer.
type Entry struct {
	ID          string `json:"id"`
	IdentityKey string `json:"identity_key"`
	Kind        string `json:"kind"`
	VID         uint16 `json:"vid,omitempty"`
	PID         uint16 `json:"pid,omitempty"`
	Device      string `json:"device,omitempty"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Description string `json:"description"`
	Name        string `json:"name,omitempty"`
}

// Info identifies a detected printer.
type Info struct {
	Kind        string
	Description string
	Device      string
	VID         uint16
	PID         uint16
	Host        string
	Port        int
}

// New opens the registry at filePath. A missing file is an empty registry.
func New(filePath string) (*Registry, error) {
	r := &Registry{
		filePath: filePath,
		data:     make(map[string]*Entry),
	}

	if err := r.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	return r, nil
}

// ID returns the persistent id for info, registering it on first sight.
func (r *Registry) ID(info Info) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := identityKey(info)
	if entry, ok := r.data[key]; ok {
		return entry.ID, nil
	}

	entry := &Entry{
		ID:          uuid.NewString(),
		IdentityKey: key,
		Kind:        info.Kind,
		VID:         info.VID,
		PID:         info.PID,
		Device:      info.Device,
		Host:        info.Host,
		Port:        info.Port,
		Description: info.Description,
	}
	r.data[key] = entry

	// the id is valid for this process even if it could not be persisted
	return entry.ID, r.save()
}

// Name returns the user-assigned name for id, or "".
func (r *Registry) Name(id string) string {
	if e := r.Get(id); e != nil {
		return e.Name
	}
	return ""
}

// SetName assigns a name to a registered printer.
func (r *Registry) SetName(id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.byID(id)
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	entry.Name = strings.TrimSpace(name)
	return r.save()
}

// Get returns a copy of the entry with id, or nil.
func (r *Registry) Get(id string) *Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry := r.byID(id); entry != nil {
		entryCopy := *entry
		return &entryCopy
	}
	return nil
}

// Find resolves an id or a case-insensitive name.
func (r *Registry) Find(idOrName string) (*Entry, error) {
	if e := r.Get(idOrName); e != nil {
		return e, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.data {
		if entry.Name != "" && strings.EqualFold(entry.Name, idOrName) {
			entryCopy := *entry
			return &entryCopy, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrName)
}

// Remove deletes an entry.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, entry := range r.data {
		if entry.ID == id {
			delete(r.data, key)
			return r.save()
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// All returns copies of every entry ordered by identity key.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Entry, 0, len(r.data))
	for _, v := range r.data {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].IdentityKey < result[j].IdentityKey })
	return result
}

func (r *Registry) byID(id string) *Entry {
	for _, entry := range r.data {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

func (r *Registry) load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &r.data)
}

func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(r.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	return nil
}

// identityKey derives a stable key from the hardware address of a printer.
func identityKey(info Info) string {
	switch info.Kind {
	case KindUSB:
		if info.VID != 0 || info.PID != 0 {
			return fmt.Sprintf("usb:%04x:%04x", info.VID, info.PID)
		}
	case KindSerial:
		if info.Device != "" {
			return fmt.Sprintf("serial:%s", info.Device)
		}
	case KindNetwork:
		if info.Host != "" {
			return fmt.Sprintf("network:%s:%d", info.Host, info.Port)
		}
	}

	hash := md5.Sum([]byte(info.Description))
	return fmt.Sprintf("hash:%x", hash)
}
