package cache

import (
	"encoding/json"
	"time"
)

// Announcement describes a published snapshot to other processes.
// It carries no value: receivers refresh from the source of truth themselves.
type Announcement struct {
	Cache    string    `json:"cache"`
	Version  uint64    `json:"version"`
	LoadedAt time.Time `json:"loaded_at"`
}

// NewAnnouncement describes snap as a snapshot of the named cache
func NewAnnouncement[V any](name string, snap *Snapshot[V]) Announcement {
	return Announcement{
		Cache:    name,
		Version:  snap.Version(),
		LoadedAt: snap.LoadedAt(),
	}
}

// Marshal encodes the announcement as JSON
func (a Announcement) Marshal() ([]byte, error) {
	return json.Marshal(a)
}

// ParseAnnouncement decodes an announcement produced by Marshal
func ParseAnnouncement(data []byte) (Announcement, error) {
	var a Announcement
	err := json.Unmarshal(data, &a)
	return a, err
}
