// Package station persists named radio tuning presets per guild.
package station

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"moodwave/datastore"
	"moodwave/internal/session"
)

// ErrNotFound means no station with that name is saved for the guild.
var ErrNotFound = errors.New("station not found")

// Store persists stations to durable storage keyed by guild id. Stations
// outlive sessions; stopping playback never touches them.
type Store struct {
	ds *datastore.DataStore
}

type guildRecord struct {
	Stations map[string]session.Tuning `json:"stations"`
}

// New opens (or creates) the station store at the given file path. All
// stations are loaded on start and written through on every change.
func New(filePath string) (*Store, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Store{ds: ds}, nil
}

func (s *Store) Close() error {
	return s.ds.Close()
}

func (s *Store) guildRecord(guildID string) (*guildRecord, error) {
	data, exists := s.ds.Get(guildID)
	if !exists {
		return &guildRecord{Stations: map[string]session.Tuning{}}, nil
	}

	// The datastore hands back untyped JSON; round-trip into the record.
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal guild record: %w", err)
	}
	var record guildRecord
	if err := json.Unmarshal(jsonData, &record); err != nil {
		return nil, fmt.Errorf("unmarshal guild record: %w", err)
	}
	if record.Stations == nil {
		record.Stations = map[string]session.Tuning{}
	}
	return &record, nil
}

func (s *Store) put(guildID string, record *guildRecord) error {
	s.ds.Add(guildID, record)
	return s.ds.SaveToFile()
}

// Save upserts a station under the given name. Names are case-insensitive;
// re-saving overwrites the previous snapshot.
func (s *Store) Save(guildID, name string, tuning session.Tuning) error {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return err
	}
	record.Stations[normalizeName(name)] = tuning.Snapshot()
	return s.put(guildID, record)
}

// Load returns the saved tuning snapshot for the station.
func (s *Store) Load(guildID, name string) (session.Tuning, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return session.Tuning{}, err
	}
	tuning, ok := record.Stations[normalizeName(name)]
	if !ok {
		return session.Tuning{}, ErrNotFound
	}
	return tuning.Snapshot(), nil
}

// List returns the guild's station names in lexicographic order.
func (s *Store) List(guildID string) ([]string, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(record.Stations))
	for name := range record.Stations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a station. Deleting an absent name fails with ErrNotFound,
// so a repeated delete of the same name fails rather than silently succeeding.
func (s *Store) Delete(guildID, name string) error {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return err
	}
	key := normalizeName(name)
	if _, ok := record.Stations[key]; !ok {
		return ErrNotFound
	}
	delete(record.Stations, key)
	return s.put(guildID, record)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
