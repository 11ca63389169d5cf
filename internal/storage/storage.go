package storage

import (
	"time"

	"github.com/keshon/musicbot/datastore"
)

const commandHistoryLimit = 20

type Storage struct {
	ds *datastore.DataStore
}

type CommandHistory struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	GuildName   string    `json:"guild_name"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Command     string    `json:"command"`
	Param       string    `json:"param,omitempty"`
	Datetime    time.Time `json:"datetime"`
}

// Record is everything kept per guild. Playback sessions are never stored.
type Record struct {
	CommandsHistory []CommandHistory `json:"commands_history"`
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

// NewWithDataStore wraps an already opened datastore.
func NewWithDataStore(ds *datastore.DataStore) *Storage {
	return &Storage{ds: ds}
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// AppendCommandToHistory records a command, keeping the newest entries only.
func (s *Storage) AppendCommandToHistory(guildID string, command CommandHistory) error {
	return datastore.Update(s.ds, guildID, func(r *Record) {
		r.CommandsHistory = append(r.CommandsHistory, command)
		if n := len(r.CommandsHistory); n > commandHistoryLimit {
			r.CommandsHistory = r.CommandsHistory[n-commandHistoryLimit:]
		}
	})
}

func (s *Storage) CommandsHistory(guildID string) ([]CommandHistory, error) {
	var r Record
	if _, err := s.ds.Get(guildID, &r); err != nil {
		return nil, err
	}
	return r.CommandsHistory, nil
}
