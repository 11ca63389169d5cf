package discord

import (
	"encoding/json"
	"os"
	"path/filepath"
)

func guildCachePath(dir, guildID string) string {
	return filepath.Join(dir, guildID+".json")
}

// loadGuildCommandHashes returns the command hashes last registered in a
// guild. A missing or unreadable cache yields an empty map.
func loadGuildCommandHashes(dir, guildID string) map[string]string {
	data := make(map[string]string)
	file, err := os.ReadFile(guildCachePath(dir, guildID))
	if err == nil {
		_ = json.Unmarshal(file, &data)
	}
	return data
}

func saveGuildCommandHashes(dir, guildID string, hashes map[string]string) error {
	path := guildCachePath(dir, guildID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
