// Package config resolves application settings. Values flow through viper
// from the config file, LOSTITEMS_ environment variables, and flags; path
// values are expanded so they can point into the user's profile.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings collects the resolved application configuration. Values come from
// the config file, environment variables (LOSTITEMS_ prefix), and flags, in
// viper's usual precedence order.
type Settings struct {
	FacilityID string

	DatabasePath string
	LockPath     string

	TaxonomyPath string
	VectorsPath  string

	ModelPath   string
	VocabPath   string
	LibraryPath string

	EmbedTimeout time.Duration
	TopN         int

	ServerListen string
}

// SetDefaults registers configuration defaults with viper. Called once from
// the root command before any subcommand runs.
func SetDefaults() {
	viper.SetDefault("facility.id", "01")
	viper.SetDefault("database.path", "$HOME/.local/share/lostitems/lostitems.db")
	viper.SetDefault("relocate.lock_path", "$HOME/.local/share/lostitems/relocate.lock")
	viper.SetDefault("matching.embed_timeout", "2s")
	viper.SetDefault("matching.top_n", 5)
	viper.SetDefault("server.listen", "127.0.0.1:8630")
}

// Load reads the settings out of viper and expands paths.
func Load() Settings {
	return Settings{
		FacilityID:   viper.GetString("facility.id"),
		DatabasePath: ExpandPath(viper.GetString("database.path")),
		LockPath:     ExpandPath(viper.GetString("relocate.lock_path")),
		TaxonomyPath: ExpandPath(viper.GetString("taxonomy.path")),
		VectorsPath:  ExpandPath(viper.GetString("taxonomy.vectors_path")),
		ModelPath:    ExpandPath(viper.GetString("embedding.model_path")),
		VocabPath:    ExpandPath(viper.GetString("embedding.vocab_path")),
		LibraryPath:  ExpandPath(viper.GetString("embedding.library_path")),
		EmbedTimeout: viper.GetDuration("matching.embed_timeout"),
		TopN:         viper.GetInt("matching.top_n"),
		ServerListen: viper.GetString("server.listen"),
	}
}

// EnsureDataDir creates the directory holding the given file path.
func EnsureDataDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// ExpandPath resolves a leading ~ to the user's home directory and then
// expands $VAR references. An unresolvable home leaves the ~ in place.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return os.ExpandEnv(path)
}
