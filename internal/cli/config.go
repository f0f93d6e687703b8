package cli

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL  string
	Name       string
	UserIDFile string
	Output     string
	Drive      bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  getEnvOrDefault("STUDYCTL_SERVER", "http://localhost:8080"),
		Name:       getEnvOrDefault("STUDYCTL_NAME", defaultName()),
		UserIDFile: getEnvOrDefault("STUDYCTL_USER_ID_FILE", defaultUserIDFile()),
		Output:     "text",
	}
}

// LoadUserID returns the identifier saved by a previous session, or ""
func (c *Config) LoadUserID() (string, error) {
	data, err := os.ReadFile(c.UserIDFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil // First run
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveUserID stores the identifier so later sessions reconnect as the same participant
func (c *Config) SaveUserID(id string) error {
	dir := filepath.Dir(c.UserIDFile)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.UserIDFile, []byte(id+"\n"), 0o600)
}

func defaultUserIDFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".studyctl/user-id"
	}
	return filepath.Join(home, ".studyctl", "user-id")
}

func defaultName() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "Anonymous"
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
