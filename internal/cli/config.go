package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds CLI configuration
type Config struct {
	ServerURL       string
	Token           string
	RefreshToken    string
	CredentialsFile string
	Output          string
}

// credentials is the on-disk shape of the stored token pair
type credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:       getEnvOrDefault("RPS_SERVER", "http://localhost:8080"),
		Token:           os.Getenv("RPS_TOKEN"),
		CredentialsFile: getEnvOrDefault("RPS_CREDENTIALS_FILE", defaultCredentialsFile()),
		Output:          "text",
	}
}

// LoadCredentials loads the stored token pair if no token was provided
func (c *Config) LoadCredentials() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.CredentialsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No credentials file is fine
		}
		return err
	}

	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return err
	}
	c.Token = creds.AccessToken
	c.RefreshToken = creds.RefreshToken
	return nil
}

// SaveCredentials writes the token pair to the credentials file
func (c *Config) SaveCredentials(accessToken, refreshToken string) error {
	c.Token = accessToken
	c.RefreshToken = refreshToken

	dir := filepath.Dir(c.CredentialsFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.Marshal(credentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(c.CredentialsFile, data, 0600)
}

// ClearCredentials removes the stored token pair
func (c *Config) ClearCredentials() error {
	c.Token = ""
	c.RefreshToken = ""

	if err := os.Remove(c.CredentialsFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rps/credentials.json"
	}
	return filepath.Join(home, ".rps", "credentials.json")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
