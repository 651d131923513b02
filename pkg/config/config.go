package config

import "encoding/json"

const (
	DefaultPort      = 22
	DefaultTimeout   = 30 // seconds
	DefaultChunkSize = 1024
	DefaultEncoding  = "utf-8"
)

// Config is the root deployment configuration, read from deploy.json.
type Config struct {
	User       string  `json:"user"`
	Host       string  `json:"host"`
	Port       int     `json:"port,omitempty"`        // default: 22
	Password   *string `json:"password,omitempty"`    // prompted when absent
	KnownHosts string  `json:"known-hosts,omitempty"` // optional known_hosts file
	Timeout    int     `json:"timeout,omitempty"`     // dial timeout in seconds, default: 30
	ChunkSize  int     `json:"chunk-size,omitempty"`  // remote read size, default: 1024
	Encoding   string  `json:"encoding,omitempty"`    // remote output encoding, default: utf-8

	PreActions  []string          `json:"pre-actions,omitempty"`
	Actions     []json.RawMessage `json:"actions,omitempty"` // translated by package action
	PostActions []string          `json:"post-actions,omitempty"`
}

// GetPort returns the SSH port (defaults to 22)
func (c *Config) GetPort() int {
	if c.Port > 0 {
		return c.Port
	}
	return DefaultPort
}

// GetTimeout returns the dial timeout in seconds (defaults to 30)
func (c *Config) GetTimeout() int {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// GetChunkSize returns the remote output read size (defaults to 1024)
func (c *Config) GetChunkSize() int {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return DefaultChunkSize
}

// GetEncoding returns the remote output encoding name (defaults to utf-8)
func (c *Config) GetEncoding() string {
	if c.Encoding != "" {
		return c.Encoding
	}
	return DefaultEncoding
}

// HasPassword reports whether the password key was present in the file.
// An explicit empty string counts as present.
func (c *Config) HasPassword() bool {
	return c.Password != nil
}
