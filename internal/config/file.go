package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	overlay     map[string]string
	overlayLock sync.RWMutex
)

// Load reads .env files into the process environment. Missing files are skipped;
// variables that are already set are left alone.
func Load(paths ...string) error {
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("godotenv.Load: %w", err)
	}
	return nil
}

// LoadFile reads a flat YAML map of VAR: value pairs, e.g.
//
//	API_BASE_URL: https://api.example.com
//	REQUEST_TIMEOUT: 10s
//
// The values are consulted by GetEnv after the process environment.
func LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	overlayLock.Lock()
	overlay = values
	overlayLock.Unlock()
	return nil
}

// ResetOverlay drops any values loaded by LoadFile.
func ResetOverlay() {
	overlayLock.Lock()
	overlay = nil
	overlayLock.Unlock()
}

func overlayValue(name string) (string, bool) {
	overlayLock.RLock()
	defer overlayLock.RUnlock()
	v, ok := overlay[name]
	return v, ok
}
