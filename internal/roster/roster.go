// Package roster persists the provisioned bot credentials. The roster
// is written once by provisioning and is the only durable local state.
package roster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mbit/botsim/internal/types"
)

// Load reads the roster file. A missing file is a fatal setup error for
// the caller: provisioning has to run first.
func Load(path string) ([]types.Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	var creds []types.Credential
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}
	return creds, nil
}

// Save writes the roster file, replacing any previous one.
func Save(path string, creds []types.Credential) error {
	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write roster %s: %w", path, err)
	}
	return nil
}
