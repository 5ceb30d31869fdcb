package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PolicyFile overrides the attendance settings from a YAML document.
type PolicyFile struct {
	GracePeriodMinutes  *int   `yaml:"gracePeriodMinutes"`
	EarlyClockInMinutes *int   `yaml:"earlyClockInMinutes"`
	TimeZone            string `yaml:"timezone"`
}

// ApplyPolicyFile merges PolicyFile (when set) into c. Unset keys keep the env values.
func (c *Config) ApplyPolicyFile() error {
	if strings.TrimSpace(c.PolicyFile) == "" {
		return nil
	}
	data, err := os.ReadFile(c.PolicyFile)
	if err != nil {
		return fmt.Errorf("read attendance policy: %w", err)
	}
	return c.applyPolicy(data)
}

func (c *Config) applyPolicy(data []byte) error {
	var policy PolicyFile
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return fmt.Errorf("parse attendance policy: %w", err)
	}
	if policy.GracePeriodMinutes != nil {
		if *policy.GracePeriodMinutes < 0 {
			return fmt.Errorf("gracePeriodMinutes must not be negative")
		}
		c.GracePeriod = time.Duration(*policy.GracePeriodMinutes) * time.Minute
	}
	if policy.EarlyClockInMinutes != nil {
		if *policy.EarlyClockInMinutes < 0 {
			return fmt.Errorf("earlyClockInMinutes must not be negative")
		}
		c.EarlyClockIn = time.Duration(*policy.EarlyClockInMinutes) * time.Minute
	}
	if tz := strings.TrimSpace(policy.TimeZone); tz != "" {
		c.TimeZone = tz
	}
	return nil
}
