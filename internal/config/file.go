package config

// TargetConfig holds per-target overrides for probe traffic.
// This allows authenticated probing of endpoints that gate their chat
// interface behind a session.
type TargetConfig struct {
	// Cookie is an HTTP cookie to send when probing this target.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this
	// target.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .aiscout configuration file.
type File struct {
	// Seeds replaces the default seed target list when non-empty.
	Seeds []string `yaml:"seeds,omitempty"`

	// DiscoveryDomains replaces the default auto-discovery domain list
	// when non-empty.
	DiscoveryDomains []string `yaml:"discoveryDomains,omitempty"`

	// Targets maps target URLs to their per-target overrides.
	Targets map[string]TargetConfig `yaml:"targets,omitempty"`

	// Defaults contains overrides applied to every target unless a
	// target-specific entry overrides them.
	Defaults TargetConfig `yaml:"defaults,omitempty"`
}

// GetTargetConfig returns the configuration for a specific target URL,
// merging the target-specific entry over the defaults.
func (cf *File) GetTargetConfig(targetURL string) TargetConfig {
	result := cf.Defaults

	if tc, ok := cf.Targets[targetURL]; ok {
		if tc.Cookie != "" {
			result.Cookie = tc.Cookie
		}
		if len(tc.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range tc.Headers {
				result.Headers[k] = v
			}
		}
	}

	return result
}
