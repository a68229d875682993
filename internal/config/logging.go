package config

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" validate:"oneof=debug info warn error"`
	Format     string          `yaml:"format" validate:"oneof=json console"`
	DebugMode  bool            `yaml:"debug_mode"`           // enables the category loggers
	Categories map[string]bool `yaml:"categories,omitempty"` // per-category switches, default on
}

// IsCategoryEnabled reports whether a category logs. Outside debug mode no
// category does; in debug mode a category logs unless it is switched off.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}
