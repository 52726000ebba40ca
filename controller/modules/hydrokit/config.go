package hydrokit

import "time"

// Config holds the acquisition and outer loop settings.
type Config struct {
	// Settle time between a read command and collecting its response
	ReadingDelay time.Duration `json:"reading_delay" mapstructure:"reading_delay" yaml:"reading_delay"`
	// Settle time after relaying compensation, before the concentration reads
	CompensationDelay time.Duration `json:"compensation_delay" mapstructure:"compensation_delay" yaml:"compensation_delay"`
	// Length of one full four phase cycle
	CyclePeriod time.Duration `json:"cycle_period" mapstructure:"cycle_period" yaml:"cycle_period"`

	// Outer loop sleep between iterations
	LoopInterval time.Duration `json:"loop_interval" mapstructure:"loop_interval" yaml:"loop_interval"`
}

// DefaultConfig matches the hydroponics kit timings.
var DefaultConfig = Config{
	ReadingDelay:      time.Second,
	CompensationDelay: 300 * time.Millisecond,
	CyclePeriod:       3 * time.Second,
	LoopInterval:      time.Second,
}

// Schedule builds the per phase delays from the config.
func (c Config) Schedule() (Schedule, error) {
	return NewSchedule(c.ReadingDelay, c.CompensationDelay, c.CyclePeriod)
}
