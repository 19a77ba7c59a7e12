package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

type Config struct {
	TickInterval string        `json:"tick_interval"`
	MessageWidth int           `json:"message_width"`
	Storage      StorageConfig `json:"storage"`
	Summon       SummonConfig  `json:"summon"`
	Nats         NatsConfig    `json:"nats"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.TickInterval != "" {
		d, err := time.ParseDuration(c.TickInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing tick_interval: %w", err))
		} else if d < 50*time.Millisecond {
			el.Add(fmt.Errorf("tick_interval must be at least 50ms"))
		}
	}

	if c.MessageWidth < 0 {
		el.Add(fmt.Errorf("message_width must not be negative"))
	}

	el.Add(c.Storage.validate())
	el.Add(c.Summon.validate())
	el.Add(c.Nats.validate())

	return el.Err()
}

func (c *Config) tickLength() time.Duration {
	return parseDuration(c.TickInterval)
}
