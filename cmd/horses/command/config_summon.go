package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-horses/internal/display"
	"github.com/pixil98/go-horses/internal/summon"
)

type PolicyConfig struct {
	Permission        string `json:"permission"`
	AllowSummon       bool   `json:"allow_summon"`
	SummonDelay       string `json:"summon_delay"`
	DeathCooldown     string `json:"death_cooldown"`
	DismissOnTeleport bool   `json:"dismiss_on_teleport"`
}

func (c *PolicyConfig) validate() error {
	el := errors.NewErrorList()

	for name, v := range map[string]string{
		"summon_delay":   c.SummonDelay,
		"death_cooldown": c.DeathCooldown,
	} {
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			el.Add(fmt.Errorf("parsing %s: %w", name, err))
		} else if d < 0 {
			el.Add(fmt.Errorf("%s must not be negative", name))
		}
	}

	return el.Err()
}

func (c *PolicyConfig) policy() summon.Policy {
	return summon.Policy{
		AllowSummon:       c.AllowSummon,
		SummonDelay:       parseDuration(c.SummonDelay),
		DeathCooldown:     parseDuration(c.DeathCooldown),
		DismissOnTeleport: c.DismissOnTeleport,
	}
}

type SummonConfig struct {
	Default       PolicyConfig      `json:"default"`
	Policies      []PolicyConfig    `json:"policies"`
	AllowedWorlds []string          `json:"allowed_worlds"`
	Messages      map[string]string `json:"messages"`
}

func (c *SummonConfig) validate() error {
	el := errors.NewErrorList()

	if err := c.Default.validate(); err != nil {
		el.Add(fmt.Errorf("summon: default: %w", err))
	}

	for i, p := range c.Policies {
		if p.Permission == "" {
			el.Add(fmt.Errorf("summon: policy %d: permission is required", i))
		}
		if err := p.validate(); err != nil {
			el.Add(fmt.Errorf("summon: policy %d: %w", i, err))
		}
	}

	for name := range c.Messages {
		if _, ok := summon.DefaultMessages[name]; !ok {
			el.Add(fmt.Errorf("summon: unknown message %q", name))
		}
	}
	if _, err := summon.Messages(c.Messages); err != nil {
		el.Add(fmt.Errorf("summon: %w", err))
	}

	return el.Err()
}

// BuildPolicies resolves policies from the permissions perms reports.
func (c *SummonConfig) BuildPolicies(perms summon.PermissionSource) *summon.PermissionPolicies {
	rules := make([]summon.PermissionRule, len(c.Policies))
	for i, p := range c.Policies {
		rules[i] = summon.PermissionRule{
			Permission: p.Permission,
			Policy:     p.policy(),
		}
	}
	return summon.NewPermissionPolicies(perms, c.Default.policy(), rules...)
}

func (c *SummonConfig) BuildRegions() *summon.WorldAllowList {
	return summon.NewWorldAllowList(c.AllowedWorlds...)
}

func (c *SummonConfig) BuildMessages() (*display.Templates, error) {
	return summon.Messages(c.Messages)
}

// parseDuration returns 0 for empty or invalid values. Values are checked by
// Validate before anything is built.
func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
