package summon

import (
	"log/slog"
	"maps"
	"time"

	"github.com/pixil98/go-horses/internal/display"
	"github.com/pixil98/go-horses/internal/horses"
)

// Status is the outcome of a summon operation.
type Status int

const (
	StatusSummoned Status = iota
	StatusInProgress
	StatusAlreadyInProgress
	StatusNoLastActive
	StatusNoSuchHorse
	StatusPermissionDenied
	StatusDeathCooldown
	StatusRegionDenied
	StatusSpawnFailed
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusSummoned:          "summoned",
	StatusInProgress:        "in_progress",
	StatusAlreadyInProgress: "already_in_progress",
	StatusNoLastActive:      "no_last_active",
	StatusNoSuchHorse:       "no_such_horse",
	StatusPermissionDenied:  "permission_denied",
	StatusDeathCooldown:     "death_cooldown",
	StatusRegionDenied:      "region_denied",
	StatusSpawnFailed:       "spawn_failed",
	StatusCancelled:         "cancelled",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Rejected reports whether the status turned a request away.
func (s Status) Rejected() bool {
	switch s {
	case StatusSummoned, StatusInProgress:
		return false
	}
	return true
}

// Result describes the outcome of a request or a deferred completion.
type Result struct {
	Status Status
	Horse  *horses.Horse
	// Name is the horse's display name, or the requested name when no horse
	// was found.
	Name      string
	Delay     time.Duration
	Remaining time.Duration
}

// DefaultMessages are the message templates keyed by status name.
var DefaultMessages = map[string]string{
	"summoned":            "{{ .Name }} has been summoned",
	"in_progress":         "Summoning {{ .Name }} in {{ .Delay }} seconds",
	"already_in_progress": "You are already summoning a horse",
	"no_last_active":      "You have no horse to summon, name the horse you want",
	"no_such_horse":       "You have no horse named {{ .Name }}",
	"permission_denied":   "You are not allowed to summon horses",
	"death_cooldown":      "{{ .Name }} died recently, wait {{ .Remaining }} more seconds",
	"region_denied":       "You can not summon a horse here",
	"spawn_failed":        "{{ .Name }} could not be summoned",
	"cancelled":           "Summoning cancelled because you moved",
}

// Messages parses the default templates with overrides applied on top.
func Messages(overrides map[string]string) (*display.Templates, error) {
	sources := maps.Clone(DefaultMessages)
	maps.Copy(sources, overrides)
	return display.NewTemplates(sources)
}

type messageData struct {
	Name      string
	Delay     int64
	Remaining int64
}

func render(tmpls *display.Templates, r Result) string {
	msg, err := tmpls.Render(r.Status.String(), messageData{
		Name:      r.Name,
		Delay:     int64(r.Delay / time.Second),
		Remaining: int64(r.Remaining / time.Second),
	})
	if err != nil {
		slog.Warn("failed to render summon message", "status", r.Status, "error", err)
		return r.Status.String()
	}
	return msg
}
