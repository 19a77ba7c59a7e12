package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-horses/internal/database"
	"github.com/pixil98/go-horses/internal/driver"
	"github.com/pixil98/go-horses/internal/listeners"
	"github.com/pixil98/go-horses/internal/messaging"
	"github.com/pixil98/go-horses/internal/session"
	"github.com/pixil98/go-horses/internal/summon"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Everything talks to the world engine over the embedded bus
	bus, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	// Storage
	db := cfg.Storage.BuildDatabase()
	registry := cfg.Storage.BuildRegistry(db, messaging.NewIdentityClient(bus), bus.Ready())

	// Setup the driver. The registry's startup work, autosave and the final
	// flush all run on its goroutine.
	opts := []driver.DriverOpt{driver.WithLifecycle(registry)}
	if d := cfg.tickLength(); d > 0 {
		opts = append(opts, driver.WithTickLength(d))
	}
	drv := driver.NewDriver([]driver.Manager{
		database.NewAutosaver(registry, cfg.Storage.autosaveInterval(), time.Now),
	}, opts...)

	sessions := session.NewDirectory()
	spawner := messaging.NewRemoteSpawner(bus)
	notifier := messaging.NewSessionNotifier(bus, cfg.MessageWidth)
	policies := cfg.Summon.BuildPolicies(sessions)

	messages, err := cfg.Summon.BuildMessages()
	if err != nil {
		return nil, fmt.Errorf("building summon messages: %w", err)
	}

	scheduler := summon.NewScheduler(registry, spawner, sessions, drv,
		summon.WithClock(drv),
		summon.WithPolicies(policies),
		summon.WithRegions(cfg.Summon.BuildRegions()),
		summon.WithNotifier(notifier),
		summon.WithMessages(messages),
	)

	// Listeners react to session movement
	stableListener := listeners.NewStableListener(registry, policies, notifier)
	stableListener.Register(sessions)
	listeners.NewSummonListener(scheduler).Register(sessions)

	gateway := messaging.NewGateway(bus, drv, sessions, scheduler, stableListener)

	// Create a worker list
	return service.WorkerList{
		"nats":    bus,
		"driver":  drv,
		"spawner": spawner,
		"gateway": gateway,
	}, nil
}
