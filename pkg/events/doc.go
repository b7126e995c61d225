/*
Package events provides an in-memory event broker for module lifecycle
notifications.

The events package implements a lightweight pub/sub bus for broadcasting
registry events (install, uninstall, upgrade, path change, route reload) to
interested subscribers: the route snapshot rebuild hook, audit logging, and
anything else wired in at bootstrap.

# Delivery Semantics

Publish is non-blocking and fire-and-forget:

	Publisher → Event Channel (buffer: 100)
	     ↓
	Broadcast Loop
	     ↓
	Subscriber Channels (buffer: 50 each, dropped when full)

A subscriber that stops draining its channel loses events; it can never
block or fail the registry operation that published them. The path-update
transaction in particular must commit regardless of observer health.

# Event Types

  - module.installed
  - module.uninstalled
  - module.upgraded
  - module.path_changed (metadata: module_id, old_path, new_path)
  - routes.reloaded

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for event := range sub {
			fmt.Printf("[%s] %s\n", event.Type, event.Message)
		}
	}()

	broker.Publish(events.NewEvent(events.EventModuleInstalled, "product installed", nil))
*/
package events
