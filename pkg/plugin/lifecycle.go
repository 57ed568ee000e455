// Package plugin defines the plugin lifecycle interface.
package plugin

import "context"

// Plugin is the base interface for capturers, injectors and reporters.
// Init receives the free-form options block from configuration.
type Plugin interface {
	Name() string
	Init(cfg map[string]any) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
