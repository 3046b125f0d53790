// Package dagview provides the public API for embedding the live event
// graph viewer. This is the stable API for external consumers.
package dagview

import (
	"github.com/tjfontaine/dagview/internal/core/domain"
	"github.com/tjfontaine/dagview/internal/runtime"
)

// Viewer serves live graph views of an event log.
// See internal/runtime.Viewer for full documentation.
type Viewer = runtime.Viewer

// Option is a functional option for configuring a Viewer.
type Option = runtime.Option

// Event types and values accepted by Viewer.Append.
type (
	NewEvent  = domain.NewEvent
	EventType = domain.EventType
	ParentRef = domain.ParentRef
	Snapshot  = domain.Snapshot
)

// New creates a new Viewer with the given options.
// Example:
//
//	v, err := dagview.New(
//	    dagview.WithFileConfig("config.yaml"),
//	    dagview.WithSQLite("./data/events.db"),
//	)
var New = runtime.New

// Configuration options
var (
	// Config sources
	WithConfig     = runtime.WithConfig
	WithFileConfig = runtime.WithFileConfig

	// Storage
	WithSQLite = runtime.WithSQLite
	WithStore  = runtime.WithStore

	// Advanced options
	WithLogger        = runtime.WithLogger
	WithLayouts       = runtime.WithLayouts
	WithEngineFactory = runtime.WithEngineFactory
)

// Parent references and event kinds.
var (
	Root   = domain.Root
	Parent = domain.Parent
)

const (
	EventCreate = domain.EventCreate
	EventUpdate = domain.EventUpdate
	EventDelete = domain.EventDelete
)
