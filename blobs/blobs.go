// Package blobs declares the data blobs the universe driver and the tests attach to entities. Their contents are
// deliberately thin: the store never interprets them.
package blobs

import (
	"pkg.world.dev/world-engine/blobstore/datablob"
	"pkg.world.dev/world-engine/blobstore/types"
)

type Position struct {
	datablob.Base
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (Position) Name() string { return "Position" }

type MassVolume struct {
	datablob.Base
	Mass   float64 `json:"mass"`
	Radius float64 `json:"radius"`
}

func (MassVolume) Name() string { return "MassVolume" }

// Orbit is a circular orbit around the system origin.
type Orbit struct {
	datablob.Base
	SemiMajorAxis float64 `json:"semiMajorAxis"`
	Period        float64 `json:"period"`
	MeanAnomaly   float64 `json:"meanAnomaly"`
}

func (Orbit) Name() string { return "Orbit" }

type Name struct {
	datablob.Base
	Default string            `json:"default"`
	Aliases map[string]string `json:"aliases,omitempty"`
}

func (Name) Name() string { return "Name" }

type Ship struct {
	datablob.Base
	Class string  `json:"class"`
	Fuel  float64 `json:"fuel"`
}

func (Ship) Name() string { return "Ship" }

// All returns fresh metadata for every data blob type in this package. Each call builds new metadata so the result
// can be registered with a new registry.
func All() []types.DataBlobMetadata {
	return []types.DataBlobMetadata{
		datablob.MustNewMetadata[*Position](),
		datablob.MustNewMetadata[*MassVolume](),
		datablob.MustNewMetadata[*Orbit](),
		datablob.MustNewMetadata[*Name](),
		datablob.MustNewMetadata[*Ship](),
	}
}
