// Package model defines the raw records supplied by the data layer (companies,
// locations and assets) and the enumerations shared with the tree engine.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// SensorType is the kind of instrumentation attached to an asset.
// The zero value means the asset carries no sensor.
type SensorType string

const (
	SensorNone      SensorType = ""
	SensorEnergy    SensorType = "energy"
	SensorVibration SensorType = "vibration"
)

// IsValid reports whether s is a known sensor type (or absent).
func (s SensorType) IsValid() bool {
	switch s {
	case SensorNone, SensorEnergy, SensorVibration:
		return true
	}
	return false
}

// Status is the operating status reported for an asset.
// The zero value means no status was reported.
type Status string

const (
	StatusNone      Status = ""
	StatusOperating Status = "operating"
	StatusAlert     Status = "alert"
)

// IsValid reports whether s is a known status (or absent).
func (s Status) IsValid() bool {
	switch s {
	case StatusNone, StatusOperating, StatusAlert:
		return true
	}
	return false
}

// NodeType classifies a tree node.
type NodeType string

const (
	TypeLocation  NodeType = "location"
	TypeAsset     NodeType = "asset"
	TypeComponent NodeType = "component"
)

// Rank returns the display rank of a node type.
// Lower numbers sort first: location → asset → component
func (t NodeType) Rank() int {
	switch t {
	case TypeLocation:
		return 0
	case TypeAsset:
		return 1
	case TypeComponent:
		return 2
	default:
		return 3
	}
}

// Company owns one dataset of locations and assets.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Location is a physical place. ParentID is empty for top-level locations.
type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

// Asset is either a physical asset or, when SensorType is set, a
// sensor-bearing component. At most one of ParentID (another asset) and
// LocationID is the attachment point; with neither set the asset is a root.
type Asset struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	ParentID   string     `json:"parentId,omitempty"`
	LocationID string     `json:"locationId,omitempty"`
	SensorID   string     `json:"sensorId,omitempty"`
	SensorType SensorType `json:"sensorType,omitempty"`
	Status     Status     `json:"status,omitempty"`
	GatewayID  string     `json:"gatewayId,omitempty"`
}

// NodeType returns the tree classification of the asset: component when it
// carries a sensor, asset otherwise.
func (a Asset) NodeType() NodeType {
	if a.SensorType != SensorNone {
		return TypeComponent
	}
	return TypeAsset
}

var (
	ErrMissingID   = errors.New("missing id")
	ErrMissingName = errors.New("missing name")
)

// Validate checks the fields a record needs to take part in a tree.
func (l *Location) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return ErrMissingID
	}
	return nil
}

// Validate checks the fields a record needs to take part in a tree.
// Unknown enum values are rejected; call Normalize first to coerce them.
func (a *Asset) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrMissingID
	}
	if !a.SensorType.IsValid() {
		return fmt.Errorf("asset %s: unknown sensor type %q", a.ID, a.SensorType)
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("asset %s: unknown status %q", a.ID, a.Status)
	}
	return nil
}

// Validate checks the fields a company needs to be selectable.
func (c *Company) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrMissingName
	}
	return nil
}

// Normalize trims and lower-cases the enum fields. It returns the names of
// fields whose values were unknown and have been cleared.
func (a *Asset) Normalize() []string {
	var cleared []string

	a.SensorType = SensorType(strings.ToLower(strings.TrimSpace(string(a.SensorType))))
	if !a.SensorType.IsValid() {
		cleared = append(cleared, "sensorType="+string(a.SensorType))
		a.SensorType = SensorNone
	}

	a.Status = Status(strings.ToLower(strings.TrimSpace(string(a.Status))))
	if !a.Status.IsValid() {
		cleared = append(cleared, "status="+string(a.Status))
		a.Status = StatusNone
	}

	a.ParentID = strings.TrimSpace(a.ParentID)
	a.LocationID = strings.TrimSpace(a.LocationID)
	return cleared
}

// Normalize trims the reference fields.
func (l *Location) Normalize() {
	l.ParentID = strings.TrimSpace(l.ParentID)
}

// Dataset is everything the tree builder needs for one company.
type Dataset struct {
	Company   Company    `json:"company"`
	Locations []Location `json:"locations"`
	Assets    []Asset    `json:"assets"`
}

// Size returns the number of records in the dataset.
func (d Dataset) Size() int {
	return len(d.Locations) + len(d.Assets)
}
