// Package types provides core domain identifiers and their validation.
// It defines DeviceSerial, ViewName, PackageName and ChannelName so that
// target addressing and export columns are checked once, at the edges.
package types

import (
	"errors"
	"fmt"
	"regexp"
)

// DeviceSerial identifies an adb device or emulator.
type DeviceSerial string

// ViewName identifies a SurfaceFlinger view (window) on the target.
type ViewName string

// PackageName identifies an Android application package.
type PackageName string

// ChannelName identifies one exported frame-telemetry column.
type ChannelName string

var (
	// ErrInvalidSerial is returned when a device serial is invalid.
	ErrInvalidSerial = errors.New("invalid device serial")
	// ErrInvalidView is returned when a view name is invalid.
	ErrInvalidView = errors.New("invalid view name")
	// ErrInvalidPackage is returned when a package name is invalid.
	ErrInvalidPackage = errors.New("invalid package name")
	// ErrInvalidChannel is returned when a channel name is invalid.
	ErrInvalidChannel = errors.New("invalid channel name")

	serialRegex  = regexp.MustCompile(`^[a-zA-Z0-9\-._:]+$`)
	packageRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*(\.[a-zA-Z][a-zA-Z0-9_]*)+$`)
	channelRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// NewDeviceSerial creates a DeviceSerial with validation. Emulator
// serials like "emulator-5554" and network serials like "10.0.0.2:5555"
// are accepted.
func NewDeviceSerial(serial string) (DeviceSerial, error) {
	if serial == "" {
		return "", fmt.Errorf("%w: cannot be empty", ErrInvalidSerial)
	}
	if len(serial) > 64 {
		return "", fmt.Errorf("%w: too long (%d characters)", ErrInvalidSerial, len(serial))
	}
	if !serialRegex.MatchString(serial) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSerial, serial)
	}
	return DeviceSerial(serial), nil
}

func (s DeviceSerial) String() string {
	return string(s)
}

// NewViewName creates a ViewName with validation. View names are free
// form (SurfaceFlinger reports activity windows with slashes and
// hashes) but must be printable and non-empty.
func NewViewName(name string) (ViewName, error) {
	if name == "" {
		return "", fmt.Errorf("%w: cannot be empty", ErrInvalidView)
	}
	if len(name) > 256 {
		return "", fmt.Errorf("%w: too long (%d characters)", ErrInvalidView, len(name))
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return "", fmt.Errorf("%w: contains control characters", ErrInvalidView)
		}
	}
	return ViewName(name), nil
}

func (v ViewName) String() string {
	return string(v)
}

// NewPackageName creates a PackageName with validation against the
// Android package grammar (dot-separated Java identifiers).
func NewPackageName(name string) (PackageName, error) {
	if name == "" {
		return "", fmt.Errorf("%w: cannot be empty", ErrInvalidPackage)
	}
	if len(name) > 256 {
		return "", fmt.Errorf("%w: too long (%d characters)", ErrInvalidPackage, len(name))
	}
	if !packageRegex.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPackage, name)
	}
	return PackageName(name), nil
}

func (p PackageName) String() string {
	return string(p)
}

// NewChannelName creates a ChannelName with validation.
func NewChannelName(name string) (ChannelName, error) {
	if name == "" {
		return "", fmt.Errorf("%w: cannot be empty", ErrInvalidChannel)
	}
	if !channelRegex.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, name)
	}
	return ChannelName(name), nil
}

func (c ChannelName) String() string {
	return string(c)
}
