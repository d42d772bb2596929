package liveness

import "errors"

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid liveness config")

// ErrNoProvider is returned when a Session is built without a landmark provider.
var ErrNoProvider = errors.New("landmark provider is required")

// ErrNoStreamProbe is returned when a Session is built without a stream probe.
var ErrNoStreamProbe = errors.New("stream probe is required")

// ErrOutOfOrder is returned when a frame timestamp does not advance.
var ErrOutOfOrder = errors.New("frame timestamp out of order")
