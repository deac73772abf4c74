package wizfi

import "errors"

var (
	// ErrNoDialer is returned when a Session is constructed without a Dialer
	// or a Transport.
	//
	// This indicates a configuration error. One of the two is required in
	// order to reach the module.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when the Dialer hands back no Transport
	// or an operation is attempted on a Session that was not created via New.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Session that has
	// already been closed.
	ErrAlreadyClosed = errors.New("session already closed")

	// ErrLoopRunning is returned when Loop is called while another Loop is
	// still driving the same Session.
	ErrLoopRunning = errors.New("loop already running")

	// ErrGeneric is returned when the module answers a command with ERROR,
	// FAIL or busy, or when the arguments of a command are rejected before
	// anything is sent.
	ErrGeneric = errors.New("command failed")

	// ErrDeviceNotConnected is returned by New when the module does not answer
	// the reset command at the configured baud rate nor at any of the probed
	// ones.
	//
	// This is the only fatal condition of the driver. Check wiring, power and
	// the reset line.
	ErrDeviceNotConnected = errors.New("device not connected")

	// ErrTimeout is returned by blocking operations when the command deadline
	// elapsed before the module answered.
	ErrTimeout = errors.New("command timeout")

	// ErrInvalidLink is returned when a connection index is outside the range
	// of slots the module supports.
	ErrInvalidLink = errors.New("invalid link")

	// ErrNoHeap is returned when no free connection slot is left for a new
	// client connection.
	ErrNoHeap = errors.New("no free connection slot")

	// ErrWifiNotConnected is returned by operations that need the station to
	// be associated with an access point, such as ping, firmware update and
	// opening client connections.
	ErrWifiNotConnected = errors.New("wifi not connected")

	// ErrBusy is returned when a command is issued while another one is still
	// in flight.
	//
	// The session never queues commands. Callers retry after the running
	// command has completed, typically after WaitReady returns.
	ErrBusy = errors.New("command in progress")
)
