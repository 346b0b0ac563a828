package tetherarm

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/arobi/tetherarm/internal/configstore"
	"github.com/arobi/tetherarm/internal/protocol"
	"github.com/arobi/tetherarm/internal/trajectory"
	"github.com/arobi/tetherarm/internal/transport"
)

// ReceiveTimeout is the per-datagram receive deadline.
const ReceiveTimeout = time.Millisecond

// MaxRetransmissionAttempts bounds how many send/receive attempts one
// transaction makes, the first one included, before every timed-out
// receive is treated as fatal.
const MaxRetransmissionAttempts = 100

// DefaultGoalTime is the default trajectory duration for setpoint calls
// that do not specify one.
const DefaultGoalTime = 2.0 * time.Second

// Config configures a new Driver. ServerIP and Model are required.
type Config struct {
	// Model identifies the arm model/role sent during handshake.
	Model ModelID
	// EndEffector is pushed to the controller at configure time.
	EndEffector configstore.EndEffector
	// ServerIP is the controller's address on the local network.
	ServerIP string
	// ClearError, when true, resets a latched controller error instead
	// of failing configure with it.
	ClearError bool
	// Logger receives structured diagnostics. A default stderr JSON
	// logger is used when nil.
	Logger *logrus.Entry
}

// ModelID re-exports protocol.ModelID so callers never import the
// internal protocol package directly.
type ModelID = protocol.ModelID

const (
	ModelWXAIV0Leader   = protocol.ModelWXAIV0Leader
	ModelWXAIV0Follower = protocol.ModelWXAIV0Follower
)

// Driver is a host-side connection to one tethered arm controller. The
// zero value is not usable; construct with New. A Driver is safe for
// exactly one caller goroutine to drive at a time.
type Driver struct {
	log *logrus.Entry

	stateMu sync.Mutex
	state   lifecycleState

	// Two-mutex preemption discipline: acquire preempt then data; the
	// daemon releases preempt early and holds data for the duration of
	// its transaction, guaranteeing a waiting caller runs in the very
	// next slot.
	preempt sync.Mutex
	data    sync.Mutex

	conn      *transport.UDP
	numJoints int
	cfg       *configstore.Mirror
	traj      *trajectory.Engine

	jointInputs  []protocol.JointInputWire
	jointOutputs []JointOutput

	firmwareVersion uint32

	daemonStop chan struct{}
	daemonDone chan struct{}

	// lastFatal is set by whichever side (daemon or main) first hits an
	// unrecoverable error, and re-raised by every subsequent non-cleanup
	// call. Guarded by fatalMu, never by data: transactLocked's callers
	// hold data while a failed transaction latches, so reusing data here
	// would deadlock.
	fatalMu   sync.Mutex
	lastFatal *DriverError

	metrics *driverMetrics
}

// New constructs an unconfigured Driver.
func New() *Driver {
	return &Driver{state: stateUnconfigured, metrics: newDriverMetrics()}
}

// Configure binds the UDP socket, handshakes with the controller, reads
// its error_state (resetting it when ClearError is set, failing with it
// otherwise), pushes the end effector, and starts the background daemon.
// No other configuration field is read back: the mirror starts from
// configstore.NewMirror's defaults, with every joint's cached mode idle.
// It is the only operation legal before Configure has succeeded.
func (d *Driver) Configure(cfg Config) error {
	d.stateMu.Lock()
	if d.state != stateUnconfigured {
		d.stateMu.Unlock()
		return fmt.Errorf("%w: Configure called in state %s", ErrUsage, d.state)
	}
	d.state = stateConfiguring
	d.stateMu.Unlock()

	if cfg.ServerIP == "" {
		return fmt.Errorf("%w: ServerIP is required", ErrUsage)
	}
	d.log = cfg.Logger
	if d.log == nil {
		d.log = defaultLogger()
	}

	conn, err := transport.Dial(cfg.ServerIP)
	if err != nil {
		return d.latch(newDriverError(ErrorUDPInitFailed, err.Error()))
	}
	d.conn = conn

	if err := d.handshake(cfg.Model, NumJoints); err != nil {
		d.conn.Close()
		return err
	}

	d.numJoints = NumJoints
	d.cfg = configstore.NewMirror(NumJoints)
	d.traj = trajectory.NewEngine(NumJoints)
	d.jointInputs = make([]protocol.JointInputWire, NumJoints)
	d.jointOutputs = make([]JointOutput, NumJoints)

	errState, _, err := d.getErrorStateLocked()
	if err != nil {
		d.conn.Close()
		return err
	}
	if errState != ErrorNone {
		if !cfg.ClearError {
			msg, _ := d.getLogLocked()
			d.conn.Close()
			return newDriverError(errState, msg)
		}
		if err := d.resetErrorStateLocked(); err != nil {
			d.conn.Close()
			return err
		}
	}

	d.cfg.EndEffector = cfg.EndEffector
	if err := d.pushEndEffectorLocked(); err != nil {
		d.conn.Close()
		return err
	}

	d.daemonStop = make(chan struct{})
	d.daemonDone = make(chan struct{})
	go d.runDaemon()

	d.stateMu.Lock()
	d.state = stateRunning
	d.stateMu.Unlock()

	return nil
}

// Cleanup stops the daemon, closes the socket, and transitions to
// cleaned. It is safe to call from a defer alongside an earlier
// explicit Cleanup: every other operation rejects calls made after
// cleanup as a usage error, but Cleanup itself simply no-ops if
// already cleaned.
func (d *Driver) Cleanup() error {
	d.stateMu.Lock()
	switch d.state {
	case stateCleaned:
		d.stateMu.Unlock()
		return nil
	case stateUnconfigured, stateConfiguring:
		d.state = stateCleaned
		d.stateMu.Unlock()
		return nil
	}
	d.state = stateCleaning
	d.stateMu.Unlock()

	close(d.daemonStop)

	// Wait out the in-flight daemon cycle before touching the socket:
	// the daemon checks daemonStop before every slot, so daemonDone
	// closes only after its last slot has released data.
	<-d.daemonDone

	err := d.conn.Close()

	d.stateMu.Lock()
	d.state = stateCleaned
	d.stateMu.Unlock()

	return err
}

// checkReady returns the current latched error (if any) or a lifecycle
// usage error, and is called at the top of every public method except
// Configure, Cleanup, ResetErrorState, GetErrorInformation and
// MetricsHandler.
func (d *Driver) checkReady() error {
	d.stateMu.Lock()
	state := d.state
	d.stateMu.Unlock()

	switch state {
	case stateUnconfigured, stateConfiguring:
		return ErrNotConfigured
	case stateCleaning, stateCleaned:
		return ErrCleaned
	}

	d.fatalMu.Lock()
	fatal := d.lastFatal
	d.fatalMu.Unlock()
	if fatal != nil {
		return fatal
	}
	return nil
}

// latch stores err as the latched fatal error (if one isn't already
// latched) and returns it. Callers may hold preempt and/or data at the
// time of the call (this is the common case, since it is invoked from
// deep inside transactLocked); latch never touches those two locks.
func (d *Driver) latch(err *DriverError) *DriverError {
	d.fatalMu.Lock()
	if d.lastFatal == nil {
		d.lastFatal = err
		d.metrics.observeError(err.Kind)
		if d.log != nil {
			d.log.WithField("kind", err.Kind.String()).Error(err.Message)
		}
	}
	latched := d.lastFatal
	d.fatalMu.Unlock()
	return latched
}

// GetNumJoints returns the fixed joint count, valid any time after
// Configure succeeds.
func (d *Driver) GetNumJoints() (int, error) {
	if err := d.checkReady(); err != nil {
		return 0, err
	}
	return d.numJoints, nil
}

// FirmwareVersion returns the controller firmware version reported at
// handshake time.
func (d *Driver) FirmwareVersion() (uint32, error) {
	if err := d.checkReady(); err != nil {
		return 0, err
	}
	return d.firmwareVersion, nil
}

// GetErrorInformation returns the latched error kind name and detailed
// log message, or ("none", "") if nothing is latched.
func (d *Driver) GetErrorInformation() (string, string) {
	d.fatalMu.Lock()
	defer d.fatalMu.Unlock()
	if d.lastFatal == nil {
		return ErrorNone.String(), ""
	}
	return d.lastFatal.Kind.String(), d.lastFatal.Message
}

// newTransactionID is used to correlate one UDP request/response
// exchange (and its retries) across log lines.
func newTransactionID() string {
	return uuid.NewString()
}
