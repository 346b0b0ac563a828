package tetherarm

import (
	"fmt"
	"net"

	"github.com/arobi/tetherarm/internal/configstore"
	"github.com/arobi/tetherarm/internal/protocol"
)

// setConfigLocked writes one configuration field to the controller. It
// does not touch the local mirror: callers update the mirror only after
// it succeeds, which makes every setter write-through. The caller must
// hold data.
func (d *Driver) setConfigLocked(addr protocol.ConfigurationAddress, payload []byte) error {
	req, err := protocol.EncodeSetConfiguration(addr, payload)
	if err != nil {
		return d.latch(newDriverError(ErrorInvalidConfigurationAddress, err.Error()))
	}
	// req already carries the address byte and is sent as is;
	// transactLocked prepends only the indicator.
	_, txErr := d.transactLocked(protocol.SetConfiguration, req, ErrorInvalidConfigurationAddress)
	return txErr
}

// getConfigLocked reads one configuration field from the controller.
// The caller must hold data.
func (d *Driver) getConfigLocked(addr protocol.ConfigurationAddress) ([]byte, error) {
	req := protocol.EncodeGetConfiguration(addr)
	rest, err := d.transactLocked(protocol.GetConfiguration, req, ErrorInvalidConfigurationAddress)
	if err != nil {
		return nil, err
	}
	resp, err := protocol.DecodeGetConfigurationResponse(rest)
	if err != nil {
		return nil, d.latch(newDriverError(ErrorInvalidRobotCommandSize, err.Error()))
	}
	return resp.Payload[:], nil
}

// getErrorStateLocked reads error_state from the controller, both at
// configure time and when confirming a reset. The mirror has no
// error_state field, so nothing is stored locally.
func (d *Driver) getErrorStateLocked() (ErrorState, []byte, error) {
	payload, err := d.getConfigLocked(protocol.AddrErrorState)
	if err != nil {
		return 0, nil, err
	}
	return ErrorState(payload[0]), payload, nil
}

// resetErrorStateLocked writes error_state=none then re-reads to
// confirm the controller actually cleared it.
func (d *Driver) resetErrorStateLocked() error {
	if err := d.setConfigLocked(protocol.AddrErrorState, []byte{byte(ErrorNone)}); err != nil {
		return err
	}
	state, _, err := d.getErrorStateLocked()
	if err != nil {
		return err
	}
	if state != ErrorNone {
		return d.latch(newDriverError(state, "controller did not clear error_state"))
	}
	d.fatalMu.Lock()
	d.lastFatal = nil
	d.fatalMu.Unlock()
	return nil
}

// pushEndEffectorLocked writes the configured EndEffector to the
// controller at configure time.
func (d *Driver) pushEndEffectorLocked() error {
	ee := d.cfg.EndEffector
	flat := ee.Flatten()
	payload := encodeEndEffector(flat[0], flat[1], flat[2], flat[3], flat[4], flat[5], flat[6])
	return d.setConfigLocked(protocol.AddrEndEffector, payload)
}

// ResetErrorState clears a latched controller error. It is one of the
// few operations that may run while an error is latched, since its
// purpose is to clear one.
func (d *Driver) ResetErrorState() error {
	d.stateMu.Lock()
	state := d.state
	d.stateMu.Unlock()
	if state != stateRunning {
		return fmt.Errorf("%w: ResetErrorState called in state %s", ErrUsage, state)
	}
	return d.withExclusiveIO(d.resetErrorStateLocked)
}

// --- factory_reset_flag ---

// SetFactoryResetFlag, if set, causes the controller to discard
// non-volatile configuration at its next boot.
func (d *Driver) SetFactoryResetFlag(v bool) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.withExclusiveIO(func() error {
		if err := d.setConfigLocked(protocol.AddrFactoryResetFlag, encodeBool(v)); err != nil {
			return err
		}
		d.cfg.FactoryResetFlag = v
		return nil
	})
}

// GetFactoryResetFlag always reads the controller and refreshes the
// mirror.
func (d *Driver) GetFactoryResetFlag() (bool, error) {
	if err := d.checkReady(); err != nil {
		return false, err
	}
	var v bool
	err := d.withExclusiveIO(func() error {
		payload, err := d.getConfigLocked(protocol.AddrFactoryResetFlag)
		if err != nil {
			return err
		}
		v = decodeBool(payload)
		d.cfg.FactoryResetFlag = v
		return nil
	})
	return v, err
}

// --- ip_method ---

func (d *Driver) SetIPMethod(m configstore.IPMethod) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.withExclusiveIO(func() error {
		if err := d.setConfigLocked(protocol.AddrIPMethod, []byte{byte(m)}); err != nil {
			return err
		}
		d.cfg.IPMethod = m
		return nil
	})
}

func (d *Driver) GetIPMethod() (configstore.IPMethod, error) {
	if err := d.checkReady(); err != nil {
		return 0, err
	}
	var m configstore.IPMethod
	err := d.withExclusiveIO(func() error {
		payload, err := d.getConfigLocked(protocol.AddrIPMethod)
		if err != nil {
			return err
		}
		m = configstore.IPMethod(payload[0])
		d.cfg.IPMethod = m
		return nil
	})
	return m, err
}

// --- dotted-quad IP fields: manual_ip, dns, gateway, subnet ---

func (d *Driver) setIPField(addr protocol.ConfigurationAddress, s string, store func(net.IP)) error {
	ip, err := configstore.ValidateIPv4("ip", s)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUsage, err)
	}
	return d.withExclusiveIO(func() error {
		if err := d.setConfigLocked(addr, encodeIPv4(ip)); err != nil {
			return err
		}
		store(ip)
		return nil
	})
}

func (d *Driver) getIPField(addr protocol.ConfigurationAddress, store func(net.IP)) (net.IP, error) {
	var ip net.IP
	err := d.withExclusiveIO(func() error {
		payload, err := d.getConfigLocked(addr)
		if err != nil {
			return err
		}
		ip = decodeIPv4(payload)
		store(ip)
		return nil
	})
	return ip, err
}

func (d *Driver) SetManualIP(s string) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.setIPField(protocol.AddrManualIP, s, func(ip net.IP) { d.cfg.ManualIP = ip })
}

func (d *Driver) GetManualIP() (net.IP, error) {
	if err := d.checkReady(); err != nil {
		return nil, err
	}
	return d.getIPField(protocol.AddrManualIP, func(ip net.IP) { d.cfg.ManualIP = ip })
}

func (d *Driver) SetDNS(s string) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.setIPField(protocol.AddrDNS, s, func(ip net.IP) { d.cfg.DNS = ip })
}

func (d *Driver) GetDNS() (net.IP, error) {
	if err := d.checkReady(); err != nil {
		return nil, err
	}
	return d.getIPField(protocol.AddrDNS, func(ip net.IP) { d.cfg.DNS = ip })
}

func (d *Driver) SetGateway(s string) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.setIPField(protocol.AddrGateway, s, func(ip net.IP) { d.cfg.Gateway = ip })
}

func (d *Driver) GetGateway() (net.IP, error) {
	if err := d.checkReady(); err != nil {
		return nil, err
	}
	return d.getIPField(protocol.AddrGateway, func(ip net.IP) { d.cfg.Gateway = ip })
}

func (d *Driver) SetSubnet(s string) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.setIPField(protocol.AddrSubnet, s, func(ip net.IP) { d.cfg.Subnet = ip })
}

func (d *Driver) GetSubnet() (net.IP, error) {
	if err := d.checkReady(); err != nil {
		return nil, err
	}
	return d.getIPField(protocol.AddrSubnet, func(ip net.IP) { d.cfg.Subnet = ip })
}

// --- effort_correction ---

func (d *Driver) SetEffortCorrection(values []float64) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	if err := d.cfg.ValidateEffortCorrection(values); err != nil {
		return fmt.Errorf("%w: %s", ErrUsage, err)
	}
	return d.withExclusiveIO(func() error {
		if err := d.setConfigLocked(protocol.AddrEffortCorrection, encodeFloat32Slice(values)); err != nil {
			return err
		}
		copy(d.cfg.EffortCorrection, values)
		return nil
	})
}

func (d *Driver) GetEffortCorrection() ([]float64, error) {
	if err := d.checkReady(); err != nil {
		return nil, err
	}
	var out []float64
	err := d.withExclusiveIO(func() error {
		payload, err := d.getConfigLocked(protocol.AddrEffortCorrection)
		if err != nil {
			return err
		}
		out = decodeFloat32Slice(payload, d.numJoints)
		copy(d.cfg.EffortCorrection, out)
		return nil
	})
	return out, err
}

// --- gripper_force_limit_scaling_factor / t_max_factor ---

func (d *Driver) setUnitIntervalField(name string, addr protocol.ConfigurationAddress, v float64, store func(float64)) error {
	if err := configstore.ValidateUnitInterval(name, v); err != nil {
		return fmt.Errorf("%w: %s", ErrUsage, err)
	}
	return d.withExclusiveIO(func() error {
		if err := d.setConfigLocked(addr, encodeFloat32(v)); err != nil {
			return err
		}
		store(v)
		return nil
	})
}

func (d *Driver) getUnitIntervalField(addr protocol.ConfigurationAddress, store func(float64)) (float64, error) {
	var v float64
	err := d.withExclusiveIO(func() error {
		payload, err := d.getConfigLocked(addr)
		if err != nil {
			return err
		}
		v = decodeFloat32(payload)
		store(v)
		return nil
	})
	return v, err
}

func (d *Driver) SetGripperForceLimitScalingFactor(v float64) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.setUnitIntervalField("gripper_force_limit_scaling_factor", protocol.AddrGripperForceLimitScalingFactor, v,
		func(v float64) { d.cfg.GripperForceLimitScalingFactor = v })
}

func (d *Driver) GetGripperForceLimitScalingFactor() (float64, error) {
	if err := d.checkReady(); err != nil {
		return 0, err
	}
	return d.getUnitIntervalField(protocol.AddrGripperForceLimitScalingFactor,
		func(v float64) { d.cfg.GripperForceLimitScalingFactor = v })
}

func (d *Driver) SetTrajectoryTimeMaxFactor(v float64) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.setUnitIntervalField("t_max_factor", protocol.AddrTrajectoryTimeMaxFactor, v,
		func(v float64) { d.cfg.TrajectoryTimeMaxFactor = v })
}

func (d *Driver) GetTrajectoryTimeMaxFactor() (float64, error) {
	if err := d.checkReady(); err != nil {
		return 0, err
	}
	return d.getUnitIntervalField(protocol.AddrTrajectoryTimeMaxFactor,
		func(v float64) { d.cfg.TrajectoryTimeMaxFactor = v })
}

// --- end_effector ---

func (d *Driver) SetEndEffector(ee configstore.EndEffector) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	flat := ee.Flatten()
	payload := encodeEndEffector(flat[0], flat[1], flat[2], flat[3], flat[4], flat[5], flat[6])
	return d.withExclusiveIO(func() error {
		if err := d.setConfigLocked(protocol.AddrEndEffector, payload); err != nil {
			return err
		}
		d.cfg.EndEffector = ee
		return nil
	})
}

func (d *Driver) GetEndEffector() (configstore.EndEffector, error) {
	if err := d.checkReady(); err != nil {
		return configstore.EndEffector{}, err
	}
	var ee configstore.EndEffector
	err := d.withExclusiveIO(func() error {
		payload, err := d.getConfigLocked(protocol.AddrEndEffector)
		if err != nil {
			return err
		}
		mass, ixx, iyy, izz, ixy, ixz, iyz := decodeEndEffector(payload)
		ee = configstore.NewEndEffector(mass, ixx, iyy, izz, ixy, ixz, iyz)
		d.cfg.EndEffector = ee
		return nil
	})
	return ee, err
}

// --- modes ---

func (d *Driver) setModesLocked(modes []Mode) error {
	wire := make([]uint8, len(modes))
	for i, m := range modes {
		wire[i] = uint8(m)
	}
	if err := d.setConfigLocked(protocol.AddrModes, wire); err != nil {
		return err
	}
	for i, m := range modes {
		d.cfg.Modes[i] = uint8(m)
	}
	return nil
}

// SetAllModes sets every joint's control mode in one RPC.
func (d *Driver) SetAllModes(modes []Mode) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	if err := validateVectorLen(len(modes), d.numJoints, "modes"); err != nil {
		return err
	}
	return d.withExclusiveIO(func() error { return d.setModesLocked(modes) })
}

// SetArmModes sets the six arm joints' modes, leaving the gripper's
// mode untouched.
func (d *Driver) SetArmModes(modes []Mode) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	if err := validateVectorLen(len(modes), NumArmJoints, "arm modes"); err != nil {
		return err
	}
	full := make([]Mode, d.numJoints)
	return d.withExclusiveIO(func() error {
		copy(full, d.getModesLocked())
		copy(full, modes)
		return d.setModesLocked(full)
	})
}

func (d *Driver) SetGripperMode(m Mode) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.withExclusiveIO(func() error {
		full := d.getModesLocked()
		full[GripperJoint] = m
		return d.setModesLocked(full)
	})
}

func (d *Driver) SetJointMode(index int, m Mode) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	if err := validateJointIndex(index); err != nil {
		return err
	}
	return d.withExclusiveIO(func() error {
		full := d.getModesLocked()
		full[index] = m
		return d.setModesLocked(full)
	})
}

func (d *Driver) getModesLocked() []Mode {
	out := make([]Mode, d.numJoints)
	for i, v := range d.cfg.Modes {
		out[i] = Mode(v)
	}
	return out
}

// GetModes always reads the controller and refreshes the mirror, like
// every other Get* in this file.
func (d *Driver) GetModes() ([]Mode, error) {
	if err := d.checkReady(); err != nil {
		return nil, err
	}
	var out []Mode
	err := d.withExclusiveIO(func() error {
		payload, err := d.getConfigLocked(protocol.AddrModes)
		if err != nil {
			return err
		}
		out = make([]Mode, d.numJoints)
		for i := 0; i < d.numJoints; i++ {
			out[i] = Mode(payload[i])
			d.cfg.Modes[i] = payload[i]
		}
		return nil
	})
	return out, err
}
