package main

import "math"

// Atmosphere and integrator tuning
const (
	airDensitySeaLevel = 1.225  // kg/m³
	densityScaleHeight = 8500.0 // m, exponential falloff
	gravityAccel       = 9.81

	refDynamicPressure  = 18000.0 // full control authority around 170 m/s at sea level
	minControlAuthority = 0.15
	stallControlFactor  = 0.3  // controls this effective while stalled
	angularResponse     = 6.0  // 1/s, first-order approach to commanded rate
	stabilityGain       = 0.8  // self-righting toward level flight
	angularDamping      = 0.92 // per-tick decay at TickRate
	stallPerturbation   = 0.25 // rad/s² noise injected while stalled

	flapLiftBonus   = 0.4
	flapDragMul     = 1.6
	airbrakeDragMul = 3.2
	propFalloff     = 0.7 // prop efficiency lost approaching max speed
)

// ControlInput is the client's stick/throttle state, applied server-side
// every physics tick. Axis values are in [-1, 1], throttle in [0, 1].
type ControlInput struct {
	Pitch       float64 `json:"p" msgpack:"p"`
	Roll        float64 `json:"r" msgpack:"r"`
	Yaw         float64 `json:"y" msgpack:"y"`
	Throttle    float64 `json:"t" msgpack:"t"`
	Flaps       bool    `json:"fl,omitempty" msgpack:"fl"`
	Airbrake    bool    `json:"ab,omitempty" msgpack:"ab"`
	Afterburner bool    `json:"af,omitempty" msgpack:"af"`
}

// airDensity returns atmospheric density at the given altitude
func airDensity(alt float64) float64 {
	if alt < 0 {
		alt = 0
	}
	return airDensitySeaLevel * math.Exp(-alt/densityScaleHeight)
}

// forwardVector derives the nose direction from Euler rotation
// (X=pitch, Y=yaw, Z=roll). Pitch up is positive.
func forwardVector(rot Vec3) Vec3 {
	cp := math.Cos(rot.X)
	return Vec3{
		X: math.Sin(rot.Y) * cp,
		Y: math.Sin(rot.X),
		Z: math.Cos(rot.Y) * cp,
	}
}

// upVector derives the body up direction, including roll about the nose axis
func upVector(rot Vec3) Vec3 {
	fwd := forwardVector(rot)
	right := fwd.Cross(Vec3{Y: 1})
	if right.LenSq() < 1e-9 {
		// Nose pointing straight up/down, fall back to yaw-aligned right
		right = Vec3{X: math.Cos(rot.Y), Z: -math.Sin(rot.Y)}
	}
	right = right.Normalize()
	up := right.Cross(fwd)
	return up.RotateAround(fwd, -rot.Z)
}

// liftCoefficient maps angle of attack to Cl: linear up to the stall angle,
// collapsing beyond it. Flap contribution is added before the profile cap.
func liftCoefficient(prof AircraftProfile, aoa float64, flaps bool) float64 {
	var cl float64
	if aoa <= prof.StallAngle {
		cl = prof.BaseLift + (prof.MaxLift-prof.BaseLift)*(aoa/prof.StallAngle)
	} else {
		over := (aoa - prof.StallAngle) / prof.StallAngle
		cl = prof.MaxLift * Clamp(1-1.5*over, 0.2, 1)
	}
	if flaps {
		cl += flapLiftBonus
	}
	return math.Min(cl, prof.MaxLift)
}

// engineThrust returns thrust in newtons for the current throttle, speed and
// altitude. Props lose bite with airspeed; jets lose it with thin air and
// gain it back on the afterburner.
func engineThrust(prof AircraftProfile, in ControlInput, speed, alt float64, hasFuel bool) float64 {
	throttle := Clamp(in.Throttle, 0, 1)
	if !hasFuel {
		throttle = 0
	}
	thrust := prof.MaxThrust * throttle
	switch prof.Engine {
	case EnginePropeller:
		eff := Clamp(1-propFalloff*speed/prof.MaxSpeed, 0.25, 1)
		thrust *= eff
	default: // EngineJet
		thrust *= airDensity(alt) / airDensitySeaLevel
		if in.Afterburner && prof.HasAfterburner && hasFuel {
			thrust *= prof.AfterburnerMul
		}
	}
	return thrust
}

// StepFlight advances one aircraft by dt seconds: force buildup
// (lift/drag/thrust/gravity), semi-implicit Euler integration of the
// transform, and the angular response including stall behaviour.
func StepFlight(p *Player, dt float64) {
	prof := GetAircraftProfile(p.Aircraft)
	in := p.Input

	v := p.Velocity
	speed := v.Len()
	fwd := forwardVector(p.Rotation)
	rho := airDensity(p.Position.Y)
	hasFuel := p.Fuel > 0

	// Angle of attack between nose and airflow
	var aoa float64
	var vn Vec3
	if speed > 1e-3 {
		vn = v.Scale(1 / speed)
		aoa = math.Acos(Clamp(vn.Dot(fwd), -1, 1))
	}

	stalled := aoa > prof.StallAngle || speed < prof.MinFlightSpeed

	// Lift, perpendicular to the airflow in the body-up plane
	cl := liftCoefficient(prof, aoa, in.Flaps)
	up := upVector(p.Rotation)
	liftDir := up
	if speed > 1e-3 {
		ld := up.Sub(vn.Scale(up.Dot(vn)))
		if ld.LenSq() > 1e-9 {
			liftDir = ld.Normalize()
		}
	}
	liftMag := 0.5 * rho * speed * speed * prof.WingArea * cl

	// Drag: parasitic + lift-induced, worsened by flaps and airbrake
	cd := prof.ParasiticDrag + prof.InducedDragK*cl*cl
	if in.Flaps {
		cd *= flapDragMul
	}
	if in.Airbrake {
		cd *= airbrakeDragMul
	}
	dragMag := 0.5 * rho * speed * speed * prof.WingArea * cd

	thrust := engineThrust(prof, in, speed, p.Position.Y, hasFuel) * p.thrustMul()

	force := fwd.Scale(thrust).
		Add(liftDir.Scale(liftMag)).
		Sub(vn.Scale(dragMag)).
		Add(Vec3{Y: -prof.Mass * gravityAccel})

	// Semi-implicit Euler: velocity first, then position
	p.Velocity = p.Velocity.Add(force.Scale(dt / prof.Mass))

	speedCap := prof.MaxSpeed
	if in.Afterburner && prof.HasAfterburner && hasFuel {
		speedCap *= prof.AfterburnerMul
	}
	if s := p.Velocity.Len(); s > speedCap {
		p.Velocity = p.Velocity.Scale(speedCap / s)
	}
	p.Position = p.Position.Add(p.Velocity.Scale(dt))

	// Angular response: control moments scale with dynamic pressure and
	// collapse in a stall
	qbar := 0.5 * rho * speed * speed
	authority := prof.ControlEffect * Clamp(qbar/refDynamicPressure, minControlAuthority, 1)
	if stalled {
		authority *= stallControlFactor
	}

	av := p.AngularVel
	av.X += (Clamp(in.Pitch, -1, 1)*prof.PitchRate*authority - av.X) * angularResponse * dt
	av.Z += (Clamp(in.Roll, -1, 1)*prof.RollRate*authority - av.Z) * angularResponse * dt
	av.Y += (Clamp(in.Yaw, -1, 1)*prof.YawRate*authority - av.Y) * angularResponse * dt

	// Self-righting stability moments toward level flight
	av.X -= NormalizeAngle(p.Rotation.X) * stabilityGain * dt
	av.Z -= NormalizeAngle(p.Rotation.Z) * stabilityGain * dt

	if stalled {
		// Loss of control: small destabilizing wobble
		av.X += (randFloat() - 0.5) * stallPerturbation * dt
		av.Z += (randFloat() - 0.5) * stallPerturbation * dt
	}

	damp := math.Pow(angularDamping, dt*TickRate)
	av = av.Scale(damp)
	av.X = Clamp(av.X, -prof.PitchRate, prof.PitchRate)
	av.Y = Clamp(av.Y, -prof.YawRate, prof.YawRate)
	av.Z = Clamp(av.Z, -prof.RollRate, prof.RollRate)
	p.AngularVel = av

	p.Rotation = p.Rotation.Add(av.Scale(dt))
	p.Rotation.X = NormalizeAngle(p.Rotation.X)
	p.Rotation.Y = NormalizeAngle(p.Rotation.Y)
	p.Rotation.Z = NormalizeAngle(p.Rotation.Z)

	p.Stalled = stalled
}
