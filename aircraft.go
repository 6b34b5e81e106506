package main

// AircraftType identifies the airframe a player flies
type AircraftType int

const (
	AircraftFighter     AircraftType = 0
	AircraftInterceptor AircraftType = 1
	AircraftBomber      AircraftType = 2
	AircraftStriker     AircraftType = 3
)

// EngineKind selects the thrust model
type EngineKind int

const (
	EngineJet       EngineKind = 0
	EnginePropeller EngineKind = 1
)

// AircraftProfile holds the performance envelope for one airframe.
// SI units: kg, m, m/s, N, radians.
type AircraftProfile struct {
	Name            string
	Mass            float64 // kg
	WingArea        float64 // m²
	MaxThrust       float64 // N
	BaseLift        float64 // lift coefficient at zero AoA
	MaxLift         float64 // lift coefficient cap
	StallAngle      float64 // AoA beyond which lift degrades
	MinFlightSpeed  float64 // below this airspeed the wing stalls
	MaxSpeed        float64 // level-flight speed cap
	ControlEffect   float64 // control surface effectiveness multiplier
	RollRate        float64 // rad/s cap
	PitchRate       float64 // rad/s cap
	YawRate         float64 // rad/s cap
	Engine          EngineKind
	HasAfterburner  bool
	AfterburnerMul  float64
	ParasiticDrag   float64 // Cd0
	InducedDragK    float64 // induced drag factor (× Cl²)
	HalfExtents     Vec3    // bounding box half sizes for ship-ship tests
	CollisionRadius float64 // sphere radius for projectile tests
	MaxAmmo         int
	MaxMissiles     int
	MaxFlares       int
}

var AircraftProfiles = [4]AircraftProfile{
	// Fighter: balanced multirole jet
	{
		Name: "Fighter", Mass: 8500, WingArea: 28, MaxThrust: 128000,
		BaseLift: 0.25, MaxLift: 1.6, StallAngle: 0.30,
		MinFlightSpeed: 55, MaxSpeed: 320,
		ControlEffect: 1.0, RollRate: 4.0, PitchRate: 2.2, YawRate: 1.0,
		Engine: EngineJet, HasAfterburner: true, AfterburnerMul: 1.5,
		ParasiticDrag: 0.022, InducedDragK: 0.07,
		HalfExtents: Vec3{6, 2.5, 8}, CollisionRadius: 8,
		MaxAmmo: 500, MaxMissiles: 6, MaxFlares: 4,
	},
	// Interceptor: fast and twitchy, thin wing, punishing stall
	{
		Name: "Interceptor", Mass: 7200, WingArea: 22, MaxThrust: 150000,
		BaseLift: 0.20, MaxLift: 1.3, StallAngle: 0.24,
		MinFlightSpeed: 70, MaxSpeed: 390,
		ControlEffect: 1.2, RollRate: 5.0, PitchRate: 2.6, YawRate: 1.1,
		Engine: EngineJet, HasAfterburner: true, AfterburnerMul: 1.7,
		ParasiticDrag: 0.019, InducedDragK: 0.09,
		HalfExtents: Vec3{5, 2, 9}, CollisionRadius: 7.5,
		MaxAmmo: 350, MaxMissiles: 8, MaxFlares: 2,
	},
	// Bomber: heavy, stable, big box, slow to answer the stick
	{
		Name: "Bomber", Mass: 24000, WingArea: 75, MaxThrust: 190000,
		BaseLift: 0.35, MaxLift: 1.8, StallAngle: 0.33,
		MinFlightSpeed: 65, MaxSpeed: 230,
		ControlEffect: 0.55, RollRate: 1.6, PitchRate: 1.0, YawRate: 0.7,
		Engine: EngineJet, HasAfterburner: false, AfterburnerMul: 1,
		ParasiticDrag: 0.030, InducedDragK: 0.055,
		HalfExtents: Vec3{14, 4, 12}, CollisionRadius: 14,
		MaxAmmo: 800, MaxMissiles: 2, MaxFlares: 8,
	},
	// Striker: prop-driven ground attacker, forgiving at low speed
	{
		Name: "Striker", Mass: 5200, WingArea: 24, MaxThrust: 42000,
		BaseLift: 0.30, MaxLift: 1.7, StallAngle: 0.35,
		MinFlightSpeed: 40, MaxSpeed: 180,
		ControlEffect: 0.9, RollRate: 3.2, PitchRate: 1.8, YawRate: 1.2,
		Engine: EnginePropeller, HasAfterburner: false, AfterburnerMul: 1,
		ParasiticDrag: 0.028, InducedDragK: 0.06,
		HalfExtents: Vec3{6.5, 2.5, 6}, CollisionRadius: 7,
		MaxAmmo: 600, MaxMissiles: 4, MaxFlares: 6,
	},
}

// GetAircraftProfile returns the profile for an aircraft type
func GetAircraftProfile(t AircraftType) AircraftProfile {
	if t < 0 || int(t) >= len(AircraftProfiles) {
		return AircraftProfiles[AircraftFighter]
	}
	return AircraftProfiles[t]
}

// EnvelopeSpeed is the fastest speed the movement validator accepts for
// this airframe, afterburner included.
func (p AircraftProfile) EnvelopeSpeed() float64 {
	if p.HasAfterburner {
		return p.MaxSpeed * p.AfterburnerMul
	}
	return p.MaxSpeed
}
