package main

// Loadout is a player's equipped weapons, ability and upgrades
type Loadout struct {
	PrimaryWeapon   string          `json:"pw"`
	SecondaryWeapon string          `json:"sw"`
	Ability         string          `json:"ab,omitempty"`
	Upgrades        map[string]bool `json:"up,omitempty"`
}

// WeaponDef describes one equippable weapon
type WeaponDef struct {
	ID       string
	Name     string
	Kind     ProjectileKind
	Cooldown float64 // seconds between shots
	AmmoCost int     // rounds consumed per shot (primary weapons)
}

// WeaponCatalog lists every equippable weapon
var WeaponCatalog = []WeaponDef{
	{ID: "cannon_20mm", Name: "20mm Cannon", Kind: ProjBullet, Cooldown: 0.12, AmmoCost: 1},
	{ID: "cannon_30mm", Name: "30mm Cannon", Kind: ProjBullet, Cooldown: 0.22, AmmoCost: 2},
	{ID: "gatling", Name: "Rotary Gun", Kind: ProjBullet, Cooldown: 0.06, AmmoCost: 1},
	{ID: "heatseeker", Name: "Heatseeker", Kind: ProjMissile, Cooldown: 4.0, AmmoCost: 1},
	{ID: "rocket_pod", Name: "Rocket Pod", Kind: ProjRocket, Cooldown: 0.8, AmmoCost: 1},
	{ID: "iron_bomb", Name: "Iron Bomb", Kind: ProjBomb, Cooldown: 2.5, AmmoCost: 1},
}

// weaponCatalogMap provides O(1) lookup by weapon ID
var weaponCatalogMap map[string]WeaponDef

func init() {
	weaponCatalogMap = make(map[string]WeaponDef, len(WeaponCatalog))
	for _, w := range WeaponCatalog {
		weaponCatalogMap[w.ID] = w
	}
}

// WeaponByID returns a weapon definition, ok=false for unknown ids
func WeaponByID(id string) (WeaponDef, bool) {
	w, ok := weaponCatalogMap[id]
	return w, ok
}

// Upgrade ids. Effects are applied where the stat is consumed: armor in
// ApplyDamage, drop tank in the fuel drain, engine tuning in StepFlight,
// flare pack at spawn.
const (
	UpgradeArmor      = "armor_plating"
	UpgradeDropTank   = "drop_tank"
	UpgradeEngineTune = "engine_tuning"
	UpgradeFlarePack  = "flare_pack"
)

// UpgradeDef describes one purchasable airframe upgrade
type UpgradeDef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Desc  string `json:"desc"`
	Price int    `json:"price"` // in tokens
}

// UpgradeCatalog is the full list of airframe upgrades
var UpgradeCatalog = []UpgradeDef{
	{ID: UpgradeArmor, Name: "Armor Plating", Desc: "Reduces all incoming damage by 20%", Price: 400},
	{ID: UpgradeDropTank, Name: "Drop Tank", Desc: "Fuel drains 25% slower", Price: 250},
	{ID: UpgradeEngineTune, Name: "Engine Tuning", Desc: "8% more thrust", Price: 300},
	{ID: UpgradeFlarePack, Name: "Flare Pack", Desc: "Carry 2 extra countermeasures", Price: 150},
}

// DefaultLoadout returns the stock loadout for an airframe
func DefaultLoadout(t AircraftType) Loadout {
	switch t {
	case AircraftInterceptor:
		return Loadout{PrimaryWeapon: "gatling", SecondaryWeapon: "heatseeker"}
	case AircraftBomber:
		return Loadout{PrimaryWeapon: "cannon_20mm", SecondaryWeapon: "iron_bomb"}
	case AircraftStriker:
		return Loadout{PrimaryWeapon: "cannon_30mm", SecondaryWeapon: "rocket_pod"}
	default:
		return Loadout{PrimaryWeapon: "cannon_20mm", SecondaryWeapon: "heatseeker"}
	}
}
