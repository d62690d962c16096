package feature

import "github.com/nerrad567/visionpilot/internal/mode"

// Type identifies a feature strategy. It doubles as the feature name in
// FeatureConfig.
type Type string

// Declared feature types.
const (
	HVCollectResources Type = "hv_collect_resources"
	HVAttack           Type = "hv_attack"
	HVClanCapital      Type = "hv_clan_capital"
	HVTrainTroops      Type = "hv_train_troops"
	HVUpgradeBuildings Type = "hv_upgrade_buildings"
	BBCollectResources Type = "bb_collect_resources"
	BBAttack           Type = "bb_attack"
	BBUpgradeBuildings Type = "bb_upgrade_buildings"
)

// DefaultOrder returns the built-in execution order for m.
func DefaultOrder(m mode.Mode) []Type {
	switch m {
	case mode.HomeVillage:
		return []Type{HVCollectResources, HVTrainTroops, HVUpgradeBuildings, HVAttack, HVClanCapital}
	case mode.BuilderBase:
		return []Type{BBCollectResources, BBUpgradeBuildings, BBAttack}
	}
	return nil
}

// ParseOrder converts configured names into types.
func ParseOrder(names []string) []Type {
	out := make([]Type, 0, len(names))
	for _, n := range names {
		out = append(out, Type(n))
	}
	return out
}
