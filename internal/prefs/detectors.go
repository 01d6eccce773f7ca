// Package prefs: per-key lexical detectors.
//
// Each detector is an independent keyword/phrase matcher for one preference
// key, run over the lower-cased message. A detector returns at most one
// candidate value; cues are checked in order, so more specific (especially
// negated) cues must precede the broader cues they contain.
package prefs

import (
	"strings"

	"github.com/TrailPeak/TrailScout/internal/models"
)

// cueSet maps an ordered list of trigger phrases to one allowed value.
type cueSet struct {
	cues  []string
	value string
}

type detector struct {
	key  models.PreferenceKey
	sets []cueSet
}

func (d detector) match(lowered string) (string, bool) {
	for _, set := range d.sets {
		for _, cue := range set.cues {
			if strings.Contains(lowered, cue) {
				return set.value, true
			}
		}
	}
	return "", false
}

// detectors is the fixed, ordered list run by Extract. Order across keys is
// stable so extraction output order is deterministic.
var detectors = []detector{
	{key: models.PrefPackStyle, sets: []cueSet{
		{cues: []string{"ultralight", "base weight"}, value: "ultralight"},
		{cues: []string{"pack light", "light pack", "lightweight"}, value: "light"},
		{cues: []string{"comfort item", "luxury item", "extra comfort", "pack heavy"}, value: "comfort"},
		{cues: []string{"balanced"}, value: "balanced"},
	}},
	{key: models.PrefRainTolerance, sets: []cueSet{
		{cues: []string{"avoid rain", "hate rain", "hate the rain", "hate hiking in the rain", "stay out of the rain"}, value: "avoid_rain"},
		{cues: []string{"steady rain", "heavy rain", "rain doesn't bother", "rain does not bother", "don't mind rain", "dont mind rain", "don't mind the rain", "dont mind the rain"}, value: "steady_rain_ok"},
		{cues: []string{"light rain", "a little rain", "drizzle"}, value: "light_rain_ok"},
	}},
	{key: models.PrefFootwearPreference, sets: []cueSet{
		{cues: []string{"trail runner"}, value: "trail_runners"},
		{cues: []string{"sandal"}, value: "sandals"},
		{cues: []string{"hiking shoe"}, value: "hiking_shoes"},
		{cues: []string{"boot"}, value: "boots"},
	}},
	{key: models.PrefShelterPreference, sets: []cueSet{
		{cues: []string{"tarp"}, value: "tarp"},
		{cues: []string{"hammock"}, value: "hammock"},
		{cues: []string{"hut", "cabin"}, value: "hut"},
		{cues: []string{"tent"}, value: "tent"},
	}},
	{key: models.PrefSleepSystem, sets: []cueSet{
		{cues: []string{"quilt"}, value: "quilt"},
		{cues: []string{"sleeping bag"}, value: "sleeping_bag"},
	}},
	{key: models.PrefStovePreference, sets: []cueSet{
		{cues: []string{"no stove", "stoveless", "without a stove"}, value: "no_stove"},
		{cues: []string{"alcohol stove"}, value: "alcohol"},
		{cues: []string{"wood stove", "twig stove"}, value: "wood"},
		{cues: []string{"canister", "jetboil", "gas stove"}, value: "canister"},
	}},
	{key: models.PrefWaterTreatment, sets: []cueSet{
		{cues: []string{"don't treat", "dont treat", "straight from the stream", "untreated water"}, value: "none"},
		{cues: []string{"tablet", "aquatab"}, value: "tablets"},
		{cues: []string{"boil my water", "boil water", "boiling water"}, value: "boil"},
		{cues: []string{"filter", "squeeze"}, value: "filter"},
	}},
	{key: models.PrefNavigationStyle, sets: []cueSet{
		{cues: []string{"paper map", "map and compass"}, value: "paper_map"},
		{cues: []string{"gps device", "garmin", "inreach"}, value: "gps_device"},
		{cues: []string{"signage", "signposted", "marked trail"}, value: "signage"},
		{cues: []string{"gps app", "phone for navigation", "gaia", "alltrails"}, value: "gps_app"},
	}},
	{key: models.PrefTerrainPreference, sets: []cueSet{
		{cues: []string{"alpine", "above treeline", "above the treeline"}, value: "alpine"},
		{cues: []string{"ridge"}, value: "ridge"},
		{cues: []string{"valley"}, value: "valley"},
		{cues: []string{"forest", "the woods", "wooded"}, value: "forest"},
		{cues: []string{"mixed terrain", "mix of terrain", "bit of everything"}, value: "mixed"},
	}},
	{key: models.PrefPacePreference, sets: []cueSet{
		{cues: []string{"slow pace", "take it slow", "leisurely", "take my time"}, value: "slow"},
		{cues: []string{"fast pace", "big miles", "push hard", "move fast"}, value: "fast"},
		{cues: []string{"moderate pace", "steady pace"}, value: "moderate"},
	}},
	{key: models.PrefCampStyle, sets: []cueSet{
		{cues: []string{"established site", "established campsite", "campground", "designated site"}, value: "established_sites"},
		{cues: []string{"dispersed", "wild camp", "stealth camp"}, value: "dispersed"},
	}},
	{key: models.PrefFoodStyle, sets: []cueSet{
		{cues: []string{"cold soak", "cold-soak"}, value: "cold_soak"},
		{cues: []string{"freeze dried", "freeze-dried", "ready made", "ready-made", "instant meal"}, value: "ready_made"},
		{cues: []string{"cook dinner", "cook my", "cooking", "hot meal", "hot dinner", "hot food"}, value: "cook_meals"},
	}},
	{key: models.PrefLayeringStyle, sets: []cueSet{
		{cues: []string{"run cold", "get cold easily", "extra layers", "warm layers"}, value: "warm"},
		{cues: []string{"run hot", "run warm", "minimal layers", "few layers"}, value: "minimal"},
	}},
	{key: models.PrefSunProtection, sets: []cueSet{
		{cues: []string{"burn easily", "sunscreen", "sun shirt", "sun protection"}, value: "high"},
		{cues: []string{"rarely burn", "never burn"}, value: "low"},
	}},
	{key: models.PrefBugProtection, sets: []cueSet{
		{cues: []string{"bugs don't bother", "bugs dont bother"}, value: "low"},
		{cues: []string{"mosquito", "bug spray", "bugs love me", "deet", "head net"}, value: "high"},
	}},
	{key: models.PrefTrekkingPoles, sets: []cueSet{
		{cues: []string{"without poles", "no poles", "don't use poles", "dont use poles", "skip the poles"}, value: "no"},
		{cues: []string{"trekking pole", "hiking pole", "use poles", "my poles"}, value: "yes"},
	}},
	{key: models.PrefGroupPreference, sets: []cueSet{
		{cues: []string{"solo", "by myself", "hike alone", "hiking alone"}, value: "solo"},
		{cues: []string{"big group", "large group"}, value: "large_group"},
		{cues: []string{"small group", "with a friend", "with my partner", "with friends"}, value: "small_group"},
	}},
	{key: models.PrefFitnessLevel, sets: []cueSet{
		{cues: []string{"beginner", "new to hiking", "out of shape", "just starting"}, value: "beginner"},
		{cues: []string{"very fit", "great shape", "advanced hiker", "marathon"}, value: "advanced"},
		{cues: []string{"decent shape", "reasonably fit", "intermediate"}, value: "intermediate"},
	}},
}
