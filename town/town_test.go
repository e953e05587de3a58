package town

import (
	"reflect"
	"testing"

	"github.com/jf908/openttd-map-parser/jgr"
)

func sampleTown() *Town {
	t := &Town{
		XY:            0x12345678,
		TownNameGRFID: 1,
		TownNameType:  2,
		TownNameParts: 3,
		Name:          "Dunshire",
		Flags:         0x01,
		Statues:       4,
		HaveRatings:   5,
		Text:          "a fine town",
		Layout:        2,
		LargerTown:    -1,
		PSAList:       []uint32{10, 20, 30},
	}
	for i := range t.Ratings {
		t.Ratings[i] = uint16(i)
	}
	for i := range t.Unwanted {
		t.Unwanted[i] = uint8(i)
	}
	for i := range t.Goal {
		t.Goal[i] = uint32(i)
	}
	for i := range t.Supplied {
		t.Supplied[i] = Supplied{OldMax: 1, NewMax: 2, OldAct: 3, NewAct: 4}
	}
	for i := range t.Received {
		t.Received[i] = Received{OldMax: 1, NewMax: 2, OldAct: 3, NewAct: 4}
	}
	return t
}

func TestRoundTripNoFeatures(t *testing.T) {
	town := sampleTown()

	data, err := town.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Parse(data, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(town, got) {
		t.Errorf("round trip mismatch:\n got=%+v\nwant=%+v", got, town)
	}
}

func TestFeatureGatingChangesWireLength(t *testing.T) {
	base := sampleTown()
	baseData, err := base.Encode()
	if err != nil {
		t.Fatalf("Encode base: %v", err)
	}

	withMultiBuilding := sampleTown()
	withMultiBuilding.HasMultiBuilding = true
	withMultiBuilding.ChurchCount = 1
	withMultiBuilding.StadiumCount = 2
	mbData, err := withMultiBuilding.Encode()
	if err != nil {
		t.Fatalf("Encode multi-building: %v", err)
	}

	if diff := len(mbData) - len(baseData); diff != 4 {
		t.Errorf("wire length diff = %d, want 4 (two u16 fields)", diff)
	}

	features := &jgr.SLXI{Entries: []jgr.ExtendedChunk{{Name: "town_multi_building", ChunkVersion: 1}}}
	got, err := Parse(mbData, features)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.ChurchCount != 1 || got.StadiumCount != 2 {
		t.Errorf("ChurchCount/StadiumCount = %d/%d, want 1/2", got.ChurchCount, got.StadiumCount)
	}
}

func TestSettingOverrideRoundTrip(t *testing.T) {
	town := sampleTown()
	town.HasSettingOverride = true
	town.OverrideFlags = 1
	town.OverrideValues = 2
	town.BuildTunnels = 3
	town.MaxRoadSlope = 4

	data, err := town.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	features := &jgr.SLXI{Entries: []jgr.ExtendedChunk{{Name: "town_setting_override", ChunkVersion: 1}}}
	got, err := Parse(data, features)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(town, got) {
		t.Errorf("round trip mismatch:\n got=%+v\nwant=%+v", got, town)
	}
}
