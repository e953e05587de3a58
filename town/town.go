// Package town decodes and encodes the OpenTTD CITY chunk: one record per
// town on the map. CITY is carried as an Array chunk of opaque rows (it is
// not self-describing like a Table chunk), so its layout is hand-written
// here against the game's fixed field order, with two field groups gated by
// JGR SLXI feature flags.
package town

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jf908/openttd-map-parser/gamma"
	"github.com/jf908/openttd-map-parser/jgr"
)

// Tag is the chunk tag town records are carried under.
const Tag = "CITY"

// Fixed element counts for the game constants this record's arrays are sized
// by: max companies (ratings/unwanted), transported-cargo categories (goal),
// and max cargo types (supplied).
const (
	numCompanies = 15
	numGoals     = 6
	numCargo     = 64
	numCargoRecv = 6
)

// Supplied is one cargo's supply statistics for a town.
type Supplied struct {
	OldMax, NewMax, OldAct, NewAct uint32
}

// Received is one cargo's delivery statistics for a town.
type Received struct {
	OldMax, NewMax, OldAct, NewAct uint16
}

// Town is one decoded CITY record. Field presence of ChurchCount/
// StadiumCount and the OverrideFlags group depends on which SLXI features
// were declared by the save being read, reported by HasMultiBuilding /
// HasSettingOverride.
type Town struct {
	XY              uint32
	TownNameGRFID   uint32
	TownNameType    uint16
	TownNameParts   uint32
	Name            string

	Flags uint8

	// HasMultiBuilding records whether the save's SLXI declared the
	// "town_multi_building" feature; when true, ChurchCount/StadiumCount
	// were present on the wire and are re-emitted on Encode.
	HasMultiBuilding bool
	ChurchCount      uint16
	StadiumCount     uint16

	Statues      uint16
	HaveRatings  uint16
	Ratings      [numCompanies]uint16
	Unwanted     [numCompanies]uint8
	Goal         [numGoals]uint32
	Text         string

	TimeUntilRebuild    uint16
	GrowCounter         uint16
	GrowthRate          uint16
	FundBuildingsMonths uint8
	RoadBuildMonths     uint8
	Exclusivity         uint8
	ExclusiveCounter    uint8
	LargerTown          int8
	Layout              uint8

	PSAList []uint32

	// HasSettingOverride records whether the save's SLXI declared the
	// "town_setting_override" feature.
	HasSettingOverride bool
	OverrideFlags      uint8
	OverrideValues     uint8
	BuildTunnels       uint8
	MaxRoadSlope       uint8

	Supplied [numCargo]Supplied
	Received [numCargoRecv]Received
}

// featureMultiBuilding and featureSettingOverride are the SLXI feature names
// that gate this record's two optional field groups.
const (
	featureMultiBuilding   = "town_multi_building"
	featureSettingOverride = "town_setting_override"
)

// Parse decodes one CITY row against the feature set declared by features.
// A nil features is treated as an empty feature set (no optional groups).
func Parse(data []byte, features *jgr.SLXI) (*Town, error) {
	if features == nil {
		features = jgr.Empty
	}
	r := bytes.NewReader(data)
	t := &Town{
		HasMultiBuilding:   features.HasFeature(featureMultiBuilding),
		HasSettingOverride: features.HasFeature(featureSettingOverride),
	}

	var err error
	if t.XY, err = readU32(r); err != nil {
		return nil, err
	}
	if t.TownNameGRFID, err = readU32(r); err != nil {
		return nil, err
	}
	if t.TownNameType, err = readU16(r); err != nil {
		return nil, err
	}
	if t.TownNameParts, err = readU32(r); err != nil {
		return nil, err
	}
	if t.Name, err = readStr(r); err != nil {
		return nil, err
	}
	if t.Flags, err = readU8(r); err != nil {
		return nil, err
	}

	if t.HasMultiBuilding {
		if t.ChurchCount, err = readU16(r); err != nil {
			return nil, err
		}
		if t.StadiumCount, err = readU16(r); err != nil {
			return nil, err
		}
	}

	if t.Statues, err = readU16(r); err != nil {
		return nil, err
	}
	if t.HaveRatings, err = readU16(r); err != nil {
		return nil, err
	}
	for i := range t.Ratings {
		if t.Ratings[i], err = readU16(r); err != nil {
			return nil, err
		}
	}
	for i := range t.Unwanted {
		if t.Unwanted[i], err = readU8(r); err != nil {
			return nil, err
		}
	}
	for i := range t.Goal {
		if t.Goal[i], err = readU32(r); err != nil {
			return nil, err
		}
	}
	if t.Text, err = readStr(r); err != nil {
		return nil, err
	}

	if t.TimeUntilRebuild, err = readU16(r); err != nil {
		return nil, err
	}
	if t.GrowCounter, err = readU16(r); err != nil {
		return nil, err
	}
	if t.GrowthRate, err = readU16(r); err != nil {
		return nil, err
	}
	if t.FundBuildingsMonths, err = readU8(r); err != nil {
		return nil, err
	}
	if t.RoadBuildMonths, err = readU8(r); err != nil {
		return nil, err
	}
	if t.Exclusivity, err = readU8(r); err != nil {
		return nil, err
	}
	if t.ExclusiveCounter, err = readU8(r); err != nil {
		return nil, err
	}
	var largerTown uint8
	if largerTown, err = readU8(r); err != nil {
		return nil, err
	}
	t.LargerTown = int8(largerTown)
	if t.Layout, err = readU8(r); err != nil {
		return nil, err
	}

	psaCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	t.PSAList = make([]uint32, psaCount)
	for i := range t.PSAList {
		if t.PSAList[i], err = readU32(r); err != nil {
			return nil, err
		}
	}

	if t.HasSettingOverride {
		if t.OverrideFlags, err = readU8(r); err != nil {
			return nil, err
		}
		if t.OverrideValues, err = readU8(r); err != nil {
			return nil, err
		}
		if t.BuildTunnels, err = readU8(r); err != nil {
			return nil, err
		}
		if t.MaxRoadSlope, err = readU8(r); err != nil {
			return nil, err
		}
	}

	for i := range t.Supplied {
		s := &t.Supplied[i]
		if s.OldMax, err = readU32(r); err != nil {
			return nil, err
		}
		if s.NewMax, err = readU32(r); err != nil {
			return nil, err
		}
		if s.OldAct, err = readU32(r); err != nil {
			return nil, err
		}
		if s.NewAct, err = readU32(r); err != nil {
			return nil, err
		}
	}
	for i := range t.Received {
		rc := &t.Received[i]
		if rc.OldMax, err = readU16(r); err != nil {
			return nil, err
		}
		if rc.NewMax, err = readU16(r); err != nil {
			return nil, err
		}
		if rc.OldAct, err = readU16(r); err != nil {
			return nil, err
		}
		if rc.NewAct, err = readU16(r); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Encode serializes t back into a CITY row, consistent with the feature set
// t was parsed under (t.HasMultiBuilding / t.HasSettingOverride control
// which optional groups are written).
func (t *Town) Encode() ([]byte, error) {
	var buf bytes.Buffer

	writeU32(&buf, t.XY)
	writeU32(&buf, t.TownNameGRFID)
	writeU16(&buf, t.TownNameType)
	writeU32(&buf, t.TownNameParts)
	if err := writeStr(&buf, t.Name); err != nil {
		return nil, err
	}
	writeU8(&buf, t.Flags)

	if t.HasMultiBuilding {
		writeU16(&buf, t.ChurchCount)
		writeU16(&buf, t.StadiumCount)
	}

	writeU16(&buf, t.Statues)
	writeU16(&buf, t.HaveRatings)
	for _, v := range t.Ratings {
		writeU16(&buf, v)
	}
	for _, v := range t.Unwanted {
		writeU8(&buf, v)
	}
	for _, v := range t.Goal {
		writeU32(&buf, v)
	}
	if err := writeStr(&buf, t.Text); err != nil {
		return nil, err
	}

	writeU16(&buf, t.TimeUntilRebuild)
	writeU16(&buf, t.GrowCounter)
	writeU16(&buf, t.GrowthRate)
	writeU8(&buf, t.FundBuildingsMonths)
	writeU8(&buf, t.RoadBuildMonths)
	writeU8(&buf, t.Exclusivity)
	writeU8(&buf, t.ExclusiveCounter)
	writeU8(&buf, uint8(t.LargerTown))
	writeU8(&buf, t.Layout)

	writeU32(&buf, uint32(len(t.PSAList)))
	for _, v := range t.PSAList {
		writeU32(&buf, v)
	}

	if t.HasSettingOverride {
		writeU8(&buf, t.OverrideFlags)
		writeU8(&buf, t.OverrideValues)
		writeU8(&buf, t.BuildTunnels)
		writeU8(&buf, t.MaxRoadSlope)
	}

	for _, s := range t.Supplied {
		writeU32(&buf, s.OldMax)
		writeU32(&buf, s.NewMax)
		writeU32(&buf, s.OldAct)
		writeU32(&buf, s.NewAct)
	}
	for _, rc := range t.Received {
		writeU16(&buf, rc.OldMax)
		writeU16(&buf, rc.NewMax)
		writeU16(&buf, rc.OldAct)
		writeU16(&buf, rc.NewAct)
	}

	return buf.Bytes(), nil
}

func readU8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("town: %w", err)
	}
	return b[0], nil
}

func readU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("town: %w", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("town: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readStr(r io.Reader) (string, error) {
	length, err := gamma.Read(r)
	if err != nil {
		return "", fmt.Errorf("town: string length: %w", err)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("town: string bytes: %w", err)
	}
	if utf8.Valid(buf) {
		return string(buf), nil
	}
	return strings.ToValidUTF8(string(buf), "�"), nil
}

func writeU8(w *bytes.Buffer, v uint8)   { w.WriteByte(v) }
func writeU16(w *bytes.Buffer, v uint16) { var b [2]byte; binary.BigEndian.PutUint16(b[:], v); w.Write(b[:]) }
func writeU32(w *bytes.Buffer, v uint32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); w.Write(b[:]) }

func writeStr(w *bytes.Buffer, s string) error {
	if err := gamma.Write(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}
