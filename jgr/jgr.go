// Package jgr decodes the JGR patchpack's SLXI chunk, an index of the
// non-upstream ("extended") chunks and fields a save may contain, each
// guarded by a named feature and a version number.
package jgr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jf908/openttd-map-parser/gamma"
)

// Tag is the chunk tag an SLXI record lives under.
const Tag = "SLXI"

// Entry flag bit positions within an ExtendedChunk's flags word, LSB-first
// within the low byte. The remaining 28 bits are not kept: Parse ignores
// them and Encode writes them as zero.
const (
	flagIgnorableUnknown   = 1 << 0
	flagIgnorableVersion   = 1 << 1
	flagExtraDataPresent   = 1 << 2
	flagChunkIDListPresent = 1 << 3
)

// ExtendedChunk is one feature entry in an SLXI record: a named feature, the
// save/load version the writer implements it at, and optionally the set of
// upstream chunk tags it depends on.
type ExtendedChunk struct {
	Name             string
	ChunkVersion     uint16
	IgnorableUnknown bool
	IgnorableVersion bool

	// ExtraData is non-nil only when the entry's extra_data_present bit was
	// set on the wire; a present-but-empty extra data region still sets it.
	ExtraData []byte

	// ChunkIDs is non-nil only when the entry's chunk_id_list_present bit
	// was set on the wire.
	ChunkIDs []string
}

// SLXI is the decoded contents of the JGR-specific SLXI chunk: a version and
// reserved flags word for the index format itself, and the list of extended
// features it declares.
type SLXI struct {
	ChunkVersion uint32
	Flags        uint32
	Entries      []ExtendedChunk
}

// HasFeature reports whether s declares the named feature at all.
func (s *SLXI) HasFeature(name string) bool {
	_, ok := s.Feature(name)
	return ok
}

// Feature returns the entry for the named feature, if present.
func (s *SLXI) Feature(name string) (ExtendedChunk, bool) {
	for _, e := range s.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return ExtendedChunk{}, false
}

// FeatureVersion returns the declared version of the named feature, or 0 if
// the feature is absent.
func (s *SLXI) FeatureVersion(name string) uint16 {
	e, ok := s.Feature(name)
	if !ok {
		return 0
	}
	return e.ChunkVersion
}

// Empty is the feature set behavior when a save carries no SLXI chunk at
// all: every feature query reports absent.
var Empty = &SLXI{}

// Parse decodes an SLXI record from its chunk payload.
func Parse(data []byte) (*SLXI, error) {
	r := bytes.NewReader(data)

	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("jgr: truncated SLXI header: %w", err)
	}
	chunkVersion := binary.BigEndian.Uint32(hdr[0:4])
	flags := binary.BigEndian.Uint32(hdr[4:8])

	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, fmt.Errorf("jgr: truncated SLXI entry count: %w", err)
	}
	count := binary.BigEndian.Uint32(countBuf[:])

	entries := make([]ExtendedChunk, count)
	for i := range entries {
		entry, err := parseEntry(r)
		if err != nil {
			return nil, fmt.Errorf("jgr: SLXI entry %d: %w", i, err)
		}
		entries[i] = entry
	}

	return &SLXI{ChunkVersion: chunkVersion, Flags: flags, Entries: entries}, nil
}

func parseEntry(r io.Reader) (ExtendedChunk, error) {
	var flagBuf [4]byte
	if _, err := io.ReadFull(r, flagBuf[:]); err != nil {
		return ExtendedChunk{}, fmt.Errorf("truncated flags: %w", err)
	}
	flags := binary.BigEndian.Uint32(flagBuf[:])

	var verBuf [2]byte
	if _, err := io.ReadFull(r, verBuf[:]); err != nil {
		return ExtendedChunk{}, fmt.Errorf("truncated chunk version: %w", err)
	}
	chunkVersion := binary.BigEndian.Uint16(verBuf[:])

	nameLen, err := gamma.Read(r)
	if err != nil {
		return ExtendedChunk{}, fmt.Errorf("truncated name length: %w", err)
	}
	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return ExtendedChunk{}, fmt.Errorf("truncated name: %w", err)
	}

	entry := ExtendedChunk{
		Name:             string(nameBuf),
		ChunkVersion:     chunkVersion,
		IgnorableUnknown: flags&flagIgnorableUnknown != 0,
		IgnorableVersion: flags&flagIgnorableVersion != 0,
	}

	if flags&flagExtraDataPresent != 0 {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return ExtendedChunk{}, fmt.Errorf("truncated extra data length: %w", err)
		}
		extraLen := binary.BigEndian.Uint32(lenBuf[:])
		extra := make([]byte, extraLen)
		if _, err := io.ReadFull(r, extra); err != nil {
			return ExtendedChunk{}, fmt.Errorf("truncated extra data: %w", err)
		}
		entry.ExtraData = extra
	}

	if flags&flagChunkIDListPresent != 0 {
		var countBuf [4]byte
		if _, err := io.ReadFull(r, countBuf[:]); err != nil {
			return ExtendedChunk{}, fmt.Errorf("truncated chunk id count: %w", err)
		}
		idCount := binary.BigEndian.Uint32(countBuf[:])
		ids := make([]string, idCount)
		for i := range ids {
			var tag [4]byte
			if _, err := io.ReadFull(r, tag[:]); err != nil {
				return ExtendedChunk{}, fmt.Errorf("truncated chunk id: %w", err)
			}
			ids[i] = string(tag[:])
		}
		entry.ChunkIDs = ids
	}

	return entry, nil
}

// Encode serializes s back into an SLXI record payload.
func (s *SLXI) Encode() ([]byte, error) {
	var buf bytes.Buffer
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], s.ChunkVersion)
	binary.BigEndian.PutUint32(hdr[4:8], s.Flags)
	buf.Write(hdr[:])

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(s.Entries)))
	buf.Write(countBuf[:])

	for _, e := range s.Entries {
		if err := encodeEntry(&buf, e); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeEntry(buf *bytes.Buffer, e ExtendedChunk) error {
	var flags uint32
	if e.IgnorableUnknown {
		flags |= flagIgnorableUnknown
	}
	if e.IgnorableVersion {
		flags |= flagIgnorableVersion
	}
	if e.ExtraData != nil {
		flags |= flagExtraDataPresent
	}
	if e.ChunkIDs != nil {
		flags |= flagChunkIDListPresent
	}

	var flagBuf [4]byte
	binary.BigEndian.PutUint32(flagBuf[:], flags)
	buf.Write(flagBuf[:])

	var verBuf [2]byte
	binary.BigEndian.PutUint16(verBuf[:], e.ChunkVersion)
	buf.Write(verBuf[:])

	if err := gamma.Write(buf, uint32(len(e.Name))); err != nil {
		return err
	}
	buf.WriteString(e.Name)

	if e.ExtraData != nil {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(e.ExtraData)))
		buf.Write(lenBuf[:])
		buf.Write(e.ExtraData)
	}

	if e.ChunkIDs != nil {
		var countBuf [4]byte
		binary.BigEndian.PutUint32(countBuf[:], uint32(len(e.ChunkIDs)))
		buf.Write(countBuf[:])
		for _, id := range e.ChunkIDs {
			if len(id) != 4 {
				return fmt.Errorf("jgr: chunk id %q must be 4 characters", id)
			}
			buf.WriteString(id)
		}
	}
	return nil
}
