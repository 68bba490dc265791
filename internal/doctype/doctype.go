// Package doctype defines the closed set of document types beacon ingests,
// together with their authority tiers and chunking parameters.
//
// Everything that varies per document type lives here as a table lookup:
// adding a new type is a single entry in each table, not a string hunt
// through callers. The string values must match the source_type metadata
// stored in the vector index.
package doctype

import (
	"path/filepath"
	"strings"
)

// Type identifies a document category.
type Type string

// Known document types, roughly ordered by authority.
const (
	Determination           Type = "determination"
	HistoricalDetermination Type = "historical_determination"
	BuildingCode            Type = "building_code"
	Rule                    Type = "rule"
	Zoning                  Type = "zoning"
	TechnicalBulletin       Type = "technical_bulletin"
	PolicyMemo              Type = "policy_memo"
	ServiceNotice           Type = "service_notice"
	Procedure               Type = "procedure"
	Checklist               Type = "checklist"
	Reference               Type = "reference"
	Communication           Type = "communication"
	InternalNotes           Type = "internal_notes"
	OutOfCityFiling         Type = "out_of_nyc_filing"
	Correction              Type = "correction"
	Generic                 Type = "document"
)

// LowestTier is the authority assigned to generic and unknown types.
const LowestTier = 2

// CorrectionTier is the single highest authority tier. Team corrections
// always rank here regardless of any similarity score.
const CorrectionTier = 10

// authorityTiers ranks document types when retrieved sources conflict.
// Higher wins. Keys must cover every constant above.
var authorityTiers = map[Type]int{
	Determination:           10,
	Correction:              CorrectionTier,
	BuildingCode:            9,
	Rule:                    9,
	Zoning:                  9,
	TechnicalBulletin:       8,
	HistoricalDetermination: 8,
	PolicyMemo:              7,
	ServiceNotice:           6,
	Procedure:               5,
	Checklist:               4,
	Reference:               4,
	Communication:           3,
	InternalNotes:           3,
	OutOfCityFiling:         3,
	Generic:                 LowestTier,
}

// AuthorityTier returns the authority rank for a document type.
// Unknown types get the lowest defined tier rather than an error, so a
// mistyped source_type in the index degrades ranking instead of breaking it.
func AuthorityTier(t Type) int {
	if tier, ok := authorityTiers[t]; ok {
		return tier
	}
	return LowestTier
}

// ChunkParams holds the target chunk size and overlap for a document type,
// both in characters of normalized text.
type ChunkParams struct {
	Size    int
	Overlap int
}

// DefaultChunkParams applies to unknown document types.
var DefaultChunkParams = ChunkParams{Size: 1000, Overlap: 200}

// chunkParams sizes chunks per document type. Legal reasoning in
// determinations must stay intact, so they chunk large; service notices
// are short and self-contained, so they chunk small. Corrections are
// never chunked (injected whole), hence the oversized setting.
var chunkParams = map[Type]ChunkParams{
	Determination:           {Size: 2500, Overlap: 400},
	HistoricalDetermination: {Size: 2500, Overlap: 400},
	BuildingCode:            {Size: 1500, Overlap: 300},
	Rule:                    {Size: 1500, Overlap: 300},
	Zoning:                  {Size: 1500, Overlap: 300},
	TechnicalBulletin:       {Size: 1500, Overlap: 250},
	Procedure:               {Size: 1500, Overlap: 250},
	ServiceNotice:           {Size: 1000, Overlap: 200},
	PolicyMemo:              {Size: 1200, Overlap: 200},
	InternalNotes:           {Size: 2000, Overlap: 300},
	Correction:              {Size: 5000, Overlap: 0},
	Checklist:               {Size: 2000, Overlap: 200},
	Reference:               {Size: 1500, Overlap: 250},
	OutOfCityFiling:         {Size: 1500, Overlap: 200},
}

// ChunkSettings returns the chunk size and overlap for a document type,
// falling back to DefaultChunkParams for unknown types.
func ChunkSettings(t Type) ChunkParams {
	if p, ok := chunkParams[t]; ok {
		return p
	}
	return DefaultChunkParams
}

// Parse normalizes a raw source_type string to a Type.
// Unknown strings map to Generic, never an error.
func Parse(s string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return Generic
	}
	if _, ok := authorityTiers[t]; ok {
		return t
	}
	// "process" is a legacy alias for procedure used under knowledge/processes/.
	if t == "process" {
		return Procedure
	}
	return Generic
}

// folderHints maps knowledge-folder names to document types, checked in
// order so more specific folders win over catch-alls.
var folderHints = []struct {
	folder string
	t      Type
}{
	{"service_notices", ServiceNotice},
	{"technical_bulletins", TechnicalBulletin},
	{"policy_memos", PolicyMemo},
	{"determinations", Determination},
	{"historical", HistoricalDetermination},
	{"building_code", BuildingCode},
	{"zoning", Zoning},
	{"processes", Procedure},
	{"procedures", Procedure},
	{"communication", Communication},
	{"checklists", Checklist},
	{"reference", Reference},
}

// filenameHints maps filename fragments to document types.
var filenameHints = []struct {
	fragment string
	t        Type
}{
	{"determination", Determination},
	{"det_", Determination},
	{"ccd1", Determination},
	{"zrd", Determination},
	{"service", ServiceNotice},
	{"notice", ServiceNotice},
	{"violation", ServiceNotice},
	{"bulletin", TechnicalBulletin},
	{"memo", PolicyMemo},
	{"procedure", Procedure},
	{"checklist", Checklist},
}

// DetectFromPath guesses a document type from the folder structure and
// filename of an ingested file. Folder names are checked first because
// the knowledge corpus is organized by type; the filename is a fallback.
// Returns Generic when nothing matches.
func DetectFromPath(path string) Type {
	lower := strings.ToLower(filepath.ToSlash(path))

	parts := strings.Split(lower, "/")
	for _, hint := range folderHints {
		for _, part := range parts[:max(len(parts)-1, 0)] {
			if part == hint.folder {
				return hint.t
			}
		}
	}

	name := ""
	if len(parts) > 0 {
		name = parts[len(parts)-1]
	}
	for _, hint := range filenameHints {
		if strings.Contains(name, hint.fragment) {
			return hint.t
		}
	}

	return Generic
}
