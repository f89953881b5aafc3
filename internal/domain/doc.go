// Package domain models FAA aeronautical source data and the rules for
// normalizing it.
//
// # Data Sources
//
// NASR (National Airspace System Resources) is republished every AIRAC
// cycle of 28 days as a subscription archive holding fixed-width text files.
// Three are used here:
//
//	APT.txt  airport/landing facility records, base lines start with "APT"
//	NAV.txt  navaid records, base lines start with "NAV1"
//	FIX.txt  fix/reporting point records, base lines start with "FIX1"
//
// The files are Latin-1 encoded. Continuation records (APT runway lines,
// NAV2..NAV6, FIX2..FIX5) carry other layouts and are ignored.
//
// The DOF (Digital Obstacle File) is republished every 56 days as DOF.DAT.
// It opens with a header block, including a line of the form
//
//	  CURRENCY DATE = 01/18/26
//
// followed by column captions and a dashed separator, then one obstacle per
// line. Lines that begin with "CUR", "OAS", "-" or a space are header text.
//
// Obstruction NOTAMs come from the FAA NOTAM Management Service as GeoJSON
// features; only the free text and point geometry are used.
//
// # Coordinate Dialects
//
// NASR writes coordinates as hyphenated DMS with a trailing hemisphere:
//
//	"35-20-04.532N"  →  35.334592
//	"097-39-50.120W" → -97.663922
//
// DOF writes space-separated DMS with the hemisphere glued to the seconds:
//
//	"35 20 04.53N"   →  35.334592
//
// Both are converted to signed decimal degrees rounded to six places. A
// coordinate that cannot be read drops its record rather than placing it at
// 0,0; see [ParseCompactDMS] and [ParseSpacedDMS].
//
// # AIRAC Cycles
//
// Cycles are counted from cycle 2601 (effective 2026-01-22). The cycle for a
// date is the latest epoch-aligned 28-day boundary on or before it; see
// [ResolveCycle]. The identifier YYNN numbers cycles within their start year.
//
// # Obstacle Notices
//
// A NOTAM is reported as an unlit obstacle only when its text names an
// obstacle (OBST), a light (LGT/LIGHT) and an outage (OUT, U/S, UNMON, UNLIT,
// OBSCURED). Heights are read from "<digits> [FT] AGL"; see [IsUnlitObstacle].
package domain
