// Package holidays computes French public holidays and resolves the curated
// school-holiday table per school zone.
//
// Public holidays are derived from the year alone (fixed dates plus the
// Easter-relative ones). School holidays are external data embedded as YAML
// and may be replaced at runtime with LoadSchoolTable.
package holidays
