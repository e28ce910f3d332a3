package interpret

import (
	"fmt"
	"strings"

	"github.com/teemow/calprompt/internal/dates"
)

const answerShape = `{
  "interpretation": "What you understood and the changes you are making",
  "actions": [
    {
      "action": "create",
      "event": {
        "title": "Event title",
        "startDate": "YYYY-MM-DD",
        "endDate": "YYYY-MM-DD",
        "eventType": "type name (optional)",
        "notes": "free text (optional)"
      }
    },
    {
      "action": "update",
      "event": {
        "id": "id of the existing event (REQUIRED for update)",
        "title": "New title",
        "startDate": "YYYY-MM-DD",
        "endDate": "YYYY-MM-DD",
        "eventType": "type name (optional)"
      }
    },
    {
      "action": "delete",
      "event": {
        "id": "id of the event to delete (REQUIRED for delete)",
        "title": "title, for reference"
      }
    }
  ],
  "newEventTypes": [
    { "name": "New type", "suggestedColor": "#3b82f6" }
  ],
  "warnings": ["Warning about a conflict or an ambiguity"],
  "questions": ["Question when a clarification is needed"]
}`

const splitRules = `MULTI-DAY EVENTS, WEEKENDS AND HOLIDAYS:
- An event with startDate and endDate is shown on EVERY day between the two dates, weekends and holidays INCLUDED.
- Events marked with ⚠️ contain special days that may need to be cut out.
- Example: an event from lundi 2 March to mercredi 11 March also appears on samedi 7 and dimanche 8 March.

To "remove the weekends" or "exclude the holidays":
- SPLIT the event into segments that avoid those days.
- Example: "Training" from 2 to 11 March becomes "Training" 2-6 March (before the weekend) and "Training" 9-11 March (after it).
- Example: "Ascension bridge" from 14 to 18 May contains Ascension on the 14th and becomes "Ascension bridge" 15-18 May.
- To split: create the new segments with "create" AND delete the original event with "delete".`

func writeSection(b *strings.Builder, title string, lines []string, empty string) {
	b.WriteString(title)
	b.WriteString(":\n")
	if len(lines) == 0 {
		b.WriteString(empty)
		b.WriteString("\n\n")
		return
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (g Grounding) referenceLines() []string {
	lines := make([]string, len(g.Reference))
	for i, m := range g.Reference {
		lines[i] = m.String()
	}
	return lines
}

func (g Grounding) eventLines() []string {
	lines := make([]string, len(g.Events))
	for i, e := range g.Events {
		lines[i] = e.String()
	}
	return lines
}

func (g Grounding) typeLines() []string {
	lines := make([]string, len(g.Types))
	for i, t := range g.Types {
		lines[i] = fmt.Sprintf("- %s (%s)", t.Name, t.Color)
	}
	return lines
}

func (g Grounding) holidayLines() []string {
	lines := make([]string, len(g.Holidays))
	for i, h := range g.Holidays {
		lines[i] = fmt.Sprintf("- %s: %s", h.ISODate(), h.Name)
	}
	return lines
}

func (g Grounding) schoolLines() []string {
	lines := make([]string, len(g.School))
	for i, s := range g.School {
		zones := make([]string, len(s.Zones))
		for j, z := range s.Zones {
			zones[j] = string(z)
		}
		lines[i] = fmt.Sprintf("- %s: from %s to %s (zones %s)",
			s.Name, dates.FormatDate(s.Start), dates.FormatDate(s.End), strings.Join(zones, ", "))
	}
	return lines
}

// SystemPrompt renders the grounding as the system instruction of a
// natural-language request.
func (g Grounding) SystemPrompt() string {
	var b strings.Builder

	b.WriteString("You are a calendar planning assistant. You receive natural-language instructions to create, change or delete events.\n\n")

	fmt.Fprintf(&b, "CURRENT CONTEXT:\n- Today: %s %s\n- Current year: %d\n- School zone: %s\n\n",
		g.TodayName, dates.FormatDate(g.Today), g.Today.Year(), g.Zone)

	writeSection(&b, "REFERENCE CALENDAR (MANDATORY)", g.referenceLines(), "")
	b.WriteString("⚠️ IMPORTANT: read weekdays and dates off this reference calendar. NEVER work out a weekday yourself, it is often wrong. ")
	b.WriteString(`For example, for "the 2nd Friday of January", find the line for that January and take the 2nd number of the Fridays list.` + "\n\n")

	writeSection(&b, "EXISTING EVENTS", g.eventLines(), "No events")
	writeSection(&b, "AVAILABLE EVENT TYPES", g.typeLines(), "No types defined")
	writeSection(&b, "FRENCH PUBLIC HOLIDAYS", g.holidayLines(), "None")
	writeSection(&b, fmt.Sprintf("SCHOOL HOLIDAYS (zone %s)", g.Zone), g.schoolLines(), "None")

	b.WriteString(`DEFAULT RULES:
- Events run Monday to Friday unless told otherwise
- Avoid public holidays unless explicitly asked
- Take school holidays into account when planning
- "Week" = 5 working days (Monday to Friday)
- "Fortnight" = 2 weeks
- When no year is given, use the current year, or next year if the date has already passed

`)
	b.WriteString(splitRules)
	b.WriteString(`

READING DATES:
- "early January" = 1-10 January
- "mid-January" = 10-20 January
- "late January" = 20-31 January
- "the week of the 15th" = from the Monday of the week containing the 15th to its Friday
- "3 weeks before X" = compute the date with a tool
- "after the February break" or "during the X break" = use the school holidays above

INSTRUCTIONS:
1. Interpret the request precisely.
2. You MUST use the date tools to obtain exact dates. NEVER guess a date, weekday arithmetic done in your head is unreliable.
   - "the 2nd Friday of January 2026" → get_nth_weekday_of_month
   - "the last Friday of March" → get_last_weekday_of_month
   - "3 weeks before 15 March" → get_relative_date
   - "which day is a date" → get_day_of_week
   - "next Monday" → get_next_weekday
   - "the week of the 15th" → get_monday_of_week
3. Create event types when needed.
4. Answer with valid JSON ONLY, no text before or after.

ANSWER FORMAT (JSON only, no markdown):
`)
	b.WriteString(answerShape)
	return b.String()
}

func (g Grounding) synthesisEventLines() []string {
	lines := make([]string, len(g.Events))
	for i, e := range g.Events {
		typeName := e.TypeName
		if typeName == "" {
			typeName = "none"
		}
		lines[i] = fmt.Sprintf("[id:%s] %s | %s → %s | type: %s%s",
			e.ID, e.Title, dayLabel(e.Start), dayLabel(e.End), typeName, e.Warnings())
	}
	return lines
}

// SynthesisPrompt renders the grounding as the system instruction of a
// synthesis edit, where the user rewrites a summary of the whole calendar.
func (g Grounding) SynthesisPrompt() string {
	var b strings.Builder

	b.WriteString("You are an assistant that edits a calendar following the user's instructions.\n\n")
	fmt.Fprintf(&b, "Today: %s %s\n\n", g.TodayName, dates.FormatDate(g.Today))

	writeSection(&b, "CURRENT CALENDAR STATE", g.synthesisEventLines(), "No events")
	writeSection(&b, "AVAILABLE EVENT TYPES", g.typeLines(), "No types")
	writeSection(&b, "REFERENCE CALENDAR", g.referenceLines(), "")

	fmt.Fprintf(&b, `RULES:
1. Default year: %d. Use the reference calendar or the date tools for weekdays.
2. To DELETE: action "delete" with the exact id
3. To CHANGE: action "update" with the exact id
4. To CREATE: action "create" (no id)

`, g.Today.Year())
	b.WriteString(splitRules)
	b.WriteString("\n\nANSWER WITH JSON ONLY:\n")
	b.WriteString(answerShape)
	return b.String()
}

// SynthesisInstruction wraps the user's rewritten summary as the instruction
// of a synthesis run.
func SynthesisInstruction(summary string) string {
	return "Here is the new summary of the calendar:\n\n" + summary
}
