package voice

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/buchungsbutler/voiceagent/internal/models"
)

var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

const systemTemplate = `Du bist ein hilfreicher Sprachassistent für Kalender- und Terminverwaltung von {{company}}.
Du antwortest auf Deutsch.

Kalender-Kontext:
{{calendar_context}}

Wenn der Benutzer nach:
- Verfügbarkeit fragt: Überprüfe den Kalender-Kontext und schlage freie Zeitfenster vor
- Termine erstellen möchte: Extrahiere die Details (Titel, Zeit, Dauer) und gib an, dass ein Termin erstellt werden soll
- Kalender-Infos fragt: Gib die Informationen aus dem Kalender-Kontext

Antworte natürlich und kurz, da dies eine Sprachausgabe ist.`

const noAppointments = "Keine anstehenden Termine gefunden."

// Render replaces {{variable}} placeholders in tmpl with values from vars.
// Every placeholder must have a value.
func Render(tmpl string, vars map[string]string) (string, error) {
	var missing []string
	seen := map[string]bool{}
	for _, m := range variablePattern.FindAllStringSubmatch(tmpl, -1) {
		if _, ok := vars[m[1]]; !ok && !seen[m[1]] {
			missing = append(missing, m[1])
			seen[m[1]] = true
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}

	return variablePattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		return vars[match[2:len(match)-2]]
	}), nil
}

// CalendarContext lists the appointments the assistant may talk about.
func CalendarContext(appointments []models.Appointment, loc *time.Location) string {
	if len(appointments) == 0 {
		return noAppointments
	}
	var b strings.Builder
	b.WriteString("Anstehende Termine:\n")
	for _, a := range appointments {
		fmt.Fprintf(&b, "- %s am %s (%s)\n", a.Title, a.StartTime.In(loc).Format("02.01.2006 15:04"), a.CalendarProvider)
	}
	return b.String()
}

func systemPrompt(company, calendarContext string) (string, error) {
	return Render(systemTemplate, map[string]string{
		"company":          company,
		"calendar_context": calendarContext,
	})
}
