// Package prescription turns a photographed medication label into a
// prefilled prescription. Its output is untrusted: callers must pass the
// draft through dose.NewMedication like any manual entry.
package prescription

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"medication-tracker/internal/dose"
)

var ErrNothingFound = errors.New("no prescription details found")

// Draft holds whatever could be read from the label; zero means unknown.
type Draft struct {
	Name           string `json:"name"`
	TotalTablets   int    `json:"totalTablets"`
	DosesPerDay    int    `json:"dosesPerDay"`
	TabletsPerDose int    `json:"tabletsPerDose"`
}

func (d Draft) Empty() bool {
	return d == Draft{}
}

// Prescription converts the draft for validation. An unknown tablets-per-dose
// defaults to 1, matching the entry form.
func (d Draft) Prescription() dose.Prescription {
	perDose := d.TabletsPerDose
	if perDose == 0 {
		perDose = 1
	}
	return dose.Prescription{
		Name:           d.Name,
		TotalTablets:   d.TotalTablets,
		DosesPerDay:    d.DosesPerDay,
		TabletsPerDose: perDose,
	}
}

var (
	rxTotal = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:qty|quantity|count|disp(?:ense|ensed)?)\s*[:#.]?\s*(\d{1,4})\b`),
		regexp.MustCompile(`(?i)#\s*(\d{1,4})\b`),
		regexp.MustCompile(`(?i)\b(\d{1,4})\s*(?:tablets|tabs|capsules|caps|pills)\b`),
	}
	rxPerDose   = regexp.MustCompile(`(?i)\btake\s+(\d+|one|two|three|four|half)\s*(?:tablet|tab|capsule|cap|pill)s?\b`)
	rxTimesDay  = regexp.MustCompile(`(?i)\b(\d+|one|two|three|four|five|six)\s*(?:x|times)\s*(?:a|per|each)?\s*(?:day|daily)\b`)
	rxWordsDay  = regexp.MustCompile(`(?i)\b(once|twice|thrice)\s*(?:a|per|each)?\s*(?:day|daily)\b`)
	rxEveryHour = regexp.MustCompile(`(?i)\bevery\s+(\d{1,2})\s*(?:hours|hrs|h)\b`)
	rxLatin     = regexp.MustCompile(`(?i)\b(qd|od|bid|tid|qid)\b`)
	rxDaily     = regexp.MustCompile(`(?i)\b(?:daily|every day|each day|at bedtime|every morning)\b`)
	rxNameLine  = regexp.MustCompile(`^([A-Za-z][A-Za-z\- ]{2,40}?)\s+\d+(?:\.\d+)?\s*(?:mg|mcg|g|ml|iu)\b`)
	rxLetters   = regexp.MustCompile(`^[A-Za-z][A-Za-z\- ]{2,40}$`)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"once": 1, "twice": 2, "thrice": 3,
	"qd": 1, "od": 1, "bid": 2, "tid": 3, "qid": 4,
}

// skipped when guessing the medication name from a bare line
var headerWords = []string{"rx", "pharmacy", "patient", "doctor", "dr", "refill", "date", "take", "qty", "warning"}

func atoiWord(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, ok := numberWords[s]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ParseText extracts prescription fields from OCR text.
func ParseText(text string) (Draft, error) {
	var d Draft

	d.Name = parseName(text)

	for _, rx := range rxTotal {
		if m := rx.FindStringSubmatch(text); m != nil {
			if n, ok := atoiWord(m[1]); ok {
				d.TotalTablets = n
				break
			}
		}
	}

	if m := rxPerDose.FindStringSubmatch(text); m != nil {
		if n, ok := atoiWord(m[1]); ok {
			d.TabletsPerDose = n
		}
		// half a tablet cannot be tracked in whole units; leave unknown
	}

	d.DosesPerDay = parseDosesPerDay(text)

	if d.Empty() {
		return d, ErrNothingFound
	}
	return d, nil
}

func parseDosesPerDay(text string) int {
	for _, rx := range []*regexp.Regexp{rxTimesDay, rxWordsDay, rxLatin} {
		if m := rx.FindStringSubmatch(text); m != nil {
			if n, ok := atoiWord(m[1]); ok {
				return n
			}
		}
	}
	if m := rxEveryHour.FindStringSubmatch(text); m != nil {
		if h, err := strconv.Atoi(m[1]); err == nil && h > 0 && h <= 24 {
			return 24 / h
		}
	}
	if rxDaily.MatchString(text) {
		return 1
	}
	return 0
}

func parseName(text string) string {
	lines := strings.Split(text, "\n")
	for _, l := range lines {
		if m := rxNameLine.FindStringSubmatch(strings.TrimSpace(l)); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if !rxLetters.MatchString(l) || isHeader(l) {
			continue
		}
		return l
	}
	return ""
}

func isHeader(line string) bool {
	first := strings.ToLower(strings.Fields(line)[0])
	first = strings.TrimRight(first, ":.")
	for _, w := range headerWords {
		if first == w {
			return true
		}
	}
	return false
}
