package schedule

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used as the partition key.
const DateLayout = "2006-01-02"

// Mode selects which calendar date is displayed.
type Mode int

const (
	ModeToday Mode = iota
	ModePrevious
	ModeSpecific
)

func (m Mode) String() string {
	switch m {
	case ModeToday:
		return "today"
	case ModePrevious:
		return "previous"
	case ModeSpecific:
		return "specific"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "today", "previous" or "specific" (case-insensitive).
// "yesterday" is accepted for previous.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today", "":
		return ModeToday, nil
	case "previous", "yesterday":
		return ModePrevious, nil
	case "specific", "date":
		return ModeSpecific, nil
	default:
		return ModeToday, fmt.Errorf("unknown view mode: %s", s)
	}
}

// Selection is the view the user asked for. ExplicitDate is only
// meaningful in ModeSpecific.
type Selection struct {
	Mode         Mode
	ExplicitDate string
}

// Today selects the current calendar date.
func Today() Selection { return Selection{Mode: ModeToday} }

// Previous selects the calendar date before today.
func Previous() Selection { return Selection{Mode: ModePrevious} }

// Specific selects an explicit YYYY-MM-DD date.
func Specific(date string) Selection {
	return Selection{Mode: ModeSpecific, ExplicitDate: strings.TrimSpace(date)}
}

// WithMode switches the selection to m. Leaving ModeSpecific drops the
// explicit date so it cannot resurface in a later specific selection.
func (s Selection) WithMode(m Mode) Selection {
	if m != ModeSpecific {
		return Selection{Mode: m}
	}
	if s.Mode != ModeSpecific {
		return Selection{Mode: ModeSpecific}
	}
	return s
}

func (s Selection) String() string {
	if s.Mode == ModeSpecific {
		return s.ExplicitDate
	}
	return s.Mode.String()
}

// ResolveDate returns the canonical YYYY-MM-DD date for sel, computed
// from now in now's location.
func ResolveDate(sel Selection, now time.Time) (string, error) {
	switch sel.Mode {
	case ModeToday:
		return now.Format(DateLayout), nil
	case ModePrevious:
		return now.AddDate(0, 0, -1).Format(DateLayout), nil
	case ModeSpecific:
		if err := ValidateDate(sel.ExplicitDate); err != nil {
			return "", err
		}
		return sel.ExplicitDate, nil
	default:
		return "", fmt.Errorf("unknown view mode: %v", sel.Mode)
	}
}

// ValidateDate returns an *InvalidDateError unless s is a real calendar
// date in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return &InvalidDateError{Value: s, Err: err}
	}
	return nil
}
