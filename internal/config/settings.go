package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Date is a full calendar date written as YYYY-MM-DD in the settings file.
type Date struct {
	time.Time
}

// UnmarshalYAML reads the raw scalar so YAML timestamp resolution never
// shifts the date into another zone.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%s: line %d: expected a scalar", ErrDateParse, value.Line)
	}
	t, err := time.Parse(DateFormatISODate, strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("%s: line %d: %q", ErrDateParse, value.Line, value.Value)
	}
	d.Time = t
	return nil
}

// MonthDay is a yearless date (MM/DD) that recurs every year.
type MonthDay struct {
	Month time.Month
	Day   int
}

// ParseMonthDay parses "MM/DD". Feb 29 is accepted.
func ParseMonthDay(s string) (MonthDay, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return MonthDay{}, fmt.Errorf("%s: %q", ErrMonthDay, s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return MonthDay{}, fmt.Errorf("%s: %q: %w", ErrMonthDay, s, err)
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return MonthDay{}, fmt.Errorf("%s: %q: %w", ErrMonthDay, s, err)
	}
	md := MonthDay{Month: time.Month(month), Day: day}
	if err := md.Validate(); err != nil {
		return MonthDay{}, err
	}
	return md, nil
}

// Validate checks the month/day against a leap year so Feb 29 passes.
func (md MonthDay) Validate() error {
	if md.Month < time.January || md.Month > time.December {
		return fmt.Errorf("%s: month %d", ErrMonthDay, md.Month)
	}
	last := time.Date(DefaultLeapYear, md.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if md.Day < 1 || md.Day > last {
		return fmt.Errorf("%s: %s has no day %d", ErrMonthDay, md.Month, md.Day)
	}
	return nil
}

func (md MonthDay) String() string {
	return fmt.Sprintf("%02d/%02d", int(md.Month), md.Day)
}

// IsZero reports whether the value was never set.
func (md MonthDay) IsZero() bool {
	return md.Month == 0 && md.Day == 0
}

func (md *MonthDay) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%s: line %d: expected a scalar", ErrMonthDay, value.Line)
	}
	parsed, err := ParseMonthDay(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*md = parsed
	return nil
}

// Person is a family member from the static roster.
type Person struct {
	Name        string `yaml:"name"`
	DateOfBirth Date   `yaml:"date_of_birth"`
	Sex         string `yaml:"sex"`
	Interests   string `yaml:"interests,omitempty"`
	Image       string `yaml:"image,omitempty"`
}

// Pet is a family pet.
type Pet struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// SpecialDate is a countdown target that recurs every year.
type SpecialDate struct {
	Title string   `yaml:"title"`
	Date  MonthDay `yaml:"date"`
	Emoji string   `yaml:"emoji,omitempty"`
}

// Chore rotates daily through an ordered list of candidate assignees.
type Chore struct {
	Title   string   `yaml:"title"`
	Emoji   string   `yaml:"emoji,omitempty"`
	Choices []string `yaml:"choices"`
}

// Settings models config.yaml. It is loaded once at start and passed
// explicitly to every component; nothing reads it from global state.
type Settings struct {
	CalendarURL          string   `yaml:"calendar_url"`
	CalendarFilterEmails []string `yaml:"calendar_filter_emails"`
	CalendarDaysAhead    int      `yaml:"calendar_days_ahead"`
	Timezone             string   `yaml:"timezone"`

	Model      string `yaml:"claude_model"`
	MaxTokens  int    `yaml:"max_tokens"`
	APIBaseURL string `yaml:"api_base_url"`

	DataFile    string `yaml:"data_file"`
	ICSFile     string `yaml:"ics_file"`
	ICSReminder string `yaml:"ics_reminder"`
	PeopleVCard string `yaml:"people_vcard"`

	People       []Person      `yaml:"people"`
	Pets         []Pet         `yaml:"pets"`
	Recurring    []Chore       `yaml:"recurring"`
	SpecialDates []SpecialDate `yaml:"special_dates"`

	// BaseDir is the directory relative paths are resolved against.
	BaseDir string `yaml:"-"`

	location *time.Location
}

// Defaults returns settings carrying every default value.
func Defaults() Settings {
	return Settings{
		CalendarDaysAhead: DefaultDaysAhead,
		Model:             DefaultModel,
		MaxTokens:         DefaultMaxTokens,
		APIBaseURL:        DefaultAPIBaseURL,
		DataFile:          DefaultDataFile,
	}
}

// Load reads, decodes and validates the settings file at path.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrConfigRead, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrConfigRead, err)
	}
	return Parse(data, filepath.Dir(abs))
}

// Parse decodes settings from YAML. Unknown keys are rejected so typos in
// the roster surface as configuration defects instead of silent omissions.
func Parse(data []byte, baseDir string) (*Settings, error) {
	s := Defaults()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", ErrConfigParse, err)
	}

	s.BaseDir = baseDir
	s.DataFile = s.resolve(s.DataFile)
	s.ICSFile = s.resolve(s.ICSFile)
	s.PeopleVCard = s.resolve(s.PeopleVCard)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports every configuration defect at once.
func (s *Settings) Validate() error {
	var errs []error

	if s.CalendarDaysAhead < 0 {
		errs = append(errs, fmt.Errorf("calendar_days_ahead must not be negative: %d", s.CalendarDaysAhead))
	}
	if s.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be positive: %d", s.MaxTokens))
	}
	if strings.TrimSpace(s.Model) == "" {
		errs = append(errs, errors.New("claude_model is required"))
	}
	if strings.TrimSpace(s.DataFile) == "" {
		errs = append(errs, errors.New("data_file is required"))
	}
	if s.ICSReminder != "" && !strings.HasPrefix(s.ICSReminder, ISOPeriodPrefix) &&
		!strings.HasPrefix(s.ICSReminder, ISONegativePrefix) {
		errs = append(errs, fmt.Errorf("ics_reminder must be an ISO-8601 duration: %q", s.ICSReminder))
	}

	loc := time.Local
	if s.Timezone != "" {
		l, err := time.LoadLocation(s.Timezone)
		if err != nil {
			errs = append(errs, fmt.Errorf("timezone %q: %w", s.Timezone, err))
		} else {
			loc = l
		}
	}
	s.location = loc

	seen := make(map[string]bool, len(s.People))
	for i, p := range s.People {
		name := strings.TrimSpace(p.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("people[%d]: name is required", i))
		case seen[name]:
			errs = append(errs, fmt.Errorf("people[%d]: duplicate name %q", i, name))
		}
		seen[name] = true
		if p.DateOfBirth.IsZero() {
			errs = append(errs, fmt.Errorf("people[%d] %q: %s", i, name, ErrMissingDOB))
		}
	}

	for i, pet := range s.Pets {
		if strings.TrimSpace(pet.Name) == "" {
			errs = append(errs, fmt.Errorf("pets[%d]: name is required", i))
		}
	}

	for i, c := range s.Recurring {
		if strings.TrimSpace(c.Title) == "" {
			errs = append(errs, fmt.Errorf("recurring[%d]: title is required", i))
		}
		if len(c.Choices) == 0 {
			errs = append(errs, fmt.Errorf("recurring[%d] %q: %s", i, c.Title, ErrEmptyChoices))
		}
	}

	for i, sd := range s.SpecialDates {
		if strings.TrimSpace(sd.Title) == "" {
			errs = append(errs, fmt.Errorf("special_dates[%d]: title is required", i))
		}
		if sd.Date.IsZero() {
			errs = append(errs, fmt.Errorf("special_dates[%d] %q: date is required", i, sd.Title))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", ErrConfigInvalid, errors.Join(errs...))
	}
	return nil
}

// Location returns the zone "today" is computed in.
func (s *Settings) Location() *time.Location {
	if s.location == nil {
		return time.Local
	}
	return s.location
}

func (s *Settings) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || s.BaseDir == "" {
		return path
	}
	return filepath.Join(s.BaseDir, path)
}
