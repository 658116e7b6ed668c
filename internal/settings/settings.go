// Package settings holds the user-facing preferences record shared by the
// popup, the options page and the accounting core.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/runnerr0/dwell/internal/classify"
	"github.com/runnerr0/dwell/internal/storage"
)

// Key is the storage key of the single Settings record.
const Key = "settings"

// Privacy levels.
const (
	PrivacyStandard = "standard"
	PrivacyStrict   = "strict"
)

// Settings is replaced as a whole on every update; there is no partial merge.
type Settings struct {
	DailyScreenTimeGoal   int            `json:"dailyScreenTimeGoal" validate:"gte=0,lte=1440"`
	FocusModeDuration     int            `json:"focusModeDuration" validate:"gte=1,lte=1440"`
	BreakDuration         int            `json:"breakDuration" validate:"gte=0,lte=1440"`
	BreakReminderInterval int            `json:"breakReminderInterval" validate:"gte=0,lte=1440"`
	NotificationsEnabled  bool           `json:"notificationsEnabled"`
	PrivacyLevel          string         `json:"privacyLevel" validate:"oneof=standard strict"`
	SiteLimits            map[string]int `json:"siteLimits" validate:"dive,keys,required,endkeys,gte=0"`
	CategoryLimits        map[string]int `json:"categoryLimits" validate:"dive,keys,required,endkeys,gte=0"`
	ProductiveDomains     []string       `json:"productiveDomains" validate:"dive,required"`
}

// Defaults mirrors the values the extension installs on first run.
func Defaults() Settings {
	return Settings{
		DailyScreenTimeGoal:   180,
		FocusModeDuration:     25,
		BreakDuration:         5,
		BreakReminderInterval: 60,
		NotificationsEnabled:  true,
		PrivacyLevel:          PrivacyStandard,
		SiteLimits:            map[string]int{},
		CategoryLimits:        map[string]int{},
		ProductiveDomains:     []string{"docs.google.com", "notion.so", "github.com"},
	}
}

var validate = validator.New()

// ValidationError carries user-facing messages for rejected fields.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid settings: " + strings.Join(e.Fields, "; ")
}

// Validate checks field bounds and returns a *ValidationError on failure.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return ve
}

// Normalized returns a copy with domains normalized and nil maps replaced.
func (s Settings) Normalized() Settings {
	out := s
	out.SiteLimits = make(map[string]int, len(s.SiteLimits))
	for d, m := range s.SiteLimits {
		out.SiteLimits[classify.NormalizeDomain(d)] = m
	}
	out.CategoryLimits = make(map[string]int, len(s.CategoryLimits))
	for c, m := range s.CategoryLimits {
		out.CategoryLimits[c] = m
	}
	out.ProductiveDomains = make([]string, 0, len(s.ProductiveDomains))
	for _, d := range s.ProductiveDomains {
		out.ProductiveDomains = append(out.ProductiveDomains, classify.NormalizeDomain(d))
	}
	if out.PrivacyLevel == "" {
		out.PrivacyLevel = PrivacyStandard
	}
	return out
}

// IsProductive reports whether domain is in the productive set.
func (s Settings) IsProductive(domain string) bool {
	for _, d := range s.ProductiveDomains {
		if d == domain {
			return true
		}
	}
	return false
}

// Repo reads and writes the Settings record.
type Repo struct {
	store storage.Store
}

func NewRepo(store storage.Store) *Repo {
	return &Repo{store: store}
}

// Load returns the stored settings, or Defaults when none were saved yet.
func (r *Repo) Load(ctx context.Context) (Settings, error) {
	s := Defaults()
	if _, err := storage.GetJSON(ctx, r.store, Key, &s); err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return s.Normalized(), nil
}

// Save validates and replaces the whole record.
func (r *Repo) Save(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := storage.PutJSON(ctx, r.store, Key, s.Normalized()); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Reset restores Defaults.
func (r *Repo) Reset(ctx context.Context) error {
	return r.Save(ctx, Defaults())
}
