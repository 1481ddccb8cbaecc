package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Alias maps a region key to the name shown in chart legends. Aliases are a
// list rather than a map because viper lowercases map keys, and region keys
// such as "Korea, South" are case-sensitive.
type Alias struct {
	Region string `mapstructure:"region"`
	Name   string `mapstructure:"name"`
}

// Files names the three CSSE global time-series tables inside DATA_DIR.
type Files struct {
	Confirmed string `mapstructure:"confirmed"`
	Deaths    string `mapstructure:"deaths"`
	Recovered string `mapstructure:"recovered"`
}

// Profile describes which regions to load and how to present them.
type Profile struct {
	Regions          []string `mapstructure:"regions"`
	Aliases          []Alias  `mapstructure:"aliases"`
	Files            Files    `mapstructure:"files"`
	DefaultSelection []string `mapstructure:"default_selection"`
}

var defaultRegions = []string{
	"Argentina", "Bolivia", "Brazil", "Chile", "Colombia", "Cuba",
	"Ecuador", "Germany", "Guatemala", "Italy", "Japan", "Korea, South",
	"Mexico", "Panama", "Paraguay", "Peru", "Spain", "Uruguay",
}

// DefaultProfile is used when PROFILE_PATH is unset.
func DefaultProfile() Profile {
	return Profile{
		Regions: append([]string(nil), defaultRegions...),
		Aliases: []Alias{{Region: "Korea, South", Name: "South Korea"}},
		Files: Files{
			Confirmed: "time_series_covid19_confirmed_global.csv",
			Deaths:    "time_series_covid19_deaths_global.csv",
			Recovered: "time_series_covid19_recovered_global.csv",
		},
		DefaultSelection: []string{"Argentina", "Brazil"},
	}
}

// LoadProfile reads a profile file (YAML, JSON or TOML, by extension). Fields
// missing from the file keep their DefaultProfile values. An empty path
// returns DefaultProfile.
func LoadProfile(path string) (Profile, error) {
	def := DefaultProfile()
	if path == "" {
		return def, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	setProfileDefaults(v, def)

	if err := v.ReadInConfig(); err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return Profile{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	if !v.IsSet("aliases") {
		p.Aliases = inheritAliases(def.Aliases, p.Regions)
	}

	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// inheritAliases keeps the default aliases whose region the profile lists.
func inheritAliases(aliases []Alias, regions []string) []Alias {
	listed := make(map[string]bool, len(regions))
	for _, r := range regions {
		listed[r] = true
	}
	out := make([]Alias, 0, len(aliases))
	for _, a := range aliases {
		if listed[a.Region] {
			out = append(out, a)
		}
	}
	return out
}

func setProfileDefaults(v *viper.Viper, def Profile) {
	v.SetDefault("regions", def.Regions)
	v.SetDefault("files.confirmed", def.Files.Confirmed)
	v.SetDefault("files.deaths", def.Files.Deaths)
	v.SetDefault("files.recovered", def.Files.Recovered)
	v.SetDefault("default_selection", def.DefaultSelection)
}

// Validate checks that the profile names at least one region, that every
// alias and default selection refers to a profile region, and that no region
// is listed twice.
func (p Profile) Validate() error {
	if len(p.Regions) == 0 {
		return errors.New("profile: regions must not be empty")
	}
	known := make(map[string]bool, len(p.Regions))
	for _, r := range p.Regions {
		if r == "" {
			return errors.New("profile: empty region name")
		}
		if known[r] {
			return fmt.Errorf("profile: region %q listed twice", r)
		}
		known[r] = true
	}
	for _, a := range p.Aliases {
		if !known[a.Region] {
			return fmt.Errorf("profile: alias for unlisted region %q", a.Region)
		}
	}
	for _, r := range p.DefaultSelection {
		if !known[r] {
			return fmt.Errorf("profile: default selection includes unlisted region %q", r)
		}
	}
	if p.Files.Confirmed == "" || p.Files.Deaths == "" || p.Files.Recovered == "" {
		return errors.New("profile: all three data files must be named")
	}
	return nil
}

// AliasMap returns the aliases keyed by region.
func (p Profile) AliasMap() map[string]string {
	m := make(map[string]string, len(p.Aliases))
	for _, a := range p.Aliases {
		m[a.Region] = a.Name
	}
	return m
}
