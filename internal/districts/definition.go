package districts

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Definition describes districts as lists of unit names, in district
// number order. A county-based definition for three districts:
//
//	type: counties
//	state: California
//	districts:
//	  - [Tuolumne, Stanislaus]
//	  - [Mariposa, Madera, Merced]
//	  - [Fresno, Tulare]
//
// Chapter and region definitions list ECODE and RCODE values instead.
type Definition struct {
	Type      UnitType   `yaml:"type"`
	State     string     `yaml:"state,omitempty"`
	Districts [][]string `yaml:"districts"`
}

// LoadDefinition reads and validates a district definition file.
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, eris.Wrap(err, "districts: read definition")
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, eris.Wrap(err, "districts: parse definition")
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Validate checks the definition is complete enough to build from.
func (d Definition) Validate() error {
	if _, err := ParseUnitType(string(d.Type)); err != nil {
		return err
	}
	if d.Type == UnitCounties && d.State == "" {
		return eris.New("districts: county definitions require a state")
	}
	if len(d.Districts) == 0 {
		return eris.New("districts: no districts defined")
	}
	for i, units := range d.Districts {
		if len(units) == 0 {
			return eris.Errorf("districts: district %d has no units", i+1)
		}
	}
	return nil
}
