package descriptor

import "fmt"

// SimulationSpace selects the frame particle positions are stored in.
type SimulationSpace uint8

const (
	// Local stores positions relative to the emitter; moving the emitter moves its particles.
	Local SimulationSpace = iota
	// Global stores positions in world space; particles stay where they were emitted.
	Global
)

// SimulationCondition decides whether an effect advances while it is off-screen.
type SimulationCondition uint8

const (
	Always SimulationCondition = iota
	WhenVisible
)

// ShapeDimension chooses between sampling the boundary of a shape or its interior.
type ShapeDimension uint8

const (
	Surface ShapeDimension = iota
	Filled
)

var (
	spaceNames     = [...]string{Local: "Local", Global: "Global"}
	conditionNames = [...]string{Always: "Always", WhenVisible: "WhenVisible"}
	dimensionNames = [...]string{Surface: "Surface", Filled: "Filled"}
)

func (s SimulationSpace) String() string     { return enumString(spaceNames[:], uint8(s)) }
func (c SimulationCondition) String() string { return enumString(conditionNames[:], uint8(c)) }
func (d ShapeDimension) String() string      { return enumString(dimensionNames[:], uint8(d)) }

func (s SimulationSpace) MarshalText() ([]byte, error)     { return []byte(s.String()), nil }
func (c SimulationCondition) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func (d ShapeDimension) MarshalText() ([]byte, error)      { return []byte(d.String()), nil }

func (s *SimulationSpace) UnmarshalText(b []byte) error {
	v, err := enumParse(spaceNames[:], "simulation space", string(b))
	*s = SimulationSpace(v)
	return err
}

func (c *SimulationCondition) UnmarshalText(b []byte) error {
	v, err := enumParse(conditionNames[:], "simulation condition", string(b))
	*c = SimulationCondition(v)
	return err
}

func (d *ShapeDimension) UnmarshalText(b []byte) error {
	v, err := enumParse(dimensionNames[:], "shape dimension", string(b))
	*d = ShapeDimension(v)
	return err
}

func enumString(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%d", v)
}

// enumParse matches a name exactly; the empty string selects the first (default) value.
func enumParse(names []string, what, s string) (uint8, error) {
	if s == "" {
		return 0, nil
	}
	for i, n := range names {
		if n == s {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q (want one of %v)", ErrUnknownVariant, what, s, names)
}
