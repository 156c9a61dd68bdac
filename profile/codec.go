package profile

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// MarshalYAML implements yaml.Marshaler.
func (m Method) MarshalYAML() (interface{}, error) {
	if m < MethodL1 || m > MethodCosine {
		return nil, fmt.Errorf("%w: method %d", ErrInvalidProfile, int(m))
	}
	return m.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Method) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Decode reads one YAML profile from r and validates it.
// Unknown fields are rejected.
func Decode(r io.Reader) (*Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode writes p to w as YAML.
func Encode(w io.Writer, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return enc.Close()
}
