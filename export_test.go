package tatami

import "reflect"

// Test-only exports for internal functions.
var (
	SnakeCase    = snakeCase
	HeaderKey    = headerKey
	SplitCamel   = splitCamel
	HumanizeName = humanizeName

	Serializable      = serializable
	ConventionPathFor = conventionPath
	JoinPathParts     = joinPath
	MuxPatternFor     = muxPattern
)

// ClassifyKinds classifies a request type against a path template and
// reports each field's source kind by name.
func ClassifyKinds(t reflect.Type, template string, reg *Registry) (map[string]string, error) {
	spec, err := classify(t, template, reg)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(spec.params))
	for _, p := range spec.params {
		out[p.fieldName] = p.kind.String()
	}
	return out, nil
}

// ClassifyKeys reports each field's wire key by name.
func ClassifyKeys(t reflect.Type, template string, reg *Registry) (map[string]string, error) {
	spec, err := classify(t, template, reg)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(spec.params))
	for _, p := range spec.params {
		out[p.fieldName] = p.key
	}
	return out, nil
}

// ValidateWire converts a raw wire value to the target type the way
// parameter binding does.
func ValidateWire(raw any, target reflect.Type, field string) (any, error) {
	v, ferr := validateValue(raw, target, field)
	if ferr != nil {
		return nil, ferr
	}
	return v.Interface(), nil
}
