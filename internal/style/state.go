package style

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/propmap/internal/textnorm"
)

//go:embed state.cue
var stateSchema string

// State file names inside a workspace or project directory.
const (
	GraphStateFile    = "estado_grafo.yaml"
	DefaultsStateFile = "estado_n_v.yaml"
)

// StateError reports a state file that failed decoding or schema validation.
type StateError struct {
	File string
	Err  error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid state file %s: %v", e.File, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// IsStateError reports whether err is or wraps a *StateError.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// EncodeGraph serializes the four graph scalars as an ordered list:
// background, direction, wrap column, justification letter.
func EncodeGraph(g Graph) ([]byte, error) {
	return yaml.Marshal([]any{g.Background, g.Direction, g.WrapColumn, g.Justification.Letter()})
}

// DecodeGraph parses and validates a graph state file.
func DecodeGraph(data []byte) (Graph, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Graph{}, &StateError{File: GraphStateFile, Err: err}
	}
	if err := validate("#GraphState", doc); err != nil {
		return Graph{}, &StateError{File: GraphStateFile, Err: err}
	}

	// Shape is guaranteed by the schema.
	list := doc.([]any)
	j, err := textnorm.ParseJustification(list[3].(string))
	if err != nil {
		return Graph{}, &StateError{File: GraphStateFile, Err: err}
	}
	return Graph{
		Background:    list[0].(string),
		Direction:     list[1].(string),
		WrapColumn:    list[2].(int),
		Justification: j,
	}, nil
}

type defaultsDoc struct {
	Nodes     Defaults `yaml:"nodes"`
	Relations Defaults `yaml:"relations"`
}

// EncodeDefaults serializes both templates.
func EncodeDefaults(nodes, relations Defaults) ([]byte, error) {
	return yaml.Marshal(defaultsDoc{Nodes: nodes, Relations: relations})
}

// DecodeDefaults parses and validates a defaults state file.
func DecodeDefaults(data []byte) (nodes, relations Defaults, err error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, &StateError{File: DefaultsStateFile, Err: err}
	}
	if err := validate("#DefaultsState", doc); err != nil {
		return nil, nil, &StateError{File: DefaultsStateFile, Err: err}
	}

	var d defaultsDoc
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, nil, &StateError{File: DefaultsStateFile, Err: err}
	}
	return d.Nodes, d.Relations, nil
}

// CheckNodeFields validates node attribute values against the state schema.
func CheckNodeFields(fields map[string]string) error {
	return checkFields("#NodeDefaults", DefaultNodes(), fields)
}

// CheckRelationFields validates relation attribute values against the state
// schema.
func CheckRelationFields(fields map[string]string) error {
	return checkFields("#RelationDefaults", DefaultRelations(), fields)
}

// checkFields overlays fields on a valid template, so only the given values
// can fail.
func checkFields(definition string, base Defaults, fields map[string]string) error {
	doc := base.Clone()
	maps.Copy(doc, fields)
	return validate(definition, map[string]string(doc))
}

// Validate checks s against the schema of the state files, so that a state
// that passes can always be decoded again.
func (s *State) Validate() error {
	graph, err := EncodeGraph(s.Graph)
	if err != nil {
		return &StateError{File: GraphStateFile, Err: err}
	}
	if _, err := DecodeGraph(graph); err != nil {
		return err
	}
	defaults, err := EncodeDefaults(s.Nodes, s.Relations)
	if err != nil {
		return &StateError{File: DefaultsStateFile, Err: err}
	}
	_, _, err = DecodeDefaults(defaults)
	return err
}

// validate unifies a decoded YAML document with a schema definition.
// A fresh CUE context is used per call; contexts are not safe for
// concurrent use.
func validate(definition string, doc any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(stateSchema, cue.Filename("state.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile state schema: %w", err)
	}

	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return err
	}

	def := schema.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return fmt.Errorf("schema definition %s not found", definition)
	}
	return def.Unify(value).Validate(cue.Concrete(true))
}
