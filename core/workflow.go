package core

import (
	"os"
	"sort"

	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

type Guard struct {
	Permission string `yaml:"permission"`
	Expr       string `yaml:"expr"` // name of a GuardFunc registered at CoreDB.Guards
}

type Transition struct {
	ID       string `yaml:"-"`
	Title    string `yaml:"title"`
	NewState string `yaml:"new_state"`
	Guard    Guard  `yaml:"guard"`
}

type State struct {
	ID          string   `yaml:"-"`
	Title       string   `yaml:"title"`
	Transitions []string `yaml:"transitions"` // exit transitions
}

// Terminal reports whether the state has no exit transitions.
func (s *State) Terminal() bool {
	return len(s.Transitions) == 0
}

// Workflow is a declarative state machine. Its current state is stored in the state variable of an object.
type Workflow struct {
	ID            string                 `yaml:"-"`
	Title         string                 `yaml:"title"`
	StateVariable string                 `yaml:"state_variable"`
	Initial       string                 `yaml:"initial"`
	States        map[string]*State      `yaml:"states"`
	Transitions   map[string]*Transition `yaml:"transitions"`
}

func (w *Workflow) String() string {
	return w.ID
}

func (w *Workflow) validate() error {
	if w.StateVariable == "" {
		return newError(ErrWorkflow, "workflow %s: missing state variable", w.ID)
	}
	if _, ok := w.States[w.Initial]; !ok {
		return newError(ErrWorkflow, "workflow %s: initial state %q not found", w.ID, w.Initial)
	}
	for id, s := range w.States {
		s.ID = id
		for _, tr := range s.Transitions {
			if _, ok := w.Transitions[tr]; !ok {
				return newError(ErrWorkflow, "workflow %s: state %s: transition %q not found", w.ID, id, tr)
			}
		}
	}
	for id, t := range w.Transitions {
		t.ID = id
		if _, ok := w.States[t.NewState]; !ok {
			return newError(ErrWorkflow, "workflow %s: transition %s: new state %q not found", w.ID, id, t.NewState)
		}
	}
	return nil
}

// WorkflowRegistry holds the workflow definitions and the chains which assign them to portal types.
type WorkflowRegistry struct {
	Workflows    map[string]*Workflow `yaml:"workflows"`
	Chains       map[string][]string  `yaml:"chains"` // portal type -> workflow ids
	DefaultChain []string             `yaml:"default_chain"`
}

func ParseWorkflows(data []byte) (*WorkflowRegistry, error) {
	var r = &WorkflowRegistry{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "parsing workflows").WithTextCode(CodeWorkflow)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func LoadWorkflows(filename string) (*WorkflowRegistry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseWorkflows(data)
}

func (r *WorkflowRegistry) validate() error {
	for id, w := range r.Workflows {
		w.ID = id
		if err := w.validate(); err != nil {
			return err
		}
	}
	var chains = append([][]string{r.DefaultChain}, r.chainList()...)
	for _, chain := range chains {
		for _, id := range chain {
			if _, ok := r.Workflows[id]; !ok {
				return newError(ErrWorkflow, "chain references unknown workflow %q", id)
			}
		}
	}
	return nil
}

func (r *WorkflowRegistry) chainList() [][]string {
	var types = make([]string, 0, len(r.Chains))
	for t := range r.Chains {
		types = append(types, t)
	}
	sort.Strings(types)
	var chains = make([][]string, len(types))
	for i, t := range types {
		chains[i] = r.Chains[t]
	}
	return chains
}

func (r *WorkflowRegistry) Get(id string) (*Workflow, bool) {
	w, ok := r.Workflows[id]
	return w, ok
}

// Chain returns a copy of the chain configured for the portal type.
func (r *WorkflowRegistry) Chain(portalType string) []string {
	chain, ok := r.Chains[portalType]
	if !ok {
		chain = r.DefaultChain
	}
	return append([]string(nil), chain...)
}

// TransitionIDs returns the ids of all transitions of all workflows.
func (r *WorkflowRegistry) TransitionIDs() map[string]struct{} {
	var ids = make(map[string]struct{})
	for _, w := range r.Workflows {
		for id := range w.Transitions {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// GuardExprs returns the names of all guard expressions referenced by transitions.
func (r *WorkflowRegistry) GuardExprs() map[string]struct{} {
	var exprs = make(map[string]struct{})
	for _, w := range r.Workflows {
		for _, t := range w.Transitions {
			if t.Guard.Expr != "" {
				exprs[t.Guard.Expr] = struct{}{}
			}
		}
	}
	return exprs
}
