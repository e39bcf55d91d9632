package dag

// Edge represents a dependency relation: To depends on From.
//
// A directed edge From -> To means To can only run after From completes, and
// From's outputs are visible to To as dependency outputs.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}
