package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowEntry draws a start marker into every state that no edge leads to.
	ShowEntry bool

	// MarkTerminal draws an end marker out of every state without outgoing edges.
	MarkTerminal bool

	// Direction controls diagram flow: "TD" (top-down) or "LR" (left-right)
	Direction string

	// HighlightPath highlights a specific state path through the diagram
	HighlightPath []string

	// Fenced wraps Mermaid output in a markdown code block.
	Fenced bool
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowEntry:    true,
		MarkTerminal: true,
		Direction:    "TD",
		Fenced:       true,
	}
}

// WithShowEntry enables/disables entry markers.
func (o Options) WithShowEntry(show bool) Options {
	o.ShowEntry = show

	return o
}

// WithMarkTerminal enables/disables terminal markers.
func (o Options) WithMarkTerminal(mark bool) Options {
	o.MarkTerminal = mark

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}

// WithFenced enables/disables the markdown code block around Mermaid output.
func (o Options) WithFenced(fenced bool) Options {
	o.Fenced = fenced

	return o
}
