package export

import "time"

// Column describes one exported field. Width is a relative weight used by the PDF renderer.
type Column struct {
	Key   string
	Label string
	Width float64
}

// Dataset defines tabular export content.
type Dataset struct {
	Title       string
	Columns     []Column
	Rows        []map[string]string
	GeneratedAt time.Time
}

func (d Dataset) labels() []string {
	labels := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		labels[i] = col.Label
		if labels[i] == "" {
			labels[i] = col.Key
		}
	}
	return labels
}
