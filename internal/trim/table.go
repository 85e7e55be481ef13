package trim

import (
	"github.com/apoyet/cl2pd/internal/table"
)

// DescriptionColumn holds the trim header's description.
const DescriptionColumn = "description"

// ToTable indexes trims by creation instant. Each parameter contributes a
// "<parameter>.x" and a "<parameter>.y" vector column. Trims sharing an
// instant and parameter keep the first one.
func ToTable(trims []Trim) *table.Table {
	out := table.New()
	for _, tr := range trims {
		row := table.FromRow(tr.Created, map[string]table.Value{
			tr.Parameter + ".x": table.VectorValue(tr.X),
			tr.Parameter + ".y": table.VectorValue(tr.Y),
			DescriptionColumn:   table.TextValue(tr.Description),
		})
		out = table.OuterJoin(out, row)
	}
	return out
}
