package model

import "fmt"

// ChartKind enumerates the supported visualization types.
type ChartKind string

const (
	ChartBar  ChartKind = "bar"
	ChartLine ChartKind = "line"
	ChartArea ChartKind = "area"
	ChartPie  ChartKind = "pie"
)

// ValidChartKind reports whether k is one of the supported kinds.
func ValidChartKind(k ChartKind) bool {
	switch k {
	case ChartBar, ChartLine, ChartArea, ChartPie:
		return true
	}
	return false
}

// ChartConfig describes how a query result should be charted.
type ChartConfig struct {
	Description       string            `json:"description,omitempty"`
	Takeaway          string            `json:"takeaway,omitempty"`
	Type              ChartKind         `json:"type"`
	Title             string            `json:"title"`
	XKey              string            `json:"xKey"`
	YKeys             []string          `json:"yKeys"`
	MultipleLines     bool              `json:"multipleLines,omitempty"`
	MeasurementColumn string            `json:"measurementColumn,omitempty"`
	LineCategories    []string          `json:"lineCategories,omitempty"`
	Legend            bool              `json:"legend"`
	Colors            map[string]string `json:"colors,omitempty"`
}

// AssignColors maps each series key to a color by its position in the
// declared sequence. The mapping depends only on key order, so re-running it
// on identical input always yields the same result.
func AssignColors(yKeys []string) map[string]string {
	if len(yKeys) == 0 {
		return nil
	}
	colors := make(map[string]string, len(yKeys))
	for i, key := range yKeys {
		colors[key] = fmt.Sprintf("hsl(var(--chart-%d))", i+1)
	}
	return colors
}

// DefaultChartConfig is the fallback visualization used when synthesis
// fails or there is nothing to chart.
func DefaultChartConfig(xKey string, yKeys []string) *ChartConfig {
	return &ChartConfig{
		Type:   ChartBar,
		Title:  "Query Results",
		XKey:   xKey,
		YKeys:  yKeys,
		Legend: len(yKeys) > 1,
		Colors: AssignColors(yKeys),
	}
}

// Explanation is one annotated section of a generated SQL query.
type Explanation struct {
	Section     string `json:"section"`
	Explanation string `json:"explanation"`
}

// EntityMatch is the result contract of the entity-resolution capability.
type EntityMatch struct {
	TableName  string  `json:"tableName"`
	Confidence float64 `json:"confidence"`
}
