package keyspec

import "fmt"

// Category classifies the data a keyspec addresses.
type Category int

const (
	CategoryAny Category = iota
	CategoryConfig
	CategoryData
	CategoryRPCInput
	CategoryRPCOutput
	CategoryNotification
)

var categoryNames = map[Category]string{
	CategoryAny:          "any",
	CategoryConfig:       "config",
	CategoryData:         "data",
	CategoryRPCInput:     "rpc-input",
	CategoryRPCOutput:    "rpc-output",
	CategoryNotification: "notification",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory accepts the names printed by Category.String.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return CategoryAny, fmt.Errorf("unknown category %q", s)
}
