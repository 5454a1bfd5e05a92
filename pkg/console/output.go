package console

import (
	"encoding/json"
	"os"
)

// OutputJSON writes v to stdout as indented JSON. Commands that support
// --json route their reports through this so scripted consumers get a
// stable format.
func OutputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// OutputStructOrJSON outputs either indented JSON or the provided plain
// rendering, based on the asJSON flag.
func OutputStructOrJSON(v any, plain string, asJSON bool) error {
	if asJSON {
		return OutputJSON(v)
	}
	_, err := os.Stdout.WriteString(plain)
	return err
}
