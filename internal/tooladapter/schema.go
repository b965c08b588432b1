package tooladapter

import (
	"encoding/json"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
)

// schemaFor reflects a Go argument struct into a JSON Schema document,
// matching the pattern the rest of the pack uses for config validation:
// one reflector, one cache entry per distinct type. Tool schemas are
// requested once per agent construction (§9, "compute the allowed-tool
// set once"), so the cache avoids re-reflecting the same struct on every
// session.
var (
	schemaCacheMu sync.Mutex
	schemaCache   = map[reflect.Type][]byte{}
	reflector     = &jsonschema.Reflector{
		FieldNameTag:               "json",
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: false,
	}
)

func schemaFor(v any) []byte {
	t := reflect.TypeOf(v)
	schemaCacheMu.Lock()
	defer schemaCacheMu.Unlock()
	if cached, ok := schemaCache[t]; ok {
		return cached
	}
	doc := reflector.Reflect(v)
	out, err := json.Marshal(doc)
	if err != nil {
		// A reflection failure here means a tool arg struct used an
		// unsupported type; fall back to an empty object schema rather
		// than panicking the registry.
		out = []byte(`{"type":"object"}`)
	}
	schemaCache[t] = out
	return out
}
