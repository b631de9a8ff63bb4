package codegen

import (
	"fmt"
	"sort"
)

// Emitter renders a Plan for one target language.
type Emitter interface {
	// Language returns the name used to select the emitter, e.g. "go".
	Language() string
	// FileExtension returns the extension of generated files without the dot.
	FileExtension() string
	// Emit renders the plan. The same plan must always yield the same bytes.
	Emit(p *Plan) ([]byte, error)
}

var _emitters = map[string]Emitter{}

// Register makes an emitter available to Lookup. It panics on duplicates.
func Register(e Emitter) {
	if _, dup := _emitters[e.Language()]; dup {
		panic(fmt.Sprintf("emitter for %q registered twice", e.Language()))
	}
	_emitters[e.Language()] = e
}

// Lookup returns the emitter registered for language.
func Lookup(language string) (Emitter, error) {
	e, ok := _emitters[language]
	if !ok {
		return nil, fmt.Errorf("no emitter for language %q (have %v)", language, Languages())
	}
	return e, nil
}

// Languages lists the registered languages in sorted order.
func Languages() []string {
	out := make([]string, 0, len(_emitters))
	for l := range _emitters {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register(NewGoEmitter())
}
