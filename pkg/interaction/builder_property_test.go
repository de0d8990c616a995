package interaction

import (
	"encoding/xml"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func sourceFromEntries(name string, entries []ConfigEntry) Source {
	data, err := xml.Marshal(Config{Items: entries})
	if err != nil {
		panic(err)
	}
	return Source{Name: name, Data: data}
}

func genEntry() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("greet", "distress", "trade", "taunt"),
		gen.SliceOfN(3, gen.OneConstOf("", " ", "Alpha", "alpha", "Beta")),
		gen.OneConstOf("", "  ", "Label"),
		gen.OneConstOf("", "Tooltip"),
		gen.SliceOf(gen.AlphaString()),
	).Map(func(v []interface{}) ConfigEntry {
		return ConfigEntry{
			ID:                v[0].(string),
			CommandProfileIDs: v[1].([]string),
			AntennaCall:       v[2].(string),
			AntennaCallTip:    v[3].(string),
			RadioCalls:        v[4].([]string),
		}
	})
}

// Property: building twice from the same ordered sources yields identical registries.
func TestBuildDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("merge is deterministic for a fixed source order", prop.ForAll(
		func(first, second []ConfigEntry) bool {
			sources := []Source{sourceFromEntries("A", first), sourceFromEntries("B", second)}

			reg1, rej1 := NewBuilder(testLogger()).Build(sources)
			reg2, rej2 := NewBuilder(testLogger()).Build(sources)

			return reflect.DeepEqual(slices.Collect(reg1.All()), slices.Collect(reg2.All())) &&
				reflect.DeepEqual(rej1, rej2)
		},
		gen.SliceOf(genEntry()),
		gen.SliceOf(genEntry()),
	))

	properties.TestingRun(t)
}

// Property: an entry is registered iff it has a non-blank profile, label and tooltip.
func TestValidationCompleteness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("only complete entries are registered", prop.ForAll(
		func(entry ConfigEntry) bool {
			reg, rejections := NewBuilder(testLogger()).Build([]Source{sourceFromEntries("Mod", []ConfigEntry{entry})})

			complete := strings.TrimSpace(entry.AntennaCall) != "" &&
				strings.TrimSpace(entry.AntennaCallTip) != "" &&
				slices.ContainsFunc(entry.CommandProfileIDs, func(s string) bool { return strings.TrimSpace(s) != "" })

			_, err := reg.Get(entry.ID)
			if complete {
				return err == nil && len(rejections) == 0
			}
			return err != nil && len(rejections) == 1 && rejections[0].Kind == RejectionValidation
		},
		genEntry(),
	))

	properties.TestingRun(t)
}

func ExampleRegistry_ListAll() {
	reg, _ := NewBuilder(nil).Build([]Source{{Name: "FirstMod", Data: []byte(greetFirst)}})
	for _, s := range reg.ListAll() {
		fmt.Println(s.ID, "-", s.Label)
	}
	// Output:
	// greet - Say hello
	// distress - Send distress call
}
