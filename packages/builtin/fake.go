package builtin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// Generator produces random but plausible values for request bodies.
type Generator interface {
	Generate(kind string) (string, error)
}

// Faker is the default Generator, backed by gofakeit.
type Faker struct {
	f     *gofakeit.Faker
	kinds map[string]func() string
}

// NewFaker returns a Faker. A zero seed draws from a random source; any
// other seed makes the sequence reproducible.
func NewFaker(seed uint64) *Faker {
	f := gofakeit.New(seed)
	return &Faker{
		f: f,
		kinds: map[string]func() string{
			"department": f.ProductCategory,
			"product":    f.ProductName,
			"name":       f.Name,
			"firstName":  f.FirstName,
			"lastName":   f.LastName,
			"word":       f.Word,
			"company":    f.Company,
			"email":      f.Email,
			"city":       f.City,
			"color":      f.Color,
		},
	}
}

func (g *Faker) Generate(kind string) (string, error) {
	fn, ok := g.kinds[kind]
	if !ok {
		return "", fmt.Errorf("fake(): unknown kind %q (known: %s)", kind, strings.Join(g.Kinds(), ", "))
	}
	return fn(), nil
}

// Kinds lists the supported kinds in sorted order.
func (g *Faker) Kinds() []string {
	kinds := make([]string, 0, len(g.kinds))
	for k := range g.kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
