package categories

// Fixture represents a predefined set of categories for testing.
type Fixture interface {
	// Name returns the fixture's descriptive name.
	Name() string

	// Categories returns the category names included in this fixture.
	Categories() []string
}

type fixture struct {
	name       string
	categories []string
}

func (f *fixture) Name() string         { return f.name }
func (f *fixture) Categories() []string { return f.categories }

// Predefined fixtures for common test scenarios.
var (
	// FixtureMinimal provides a small custom tree with a "Pessoal" fallback.
	FixtureMinimal = &fixture{
		name:       "Minimal",
		categories: []string{"Pessoal", "Trabalho", "Mercado"},
	}

	// FixtureDuplicates holds the same names several times with varying case.
	FixtureDuplicates = &fixture{
		name:       "Duplicates",
		categories: []string{"Biking", "biking", "BIKING ", "Leitura", "leitura"},
	}
)
