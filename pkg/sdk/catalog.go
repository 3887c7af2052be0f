package symdex

import (
	"context"
	"time"

	"github.com/kailas-cloud/symdex/internal/catalog"
	"github.com/kailas-cloud/symdex/internal/domain/symbol"
	"github.com/kailas-cloud/symdex/internal/usecase/querybuild"
	"github.com/kailas-cloud/symdex/internal/usecase/validate"
)

func (c *Client) snapshot() (*catalog.Snapshot, error) {
	snap := c.catalog.Current()
	if snap == nil {
		return nil, errNoCatalog
	}
	return snap, nil
}

// Symbols returns the name -> symbol table of the loaded relationship map.
func (c *Client) Symbols() (map[string]string, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Table.Map(), nil
}

// GenerateSymbols assigns a unique symbol to each name, independent of the
// loaded map. The result is deterministic for the same names in the same order.
func GenerateSymbols(names []string, modulePrefix string) (map[string]string, error) {
	return symbol.Generate(querybuild.ReserveSymbols(symbol.DefaultPools()), names, modulePrefix)
}

// Validate checks Structure DSL against the relationship map.
func (c *Client) Validate(text string) (ValidationResult, error) {
	snap, err := c.snapshot()
	if err != nil {
		return ValidationResult{}, err
	}
	res := snap.Validator.Validate(text)
	return ValidationResult{
		Valid:       res.Valid,
		Issues:      res.Issues,
		Suggestions: res.Suggestions,
		Resolved:    res.Resolved,
	}, nil
}

// Structure generates the smallest Structure DSL that holds inputs. Issues
// are non-empty when a component cannot be reached from the root.
func (c *Client) Structure(inputs ...StructureInput) (string, []string, error) {
	snap, err := c.snapshot()
	if err != nil {
		return "", nil, err
	}
	in := make([]validate.Input, len(inputs))
	for i, s := range inputs {
		in[i] = validate.Input{Component: s.Component, Value: s.Value}
	}
	structure, issues := snap.Validator.GenerateStructure(in)
	return structure, issues, nil
}

// Rebuild replaces the relationship map. Symbols of names present in both
// maps may change; pin them in a relationships file to keep them stable.
func (c *Client) Rebuild(ctx context.Context, root string, relations map[string][]string) (gen uint64, err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, "rebuild", start, err) }()

	snap, err := c.catalog.Rebuild(ctx, catalog.File{Root: root, Relationships: relations})
	if err != nil {
		return 0, err
	}
	return snap.Generation, nil
}
