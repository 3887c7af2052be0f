package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/symdex/internal/domain/dsl"
	"github.com/kailas-cloud/symdex/internal/domain/symbol"
	"github.com/kailas-cloud/symdex/internal/usecase/querybuild"
	"github.com/kailas-cloud/symdex/internal/usecase/validate"
)

// errInvalid marks a command whose input was read but failed checks. The
// message has already been printed.
var errInvalid = errors.New("input is not valid")

// readInput returns the positional text, the --file contents, or stdin ("-").
func readInput(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(b), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "", fmt.Errorf("no input: pass text, --file or --file -")
	}
}

type parseOutput struct {
	Dialect   dsl.Dialect `json:"dialect"`
	Valid     bool        `json:"valid"`
	Issues    []string    `json:"issues"`
	Canonical string      `json:"canonical,omitempty"`
}

func newParseCommand(a *app) *cobra.Command {
	var (
		file    string
		dialect string
	)

	cmd := &cobra.Command{
		Use:   "parse [text]",
		Short: "Parse Structure, Content or Call DSL",
		Long: `Parse DSL text and print its canonical rendering. The dialect is detected
from the text unless --dialect is given. Call DSL resolves component symbols
and the query constructor symbols.`,
		Example: `  symdexctl parse -r rel.yaml 'ρ[§[δ×3]]'
  symdexctl parse 'ɳ{vector=[0.1, 0.2]}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return err
			}

			d := dsl.Dialect(strings.ToLower(dialect))
			if d == "" {
				d = dsl.Detect(text)
			}

			var out parseOutput
			out.Dialect = d
			switch d {
			case dsl.DialectCall:
				res := a.callParser(cmd).ParseCall(text)
				out.Valid, out.Issues = res.Valid, issueStrings(res.Issues)
				if res.Valid {
					rendered := make([]string, len(res.Roots))
					for i, c := range res.Roots {
						rendered[i] = dsl.RenderCall(c)
					}
					out.Canonical = strings.Join(rendered, ", ")
				}
			case dsl.DialectStructure, dsl.DialectContent:
				snap, err := a.snapshot(cmd.Context())
				if err != nil {
					return err
				}
				if d == dsl.DialectStructure {
					res := snap.Parser.ParseStructure(text)
					out.Valid, out.Issues = res.Valid, issueStrings(res.Issues)
					if res.Valid {
						out.Canonical = dsl.RenderStructure(res.Roots)
					}
				} else {
					res := snap.Parser.ParseContent(text)
					out.Valid, out.Issues = res.Valid, issueStrings(res.Issues)
					if res.Valid {
						out.Canonical = dsl.RenderContent(res.Nodes)
					}
				}
			default:
				return fmt.Errorf("unknown dialect %q (structure|content|call)", dialect)
			}

			w := cmd.OutOrStdout()
			if a.output == OutputJSON {
				if err := renderJSON(w, out); err != nil {
					return err
				}
			} else {
				_, _ = fmt.Fprintf(w, "dialect: %s\n", out.Dialect)
				if out.Valid {
					_, _ = fmt.Fprintln(w, out.Canonical)
				}
				renderIssues(w, out.Issues)
			}
			if !out.Valid {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read DSL from a file (- for stdin)")
	cmd.Flags().StringVar(&dialect, "dialect", "", "structure|content|call (default: detect)")
	return cmd
}

// callParser resolves query constructor symbols, then catalog symbols when a
// relationship map is available.
func (a *app) callParser(cmd *cobra.Command) *dsl.Parser {
	queryTable := querybuild.DefaultSymbols()
	var catalogTable *symbol.Table
	if snap, err := a.snapshot(cmd.Context()); err == nil {
		catalogTable = snap.Table
	}
	return dsl.NewParser(dsl.ResolverFunc(func(token string) (string, bool) {
		if name, ok := queryTable.Resolve(token); ok {
			return name, true
		}
		return catalogTable.Resolve(token)
	}))
}

func newValidateCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate [text]",
		Short: "Validate Structure DSL against the relationship map",
		Example: `  symdexctl validate -r rel.yaml 'ρ[§[δ]]'
  cat page.dsl | symdexctl validate -r rel.yaml -f -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return err
			}
			snap, err := a.snapshot(cmd.Context())
			if err != nil {
				return err
			}

			res := snap.Validator.Validate(text)
			w := cmd.OutOrStdout()
			if a.output == OutputJSON {
				if err := renderJSON(w, res); err != nil {
					return err
				}
			} else {
				renderValidation(w, res)
			}
			if !res.Valid {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read DSL from a file (- for stdin)")
	return cmd
}

func renderValidation(w io.Writer, res validate.Result) {
	if res.Valid {
		_, _ = fmt.Fprintln(w, "valid")
		return
	}
	t := newTable(w, "#", "Issue", "Did you mean")
	for i, is := range res.Issues {
		var hint string
		for tok, cands := range res.Suggestions {
			if strings.Contains(is, tok) {
				hint = strings.Join(cands, ", ")
				break
			}
		}
		t.AppendRow(table.Row{i + 1, is, hint})
	}
	t.Render()
}

func newStructureCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "structure component[=value]...",
		Short: "Generate the smallest Structure DSL that holds the given components",
		Example: `  symdexctl structure -r rel.yaml Button Button Header
  symdexctl structure -r rel.yaml Card=Pricing Card=Support`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.snapshot(cmd.Context())
			if err != nil {
				return err
			}

			inputs := make([]validate.Input, len(args))
			for i, arg := range args {
				name, value, _ := strings.Cut(arg, "=")
				inputs[i] = validate.Input{Component: name, Value: value}
			}
			structure, issues := snap.Validator.GenerateStructure(inputs)

			w := cmd.OutOrStdout()
			if a.output == OutputJSON {
				if issues == nil {
					issues = []string{}
				}
				if err := renderJSON(w, map[string]any{
					"structure": structure,
					"valid":     len(issues) == 0,
					"issues":    issues,
				}); err != nil {
					return err
				}
			} else {
				if structure != "" {
					_, _ = fmt.Fprintln(w, structure)
				}
				renderIssues(w, issues)
			}
			if len(issues) > 0 {
				return errInvalid
			}
			return nil
		},
	}
	return cmd
}

func issueStrings(issues []dsl.Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.String()
	}
	return out
}
