package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rewrite/internal/compiler"
)

// RulesOptions holds flags for the rules command.
type RulesOptions struct {
	*RootOptions
	Rules string
	Topic string // optional - filter to one topic
}

// RuleInfo describes one rule in table order.
type RuleInfo struct {
	Topic    string `json:"topic,omitempty"`
	Name     string `json:"name"`
	Pattern  string `json:"pattern"`
	Template string `json:"template,omitempty"`
	Compute  string `json:"compute,omitempty"`
}

// RuleSetInfo describes one RuleSet.
type RuleSetInfo struct {
	Name  string     `json:"name"`
	Rules []RuleInfo `json:"rules"`
}

// RulesResult holds the rules listing.
type RulesResult struct {
	Source   string        `json:"source"`
	Count    int           `json:"count"`
	RuleSets []RuleSetInfo `json:"rulesets"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rules of a rule table",
		Long: `List every rule of a rule table in priority order, grouped by
RuleSet and topic.

Examples:
  rewrite rules
  rewrite rules --topic calculus
  rewrite rules --rules ./rules --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Rules, "rules", BuiltinRules, "rule table: builtin:math or a CUE file/directory")
	cmd.Flags().StringVar(&opts.Topic, "topic", "", "only list rules of this topic")

	return cmd
}

func runRules(opts *RulesOptions, cmd *cobra.Command) error {
	table, err := LoadRules(opts.Rules)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	result := buildRulesResult(opts.Rules, table.Specs, opts.Topic)
	return newFormatter(opts.RootOptions, cmd).Emit(result, nil)
}

// buildRulesResult flattens specs into the listing, keeping only rules of
// topic when it is set.
func buildRulesResult(source string, specs []compiler.RuleSetSpec, topic string) RulesResult {
	result := RulesResult{Source: source, RuleSets: []RuleSetInfo{}}
	for _, spec := range specs {
		info := RuleSetInfo{Name: spec.Name, Rules: []RuleInfo{}}
		for _, r := range spec.Rules {
			if topic != "" && r.Topic != topic {
				continue
			}
			info.Rules = append(info.Rules, RuleInfo{
				Topic:    r.Topic,
				Name:     r.Name,
				Pattern:  r.Pattern,
				Template: r.Template,
				Compute:  r.Compute,
			})
		}
		result.Count += len(info.Rules)
		result.RuleSets = append(result.RuleSets, info)
	}
	return result
}

// WriteText prints each ruleset grouped by topic.
func (result RulesResult) WriteText(w io.Writer) {
	for _, rs := range result.RuleSets {
		fmt.Fprintf(w, "=== %s ===\n", rs.Name)
		topic := ""
		for i, r := range rs.Rules {
			if r.Topic != topic || i == 0 {
				topic = r.Topic
				if topic != "" {
					fmt.Fprintf(w, "[%s]\n", topic)
				}
			}
			fmt.Fprintf(w, "  %-24s %s => %s\n", r.Name, r.Pattern, describeProducer(r))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d rule(s)\n", result.Count)
}

func describeProducer(r RuleInfo) string {
	if r.Compute != "" {
		return "compute:" + r.Compute
	}
	return fmt.Sprintf("%q", r.Template)
}
