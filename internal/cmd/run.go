package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sflowg/dingtalk/plugins/dingtalk"
	"github.com/sflowg/dingtalk/runtime"
)

var (
	runParams         []string
	runContinueOnFail bool
)

var runCmd = &cobra.Command{
	Use:   "run [input-file]",
	Short: "Execute one DingTalk operation over a list of items",
	Long: `Run executes the DingTalk node once and prints the output items as JSON.

The input file is YAML or JSON with the node parameters and the input items:

  parameters:
    resource: user
    operation: user.get
    userId: "={{ json.id }}"
  items:
    - id: manager4220
    - id: manager7411

--set overrides single parameters. Without an input file the node runs on
one empty item.

Example:
  dingtalk run -c dingtalk.yaml input.yaml
  dingtalk run -c dingtalk.yaml --set resource=auth --set operation=auth.getAccessToken
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVar(&runParams, "set", nil, "Set a parameter as key=value (repeatable)")
	runCmd.Flags().BoolVar(&runContinueOnFail, "continue-on-fail", false, "Report failing items as error items instead of aborting")
}

// runInput is the input file of the run command
type runInput struct {
	Parameters     map[string]any   `yaml:"parameters"`
	Items          []map[string]any `yaml:"items"`
	ContinueOnFail bool             `yaml:"continueOnFail"`
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var input runInput
	if len(args) > 0 {
		loaded, err := loadRunInput(args[0])
		if err != nil {
			return err
		}
		input = *loaded
	}
	if err := applySets(&input, runParams); err != nil {
		return err
	}

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	items, err := executeNode(ctx, a.container, input, input.ContinueOnFail || runContinueOnFail)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), items)
}

func loadRunInput(path string) (*runInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input %q: %w", path, err)
	}
	var input runInput
	// YAML is a superset of JSON, so one decoder serves both.
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to parse input %q: %w", path, err)
	}
	return &input, nil
}

func applySets(input *runInput, sets []string) error {
	if len(sets) > 0 && input.Parameters == nil {
		input.Parameters = map[string]any{}
	}
	for _, set := range sets {
		key, value, ok := strings.Cut(set, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("invalid --set %q, expected key=value", set)
		}
		input.Parameters[strings.TrimSpace(key)] = value
	}
	return nil
}

func executeNode(ctx context.Context, container *runtime.Container, input runInput, continueOnFail bool) ([]runtime.Item, error) {
	node, ok := container.Node(dingtalk.NodeName)
	if !ok {
		return nil, fmt.Errorf("node %q is not registered", dingtalk.NodeName)
	}

	desc := node.Description()
	exec := runtime.NewExecution(ctx, container, &desc, input.Parameters, runtime.JSONItems(input.Items...),
		runtime.WithContinueOnFail(continueOnFail))
	return node.Execute(exec)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
