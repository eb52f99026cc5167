package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sflowg/dingtalk/runtime"
)

var describeNode string

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print node and credential descriptions as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		out, err := describe(a.container, describeNode)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	describeCmd.Flags().StringVar(&describeNode, "node", "", "Only print the description of this node or trigger")
}

func describe(container *runtime.Container, name string) (any, error) {
	if name == "" {
		types := container.CredentialTypes()
		creds := make([]map[string]any, 0, len(types))
		for _, ct := range types {
			creds = append(creds, map[string]any{
				"name":        ct.Name(),
				"displayName": ct.DisplayName(),
				"properties":  ct.Properties(),
			})
		}
		return map[string]any{
			"nodes":       container.Descriptions(),
			"credentials": creds,
		}, nil
	}

	for _, desc := range container.Descriptions() {
		if desc.Name == name {
			return desc, nil
		}
	}
	return nil, fmt.Errorf("unknown node %q", name)
}
