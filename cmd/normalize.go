// File: cmd/normalize.go
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-replay/internal/observability"
	"github.com/xkilldash9x/scalpel-replay/internal/pipeline"
	"github.com/xkilldash9x/scalpel-replay/internal/store"
)

// newNormalizeCmd creates and configures the `normalize` command.
func newNormalizeCmd() *cobra.Command {
	var outputPath string

	normalizeCmd := &cobra.Command{
		Use:   "normalize <actions-file>",
		Short: "Validates an action file, merges duplicates and drops redundant waits",
		Long: `Runs the normalization pipeline over an action file. The result is written to
--output, whose extension picks the format, or to stdout in the input's format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			st := store.New(logger)

			actions, err := st.Load(args[0])
			if err != nil {
				return err
			}
			normalized, err := pipeline.Normalize(actions)
			if err != nil {
				return err
			}
			logger.Info("Normalized actions.",
				zap.Int("before", len(actions)),
				zap.Int("after", len(normalized)))

			if outputPath != "" {
				return st.Save(outputPath, normalized)
			}

			format, err := store.FormatFromPath(args[0])
			if err != nil {
				return err
			}
			data, err := store.Encode(normalized, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	normalizeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (.json, .yaml or .yml)")
	return normalizeCmd
}
