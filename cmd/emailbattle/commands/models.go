package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/emailbattle/pkg/cli"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured models",
	Long: `List the models registered from the model config directory.

Each file in the directory (searched recursively, .yaml/.yml/.json) declares a
provider and one or more models:

  schema: openai/chat/v1
  api_key: $OPENAI_API_KEY
  models:
    - name: gpt-5.2
      model: gpt-5.2
      support_json_output: true

Supported schemas: openai/chat/v1, gemini/chat/v1, scripted/replay/v1.
Files whose api_key expands to nothing are skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		_, infos, err := loadModels(cfg.ModelsDir)
		if err != nil {
			return err
		}
		if formatOutput != "" {
			return output(infos, cli.FormatYAML)
		}
		if len(infos) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no models in %s\n", cfg.ModelsDir)
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tPROVIDER\tMODEL\tSOURCE")
		for _, m := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, m.Provider, m.DisplayName(), m.Source)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
