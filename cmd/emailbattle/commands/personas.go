package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/emailbattle/pkg/battle"
	"github.com/haivivi/emailbattle/pkg/cli"
)

// scriptInfo is the listing form of a persona script.
type scriptInfo struct {
	Name       string `json:"name" yaml:"name" msgpack:"name"`
	Desc       string `json:"desc,omitempty" yaml:"desc,omitempty" msgpack:"desc,omitempty"`
	Evaluator  string `json:"evaluator" yaml:"evaluator" msgpack:"evaluator"`
	Respondent string `json:"respondent" yaml:"respondent" msgpack:"respondent"`
	Subject    string `json:"subject" yaml:"subject" msgpack:"subject"`
	Default    bool   `json:"default,omitempty" yaml:"default,omitempty" msgpack:"default,omitempty"`
}

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List persona scripts",
	Long: `List the persona scripts of the library in use: the embedded library, or
the file given by --personas / EMAILBATTLE_PERSONAS.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		lib, err := loadLibrary(cfg.Personas)
		if err != nil {
			return err
		}
		var list []scriptInfo
		for _, name := range lib.Names() {
			s, err := lib.Get(name)
			if err != nil {
				return err
			}
			list = append(list, scriptInfo{
				Name:       s.Name(),
				Desc:       s.Desc(),
				Evaluator:  s.Persona(battle.RoleEvaluator).Name,
				Respondent: s.Persona(battle.RoleRespondent).Name,
				Subject:    s.Envelope().Subject,
				Default:    name == lib.DefaultName(),
			})
		}
		if formatOutput != "" {
			return output(list, cli.FormatYAML)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tEVALUATOR\tRESPONDENT\tSUBJECT")
		for _, s := range list {
			name := s.Name
			if s.Default {
				name += " *"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, s.Evaluator, s.Respondent, s.Subject)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(personasCmd)
}
