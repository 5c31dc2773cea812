package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/benvon/smart-snippets/internal/models"
	"github.com/benvon/smart-snippets/internal/tagging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type inferResult struct {
	Language models.Language `yaml:"language"`
	Tags     []string        `yaml:"tags"`
}

// NewInferCmd creates the command that prints the tags inferred for a file.
// It needs no database and makes tuning the rules quick.
func NewInferCmd() *cobra.Command {
	var language string
	var asYAML, listRules bool

	cmd := &cobra.Command{
		Use:   "infer [file]",
		Short: "Print the tags inferred for a source file",
		Long:  "Run tag inference over a file, or stdin when the file is '-' or omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if listRules {
				for _, label := range tagging.DefaultRuleSet().Labels() {
					fmt.Fprintln(out, label)
				}
				return nil
			}

			lang := models.Language(language)
			if !lang.Valid() {
				return fmt.Errorf("unknown language %q, expected one of %s", language, languageList())
			}

			code, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			tags := tagging.Infer(code, lang)

			if asYAML {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(inferResult{Language: lang, Tags: tags}); err != nil {
					return fmt.Errorf("encode yaml: %w", err)
				}
				return enc.Close()
			}
			fmt.Fprintln(out, strings.Join(tags, ", "))
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", string(models.LanguageOther), "Declared snippet language")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the result as YAML")
	cmd.Flags().BoolVar(&listRules, "rules", false, "List the concept labels in evaluation order and exit")

	return cmd
}

func readSource(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(b), nil
}

func languageList() string {
	names := make([]string, len(models.Languages))
	for i, l := range models.Languages {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}
