package commands

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type buildInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit"  yaml:"commit"`
	Built   string `json:"built"   yaml:"built"`
}

// NewVersionCommand creates the version command
func NewVersionCommand(version, commit, date string) *cobra.Command {
	info := buildInfo{Version: version, Commit: commit, Built: date}

	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display the Cabinet CLI build in the selected output format",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return render(cmd.OutOrStdout(), viper.GetString("output"), info, func(w io.Writer) error {
				return renderProperties(w, [][]string{
					{"Version", info.Version},
					{"Commit", info.Commit},
					{"Built", info.Built},
				})
			})
		},
	}
}
