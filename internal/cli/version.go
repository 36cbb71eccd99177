package cli

import (
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print version information",
	Long:    `Print the chatbuddy version, commit and build date.`,
	Example: `  chatbuddy version
  chatbuddy version -o json`,
	GroupID: "config",
	Args:    cobra.NoArgs,
	RunE:    runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
}

// versionView is the JSON shape of the version command.
type versionView struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	v := versionView{
		Version: buildInfo.Version,
		Commit:  buildInfo.Commit,
		Date:    buildInfo.Date,
		Go:      runtime.Version(),
	}
	return getCmdContext(cmd).Fmt.Emit(v, func(w io.Writer) error {
		out(w, "chatbuddy %s\n", formatVersion(buildInfo))
		out(w, "go: %s\n", v.Go)
		return nil
	})
}
