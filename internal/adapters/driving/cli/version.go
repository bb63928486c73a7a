package cli

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version number of newsdigest.`,
	Annotations: map[string]string{
		skipServicesAnnotation: "true",
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("newsdigest version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
