package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for causal
var RootCmd = &cobra.Command{
	Use:              "causal",
	Short:            "causal order broadcast",
	TraverseChildren: true,
}
