package providers

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/krau/skraper/bootstrap"
	"github.com/krau/skraper/config"
	"github.com/krau/skraper/pkg/provider"
	"github.com/krau/skraper/providers/js"
)

var providersCmd = &cobra.Command{
	Use:     "providers",
	Aliases: []string{"ls"},
	Short:   "List available providers, plugins included",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, app, err := bootstrap.Init(cmd.Context(), config.GetConfigFile(cmd))
		if err != nil {
			return err
		}
		defer app.Close()
		return list(cmd.OutOrStdout(), app.Registry.Available())
	},
}

func Register(root *cobra.Command) {
	root.AddCommand(providersCmd)
}

type pluginProvider interface {
	Meta() js.PluginMeta
}

func list(w io.Writer, ps []provider.Provider) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tBASE URL\tPLUGIN")
	for _, p := range ps {
		plugin := "-"
		if pp, ok := p.(pluginProvider); ok {
			meta := pp.Meta()
			plugin = meta.Version
			if meta.Author != "" {
				plugin += " by " + meta.Author
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name(), p.BaseURL(), plugin)
	}
	return tw.Flush()
}
