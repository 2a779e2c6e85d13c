package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/darkerego/particle-proxy/chains"
)

func CommandChains() *cli.Command {
	return &cli.Command{
		Name:  "chains",
		Usage: "list the supported networks",

		Action: func(_ *cli.Context) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "NETWORK\tCHAIN ID")
			for _, n := range chains.All() {
				fmt.Fprintf(w, "%s\t%d\n", n.Name, n.ChainID)
			}
			return w.Flush()
		},
	}
}
