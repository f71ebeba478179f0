// File: cmd/locate.go
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-replay/internal/browser/dom"
	"github.com/xkilldash9x/scalpel-replay/internal/browser/snapshot"
	"github.com/xkilldash9x/scalpel-replay/internal/observability"
)

// newLocateCmd creates and configures the `locate` command.
func newLocateCmd() *cobra.Command {
	var page string
	var wait time.Duration

	locateCmd := &cobra.Command{
		Use:   "locate <descriptor>",
		Short: "Shows how a target descriptor resolves on a page",
		Long: `Resolves a descriptor (text, CSS selector, aria-label or XPath) the way playback
does and prints the winning strategy, a generated selector and XPath, and whether
the element is visible and interactive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			doc, err := snapshot.New(cfg.Browser(), logger).Open(cmd.Context(), page)
			if err != nil {
				return err
			}
			finder := newFinder(doc, cfg, logger)

			descriptor := args[0]
			if wait > 0 {
				if _, err := finder.WaitFor(cmd.Context(), descriptor, wait); err != nil {
					return err
				}
			}
			el, strategy := finder.Resolve(descriptor)
			if el == nil {
				return &dom.NotFoundError{Descriptor: descriptor, Timeout: wait}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "strategy:    %s\n", strategy)
			fmt.Fprintf(out, "element:     <%s>\n", elementTag(doc, el))
			fmt.Fprintf(out, "selector:    %s\n", finder.GenerateSelector(el))
			fmt.Fprintf(out, "xpath:       %s\n", finder.GenerateXPath(el))
			fmt.Fprintf(out, "visible:     %t\n", finder.IsVisible(el))
			fmt.Fprintf(out, "interactive: %t\n", finder.IsInteractive(el))
			return nil
		},
	}

	locateCmd.Flags().StringVarP(&page, "page", "p", "", "HTML file or URL to search (required)")
	locateCmd.Flags().DurationVar(&wait, "wait", 0, "poll for the element for up to this long")
	_ = locateCmd.MarkFlagRequired("page")
	return locateCmd
}

func elementTag(doc *dom.Document, el *html.Node) string {
	var tag string
	doc.View(func(*html.Node) {
		tag = dom.TagName(el)
		if id, ok := dom.GetAttr(el, "id"); ok && id != "" {
			tag += fmt.Sprintf(" id=%q", id)
		}
	})
	return tag
}
