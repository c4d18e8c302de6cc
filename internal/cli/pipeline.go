package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aliskhannn/thumbor/internal/spec"
)

func newEncodeCmd() *cobra.Command {
	var base, source string

	cmd := &cobra.Command{
		Use:   "encode OP...",
		Short: "Encode operations into a pipeline token",
		Long: `Encode operations into a pipeline token. Operations run in argument order.

Operation forms:
  resize:WxH[:filter]   filter is one of undefined, nearest, triangle, catmullrom, gaussian, lanczos3
  seam:WxH              content-aware resize
  filter:KIND           KIND is one of oceanic, islands, marine
  watermark:X,Y`,
		Example: `  thumbctl encode resize:600x600:catmullrom filter:marine
  thumbctl encode --base http://localhost:8080 --source original/cat.jpg seam:300x200`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseOperations(args)
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("encoded pipeline", "pipeline", p.String(), "bytes", len(spec.Encode(p)))

			out := p.Token()
			if base != "" {
				if out, err = imageURL(base, out, source); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "server base URL; prints a full image URL instead of the bare token")
	cmd.Flags().StringVar(&source, "source", "", "source image path used with --base")

	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode TOKEN",
		Short: "Print the operations of a pipeline token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := spec.ParseToken(args[0])
			if err != nil {
				return fmt.Errorf("decode %q: %w", args[0], err)
			}

			w := cmd.OutOrStdout()
			if p.Len() == 0 {
				fmt.Fprintln(w, styleIndex.Render("(empty pipeline)"))
				return nil
			}
			for i, op := range p.Operations() {
				fmt.Fprintf(w, "%s %s\n", styleIndex.Render(fmt.Sprintf("%d.", i+1)), styleOperation.Render(op.String()))
			}
			return nil
		},
	}
}

func parseOperations(args []string) (spec.Pipeline, error) {
	ops := make([]spec.Operation, 0, len(args))
	for _, a := range args {
		op, err := spec.ParseOperation(a)
		if err != nil {
			return spec.Pipeline{}, err
		}
		ops = append(ops, op)
	}
	return spec.NewPipeline(ops...), nil
}

// imageURL joins the server base, the token and the source path into a render URL.
func imageURL(base, token, source string) (string, error) {
	if source == "" {
		return "", errors.New("--source is required with --base")
	}
	u, err := parseURL(base)
	if err != nil {
		return "", err
	}
	return u.JoinPath("image", token, strings.TrimPrefix(source, "/")).String(), nil
}

// parseURL accepts absolute http and https URLs only.
func parseURL(s string) (*url.URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", s, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid url %q: scheme must be http or https", s)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid url %q: missing host", s)
	}
	return u, nil
}
